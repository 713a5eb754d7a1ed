package bonding

import (
	"fmt"
	"math/big"

	"emberchain/core/events"
	"emberchain/native/common"
)

// MaxClaimBatch bounds the number of positions a single claim call may touch.
// Accounts with long histories page through their positions instead of
// iterating an unbounded collection.
const MaxClaimBatch = 50

// Claimable computes the amount currently withdrawable from a position at the
// supplied time: the linearly vested share of AmountOwed minus what has
// already been claimed. Vested amounts truncate, so repeated partial claims
// never overshoot; the final claim at or after VestingEnd always releases the
// exact remainder.
func Claimable(p *BondPosition, now int64) *big.Int {
	if p == nil || p.AmountOwed == nil || p.AmountOwed.Sign() <= 0 {
		return big.NewInt(0)
	}
	start := p.VestingStart
	end := p.VestingEnd
	if end < start {
		end = start
	}
	var vested *big.Int
	switch {
	case now >= end || end == start:
		vested = new(big.Int).Set(p.AmountOwed)
	case now <= start:
		vested = big.NewInt(0)
	default:
		elapsed := big.NewInt(now - start)
		duration := big.NewInt(end - start)
		vested = new(big.Int).Mul(p.AmountOwed, elapsed)
		vested.Quo(vested, duration)
	}
	claimed := p.AmountClaimed
	if claimed == nil {
		claimed = big.NewInt(0)
	}
	out := new(big.Int).Sub(vested, claimed)
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// Claim releases the vested remainder of one position, requesting the mint
// from the external authority before any state is written.
func (e *Engine) Claim(owner [20]byte, id uint64) (*big.Int, error) {
	return e.claimPositions(owner, []uint64{id})
}

// ClaimBatch releases the vested remainder of an explicit set of positions.
// At most MaxClaimBatch positions may be supplied.
func (e *Engine) ClaimBatch(owner [20]byte, ids []uint64) (*big.Int, error) {
	if len(ids) > MaxClaimBatch {
		return nil, ErrTooManyPositions
	}
	return e.claimPositions(owner, ids)
}

// ClaimAll pages through the owner's positions starting at the supplied
// 1-based position ID and claims from at most count of them. A zero count
// defaults to MaxClaimBatch; larger windows are rejected rather than silently
// truncated.
func (e *Engine) ClaimAll(owner [20]byte, start, count uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if count == 0 {
		count = MaxClaimBatch
	}
	if count > MaxClaimBatch {
		return nil, ErrTooManyPositions
	}
	if start == 0 {
		start = 1
	}
	total, err := e.state.BondingPositionCount(owner)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, count)
	for id := start; id <= total && uint64(len(ids)) < count; id++ {
		ids = append(ids, id)
	}
	return e.claimPositions(owner, ids)
}

// claimPositions is the shared claim path: it computes the claimable amount
// for every referenced position, performs a single aggregate mint, then
// commits all position and totals updates. A mint failure leaves every
// position untouched.
func (e *Engine) claimPositions(owner [20]byte, ids []uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.minter == nil {
		return nil, errNilMinter
	}
	if len(ids) == 0 {
		return nil, ErrNothingToClaim
	}
	now := e.now()

	type pendingClaim struct {
		position *BondPosition
		amount   *big.Int
	}
	seen := make(map[uint64]bool, len(ids))
	pending := make([]pendingClaim, 0, len(ids))
	totalOut := big.NewInt(0)
	explicit := len(ids) == 1
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		position, ok, err := e.state.BondingPositionGet(owner, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			if explicit {
				return nil, ErrPositionNotFound
			}
			continue
		}
		amount := Claimable(position, now)
		if amount.Sign() <= 0 {
			continue
		}
		pending = append(pending, pendingClaim{position: position, amount: amount})
		totalOut.Add(totalOut, amount)
	}
	if len(pending) == 0 || totalOut.Sign() <= 0 {
		return nil, ErrNothingToClaim
	}

	// Single external call, then the atomic local commit.
	if err := e.minter.Mint(owner, totalOut); err != nil {
		return nil, fmt.Errorf("bonding: mint claim: %w", err)
	}

	totals, ok, err := e.state.BondingTotalsGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		totals = &SupplyTotals{}
	}
	totals.ensure()
	for _, claim := range pending {
		position := claim.position
		if position.AmountClaimed == nil {
			position.AmountClaimed = big.NewInt(0)
		}
		position.AmountClaimed = new(big.Int).Add(position.AmountClaimed, claim.amount)
		position.Closed = position.AmountClaimed.Cmp(position.AmountOwed) >= 0
		if err := e.state.BondingPositionPut(position); err != nil {
			return nil, err
		}
		e.emit(events.BondingClaimed{
			Owner:      owner,
			PositionID: position.ID,
			Amount:     new(big.Int).Set(claim.amount),
			Closed:     position.Closed,
		})
	}
	totals.TotalClaimed = new(big.Int).Add(totals.TotalClaimed, totalOut)
	if err := e.state.BondingTotalsPut(totals); err != nil {
		return nil, err
	}
	return totalOut, nil
}

// ClaimableOf sums the currently claimable amount across every position the
// owner holds. Read-only; intended for quoting and UIs.
func (e *Engine) ClaimableOf(owner [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total, err := e.state.BondingPositionCount(owner)
	if err != nil {
		return nil, err
	}
	now := e.now()
	sum := big.NewInt(0)
	for id := uint64(1); id <= total; id++ {
		position, ok, err := e.state.BondingPositionGet(owner, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		sum.Add(sum, Claimable(position, now))
	}
	return sum, nil
}

// Positions returns copies of every position the owner holds, oldest first.
func (e *Engine) Positions(owner [20]byte) ([]*BondPosition, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total, err := e.state.BondingPositionCount(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*BondPosition, 0, total)
	for id := uint64(1); id <= total; id++ {
		position, ok, err := e.state.BondingPositionGet(owner, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, position.Clone())
	}
	return out, nil
}
