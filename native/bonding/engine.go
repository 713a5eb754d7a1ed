package bonding

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"emberchain/core/events"
	"emberchain/native/common"
)

// Params groups the governance-controlled knobs of the bonding engine.
type Params struct {
	// NativeFeed is the oracle symbol pricing EMBER in base units.
	NativeFeed string
	// VestingSeconds is the linear vesting window opened by every bond.
	VestingSeconds uint64
	// EpochSeconds is the rate-limit window; zero disables epoch rollover.
	EpochSeconds uint64
	// MaxBondPerEpoch caps the base-unit value an account may bond within a
	// single epoch. Nil disables the cap.
	MaxBondPerEpoch *big.Int
	// MinBondValue rejects dust bonds below this base-unit value.
	MinBondValue *big.Int
	// SwapDeadlineSeconds bounds how long a conversion swap may stay pending.
	SwapDeadlineSeconds uint64
}

// DefaultParams returns the production defaults: 7 day vesting, 1 day epochs,
// 60 second swap deadlines, caps disabled.
func DefaultParams() Params {
	return Params{
		NativeFeed:          "EMBER",
		VestingSeconds:      7 * 24 * 60 * 60,
		EpochSeconds:        24 * 60 * 60,
		SwapDeadlineSeconds: 60,
	}
}

// Engine orchestrates bond purchases: whitelist, capacity and epoch checks,
// valuation, discount application, custody transfers and position opening.
//
// The engine serializes mutations behind a single mutex, which stands in for
// the sequential execution a chain substrate provides. Every external call
// (oracle, router, transfers, mint) happens before the final state commit;
// capacity and epoch counters are re-validated against freshly loaded state
// at commit time.
type Engine struct {
	mu         sync.Mutex
	state      ledgerState
	registry   *Registry
	valuer     *Valuer
	router     SwapRouter
	transferor TokenTransferor
	minter     MintAuthority
	emitter    events.Emitter
	pauses     common.PauseView
	nowFn      func() time.Time
	params     Params
	treasury   [20]byte
	custody    [20]byte
}

// NewEngine constructs a bonding engine with default parameters and a no-op
// emitter. State and collaborators are wired through the Set methods.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
		params:  DefaultParams(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state ledgerState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetRegistry wires the collateral registry consulted for discounts and
// capacity accounting.
func (e *Engine) SetRegistry(registry *Registry) {
	if e == nil {
		return
	}
	e.registry = registry
}

// SetValuer wires the collateral valuation module.
func (e *Engine) SetValuer(valuer *Valuer) {
	if e == nil {
		return
	}
	e.valuer = valuer
}

// SetRouter wires the swap router used for conversion-path collateral.
func (e *Engine) SetRouter(router SwapRouter) {
	if e == nil {
		return
	}
	e.router = router
}

// SetTransferor wires the fungible-asset transfer primitive.
func (e *Engine) SetTransferor(transferor TokenTransferor) {
	if e == nil {
		return
	}
	e.transferor = transferor
}

// SetMinter wires the external minting authority invoked on claims.
func (e *Engine) SetMinter(minter MintAuthority) {
	if e == nil {
		return
	}
	e.minter = minter
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause switches.
func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

// SetParams replaces the engine parameters.
func (e *Engine) SetParams(params Params) {
	if e == nil {
		return
	}
	if params.MaxBondPerEpoch != nil {
		params.MaxBondPerEpoch = new(big.Int).Set(params.MaxBondPerEpoch)
	}
	if params.MinBondValue != nil {
		params.MinBondValue = new(big.Int).Set(params.MinBondValue)
	}
	e.params = params
}

// Params returns a copy of the current engine parameters.
func (e *Engine) Params() Params {
	if e == nil {
		return Params{}
	}
	params := e.params
	if params.MaxBondPerEpoch != nil {
		params.MaxBondPerEpoch = new(big.Int).Set(params.MaxBondPerEpoch)
	}
	if params.MinBondValue != nil {
		params.MinBondValue = new(big.Int).Set(params.MinBondValue)
	}
	return params
}

// SetTreasury configures the account that receives bonded collateral.
func (e *Engine) SetTreasury(addr [20]byte) {
	if e == nil {
		return
	}
	e.treasury = addr
}

// SetCustody configures the engine's intermediate account for conversion
// swaps.
func (e *Engine) SetCustody(addr [20]byte) {
	if e == nil {
		return
	}
	e.custody = addr
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn().Unix()
}

// nativePrice reads the EMBER feed and returns the quote alongside the price
// normalized to base wei per whole token.
func (e *Engine) nativePrice() (PriceQuote, *big.Int, error) {
	quote, err := e.valuer.fetchQuote(e.params.NativeFeed)
	if err != nil {
		return PriceQuote{}, nil, err
	}
	normalized := mulDiv(quote.Price, oneBase, pow10(uint(quote.Decimals)))
	return quote, normalized, nil
}

// nativeAmount applies the discount and converts a base-unit value into EMBER
// wei: value * (10000 + discount) * 10^dec / (price * 10000).
func nativeAmount(value *big.Int, discountBps uint64, quote PriceQuote) *big.Int {
	num := new(big.Int).Add(bpsDenominator, new(big.Int).SetUint64(discountBps))
	num.Mul(num, pow10(uint(quote.Decimals)))
	den := new(big.Int).Mul(quote.Price, bpsDenominator)
	return mulDiv(value, num, den)
}

// Bond validates and executes a bond purchase, opening a vesting position and
// returning the EMBER amount owed to the caller.
//
// Failures leave the caller whole: the conversion path moves funds before the
// output-dependent checks can run, so any rejection after the custody pull is
// compensated before returning (the swap input when the swap itself fails,
// the swap output afterwards).
func (e *Engine) Bond(caller [20]byte, asset string, amount, minNativeOut *big.Int) (minted *big.Int, err error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.registry == nil {
		return nil, errNilState
	}
	if e.valuer == nil {
		return nil, errNilValuer
	}
	if e.transferor == nil {
		return nil, errNilTransferor
	}
	sanitized, err := sanitizeAsset(asset)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if minNativeOut == nil {
		minNativeOut = big.NewInt(0)
	}
	now := e.now()

	// Epoch rollover is idempotent and always runs first; it commits on its
	// own regardless of whether the bond below succeeds.
	epoch, err := e.advanceEpochIfNeeded(now)
	if err != nil {
		return nil, err
	}

	entry, ok, err := e.state.BondingCollateralGet(sanitized)
	if err != nil {
		return nil, err
	}
	if !ok || !entry.Whitelisted {
		return nil, ErrNotWhitelisted
	}

	finalAsset := sanitized
	finalAmount := new(big.Int).Set(amount)
	finalEntry := entry
	converted := false
	settled := false
	if entry.RequiresConversion {
		if e.router == nil {
			return nil, errNilRouter
		}
		// The collateral must sit in engine custody before the router can
		// spend it.
		if err := e.transferor.Pull(sanitized, caller, e.custody, amount); err != nil {
			return nil, fmt.Errorf("bonding: pull collateral: %w", err)
		}
		deadline := now + int64(e.params.SwapDeadlineSeconds)
		// The swap runs without a slippage floor on purpose: the binding
		// protection is minNativeOut, computed off the quantity actually
		// received rather than off the collateral sent in.
		out, swapErr := e.router.SwapExactIn(sanitized, amount, entry.ConversionTarget, big.NewInt(0), deadline)
		if swapErr != nil || out == nil || out.Sign() <= 0 {
			// A failed swap leaves the input in custody; hand it back.
			if swapErr == nil {
				swapErr = fmt.Errorf("router returned no output")
			}
			if refundErr := e.transferor.Transfer(sanitized, e.custody, caller, amount); refundErr != nil {
				return nil, fmt.Errorf("bonding: conversion swap: %v (refund failed: %v)", swapErr, refundErr)
			}
			return nil, fmt.Errorf("bonding: conversion swap: %w", swapErr)
		}
		finalAsset = entry.ConversionTarget
		finalAmount = out
		converted = true
		// Any rejection between here and settlement must return the swap
		// output to the caller: there is no enclosing transaction to unwind
		// the custody balance in the standalone deployment.
		defer func() {
			if err == nil || settled {
				return
			}
			if refundErr := e.transferor.Transfer(finalAsset, e.custody, caller, finalAmount); refundErr != nil {
				err = fmt.Errorf("%w (custody refund failed: %v)", err, refundErr)
			}
		}()
		finalEntry, ok, err = e.state.BondingCollateralGet(finalAsset)
		if err != nil {
			return nil, err
		}
		if !ok || !finalEntry.Whitelisted {
			return nil, ErrNotWhitelisted
		}
	}

	// Pre-check capacity before any further funds move. RecordBond re-checks
	// the same invariant against freshly loaded state at commit time.
	finalEntry.ensureTotals()
	if finalEntry.MaxCapacity != nil {
		projected := new(big.Int).Add(finalEntry.TotalBonded, finalAmount)
		if projected.Cmp(finalEntry.MaxCapacity) > 0 {
			return nil, ErrCapacityExceeded
		}
	}

	value, err := e.valuer.ValueInBaseUnits(finalEntry, finalAmount)
	if err != nil {
		return nil, err
	}
	if e.params.MinBondValue != nil && e.params.MinBondValue.Sign() > 0 && value.Cmp(e.params.MinBondValue) < 0 {
		return nil, ErrBondTooSmall
	}

	prevUsage, _, err := e.state.BondingEpochUsageGet(caller)
	if err != nil {
		return nil, err
	}
	quota := common.Quota{MaxValuePerEpoch: e.params.MaxBondPerEpoch, EpochSeconds: e.params.EpochSeconds}
	newUsage, err := common.CheckQuota(quota, epoch.EpochID, prevUsage, value)
	if err != nil {
		if errors.Is(err, common.ErrQuotaValueExceeded) {
			return nil, ErrExceedsMaxBond
		}
		return nil, err
	}

	// The discount keys off the asset the caller handed over, not the
	// post-conversion asset.
	discount, err := e.registry.Discount(sanitized)
	if err != nil {
		return nil, err
	}
	quote, normalizedPrice, err := e.nativePrice()
	if err != nil {
		return nil, err
	}
	native := nativeAmount(value, discount, quote)
	if native.Sign() <= 0 {
		return nil, ErrBondTooSmall
	}
	if native.Cmp(minNativeOut) < 0 {
		return nil, ErrSlippageExceeded
	}

	// Last external calls; everything after this point is local state.
	if converted {
		if err := e.transferor.Transfer(finalAsset, e.custody, e.treasury, finalAmount); err != nil {
			return nil, fmt.Errorf("bonding: settle converted collateral: %w", err)
		}
		settled = true
	} else {
		if err := e.transferor.Pull(sanitized, caller, e.treasury, amount); err != nil {
			return nil, fmt.Errorf("bonding: pull collateral: %w", err)
		}
	}

	// Capacity is re-validated inside RecordBond against freshly loaded
	// state, closing the gap between the quote-time read and the commit.
	if err := e.registry.RecordBond(finalAsset, finalAmount); err != nil {
		return nil, err
	}

	count, err := e.state.BondingPositionCount(caller)
	if err != nil {
		return nil, err
	}
	position := &BondPosition{
		ID:               count + 1,
		Owner:            caller,
		CollateralAsset:  sanitized,
		CollateralAmount: new(big.Int).Set(amount),
		AmountOwed:       native,
		AmountClaimed:    big.NewInt(0),
		VestingStart:     now,
		VestingEnd:       now + int64(e.params.VestingSeconds),
		PriceAtPurchase:  normalizedPrice,
	}
	if err := e.state.BondingPositionPut(position); err != nil {
		return nil, err
	}
	if err := e.state.BondingPositionSetCount(caller, count+1); err != nil {
		return nil, err
	}

	totals, ok, err := e.state.BondingTotalsGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		totals = &SupplyTotals{}
	}
	totals.ensure()
	totals.TotalOwed = new(big.Int).Add(totals.TotalOwed, native)
	if err := e.state.BondingTotalsPut(totals); err != nil {
		return nil, err
	}
	if err := e.state.BondingEpochUsagePut(caller, newUsage); err != nil {
		return nil, err
	}

	e.emit(events.BondingBondOpened{
		Owner:            caller,
		PositionID:       position.ID,
		CollateralAsset:  sanitized,
		CollateralAmount: new(big.Int).Set(amount),
		ValueBase:        new(big.Int).Set(value),
		DiscountBps:      discount,
		AmountOwed:       new(big.Int).Set(native),
		VestingStart:     position.VestingStart,
		VestingEnd:       position.VestingEnd,
	})
	return new(big.Int).Set(native), nil
}

// Quote previews the outcome of bonding the supplied amount without touching
// state. Conversion-path assets are valued off their own feed; the realized
// amount depends on the router at execution time.
func (e *Engine) Quote(asset string, amount *big.Int) (*BondQuote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.registry == nil {
		return nil, errNilState
	}
	if e.valuer == nil {
		return nil, errNilValuer
	}
	sanitized := strings.TrimSpace(asset)
	entry, ok, err := e.state.BondingCollateralGet(sanitized)
	if err != nil {
		return nil, err
	}
	if !ok || !entry.Whitelisted {
		return nil, ErrNotWhitelisted
	}
	value, err := e.valuer.ValueInBaseUnits(entry, amount)
	if err != nil {
		return nil, err
	}
	discount, err := e.registry.Discount(sanitized)
	if err != nil {
		return nil, err
	}
	quote, _, err := e.nativePrice()
	if err != nil {
		return nil, err
	}
	return &BondQuote{
		NativeOut:   nativeAmount(value, discount, quote),
		DiscountBps: discount,
		ValueBase:   value,
	}, nil
}

// Totals returns the aggregate native obligations opened and claimed through
// the engine.
func (e *Engine) Totals() (*SupplyTotals, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	totals, ok, err := e.state.BondingTotalsGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		totals = &SupplyTotals{}
	}
	totals.ensure()
	return totals.Clone(), nil
}
