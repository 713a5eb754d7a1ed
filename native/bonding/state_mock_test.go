package bonding

import (
	"fmt"
	"math/big"

	"emberchain/core/events"
	"emberchain/native/common"
)

// memState is the in-memory ledgerState used across the package tests.
type memState struct {
	collateral map[string]*CollateralEntry
	tiers      *TierDiscounts
	positions  map[[20]byte]map[uint64]*BondPosition
	counts     map[[20]byte]uint64
	epoch      *EpochState
	usage      map[[20]byte]common.QuotaUsage
	totals     *SupplyTotals
}

func newMemState() *memState {
	return &memState{
		collateral: make(map[string]*CollateralEntry),
		positions:  make(map[[20]byte]map[uint64]*BondPosition),
		counts:     make(map[[20]byte]uint64),
		usage:      make(map[[20]byte]common.QuotaUsage),
	}
}

func (m *memState) BondingCollateralGet(asset string) (*CollateralEntry, bool, error) {
	entry, ok := m.collateral[asset]
	if !ok {
		return nil, false, nil
	}
	return entry.Clone(), true, nil
}

func (m *memState) BondingCollateralPut(entry *CollateralEntry) error {
	m.collateral[entry.Asset] = entry.Clone()
	return nil
}

func (m *memState) BondingCollateralDelete(asset string) error {
	delete(m.collateral, asset)
	return nil
}

func (m *memState) BondingCollateralList() ([]string, error) {
	out := make([]string, 0, len(m.collateral))
	for asset := range m.collateral {
		out = append(out, asset)
	}
	return out, nil
}

func (m *memState) BondingTierDiscountsGet() (*TierDiscounts, bool, error) {
	if m.tiers == nil {
		return nil, false, nil
	}
	return m.tiers.Clone(), true, nil
}

func (m *memState) BondingTierDiscountsPut(table *TierDiscounts) error {
	m.tiers = table.Clone()
	return nil
}

func (m *memState) BondingPositionGet(owner [20]byte, id uint64) (*BondPosition, bool, error) {
	byID, ok := m.positions[owner]
	if !ok {
		return nil, false, nil
	}
	position, ok := byID[id]
	if !ok {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}

func (m *memState) BondingPositionPut(position *BondPosition) error {
	byID, ok := m.positions[position.Owner]
	if !ok {
		byID = make(map[uint64]*BondPosition)
		m.positions[position.Owner] = byID
	}
	byID[position.ID] = position.Clone()
	return nil
}

func (m *memState) BondingPositionCount(owner [20]byte) (uint64, error) {
	return m.counts[owner], nil
}

func (m *memState) BondingPositionSetCount(owner [20]byte, count uint64) error {
	m.counts[owner] = count
	return nil
}

func (m *memState) BondingEpochGet() (*EpochState, bool, error) {
	if m.epoch == nil {
		return nil, false, nil
	}
	return m.epoch.Clone(), true, nil
}

func (m *memState) BondingEpochPut(state *EpochState) error {
	m.epoch = state.Clone()
	return nil
}

func (m *memState) BondingEpochUsageGet(owner [20]byte) (common.QuotaUsage, bool, error) {
	usage, ok := m.usage[owner]
	if !ok {
		return common.QuotaUsage{}, false, nil
	}
	return usage.Clone(), true, nil
}

func (m *memState) BondingEpochUsagePut(owner [20]byte, usage common.QuotaUsage) error {
	m.usage[owner] = usage.Clone()
	return nil
}

func (m *memState) BondingTotalsGet() (*SupplyTotals, bool, error) {
	if m.totals == nil {
		return nil, false, nil
	}
	return m.totals.Clone(), true, nil
}

func (m *memState) BondingTotalsPut(totals *SupplyTotals) error {
	m.totals = totals.Clone()
	return nil
}

// mockTransferor records transfers and pulls; failures are injected through
// the fail flags.
type mockTransferor struct {
	pulls     []transferCall
	transfers []transferCall
	failPull  error
	failMove  error
}

type transferCall struct {
	asset  string
	from   [20]byte
	to     [20]byte
	amount *big.Int
}

func (m *mockTransferor) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	if m.failMove != nil {
		return m.failMove
	}
	m.transfers = append(m.transfers, transferCall{asset, from, to, new(big.Int).Set(amount)})
	return nil
}

func (m *mockTransferor) Pull(asset string, from, to [20]byte, amount *big.Int) error {
	if m.failPull != nil {
		return m.failPull
	}
	m.pulls = append(m.pulls, transferCall{asset, from, to, new(big.Int).Set(amount)})
	return nil
}

// mockMinter records mint requests.
type mockMinter struct {
	minted []transferCall
	fail   error
}

func (m *mockMinter) Mint(to [20]byte, amount *big.Int) error {
	if m.fail != nil {
		return m.fail
	}
	m.minted = append(m.minted, transferCall{to: to, amount: new(big.Int).Set(amount)})
	return nil
}

// balanceBook is a transferor that tracks real balances, so tests can assert
// where funds end up after failed operations.
type balanceBook struct {
	balances map[string]map[[20]byte]*big.Int
}

func newBalanceBook() *balanceBook {
	return &balanceBook{balances: make(map[string]map[[20]byte]*big.Int)}
}

func (b *balanceBook) set(asset string, addr [20]byte, amount *big.Int) {
	byAddr, ok := b.balances[asset]
	if !ok {
		byAddr = make(map[[20]byte]*big.Int)
		b.balances[asset] = byAddr
	}
	byAddr[addr] = new(big.Int).Set(amount)
}

func (b *balanceBook) balance(asset string, addr [20]byte) *big.Int {
	if byAddr, ok := b.balances[asset]; ok {
		if amount, ok := byAddr[addr]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}

func (b *balanceBook) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	have := b.balance(asset, from)
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient %s balance", asset)
	}
	b.set(asset, from, new(big.Int).Sub(have, amount))
	b.set(asset, to, new(big.Int).Add(b.balance(asset, to), amount))
	return nil
}

func (b *balanceBook) Pull(asset string, from, to [20]byte, amount *big.Int) error {
	return b.Transfer(asset, from, to, amount)
}

// bookRouter executes swaps against a balanceBook held by the custody
// account: the input is consumed and a fixed output is credited.
type bookRouter struct {
	book    *balanceBook
	custody [20]byte
	out     *big.Int
	fail    error
}

func (r *bookRouter) SwapExactIn(assetIn string, amountIn *big.Int, assetOut string, minOut *big.Int, deadline int64) (*big.Int, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	have := r.book.balance(assetIn, r.custody)
	if have.Cmp(amountIn) < 0 {
		return nil, fmt.Errorf("insufficient %s in custody", assetIn)
	}
	r.book.set(assetIn, r.custody, new(big.Int).Sub(have, amountIn))
	r.book.set(assetOut, r.custody, new(big.Int).Add(r.book.balance(assetOut, r.custody), r.out))
	return new(big.Int).Set(r.out), nil
}

// mockRouter swaps any input for a fixed output amount.
type mockRouter struct {
	out   *big.Int
	fail  error
	calls int
}

func (m *mockRouter) SwapExactIn(assetIn string, amountIn *big.Int, assetOut string, minOut *big.Int, deadline int64) (*big.Int, error) {
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	return new(big.Int).Set(m.out), nil
}

// mockPool serves a single constant-product pool.
type mockPool struct {
	asset0, asset1 string
	r0, r1         *big.Int
	shares         *big.Int
}

func (m *mockPool) Reserves(pool string) (*big.Int, *big.Int, int64, error) {
	return new(big.Int).Set(m.r0), new(big.Int).Set(m.r1), 0, nil
}

func (m *mockPool) TotalShares(pool string) (*big.Int, error) {
	return new(big.Int).Set(m.shares), nil
}

func (m *mockPool) Underlying(pool string) (string, string, error) {
	return m.asset0, m.asset1, nil
}

// eventRecorder captures emitted events for assertions.
type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}
