package bonding

import (
	"errors"
	"math/big"
	"testing"
)

var (
	testOwner    = [20]byte{0x01}
	testStranger = [20]byte{0x02}
)

func wei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), oneBase)
}

func newTestRegistry(t *testing.T) (*Registry, *memState) {
	t.Helper()
	st := newMemState()
	return NewRegistry(st, testOwner), st
}

func TestRegistryWhitelistRequiresOwner(t *testing.T) {
	registry, _ := newTestRegistry(t)
	entry := &CollateralEntry{Asset: "USDC", Tier: Tier1, BasePegged: true}
	if err := registry.Whitelist(testStranger, entry); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("owner whitelist failed: %v", err)
	}
	ok, err := registry.IsWhitelisted("USDC")
	if err != nil || !ok {
		t.Fatalf("expected USDC whitelisted, got ok=%v err=%v", ok, err)
	}
}

func TestRegistryWhitelistValidation(t *testing.T) {
	registry, _ := newTestRegistry(t)
	cases := []struct {
		name  string
		entry *CollateralEntry
	}{
		{"empty asset", &CollateralEntry{Asset: "  ", Tier: Tier1}},
		{"bad tier", &CollateralEntry{Asset: "X", Tier: RiskTier(9)}},
		{"bonus over range", &CollateralEntry{Asset: "X", Tier: Tier1, BonusBps: 10_001}},
		{"negative capacity", &CollateralEntry{Asset: "X", Tier: Tier1, MaxCapacity: big.NewInt(-1)}},
		{"conversion without target", &CollateralEntry{Asset: "X", Tier: Tier1, RequiresConversion: true}},
	}
	for _, tc := range cases {
		if err := registry.Whitelist(testOwner, tc.entry); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestRegistryDiscountCombinesTierAndBonus(t *testing.T) {
	registry, _ := newTestRegistry(t)
	if err := registry.SetTierDiscount(testOwner, Tier2, 2000); err != nil {
		t.Fatalf("set tier discount: %v", err)
	}
	entry := &CollateralEntry{Asset: "OHM-DAI-LP", Tier: Tier2, BonusBps: 500, PooledLiquidity: true}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	discount, err := registry.Discount("OHM-DAI-LP")
	if err != nil {
		t.Fatalf("discount: %v", err)
	}
	if discount != 2500 {
		t.Fatalf("expected 2500 bps, got %d", discount)
	}
}

func TestRegistryDiscountZeroForUnknownAsset(t *testing.T) {
	registry, _ := newTestRegistry(t)
	discount, err := registry.Discount("UNKNOWN")
	if err != nil {
		t.Fatalf("discount: %v", err)
	}
	if discount != 0 {
		t.Fatalf("expected zero discount, got %d", discount)
	}
}

func TestRegistryRecordBondEnforcesCapacity(t *testing.T) {
	registry, _ := newTestRegistry(t)
	entry := &CollateralEntry{Asset: "DAI", Tier: Tier1, BasePegged: true, MaxCapacity: wei(100)}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := registry.RecordBond("DAI", wei(60)); err != nil {
		t.Fatalf("first bond: %v", err)
	}
	if err := registry.RecordBond("DAI", wei(40)); err != nil {
		t.Fatalf("bond to exact cap: %v", err)
	}
	if err := registry.RecordBond("DAI", big.NewInt(1)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	remaining, bounded, err := registry.AvailableCapacity("DAI")
	if err != nil || !bounded {
		t.Fatalf("available capacity: bounded=%v err=%v", bounded, err)
	}
	if remaining.Sign() != 0 {
		t.Fatalf("expected zero remaining capacity, got %s", remaining)
	}
}

func TestRegistryRewhitelistPreservesTotalBonded(t *testing.T) {
	registry, _ := newTestRegistry(t)
	entry := &CollateralEntry{Asset: "DAI", Tier: Tier1, BasePegged: true, MaxCapacity: wei(100)}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := registry.RecordBond("DAI", wei(80)); err != nil {
		t.Fatalf("record bond: %v", err)
	}
	// Cycling the asset through the whitelist must not reset the counter.
	if err := registry.Whitelist(testOwner, entry.Clone()); err != nil {
		t.Fatalf("re-whitelist: %v", err)
	}
	if err := registry.RecordBond("DAI", wei(30)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded after re-whitelist, got %v", err)
	}
}

func TestRegistrySetCapacityBelowBondedRejected(t *testing.T) {
	registry, _ := newTestRegistry(t)
	entry := &CollateralEntry{Asset: "DAI", Tier: Tier1, BasePegged: true}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := registry.RecordBond("DAI", wei(50)); err != nil {
		t.Fatalf("record bond: %v", err)
	}
	if err := registry.SetCapacity(testOwner, "DAI", wei(40)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if err := registry.SetCapacity(testOwner, "DAI", wei(60)); err != nil {
		t.Fatalf("raising capacity above bonded failed: %v", err)
	}
	if err := registry.SetCapacity(testOwner, "DAI", nil); err != nil {
		t.Fatalf("clearing capacity failed: %v", err)
	}
	_, bounded, err := registry.AvailableCapacity("DAI")
	if err != nil {
		t.Fatalf("available capacity: %v", err)
	}
	if bounded {
		t.Fatal("expected unbounded capacity after clearing the cap")
	}
}

func TestRegistryRemoveBlocksNewBonds(t *testing.T) {
	registry, _ := newTestRegistry(t)
	entry := &CollateralEntry{Asset: "DAI", Tier: Tier1, BasePegged: true}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := registry.Remove(testOwner, "DAI"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := registry.RecordBond("DAI", wei(1)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	if err := registry.Remove(testOwner, "DAI"); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted on double remove, got %v", err)
	}
}

func TestRegistryConversionTargetToggle(t *testing.T) {
	registry, _ := newTestRegistry(t)
	entry := &CollateralEntry{Asset: "WBTC", Tier: Tier3, PriceFeed: "BTC"}
	if err := registry.Whitelist(testOwner, entry); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := registry.SetConversionTarget(testOwner, "WBTC", "DAI"); err != nil {
		t.Fatalf("set conversion: %v", err)
	}
	got, ok, err := registry.Entry("WBTC")
	if err != nil || !ok {
		t.Fatalf("entry: ok=%v err=%v", ok, err)
	}
	if !got.RequiresConversion || got.ConversionTarget != "DAI" {
		t.Fatalf("conversion not set: %+v", got)
	}
	if err := registry.SetConversionTarget(testOwner, "WBTC", ""); err != nil {
		t.Fatalf("clear conversion: %v", err)
	}
	got, _, _ = registry.Entry("WBTC")
	if got.RequiresConversion || got.ConversionTarget != "" {
		t.Fatalf("conversion not cleared: %+v", got)
	}
}
