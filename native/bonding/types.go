package bonding

import (
	"math/big"

	"emberchain/native/common"
)

// RiskTier classifies a collateral asset and selects its base discount rate.
type RiskTier uint8

const (
	// Tier1 covers the lowest-risk collateral (base-pegged or deeply liquid).
	Tier1 RiskTier = iota + 1
	// Tier2 covers liquid assets with moderate volatility.
	Tier2
	// Tier3 covers volatile or thinly traded assets.
	Tier3
	// Tier4 covers the highest-risk collateral accepted by governance.
	Tier4
)

// Valid reports whether the tier is one of the four configured classes.
func (t RiskTier) Valid() bool {
	return t >= Tier1 && t <= Tier4
}

// TierDiscounts maps each risk tier to its base discount in basis points.
// The table is owner-controlled and read on every bond.
type TierDiscounts struct {
	Tier1Bps uint64 `json:"tier1Bps"`
	Tier2Bps uint64 `json:"tier2Bps"`
	Tier3Bps uint64 `json:"tier3Bps"`
	Tier4Bps uint64 `json:"tier4Bps"`
}

// BaseDiscount returns the base discount configured for the supplied tier.
func (d *TierDiscounts) BaseDiscount(tier RiskTier) uint64 {
	if d == nil {
		return 0
	}
	switch tier {
	case Tier1:
		return d.Tier1Bps
	case Tier2:
		return d.Tier2Bps
	case Tier3:
		return d.Tier3Bps
	case Tier4:
		return d.Tier4Bps
	default:
		return 0
	}
}

// Clone returns a copy of the discount table.
func (d *TierDiscounts) Clone() *TierDiscounts {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// CollateralEntry describes one whitelisted collateral asset. Amount values
// are 18-decimal wei expressed as big integers to match on-chain precision.
type CollateralEntry struct {
	// Asset is the canonical symbol identifying the collateral.
	Asset string `json:"asset"`
	// Whitelisted gates the asset in or out of bonding without deleting the
	// historical entry.
	Whitelisted bool `json:"whitelisted"`
	// Tier selects the base discount applied on top of the entry bonus.
	Tier RiskTier `json:"tier"`
	// BonusBps is the tier-independent discount bonus in basis points.
	BonusBps uint64 `json:"bonusBps"`
	// MaxCapacity bounds the cumulative bonded amount. Nil means unbounded.
	MaxCapacity *big.Int `json:"maxCapacity,omitempty"`
	// TotalBonded accumulates every recorded bond and only ever increases.
	TotalBonded *big.Int `json:"totalBonded"`
	// PriceFeed names the oracle symbol used to value the asset. Empty is
	// only legal when BasePegged or PooledLiquidity is set.
	PriceFeed string `json:"priceFeed,omitempty"`
	// BasePegged marks assets valued 1:1 with the base unit. This is an
	// explicit, owner-audited configuration choice rather than a fallback.
	BasePegged bool `json:"basePegged,omitempty"`
	// PooledLiquidity marks LP share tokens valued via the fair-LP algorithm.
	PooledLiquidity bool `json:"pooledLiquidity,omitempty"`
	// RequiresConversion routes the asset through the swap router before
	// valuation and capacity accounting.
	RequiresConversion bool `json:"requiresConversion,omitempty"`
	// ConversionTarget is the whitelisted asset received from the router.
	ConversionTarget string `json:"conversionTarget,omitempty"`
}

// Clone returns a deep copy of the entry to protect internal references.
func (c *CollateralEntry) Clone() *CollateralEntry {
	if c == nil {
		return nil
	}
	clone := *c
	if c.MaxCapacity != nil {
		clone.MaxCapacity = new(big.Int).Set(c.MaxCapacity)
	}
	if c.TotalBonded != nil {
		clone.TotalBonded = new(big.Int).Set(c.TotalBonded)
	}
	return &clone
}

func (c *CollateralEntry) ensureTotals() {
	if c.TotalBonded == nil {
		c.TotalBonded = big.NewInt(0)
	}
}

// BondPosition records the obligation opened by a single bond purchase. The
// position is retained after full vesting for auditability and is flagged
// Closed once AmountClaimed reaches AmountOwed.
type BondPosition struct {
	ID               uint64   `json:"id"`
	Owner            [20]byte `json:"owner"`
	CollateralAsset  string   `json:"collateralAsset"`
	CollateralAmount *big.Int `json:"collateralAmount"`
	AmountOwed       *big.Int `json:"amountOwed"`
	AmountClaimed    *big.Int `json:"amountClaimed"`
	VestingStart     int64    `json:"vestingStart"`
	VestingEnd       int64    `json:"vestingEnd"`
	// PriceAtPurchase is the EMBER price in base wei per whole token at the
	// time the bond was struck.
	PriceAtPurchase *big.Int `json:"priceAtPurchase"`
	Closed          bool     `json:"closed"`
}

// Clone returns a deep copy of the position.
func (p *BondPosition) Clone() *BondPosition {
	if p == nil {
		return nil
	}
	clone := *p
	if p.CollateralAmount != nil {
		clone.CollateralAmount = new(big.Int).Set(p.CollateralAmount)
	}
	if p.AmountOwed != nil {
		clone.AmountOwed = new(big.Int).Set(p.AmountOwed)
	}
	if p.AmountClaimed != nil {
		clone.AmountClaimed = new(big.Int).Set(p.AmountClaimed)
	}
	if p.PriceAtPurchase != nil {
		clone.PriceAtPurchase = new(big.Int).Set(p.PriceAtPurchase)
	}
	return &clone
}

// EpochState tracks the rolling rate-limit window shared by all accounts.
type EpochState struct {
	EpochID    uint64 `json:"epochId"`
	EpochStart int64  `json:"epochStart"`
}

// Clone returns a copy of the epoch state.
func (s *EpochState) Clone() *EpochState {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// SupplyTotals aggregates the engine-wide native obligations for supply
// pressure reporting. TotalClaimed never exceeds TotalOwed.
type SupplyTotals struct {
	TotalOwed    *big.Int `json:"totalOwed"`
	TotalClaimed *big.Int `json:"totalClaimed"`
}

// Clone returns a deep copy of the totals.
func (t *SupplyTotals) Clone() *SupplyTotals {
	if t == nil {
		return nil
	}
	clone := &SupplyTotals{}
	if t.TotalOwed != nil {
		clone.TotalOwed = new(big.Int).Set(t.TotalOwed)
	}
	if t.TotalClaimed != nil {
		clone.TotalClaimed = new(big.Int).Set(t.TotalClaimed)
	}
	return clone
}

func (t *SupplyTotals) ensure() {
	if t.TotalOwed == nil {
		t.TotalOwed = big.NewInt(0)
	}
	if t.TotalClaimed == nil {
		t.TotalClaimed = big.NewInt(0)
	}
}

// BondQuote is the read-only preview returned for a prospective bond.
type BondQuote struct {
	NativeOut   *big.Int `json:"nativeOut"`
	DiscountBps uint64   `json:"discountBps"`
	ValueBase   *big.Int `json:"valueBase"`
}

// ledgerState is the persistence surface required by the registry, engine and
// vesting ledger. The state package provides the production implementation;
// tests supply in-memory mocks.
type ledgerState interface {
	BondingCollateralGet(asset string) (*CollateralEntry, bool, error)
	BondingCollateralPut(entry *CollateralEntry) error
	BondingCollateralDelete(asset string) error
	BondingCollateralList() ([]string, error)
	BondingTierDiscountsGet() (*TierDiscounts, bool, error)
	BondingTierDiscountsPut(table *TierDiscounts) error
	BondingPositionGet(owner [20]byte, id uint64) (*BondPosition, bool, error)
	BondingPositionPut(position *BondPosition) error
	BondingPositionCount(owner [20]byte) (uint64, error)
	BondingPositionSetCount(owner [20]byte, count uint64) error
	BondingEpochGet() (*EpochState, bool, error)
	BondingEpochPut(state *EpochState) error
	BondingEpochUsageGet(owner [20]byte) (common.QuotaUsage, bool, error)
	BondingEpochUsagePut(owner [20]byte, usage common.QuotaUsage) error
	BondingTotalsGet() (*SupplyTotals, bool, error)
	BondingTotalsPut(totals *SupplyTotals) error
}
