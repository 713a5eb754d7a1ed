package events

import "math/big"

const (
	// TypeBondingCollateralWhitelisted is emitted when the registry owner
	// whitelists a new collateral asset.
	TypeBondingCollateralWhitelisted = "bonding.collateral.whitelisted"
	// TypeBondingCollateralUpdated is emitted when a collateral entry's
	// mutable parameters change (capacity, bonus, conversion target).
	TypeBondingCollateralUpdated = "bonding.collateral.updated"
	// TypeBondingCollateralRemoved is emitted when an asset is removed from
	// the whitelist.
	TypeBondingCollateralRemoved = "bonding.collateral.removed"
	// TypeBondingTierDiscountUpdated is emitted when the per-tier base
	// discount table changes.
	TypeBondingTierDiscountUpdated = "bonding.tier.discount.updated"
	// TypeBondingBondOpened is emitted when a bond purchase opens a new
	// vesting position.
	TypeBondingBondOpened = "bonding.bond.opened"
	// TypeBondingClaimed is emitted when vested EMBER is claimed from a
	// position.
	TypeBondingClaimed = "bonding.bond.claimed"
	// TypeBondingEpochAdvanced is emitted when the rate-limit epoch rolls
	// over.
	TypeBondingEpochAdvanced = "bonding.epoch.advanced"
)

// BondingCollateralWhitelisted captures a newly whitelisted collateral asset.
type BondingCollateralWhitelisted struct {
	Asset       string
	Tier        uint8
	BonusBps    uint64
	MaxCapacity *big.Int
}

// EventType implements the Event interface.
func (BondingCollateralWhitelisted) EventType() string { return TypeBondingCollateralWhitelisted }

// BondingCollateralUpdated captures the state of a collateral entry after an
// owner-issued parameter update.
type BondingCollateralUpdated struct {
	Asset       string
	Tier        uint8
	BonusBps    uint64
	MaxCapacity *big.Int
}

// EventType implements the Event interface.
func (BondingCollateralUpdated) EventType() string { return TypeBondingCollateralUpdated }

// BondingCollateralRemoved records a whitelist removal.
type BondingCollateralRemoved struct {
	Asset string
}

// EventType implements the Event interface.
func (BondingCollateralRemoved) EventType() string { return TypeBondingCollateralRemoved }

// BondingTierDiscountUpdated records a change to a tier's base discount.
type BondingTierDiscountUpdated struct {
	Tier        uint8
	DiscountBps uint64
}

// EventType implements the Event interface.
func (BondingTierDiscountUpdated) EventType() string { return TypeBondingTierDiscountUpdated }

// BondingBondOpened captures the economics of a completed bond purchase.
type BondingBondOpened struct {
	Owner            [20]byte
	PositionID       uint64
	CollateralAsset  string
	CollateralAmount *big.Int
	ValueBase        *big.Int
	DiscountBps      uint64
	AmountOwed       *big.Int
	VestingStart     int64
	VestingEnd       int64
}

// EventType implements the Event interface.
func (BondingBondOpened) EventType() string { return TypeBondingBondOpened }

// BondingClaimed captures a successful claim against a vesting position.
type BondingClaimed struct {
	Owner      [20]byte
	PositionID uint64
	Amount     *big.Int
	Closed     bool
}

// EventType implements the Event interface.
func (BondingClaimed) EventType() string { return TypeBondingClaimed }

// BondingEpochAdvanced records an epoch rollover observed during bonding.
type BondingEpochAdvanced struct {
	EpochID    uint64
	EpochStart int64
}

// EventType implements the Event interface.
func (BondingEpochAdvanced) EventType() string { return TypeBondingEpochAdvanced }
