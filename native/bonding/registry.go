package bonding

import (
	"fmt"
	"math/big"
	"strings"

	"emberchain/core/events"
	"emberchain/native/common"
)

const moduleName = "bonding"

// Registry is the authoritative whitelist of accepted collateral. It holds no
// funds itself; administrative mutations are owner-gated and take effect
// immediately.
type Registry struct {
	st      ledgerState
	emitter events.Emitter
	owner   [20]byte
	pauses  common.PauseView
}

// NewRegistry creates a registry backed by the provided state manager and
// gated on the supplied owner account.
func NewRegistry(st ledgerState, owner [20]byte) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}, owner: owner}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses wires the module pause switches consulted on every mutation.
func (r *Registry) SetPauses(p common.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(evt)
}

func (r *Registry) requireOwner(caller [20]byte) error {
	if caller != r.owner {
		return ErrUnauthorized
	}
	return nil
}

func sanitizeAsset(asset string) (string, error) {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "", errInvalidAsset
	}
	return trimmed, nil
}

// Whitelist adds or re-activates a collateral entry. The cumulative bonded
// counter of an existing entry is preserved across re-whitelisting so the
// capacity invariant cannot be reset by cycling an asset.
func (r *Registry) Whitelist(caller [20]byte, entry *CollateralEntry) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if entry == nil {
		return errInvalidAsset
	}
	asset, err := sanitizeAsset(entry.Asset)
	if err != nil {
		return err
	}
	if !entry.Tier.Valid() {
		return fmt.Errorf("%w: %d", errInvalidTier, entry.Tier)
	}
	if entry.BonusBps > 10_000 {
		return fmt.Errorf("%w: bonus %d bps", errDiscountRange, entry.BonusBps)
	}
	if entry.MaxCapacity != nil && entry.MaxCapacity.Sign() < 0 {
		return errInvalidAmount
	}
	if entry.RequiresConversion {
		if _, err := sanitizeAsset(entry.ConversionTarget); err != nil {
			return fmt.Errorf("bonding: conversion target required for %s", asset)
		}
	}
	sanitized := entry.Clone()
	sanitized.Asset = asset
	sanitized.Whitelisted = true
	sanitized.ensureTotals()
	if existing, ok, err := r.st.BondingCollateralGet(asset); err != nil {
		return err
	} else if ok && existing.TotalBonded != nil {
		sanitized.TotalBonded = new(big.Int).Set(existing.TotalBonded)
	}
	if err := r.st.BondingCollateralPut(sanitized); err != nil {
		return err
	}
	r.emit(events.BondingCollateralWhitelisted{
		Asset:       sanitized.Asset,
		Tier:        uint8(sanitized.Tier),
		BonusBps:    sanitized.BonusBps,
		MaxCapacity: copyBigInt(sanitized.MaxCapacity),
	})
	return nil
}

// Remove deletes an asset from the whitelist. Open positions referencing the
// asset are unaffected; only new bonds are blocked.
func (r *Registry) Remove(caller [20]byte, asset string) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	sanitized, err := sanitizeAsset(asset)
	if err != nil {
		return err
	}
	if _, ok, err := r.st.BondingCollateralGet(sanitized); err != nil {
		return err
	} else if !ok {
		return ErrNotWhitelisted
	}
	if err := r.st.BondingCollateralDelete(sanitized); err != nil {
		return err
	}
	r.emit(events.BondingCollateralRemoved{Asset: sanitized})
	return nil
}

// SetTierDiscount updates the base discount for one tier.
func (r *Registry) SetTierDiscount(caller [20]byte, tier RiskTier, bps uint64) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: %d", errInvalidTier, tier)
	}
	if bps > 10_000 {
		return fmt.Errorf("%w: %d bps", errDiscountRange, bps)
	}
	table, ok, err := r.st.BondingTierDiscountsGet()
	if err != nil {
		return err
	}
	if !ok {
		table = &TierDiscounts{}
	}
	switch tier {
	case Tier1:
		table.Tier1Bps = bps
	case Tier2:
		table.Tier2Bps = bps
	case Tier3:
		table.Tier3Bps = bps
	case Tier4:
		table.Tier4Bps = bps
	}
	if err := r.st.BondingTierDiscountsPut(table); err != nil {
		return err
	}
	r.emit(events.BondingTierDiscountUpdated{Tier: uint8(tier), DiscountBps: bps})
	return nil
}

// SetCapacity replaces the capacity cap for an asset. A nil cap makes the
// asset unbounded. Lowering the cap below the amount already bonded is
// rejected to keep the capacity invariant intact.
func (r *Registry) SetCapacity(caller [20]byte, asset string, max *big.Int) error {
	return r.updateEntry(caller, asset, func(entry *CollateralEntry) error {
		if max != nil {
			if max.Sign() < 0 {
				return errInvalidAmount
			}
			if entry.TotalBonded != nil && entry.TotalBonded.Cmp(max) > 0 {
				return ErrCapacityExceeded
			}
			entry.MaxCapacity = new(big.Int).Set(max)
			return nil
		}
		entry.MaxCapacity = nil
		return nil
	})
}

// SetBonus replaces the tier-independent discount bonus for an asset.
func (r *Registry) SetBonus(caller [20]byte, asset string, bps uint64) error {
	return r.updateEntry(caller, asset, func(entry *CollateralEntry) error {
		if bps > 10_000 {
			return fmt.Errorf("%w: bonus %d bps", errDiscountRange, bps)
		}
		entry.BonusBps = bps
		return nil
	})
}

// SetConversionTarget configures or clears the swap-before-bond path for an
// asset.
func (r *Registry) SetConversionTarget(caller [20]byte, asset, target string) error {
	return r.updateEntry(caller, asset, func(entry *CollateralEntry) error {
		trimmed := strings.TrimSpace(target)
		if trimmed == "" {
			entry.RequiresConversion = false
			entry.ConversionTarget = ""
			return nil
		}
		entry.RequiresConversion = true
		entry.ConversionTarget = trimmed
		return nil
	})
}

func (r *Registry) updateEntry(caller [20]byte, asset string, mutate func(*CollateralEntry) error) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	sanitized, err := sanitizeAsset(asset)
	if err != nil {
		return err
	}
	entry, ok, err := r.st.BondingCollateralGet(sanitized)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotWhitelisted
	}
	entry.ensureTotals()
	if err := mutate(entry); err != nil {
		return err
	}
	if err := r.st.BondingCollateralPut(entry); err != nil {
		return err
	}
	r.emit(events.BondingCollateralUpdated{
		Asset:       entry.Asset,
		Tier:        uint8(entry.Tier),
		BonusBps:    entry.BonusBps,
		MaxCapacity: copyBigInt(entry.MaxCapacity),
	})
	return nil
}

// Entry returns a copy of the collateral entry for the asset.
func (r *Registry) Entry(asset string) (*CollateralEntry, bool, error) {
	if r == nil || r.st == nil {
		return nil, false, errNilState
	}
	entry, ok, err := r.st.BondingCollateralGet(strings.TrimSpace(asset))
	if err != nil || !ok {
		return nil, ok, err
	}
	return entry.Clone(), true, nil
}

// Assets lists the symbols currently present in the registry.
func (r *Registry) Assets() ([]string, error) {
	if r == nil || r.st == nil {
		return nil, errNilState
	}
	return r.st.BondingCollateralList()
}

// IsWhitelisted reports whether the asset may be bonded.
func (r *Registry) IsWhitelisted(asset string) (bool, error) {
	entry, ok, err := r.Entry(asset)
	if err != nil || !ok {
		return false, err
	}
	return entry.Whitelisted, nil
}

// Discount returns the total discount for the asset: the tier base discount
// plus the entry bonus. Non-whitelisted assets earn zero.
func (r *Registry) Discount(asset string) (uint64, error) {
	if r == nil || r.st == nil {
		return 0, errNilState
	}
	entry, ok, err := r.st.BondingCollateralGet(strings.TrimSpace(asset))
	if err != nil {
		return 0, err
	}
	if !ok || !entry.Whitelisted {
		return 0, nil
	}
	table, _, err := r.st.BondingTierDiscountsGet()
	if err != nil {
		return 0, err
	}
	return table.BaseDiscount(entry.Tier) + entry.BonusBps, nil
}

// AvailableCapacity returns the remaining bondable amount for the asset. The
// second return is false when the asset has unbounded capacity.
func (r *Registry) AvailableCapacity(asset string) (*big.Int, bool, error) {
	if r == nil || r.st == nil {
		return nil, false, errNilState
	}
	entry, ok, err := r.st.BondingCollateralGet(strings.TrimSpace(asset))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrNotWhitelisted
	}
	if entry.MaxCapacity == nil {
		return nil, false, nil
	}
	entry.ensureTotals()
	remaining := new(big.Int).Sub(entry.MaxCapacity, entry.TotalBonded)
	if remaining.Sign() < 0 {
		remaining = big.NewInt(0)
	}
	return remaining, true, nil
}

// RecordBond books a completed bond against the asset's capacity. The check
// and the counter update happen against the same freshly loaded entry so a
// concurrent-looking caller cannot slip past the cap.
func (r *Registry) RecordBond(asset string, amount *big.Int) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	sanitized, err := sanitizeAsset(asset)
	if err != nil {
		return err
	}
	entry, ok, err := r.st.BondingCollateralGet(sanitized)
	if err != nil {
		return err
	}
	if !ok || !entry.Whitelisted {
		return ErrNotWhitelisted
	}
	entry.ensureTotals()
	next := new(big.Int).Add(entry.TotalBonded, amount)
	if entry.MaxCapacity != nil && next.Cmp(entry.MaxCapacity) > 0 {
		return ErrCapacityExceeded
	}
	entry.TotalBonded = next
	return r.st.BondingCollateralPut(entry)
}
