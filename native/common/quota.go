package common

import (
	"errors"
	"math/big"
)

var (
	ErrQuotaValueExceeded = errors.New("quota value cap exceeded")
	ErrQuotaInvalidAmount = errors.New("quota amount must be non-negative")
)

// QuotaUsage captures the value consumed by an address within one epoch. The
// EpochID pins the counter to the rate-limit window it was accumulated in;
// counters from older epochs are implicitly discarded.
type QuotaUsage struct {
	EpochID   uint64
	ValueUsed *big.Int
}

// Clone returns a deep copy of the usage counter.
func (u QuotaUsage) Clone() QuotaUsage {
	clone := QuotaUsage{EpochID: u.EpochID}
	if u.ValueUsed != nil {
		clone.ValueUsed = new(big.Int).Set(u.ValueUsed)
	}
	return clone
}

// Quota defines the per-address value cap enforced for a module interaction
// within a single epoch. A nil or zero cap disables the limit.
type Quota struct {
	MaxValuePerEpoch *big.Int
	EpochSeconds     uint64
}

// CheckQuota verifies whether the additional value fits within the configured
// epoch cap. The returned QuotaUsage reflects the updated counter when the
// quota is not exceeded; on failure the previous counter is returned
// unchanged. A counter recorded under an older epoch is reset before the
// addition is applied.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaUsage, add *big.Int) (QuotaUsage, error) {
	if add == nil || add.Sign() < 0 {
		return prev, ErrQuotaInvalidAmount
	}
	next := prev.Clone()
	if prev.EpochID != nowEpoch {
		next = QuotaUsage{EpochID: nowEpoch, ValueUsed: big.NewInt(0)}
	}
	if next.ValueUsed == nil {
		next.ValueUsed = big.NewInt(0)
	}
	next.ValueUsed = new(big.Int).Add(next.ValueUsed, add)
	if q.MaxValuePerEpoch != nil && q.MaxValuePerEpoch.Sign() > 0 && next.ValueUsed.Cmp(q.MaxValuePerEpoch) > 0 {
		return prev, ErrQuotaValueExceeded
	}
	return next, nil
}
