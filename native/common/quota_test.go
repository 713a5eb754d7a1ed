package common

import (
	"errors"
	"math/big"
	"testing"
)

func TestCheckQuotaAccumulatesWithinEpoch(t *testing.T) {
	quota := Quota{MaxValuePerEpoch: big.NewInt(100), EpochSeconds: 60}
	usage, err := CheckQuota(quota, 1, QuotaUsage{}, big.NewInt(60))
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if usage.EpochID != 1 || usage.ValueUsed.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
	usage, err = CheckQuota(quota, 1, usage, big.NewInt(40))
	if err != nil {
		t.Fatalf("add to exact cap: %v", err)
	}
	if usage.ValueUsed.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 used, got %s", usage.ValueUsed)
	}
	if _, err := CheckQuota(quota, 1, usage, big.NewInt(1)); !errors.Is(err, ErrQuotaValueExceeded) {
		t.Fatalf("expected ErrQuotaValueExceeded, got %v", err)
	}
}

func TestCheckQuotaFailureReturnsPreviousCounter(t *testing.T) {
	quota := Quota{MaxValuePerEpoch: big.NewInt(100)}
	prev := QuotaUsage{EpochID: 3, ValueUsed: big.NewInt(90)}
	got, err := CheckQuota(quota, 3, prev, big.NewInt(20))
	if !errors.Is(err, ErrQuotaValueExceeded) {
		t.Fatalf("expected ErrQuotaValueExceeded, got %v", err)
	}
	if got.EpochID != 3 || got.ValueUsed.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("failed check mutated the counter: %+v", got)
	}
}

func TestCheckQuotaResetsOnNewEpoch(t *testing.T) {
	quota := Quota{MaxValuePerEpoch: big.NewInt(100)}
	prev := QuotaUsage{EpochID: 1, ValueUsed: big.NewInt(100)}
	usage, err := CheckQuota(quota, 2, prev, big.NewInt(100))
	if err != nil {
		t.Fatalf("new epoch add: %v", err)
	}
	if usage.EpochID != 2 || usage.ValueUsed.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("counter not reset: %+v", usage)
	}
}

func TestCheckQuotaDisabledCap(t *testing.T) {
	for _, quota := range []Quota{{}, {MaxValuePerEpoch: big.NewInt(0)}} {
		usage, err := CheckQuota(quota, 1, QuotaUsage{}, big.NewInt(1_000_000))
		if err != nil {
			t.Fatalf("disabled cap rejected value: %v", err)
		}
		if usage.ValueUsed.Cmp(big.NewInt(1_000_000)) != 0 {
			t.Fatalf("unexpected usage: %+v", usage)
		}
	}
}

func TestCheckQuotaRejectsInvalidAmounts(t *testing.T) {
	quota := Quota{MaxValuePerEpoch: big.NewInt(100)}
	if _, err := CheckQuota(quota, 1, QuotaUsage{}, nil); !errors.Is(err, ErrQuotaInvalidAmount) {
		t.Fatalf("expected ErrQuotaInvalidAmount for nil, got %v", err)
	}
	if _, err := CheckQuota(quota, 1, QuotaUsage{}, big.NewInt(-1)); !errors.Is(err, ErrQuotaInvalidAmount) {
		t.Fatalf("expected ErrQuotaInvalidAmount for negative, got %v", err)
	}
}
