package bonding

import (
	"math/big"
	"testing"
)

func TestMulDivRoundsHalfUp(t *testing.T) {
	cases := []struct {
		a, b, den int64
		want      int64
	}{
		{10, 10, 3, 33},  // 33.33 rounds down
		{10, 10, 40, 3},  // 2.5 rounds up
		{7, 3, 2, 11},    // 10.5 rounds up
		{1, 1, 3, 0},     // 0.33 rounds down
		{0, 100, 7, 0},   // zero numerator
		{100, 100, 1, 10_000},
	}
	for _, tc := range cases {
		got := mulDiv(big.NewInt(tc.a), big.NewInt(tc.b), big.NewInt(tc.den))
		if got.Int64() != tc.want {
			t.Fatalf("mulDiv(%d,%d,%d) = %s, want %d", tc.a, tc.b, tc.den, got, tc.want)
		}
	}
}

func TestMulDivDegenerateInputs(t *testing.T) {
	if got := mulDiv(nil, big.NewInt(1), big.NewInt(1)); got.Sign() != 0 {
		t.Fatalf("nil input should yield zero, got %s", got)
	}
	if got := mulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("zero denominator should yield zero, got %s", got)
	}
}

func TestMulDivFullPrecisionIntermediate(t *testing.T) {
	// The product of two 18-decimal amounts overflows 128 bits; the quotient
	// must still come back exact.
	a := new(big.Int).Mul(big.NewInt(123_456_789), oneBase)
	b := new(big.Int).Mul(big.NewInt(987_654_321), oneBase)
	got := mulDiv(a, b, oneBase)
	want := new(big.Int).Mul(big.NewInt(123_456_789), big.NewInt(987_654_321))
	want.Mul(want, oneBase)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestIsqrt(t *testing.T) {
	cases := []struct{ in, want int64 }{
		{0, 0},
		{1, 1},
		{2, 1},
		{4, 2},
		{15, 3},
		{16, 4},
		{1_000_000, 1000},
	}
	for _, tc := range cases {
		if got := isqrt(big.NewInt(tc.in)); got.Int64() != tc.want {
			t.Fatalf("isqrt(%d) = %s, want %d", tc.in, got, tc.want)
		}
	}
	if got := isqrt(big.NewInt(-9)); got.Sign() != 0 {
		t.Fatalf("negative input should yield zero, got %s", got)
	}
	if got := isqrt(nil); got.Sign() != 0 {
		t.Fatalf("nil input should yield zero, got %s", got)
	}
}
