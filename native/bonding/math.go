package bonding

import "math/big"

var (
	bpsDenominator = big.NewInt(10_000)
	oneBase        = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// mulDiv computes a*b/den with the product held at full precision and the
// quotient rounded half up. A nil or zero denominator yields zero. big.Int
// carries arbitrary precision, so the widened-intermediate requirement is met
// without a dedicated 256-bit type.
func mulDiv(a, b, den *big.Int) *big.Int {
	if a == nil || b == nil || den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfUp(den))
	product.Quo(product, den)
	return product
}

// isqrt returns the integer square root of x, or zero for nil and negative
// inputs.
func isqrt(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sqrt(x)
}

// pow10 returns 10^n.
func pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func halfUp(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Rsh(x, 1)
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
