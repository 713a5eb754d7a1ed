package bonding

import "math/big"

// FairPoolValue prices an entire constant-product pool from its invariant and
// externally sourced prices:
//
//	fair = 2 * sqrt(r0*r1) * sqrt(p0*p1 / 10^(d0+d1))
//
// computed as 2*isqrt(r0*r1*p0*p1*10^(d0+d1)) / 10^(d0+d1) so the result is a
// function of the invariant k = r0*r1 alone. A swap that moves reserves along
// the curve leaves the valuation unchanged, which is what defeats
// single-transaction reserve skew.
func FairPoolValue(r0, r1 *big.Int, q0, q1 PriceQuote) (*big.Int, error) {
	if r0 == nil || r1 == nil || r0.Sign() <= 0 || r1.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	if q0.Price == nil || q0.Price.Sign() <= 0 || q1.Price == nil || q1.Price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	scale := pow10(uint(q0.Decimals) + uint(q1.Decimals))
	radicand := new(big.Int).Mul(r0, r1)
	radicand.Mul(radicand, q0.Price)
	radicand.Mul(radicand, q1.Price)
	radicand.Mul(radicand, scale)
	fair := isqrt(radicand)
	fair.Lsh(fair, 1)
	fair.Add(fair, halfUp(scale))
	fair.Quo(fair, scale)
	return fair, nil
}

// fairShareValue values a holder's LP shares as their pro-rata slice of the
// fair pool value, normalized into base units when a base feed is configured.
func (v *Valuer) fairShareValue(entry *CollateralEntry, shares *big.Int) (*big.Int, error) {
	if v.pools == nil {
		return nil, errNilPoolReader
	}
	pool := entry.Asset
	asset0, asset1, err := v.pools.Underlying(pool)
	if err != nil {
		return nil, err
	}
	r0, r1, _, err := v.pools.Reserves(pool)
	if err != nil {
		return nil, err
	}
	supply, err := v.pools.TotalShares(pool)
	if err != nil {
		return nil, err
	}
	if supply == nil || supply.Sign() <= 0 {
		return nil, ErrEmptyPool
	}
	q0, err := v.fetchQuote(asset0)
	if err != nil {
		return nil, err
	}
	q1, err := v.fetchQuote(asset1)
	if err != nil {
		return nil, err
	}
	fair, err := FairPoolValue(r0, r1, q0, q1)
	if err != nil {
		return nil, err
	}
	if v.baseFeed != "" {
		base, err := v.fetchQuote(v.baseFeed)
		if err != nil {
			return nil, err
		}
		fair = mulDiv(fair, pow10(uint(base.Decimals)), base.Price)
	}
	return mulDiv(fair, shares, supply), nil
}
