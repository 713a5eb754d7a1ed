package bonding

import (
	"math/big"
	"time"
)

// Valuer converts collateral amounts into base units. Directly priced assets
// use a dual feed lookup (asset feed plus base feed) with decimal
// normalization; base-pegged assets are taken 1:1; pooled-liquidity assets are
// routed through the fair-LP algorithm.
type Valuer struct {
	oracle PriceOracle
	pools  PoolReader
	// baseFeed names the oracle symbol of the base asset. Empty means feed
	// prices are already denominated in base units.
	baseFeed    string
	maxQuoteAge time.Duration
	nowFn       func() time.Time
}

// NewValuer constructs a valuer over the supplied oracle and pool reader.
func NewValuer(oracle PriceOracle, pools PoolReader) *Valuer {
	return &Valuer{
		oracle: oracle,
		pools:  pools,
		nowFn:  time.Now,
	}
}

// SetBaseFeed configures the oracle symbol used to normalize asset prices
// into base units.
func (v *Valuer) SetBaseFeed(symbol string) {
	if v == nil {
		return
	}
	v.baseFeed = symbol
}

// SetMaxQuoteAge configures the staleness window applied to every feed read.
// A zero duration disables the guard.
func (v *Valuer) SetMaxQuoteAge(age time.Duration) {
	if v == nil {
		return
	}
	v.maxQuoteAge = age
}

// SetNowFunc overrides the time source used for staleness checks.
func (v *Valuer) SetNowFunc(now func() time.Time) {
	if v == nil {
		return
	}
	if now == nil {
		v.nowFn = time.Now
		return
	}
	v.nowFn = now
}

func (v *Valuer) now() time.Time {
	if v == nil || v.nowFn == nil {
		return time.Now()
	}
	return v.nowFn()
}

// fetchQuote reads a feed and enforces price validity and freshness. Garbage
// or stale prices block bonding instead of falling back to a default.
func (v *Valuer) fetchQuote(symbol string) (PriceQuote, error) {
	if v == nil || v.oracle == nil {
		return PriceQuote{}, errNilOracle
	}
	quote, err := v.oracle.GetPrice(symbol)
	if err != nil {
		return PriceQuote{}, err
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return PriceQuote{}, ErrInvalidPrice
	}
	if v.maxQuoteAge > 0 {
		if quote.Timestamp.IsZero() || v.now().Sub(quote.Timestamp) > v.maxQuoteAge {
			return PriceQuote{}, ErrStalePrice
		}
	}
	return quote, nil
}

// ValueInBaseUnits converts amount wei of the entry's asset into base wei.
func (v *Valuer) ValueInBaseUnits(entry *CollateralEntry, amount *big.Int) (*big.Int, error) {
	if v == nil {
		return nil, errNilValuer
	}
	if entry == nil {
		return nil, ErrNotWhitelisted
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if entry.PooledLiquidity {
		return v.fairShareValue(entry, amount)
	}
	if entry.BasePegged {
		return new(big.Int).Set(amount), nil
	}
	if entry.PriceFeed == "" {
		return nil, ErrNoPriceFeed
	}
	asset, err := v.fetchQuote(entry.PriceFeed)
	if err != nil {
		return nil, err
	}
	if v.baseFeed == "" {
		return mulDiv(amount, asset.Price, pow10(uint(asset.Decimals))), nil
	}
	base, err := v.fetchQuote(v.baseFeed)
	if err != nil {
		return nil, err
	}
	num := new(big.Int).Mul(asset.Price, pow10(uint(base.Decimals)))
	den := new(big.Int).Mul(base.Price, pow10(uint(asset.Decimals)))
	return mulDiv(amount, num, den), nil
}
