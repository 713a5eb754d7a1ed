package bonding

import (
	"math/big"
	"time"
)

// PriceQuote is a single oracle observation: the price of one whole token in
// whole base units, fixed-point scaled by 10^Decimals.
type PriceQuote struct {
	Price     *big.Int
	Decimals  uint8
	Timestamp time.Time
}

// Clone returns a deep copy of the quote to prevent accidental mutations.
func (q PriceQuote) Clone() PriceQuote {
	clone := PriceQuote{Decimals: q.Decimals, Timestamp: q.Timestamp}
	if q.Price != nil {
		clone.Price = new(big.Int).Set(q.Price)
	}
	return clone
}

// PriceOracle resolves the latest price observation for a feed symbol.
type PriceOracle interface {
	GetPrice(symbol string) (PriceQuote, error)
}

// PoolReader exposes the reserve state of an external liquidity pool whose
// share tokens are accepted as collateral.
type PoolReader interface {
	Reserves(pool string) (r0, r1 *big.Int, updatedAt int64, err error)
	TotalShares(pool string) (*big.Int, error)
	Underlying(pool string) (asset0, asset1 string, err error)
}

// SwapRouter converts collateral that is not held directly by the treasury
// into its whitelisted conversion target.
type SwapRouter interface {
	SwapExactIn(assetIn string, amountIn *big.Int, assetOut string, minOut *big.Int, deadline int64) (*big.Int, error)
}

// MintAuthority issues native EMBER when vested positions are claimed. Supply
// cap enforcement lives behind this interface, not in the bonding module.
type MintAuthority interface {
	Mint(to [20]byte, amount *big.Int) error
}

// TokenTransferor is the fungible-asset transfer primitive. Pull performs a
// caller-authorized debit into the destination account.
type TokenTransferor interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	Pull(asset string, from, to [20]byte, amount *big.Int) error
}
