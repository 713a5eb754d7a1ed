package bonding

import (
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
)

// ErrNoQuote indicates that the oracle holds no observation for the requested
// feed symbol.
var ErrNoQuote = errors.New("bonding: no oracle quote available")

// FeedOracle is an in-process PriceOracle fed by trusted attesters. Each
// update overwrites the previous observation for the symbol; freshness policy
// is enforced by the valuer, not here, so historical reads stay possible for
// diagnostics.
type FeedOracle struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
	nowFn  func() time.Time
}

// NewFeedOracle constructs an empty feed oracle.
func NewFeedOracle() *FeedOracle {
	return &FeedOracle{
		quotes: make(map[string]PriceQuote),
		nowFn:  time.Now,
	}
}

// SetNowFunc overrides the time source used for observation timestamps.
func (o *FeedOracle) SetNowFunc(now func() time.Time) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if now == nil {
		o.nowFn = time.Now
		return
	}
	o.nowFn = now
}

// SetPrice records a new observation for the symbol stamped with the oracle's
// current time.
func (o *FeedOracle) SetPrice(symbol string, price *big.Int, decimals uint8) error {
	if o == nil {
		return errNilOracle
	}
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return errInvalidAsset
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes[trimmed] = PriceQuote{
		Price:     new(big.Int).Set(price),
		Decimals:  decimals,
		Timestamp: o.nowFn(),
	}
	return nil
}

// SetQuote records an observation with an explicit timestamp, used when
// relaying attested upstream data.
func (o *FeedOracle) SetQuote(symbol string, quote PriceQuote) error {
	if o == nil {
		return errNilOracle
	}
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return errInvalidAsset
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes[trimmed] = quote.Clone()
	return nil
}

// GetPrice implements the PriceOracle interface.
func (o *FeedOracle) GetPrice(symbol string) (PriceQuote, error) {
	if o == nil {
		return PriceQuote{}, errNilOracle
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	quote, ok := o.quotes[strings.TrimSpace(symbol)]
	if !ok {
		return PriceQuote{}, ErrNoQuote
	}
	return quote.Clone(), nil
}

// Symbols lists the feed symbols currently tracked by the oracle.
func (o *FeedOracle) Symbols() []string {
	if o == nil {
		return nil
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.quotes))
	for symbol := range o.quotes {
		out = append(out, symbol)
	}
	return out
}
