package bonding

import "errors"

// Policy violations. Surfaced to the caller verbatim, never retried, and
// always leave state untouched.
var (
	ErrNotWhitelisted   = errors.New("bonding: collateral not whitelisted")
	ErrCapacityExceeded = errors.New("bonding: collateral capacity exceeded")
	ErrExceedsMaxBond   = errors.New("bonding: per-epoch bond cap exceeded")
	ErrBondTooSmall     = errors.New("bonding: bond value below minimum")
	ErrSlippageExceeded = errors.New("bonding: native output below requested minimum")
	ErrTooManyPositions = errors.New("bonding: claim batch exceeds position limit")
	ErrUnauthorized     = errors.New("bonding: caller is not the registry owner")
)

// Upstream-data faults. Bonding is blocked rather than priced off a default.
var (
	ErrInvalidPrice = errors.New("bonding: oracle reported a non-positive price")
	ErrStalePrice   = errors.New("bonding: oracle quote older than permitted age")
	ErrNoPriceFeed  = errors.New("bonding: no price feed configured for asset")
	ErrEmptyPool    = errors.New("bonding: liquidity pool has no reserves or shares")
)

// Nothing-to-do conditions, surfaced as errors so callers can tell a no-op
// apart from a successful zero-value operation.
var (
	ErrNothingToClaim   = errors.New("bonding: nothing vested to claim")
	ErrPositionNotFound = errors.New("bonding: position not found")
)

var (
	errNilState      = errors.New("bonding: state not configured")
	errNilValuer     = errors.New("bonding: valuer not configured")
	errNilOracle     = errors.New("bonding: price oracle not configured")
	errNilPoolReader = errors.New("bonding: pool reader not configured")
	errNilRouter     = errors.New("bonding: swap router not configured")
	errNilTransferor = errors.New("bonding: token transferor not configured")
	errNilMinter     = errors.New("bonding: mint authority not configured")
	errInvalidAmount = errors.New("bonding: amount must be positive")
	errInvalidTier   = errors.New("bonding: unknown risk tier")
	errInvalidAsset  = errors.New("bonding: asset symbol required")
	errDiscountRange = errors.New("bonding: discount exceeds 100%")
)
