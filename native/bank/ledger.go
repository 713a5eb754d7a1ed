package bank

import (
	"errors"
	"math/big"
	"strings"
	"sync"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	errNilState            = errors.New("bank: state not configured")
	errInvalidAmount       = errors.New("bank: amount must be positive")
	errInvalidAsset        = errors.New("bank: asset symbol required")
)

// ledgerState is the persistence surface for per-asset account balances.
type ledgerState interface {
	BankBalanceGet(asset string, addr [20]byte) (*big.Int, error)
	BankBalancePut(asset string, addr [20]byte, balance *big.Int) error
}

// Ledger is a multi-asset balance book. It implements the bonding module's
// TokenTransferor and MintAuthority interfaces for deployments where asset
// custody lives in local state (devnets, tests); chain deployments substitute
// the host chain's bank module.
type Ledger struct {
	mu          sync.Mutex
	st          ledgerState
	nativeAsset string
}

// NewLedger constructs a ledger minting the supplied native asset symbol.
func NewLedger(st ledgerState, nativeAsset string) *Ledger {
	return &Ledger{st: st, nativeAsset: strings.TrimSpace(nativeAsset)}
}

// Balance returns the asset balance held by the address.
func (l *Ledger) Balance(asset string, addr [20]byte) (*big.Int, error) {
	if l == nil || l.st == nil {
		return nil, errNilState
	}
	balance, err := l.st.BankBalanceGet(strings.TrimSpace(asset), addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

// Transfer moves amount of asset between two accounts.
func (l *Ledger) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	return l.move(asset, from, to, amount)
}

// Pull performs a caller-authorized debit. The local ledger grants the
// bonding engine standing authority, so the mechanics match Transfer.
func (l *Ledger) Pull(asset string, from, to [20]byte, amount *big.Int) error {
	return l.move(asset, from, to, amount)
}

// Mint credits freshly issued native units to the recipient.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if l == nil || l.st == nil {
		return errNilState
	}
	if l.nativeAsset == "" {
		return errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := l.st.BankBalanceGet(l.nativeAsset, to)
	if err != nil {
		return err
	}
	if balance == nil {
		balance = big.NewInt(0)
	}
	return l.st.BankBalancePut(l.nativeAsset, to, new(big.Int).Add(balance, amount))
}

func (l *Ledger) move(asset string, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.st == nil {
		return errNilState
	}
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromBalance, err := l.st.BankBalanceGet(trimmed, from)
	if err != nil {
		return err
	}
	if fromBalance == nil {
		fromBalance = big.NewInt(0)
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.st.BankBalanceGet(trimmed, to)
	if err != nil {
		return err
	}
	if toBalance == nil {
		toBalance = big.NewInt(0)
	}
	if err := l.st.BankBalancePut(trimmed, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.st.BankBalancePut(trimmed, to, new(big.Int).Add(toBalance, amount))
}
