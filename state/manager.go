package state

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"emberchain/native/bonding"
	"emberchain/native/common"
	"emberchain/storage"
)

// Key prefixes for the bonding module's persisted records.
var (
	keyCollateralPrefix = []byte("bonding/collateral/")
	keyCollateralIndex  = []byte("bonding/collateral-index")
	keyTierDiscounts    = []byte("bonding/tiers")
	keyPositionPrefix   = []byte("bonding/position/")
	keyPositionCount    = []byte("bonding/position-count/")
	keyEpoch            = []byte("bonding/epoch")
	keyEpochUsage       = []byte("bonding/epoch-usage/")
	keyTotals           = []byte("bonding/totals")
	keyBankPrefix       = []byte("bank/balance/")
)

// Manager is the explicit store object backing the bonding module: a
// JSON-codec key-value layer over a storage.Database. It implements the
// bonding and bank state interfaces. A single mutex keeps multi-key updates
// (entry plus index) consistent.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps a database in a state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", string(key), err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", string(key), err)
	}
	return m.db.Put(key, raw)
}

func collateralKey(asset string) []byte {
	return append(append([]byte(nil), keyCollateralPrefix...), []byte(asset)...)
}

func ownerKey(prefix []byte, owner [20]byte) []byte {
	return append(append([]byte(nil), prefix...), []byte(hex.EncodeToString(owner[:]))...)
}

func positionKey(owner [20]byte, id uint64) []byte {
	key := ownerKey(keyPositionPrefix, owner)
	key = append(key, '/')
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], id)
	return append(key, []byte(hex.EncodeToString(seq[:]))...)
}

func bankKey(asset string, owner [20]byte) []byte {
	key := append(append([]byte(nil), keyBankPrefix...), []byte(asset)...)
	key = append(key, '/')
	return append(key, []byte(hex.EncodeToString(owner[:]))...)
}

// --- bonding collateral registry ---

func (m *Manager) BondingCollateralGet(asset string) (*bonding.CollateralEntry, bool, error) {
	entry := &bonding.CollateralEntry{}
	ok, err := m.getJSON(collateralKey(asset), entry)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry, true, nil
}

func (m *Manager) BondingCollateralPut(entry *bonding.CollateralEntry) error {
	if entry == nil {
		return fmt.Errorf("state: nil collateral entry")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putJSON(collateralKey(entry.Asset), entry); err != nil {
		return err
	}
	return m.indexAdd(entry.Asset)
}

func (m *Manager) BondingCollateralDelete(asset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.Delete(collateralKey(asset)); err != nil {
		return err
	}
	return m.indexRemove(asset)
}

func (m *Manager) BondingCollateralList() ([]string, error) {
	var index []string
	if _, err := m.getJSON(keyCollateralIndex, &index); err != nil {
		return nil, err
	}
	sort.Strings(index)
	return index, nil
}

func (m *Manager) indexAdd(asset string) error {
	var index []string
	if _, err := m.getJSON(keyCollateralIndex, &index); err != nil {
		return err
	}
	for _, existing := range index {
		if existing == asset {
			return nil
		}
	}
	return m.putJSON(keyCollateralIndex, append(index, asset))
}

func (m *Manager) indexRemove(asset string) error {
	var index []string
	if _, err := m.getJSON(keyCollateralIndex, &index); err != nil {
		return err
	}
	filtered := index[:0]
	for _, existing := range index {
		if existing != asset {
			filtered = append(filtered, existing)
		}
	}
	return m.putJSON(keyCollateralIndex, filtered)
}

func (m *Manager) BondingTierDiscountsGet() (*bonding.TierDiscounts, bool, error) {
	table := &bonding.TierDiscounts{}
	ok, err := m.getJSON(keyTierDiscounts, table)
	if err != nil || !ok {
		return nil, false, err
	}
	return table, true, nil
}

func (m *Manager) BondingTierDiscountsPut(table *bonding.TierDiscounts) error {
	return m.putJSON(keyTierDiscounts, table)
}

// --- bonding positions ---

func (m *Manager) BondingPositionGet(owner [20]byte, id uint64) (*bonding.BondPosition, bool, error) {
	position := &bonding.BondPosition{}
	ok, err := m.getJSON(positionKey(owner, id), position)
	if err != nil || !ok {
		return nil, false, err
	}
	return position, true, nil
}

func (m *Manager) BondingPositionPut(position *bonding.BondPosition) error {
	if position == nil {
		return fmt.Errorf("state: nil bond position")
	}
	return m.putJSON(positionKey(position.Owner, position.ID), position)
}

func (m *Manager) BondingPositionCount(owner [20]byte) (uint64, error) {
	var count uint64
	if _, err := m.getJSON(ownerKey(keyPositionCount, owner), &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *Manager) BondingPositionSetCount(owner [20]byte, count uint64) error {
	return m.putJSON(ownerKey(keyPositionCount, owner), count)
}

// --- bonding epoch state ---

func (m *Manager) BondingEpochGet() (*bonding.EpochState, bool, error) {
	epoch := &bonding.EpochState{}
	ok, err := m.getJSON(keyEpoch, epoch)
	if err != nil || !ok {
		return nil, false, err
	}
	return epoch, true, nil
}

func (m *Manager) BondingEpochPut(epoch *bonding.EpochState) error {
	return m.putJSON(keyEpoch, epoch)
}

type storedUsage struct {
	EpochID   uint64   `json:"epochId"`
	ValueUsed *big.Int `json:"valueUsed"`
}

func (m *Manager) BondingEpochUsageGet(owner [20]byte) (common.QuotaUsage, bool, error) {
	stored := storedUsage{}
	ok, err := m.getJSON(ownerKey(keyEpochUsage, owner), &stored)
	if err != nil || !ok {
		return common.QuotaUsage{}, false, err
	}
	return common.QuotaUsage{EpochID: stored.EpochID, ValueUsed: stored.ValueUsed}, true, nil
}

func (m *Manager) BondingEpochUsagePut(owner [20]byte, usage common.QuotaUsage) error {
	return m.putJSON(ownerKey(keyEpochUsage, owner), storedUsage{
		EpochID:   usage.EpochID,
		ValueUsed: usage.ValueUsed,
	})
}

// --- bonding aggregate totals ---

func (m *Manager) BondingTotalsGet() (*bonding.SupplyTotals, bool, error) {
	totals := &bonding.SupplyTotals{}
	ok, err := m.getJSON(keyTotals, totals)
	if err != nil || !ok {
		return nil, false, err
	}
	return totals, true, nil
}

func (m *Manager) BondingTotalsPut(totals *bonding.SupplyTotals) error {
	return m.putJSON(keyTotals, totals)
}

// --- bank balances ---

func (m *Manager) BankBalanceGet(asset string, addr [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.getJSON(bankKey(asset, addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (m *Manager) BankBalancePut(asset string, addr [20]byte, balance *big.Int) error {
	if balance == nil {
		balance = big.NewInt(0)
	}
	return m.putJSON(bankKey(asset, addr), balance)
}
