package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"emberchain/native/bonding"
	"emberchain/native/common"
	"emberchain/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestManagerCollateralRoundtrip(t *testing.T) {
	m := newTestManager(t)

	_, ok, err := m.BondingCollateralGet("DAI")
	require.NoError(t, err)
	require.False(t, ok)

	entry := &bonding.CollateralEntry{
		Asset:       "DAI",
		Whitelisted: true,
		Tier:        bonding.Tier1,
		BonusBps:    250,
		MaxCapacity: big.NewInt(1_000_000),
		TotalBonded: big.NewInt(42),
		BasePegged:  true,
	}
	require.NoError(t, m.BondingCollateralPut(entry))

	got, ok, err := m.BondingCollateralGet("DAI")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.Asset, got.Asset)
	require.Equal(t, entry.Tier, got.Tier)
	require.Equal(t, entry.BonusBps, got.BonusBps)
	require.Zero(t, entry.MaxCapacity.Cmp(got.MaxCapacity))
	require.Zero(t, entry.TotalBonded.Cmp(got.TotalBonded))
	require.True(t, got.BasePegged)
}

func TestManagerCollateralIndex(t *testing.T) {
	m := newTestManager(t)
	for _, asset := range []string{"WETH", "DAI", "USDC"} {
		require.NoError(t, m.BondingCollateralPut(&bonding.CollateralEntry{Asset: asset}))
	}
	// Re-putting must not duplicate the index entry.
	require.NoError(t, m.BondingCollateralPut(&bonding.CollateralEntry{Asset: "DAI"}))

	list, err := m.BondingCollateralList()
	require.NoError(t, err)
	require.Equal(t, []string{"DAI", "USDC", "WETH"}, list)

	require.NoError(t, m.BondingCollateralDelete("USDC"))
	list, err = m.BondingCollateralList()
	require.NoError(t, err)
	require.Equal(t, []string{"DAI", "WETH"}, list)
}

func TestManagerPositionsPerOwner(t *testing.T) {
	m := newTestManager(t)
	alice := [20]byte{0x01}
	bob := [20]byte{0x02}

	position := &bonding.BondPosition{
		ID:               1,
		Owner:            alice,
		CollateralAsset:  "DAI",
		CollateralAmount: big.NewInt(1000),
		AmountOwed:       big.NewInt(125),
		AmountClaimed:    big.NewInt(0),
		VestingStart:     100,
		VestingEnd:       200,
		PriceAtPurchase:  big.NewInt(100),
	}
	require.NoError(t, m.BondingPositionPut(position))
	require.NoError(t, m.BondingPositionSetCount(alice, 1))

	got, ok, err := m.BondingPositionGet(alice, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, position.CollateralAsset, got.CollateralAsset)
	require.Zero(t, position.AmountOwed.Cmp(got.AmountOwed))

	// Ownership is part of the key.
	_, ok, err = m.BondingPositionGet(bob, 1)
	require.NoError(t, err)
	require.False(t, ok)

	count, err := m.BondingPositionCount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
	count, err = m.BondingPositionCount(bob)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestManagerEpochAndUsage(t *testing.T) {
	m := newTestManager(t)
	alice := [20]byte{0x01}

	_, ok, err := m.BondingEpochGet()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.BondingEpochPut(&bonding.EpochState{EpochID: 7, EpochStart: 12345}))
	epoch, ok, err := m.BondingEpochGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), epoch.EpochID)

	usage := common.QuotaUsage{EpochID: 7, ValueUsed: big.NewInt(999)}
	require.NoError(t, m.BondingEpochUsagePut(alice, usage))
	got, ok, err := m.BondingEpochUsageGet(alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), got.EpochID)
	require.Zero(t, got.ValueUsed.Cmp(big.NewInt(999)))
}

func TestManagerTotalsAndTiers(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.BondingTierDiscountsPut(&bonding.TierDiscounts{Tier2Bps: 2000}))
	table, ok, err := m.BondingTierDiscountsGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2000), table.Tier2Bps)

	require.NoError(t, m.BondingTotalsPut(&bonding.SupplyTotals{
		TotalOwed:    big.NewInt(500),
		TotalClaimed: big.NewInt(100),
	}))
	totals, ok, err := m.BondingTotalsGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, totals.TotalOwed.Cmp(big.NewInt(500)))
	require.Zero(t, totals.TotalClaimed.Cmp(big.NewInt(100)))
}

func TestManagerBankBalances(t *testing.T) {
	m := newTestManager(t)
	alice := [20]byte{0x01}

	balance, err := m.BankBalanceGet("EMBER", alice)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.NoError(t, m.BankBalancePut("EMBER", alice, big.NewInt(77)))
	balance, err = m.BankBalanceGet("EMBER", alice)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(77)))

	// Different asset namespaces do not collide.
	balance, err = m.BankBalanceGet("DAI", alice)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}
