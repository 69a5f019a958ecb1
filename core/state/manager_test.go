package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"vexchain/core/types"
	"vexchain/crypto"
	"vexchain/native/amm"
	"vexchain/native/oracle"
	"vexchain/native/policy"
	"vexchain/native/savings"
	"vexchain/native/vault"
	"vexchain/storage"
)

func testAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.VexPrefix, raw)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestMissingRecordsReadAsNil(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddress(0x01)

	pool, err := manager.AmmPool()
	require.NoError(t, err)
	require.Nil(t, pool)

	v, err := manager.Vault(addr)
	require.NoError(t, err)
	require.Nil(t, v)

	pol, err := manager.Policy()
	require.NoError(t, err)
	require.Nil(t, pol)

	acc, err := manager.GetAccount(addr)
	require.NoError(t, err)
	require.Nil(t, acc)

	index, err := manager.DebtIndex()
	require.NoError(t, err)
	require.Empty(t, index)
}

func TestAmmPoolRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	pool := &amm.Pool{
		ReserveVEX:        1_000_000,
		ReserveVUSD:       2_000_000,
		TotalShares:       1_414_213,
		FeeBps:            30,
		SellTaxBps:        100,
		BootstrapPriceNum: 2,
		BootstrapPriceDen: 1,
		Seeder:            testAddress(0x01).Bytes(),
		Finalized:         true,
		HouseFeesVEX:      55,
		HouseFeesVUSD:     66,
	}
	require.NoError(t, manager.PutAmmPool(pool))

	got, err := manager.AmmPool()
	require.NoError(t, err)
	require.Equal(t, pool, got)
}

func TestVaultRecordsRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := testAddress(0x02)
	other := testAddress(0x03)

	v := &vault.Vault{Collateral: 1_000, Debt: 400, LastAccrualTS: 99}
	require.NoError(t, manager.PutVault(owner, v))

	got, err := manager.Vault(owner)
	require.NoError(t, err)
	require.Equal(t, v, got)

	missing, err := manager.Vault(other)
	require.NoError(t, err)
	require.Nil(t, missing)

	globals := &vault.Globals{
		TotalDebt:            400,
		StabilityFeesAccrued: 3,
		RecoveryPoolVUSD:     1_000,
		RecoveryPoolVEX:      7,
	}
	require.NoError(t, manager.PutVaultGlobals(globals))
	gotGlobals, err := manager.VaultGlobals()
	require.NoError(t, err)
	require.Equal(t, globals, gotGlobals)

	index := []vault.DebtEntry{
		{Addr: owner.Bytes(), Debt: 400},
		{Addr: other.Bytes(), Debt: 100},
	}
	require.NoError(t, manager.PutDebtIndex(index))
	gotIndex, err := manager.DebtIndex()
	require.NoError(t, err)
	require.Equal(t, index, gotIndex)
}

func TestSavingsRecordsRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	saver := testAddress(0x04)

	pool := &savings.Pool{
		TotalDeposits:  5_000,
		PendingRewards: 13,
		RewardPerShare: uint256.NewInt(123_456_789),
	}
	require.NoError(t, manager.PutSavingsPool(pool))
	gotPool, err := manager.SavingsPool()
	require.NoError(t, err)
	require.Equal(t, pool, gotPool)

	balance := &savings.Balance{
		DepositBalance:   2_000,
		RewardDebt:       uint256.NewInt(98_765),
		UnclaimedRewards: 42,
	}
	require.NoError(t, manager.PutSavingsBalance(saver, balance))
	gotBalance, err := manager.SavingsBalance(saver)
	require.NoError(t, err)
	require.Equal(t, balance, gotBalance)
}

func TestOracleAndPolicyRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	quote := &oracle.State{PriceNum: 101, PriceDen: 100, UpdatedTS: 1_234, Source: "attester-1"}
	require.NoError(t, manager.PutOracleState(quote))
	gotQuote, err := manager.OracleState()
	require.NoError(t, err)
	require.Equal(t, quote, gotQuote)

	pol := policy.Default()
	pol.SwapFeeBps = 25
	pol.VaultPaused = true
	require.NoError(t, manager.PutPolicy(pol))
	gotPol, err := manager.Policy()
	require.NoError(t, err)
	require.Equal(t, pol, gotPol)
}

func TestAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	addr := testAddress(0x05)

	acc := &types.Account{
		BalanceVEX:   100,
		BalanceVUSD:  200,
		StakedVEX:    300,
		LPShares:     400,
		CreatedAt:    500,
		DailyFlowDay: 6,
		DailyNetSell: 70,
		DailyNetBuy:  80,
	}
	require.NoError(t, manager.PutAccount(addr, acc))

	got, err := manager.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, acc, got)
}
