package amm

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"vexchain/core/types"
	"vexchain/crypto"
	"vexchain/native/num"
	"vexchain/native/policy"
)

type mockEngineState struct {
	pool     *Pool
	accounts map[string]*types.Account
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{accounts: make(map[string]*types.Account)}
}

func (m *mockEngineState) key(addr crypto.Address) string {
	return string(addr.Bytes())
}

func (m *mockEngineState) Pool() (*Pool, error) {
	return m.pool, nil
}

func (m *mockEngineState) PutPool(pool *Pool) error {
	m.pool = pool
	return nil
}

func (m *mockEngineState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return m.accounts[m.key(addr)], nil
}

func (m *mockEngineState) PutAccount(addr crypto.Address, acc *types.Account) error {
	m.accounts[m.key(addr)] = acc
	return nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.VexPrefix, raw)
}

func testPolicy() *policy.State {
	pol := policy.Default()
	pol.SwapFeeBps = 0
	pol.SellTaxMinBps = 0
	pol.SellTaxMidBps = 0
	pol.SellTaxMaxBps = 0
	pol.MaxSellBpsBalance = 10_000
	pol.MaxSellBpsPool = 10_000
	pol.MaxBuyBpsBalance = 10_000
	pol.MaxBuyBpsPool = 10_000
	return pol
}

func newTestEngine(pol *policy.State) (*Engine, *mockEngineState) {
	state := newMockEngineState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetPolicy(pol)
	engine.SetNow(1_000)
	engine.SetPauses(pol)
	return engine, state
}

func fund(state *mockEngineState, addr crypto.Address, vex, vusd uint64) {
	state.accounts[string(addr.Bytes())] = &types.Account{BalanceVEX: vex, BalanceVUSD: vusd}
}

func seedAndFinalize(t *testing.T, engine *Engine, state *mockEngineState, admin crypto.Address, reserveVEX, reserveVUSD uint64) {
	t.Helper()
	fund(state, admin, reserveVEX, reserveVUSD)
	if _, err := engine.Seed(admin, reserveVEX, reserveVUSD, 1, 1); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := engine.FinalizeBootstrap(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
}

func TestSeedRejectsBelowMinimumLiquidity(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	fund(state, admin, 1_000, 1_000)

	if _, err := engine.Seed(admin, 1_000, 1_000, 1, 1); !errors.Is(err, ErrInitialLiquidityTooSmall) {
		t.Fatalf("expected minimum liquidity rejection, got %v", err)
	}
	if state.pool != nil {
		t.Fatalf("rejected seed must not write a pool")
	}
}

func TestSeedBurnsMinimumLiquidity(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	fund(state, admin, 2_000, 2_000)

	shares, err := engine.Seed(admin, 1_001, 1_001, 1, 1)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if shares != 1 {
		t.Fatalf("expected 1 admin share, got %d", shares)
	}
	if state.pool.TotalShares != 1_001 {
		t.Fatalf("expected total shares 1001, got %d", state.pool.TotalShares)
	}
	acc := state.accounts[string(admin.Bytes())]
	if acc.BalanceVEX != 999 || acc.BalanceVUSD != 999 {
		t.Fatalf("expected balances 999/999, got %d/%d", acc.BalanceVEX, acc.BalanceVUSD)
	}
	if acc.LPShares != 1 {
		t.Fatalf("expected 1 LP share, got %d", acc.LPShares)
	}
}

func TestSeedReplacementRefundsPreviousDeposit(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	fund(state, admin, 10_000, 10_000)

	if _, err := engine.Seed(admin, 2_000, 2_000, 1, 1); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	shares, err := engine.Seed(admin, 3_000, 3_000, 1, 1)
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if shares != 2_000 {
		t.Fatalf("expected 2000 admin shares, got %d", shares)
	}
	acc := state.accounts[string(admin.Bytes())]
	if acc.BalanceVEX != 7_000 || acc.BalanceVUSD != 7_000 {
		t.Fatalf("expected refunded balances 7000/7000, got %d/%d", acc.BalanceVEX, acc.BalanceVUSD)
	}
	if acc.LPShares != 2_000 {
		t.Fatalf("expected 2000 LP shares, got %d", acc.LPShares)
	}
	if state.pool.ReserveVEX != 3_000 || state.pool.ReserveVUSD != 3_000 {
		t.Fatalf("expected reserves 3000/3000, got %d/%d", state.pool.ReserveVEX, state.pool.ReserveVUSD)
	}
}

func TestSeedReplacementBySecondAccountRefundsFirst(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	first := makeAddress(0x01)
	second := makeAddress(0x02)
	fund(state, first, 10_000, 10_000)
	fund(state, second, 5_000, 5_000)

	if _, err := engine.Seed(first, 10_000, 10_000, 1, 1); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	shares, err := engine.Seed(second, 5_000, 5_000, 1, 1)
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if shares != 4_000 {
		t.Fatalf("expected 4000 shares for replacement seeder, got %d", shares)
	}

	firstAcc := state.accounts[string(first.Bytes())]
	if firstAcc.BalanceVEX != 10_000 || firstAcc.BalanceVUSD != 10_000 {
		t.Fatalf("first seeder not refunded: %+v", firstAcc)
	}
	if firstAcc.LPShares != 0 {
		t.Fatalf("first seeder kept %d shares past replacement", firstAcc.LPShares)
	}

	secondAcc := state.accounts[string(second.Bytes())]
	if secondAcc.BalanceVEX != 0 || secondAcc.BalanceVUSD != 0 {
		t.Fatalf("unexpected replacement seeder balances: %+v", secondAcc)
	}
	if secondAcc.LPShares != 4_000 {
		t.Fatalf("expected 4000 LP shares, got %d", secondAcc.LPShares)
	}

	if state.pool.TotalShares != 5_000 {
		t.Fatalf("expected total shares 5000, got %d", state.pool.TotalShares)
	}
	if !bytes.Equal(state.pool.Seeder, second.Bytes()) {
		t.Fatalf("pool seeder not replaced: %x", state.pool.Seeder)
	}
}

func TestRemoveLiquidityRejectsExcessShareClaim(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	holder := makeAddress(0x01)
	state.pool = &Pool{
		ReserveVEX:        10_000,
		ReserveVUSD:       10_000,
		TotalShares:       5_000,
		BootstrapPriceNum: 1,
		BootstrapPriceDen: 1,
		Finalized:         true,
	}
	state.accounts[string(holder.Bytes())] = &types.Account{LPShares: 9_000}
	before := state.pool.Clone()

	if _, _, err := engine.RemoveLiquidity(holder, 9_000); !errors.Is(err, num.ErrUnderflow) {
		t.Fatalf("expected underflow rejection for excess claim, got %v", err)
	}
	if !reflect.DeepEqual(state.pool, before) {
		t.Fatalf("rejected removal mutated the pool: %+v", state.pool)
	}
	if state.accounts[string(holder.Bytes())].LPShares != 9_000 {
		t.Fatalf("rejected removal mutated the account")
	}
}

func TestFinalizeBootstrapLocksSeeding(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	seedAndFinalize(t, engine, state, admin, 100_000, 100_000)

	if err := engine.FinalizeBootstrap(); !errors.Is(err, ErrBootstrapLocked) {
		t.Fatalf("expected repeat finalize rejection, got %v", err)
	}
	fund(state, admin, 100_000, 100_000)
	if _, err := engine.Seed(admin, 50_000, 50_000, 1, 1); !errors.Is(err, ErrBootstrapLocked) {
		t.Fatalf("expected seed after finalize rejection, got %v", err)
	}
}

func TestTradingRequiresFinalizedBootstrap(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	trader := makeAddress(0x02)
	fund(state, admin, 100_000, 100_000)
	if _, err := engine.Seed(admin, 100_000, 100_000, 1, 1); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	fund(state, trader, 10_000, 10_000)

	if _, err := engine.AddLiquidity(trader, 1_000, 1_000); !errors.Is(err, ErrBootstrapOpen) {
		t.Fatalf("expected bootstrap-open rejection for add, got %v", err)
	}
	if _, _, err := engine.RemoveLiquidity(admin, 100); !errors.Is(err, ErrBootstrapOpen) {
		t.Fatalf("expected bootstrap-open rejection for remove, got %v", err)
	}
	if _, err := engine.Swap(trader, 1_000, 0, types.SwapSellVEX); !errors.Is(err, ErrBootstrapOpen) {
		t.Fatalf("expected bootstrap-open rejection for swap, got %v", err)
	}
}

func TestAddLiquidityMintsLimitingSide(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	provider := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, provider, 100_000, 50_000)

	minted, err := engine.AddLiquidity(provider, 100_000, 50_000)
	if err != nil {
		t.Fatalf("add liquidity failed: %v", err)
	}
	// VUSD is the limiting side; the VEX excess is donated to the pool.
	if minted != 50_000 {
		t.Fatalf("expected 50000 shares, got %d", minted)
	}
	if state.pool.ReserveVEX != 1_100_000 || state.pool.ReserveVUSD != 1_050_000 {
		t.Fatalf("unexpected reserves %d/%d", state.pool.ReserveVEX, state.pool.ReserveVUSD)
	}
}

func TestLiquidityRoundTrip(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	provider := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, provider, 100_000, 100_000)

	minted, err := engine.AddLiquidity(provider, 100_000, 100_000)
	if err != nil {
		t.Fatalf("add liquidity failed: %v", err)
	}
	if minted != 100_000 {
		t.Fatalf("expected 100000 shares, got %d", minted)
	}
	amountVEX, amountVUSD, err := engine.RemoveLiquidity(provider, minted)
	if err != nil {
		t.Fatalf("remove liquidity failed: %v", err)
	}
	if amountVEX != 100_000 || amountVUSD != 100_000 {
		t.Fatalf("expected full round trip, got %d/%d", amountVEX, amountVUSD)
	}
	acc := state.accounts[string(provider.Bytes())]
	if acc.BalanceVEX != 100_000 || acc.BalanceVUSD != 100_000 || acc.LPShares != 0 {
		t.Fatalf("provider not restored: %+v", acc)
	}
}

func TestSwapSellBurnsTaxAndCollectsFee(t *testing.T) {
	pol := testPolicy()
	pol.SwapFeeBps = 30
	pol.SellTaxMinBps = 100
	pol.SellTaxMidBps = 300
	pol.SellTaxMaxBps = 800
	engine, state := newTestEngine(pol)
	admin := makeAddress(0x01)
	trader := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, trader, 10_000, 0)

	result, err := engine.Swap(trader, 10_000, 0, types.SwapSellVEX)
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	// Outflow is 100 bps of the reserve, selecting the minimum tier.
	if result.TaxBps != 100 || result.Tax != 100 {
		t.Fatalf("expected 100 tax at 100 bps, got %d at %d bps", result.Tax, result.TaxBps)
	}
	if result.Fee != 29 {
		t.Fatalf("expected fee 29, got %d", result.Fee)
	}
	if result.AmountOut != 9_774 {
		t.Fatalf("expected output 9774, got %d", result.AmountOut)
	}
	if state.pool.ReserveVEX != 1_009_871 {
		t.Fatalf("expected VEX reserve 1009871, got %d", state.pool.ReserveVEX)
	}
	if state.pool.HouseFeesVEX != 29 {
		t.Fatalf("expected house fee 29, got %d", state.pool.HouseFeesVEX)
	}
	if state.pool.ReserveVUSD != 990_226 {
		t.Fatalf("expected VUSD reserve 990226, got %d", state.pool.ReserveVUSD)
	}
	acc := state.accounts[string(trader.Bytes())]
	if acc.BalanceVEX != 0 || acc.BalanceVUSD != 9_774 {
		t.Fatalf("unexpected trader balances %d/%d", acc.BalanceVEX, acc.BalanceVUSD)
	}
	if acc.DailyNetSell != 10_000 {
		t.Fatalf("expected daily sell 10000, got %d", acc.DailyNetSell)
	}
	// The tax is burned: input minus reserve gain minus house fee equals tax.
	burned := 10_000 - (state.pool.ReserveVEX - 1_000_000) - state.pool.HouseFeesVEX
	if burned != result.Tax {
		t.Fatalf("expected %d burned, got %d", result.Tax, burned)
	}
}

func TestSwapBuyIsUntaxed(t *testing.T) {
	pol := testPolicy()
	pol.SwapFeeBps = 30
	pol.SellTaxMaxBps = 800
	pol.SellTaxMidBps = 300
	pol.SellTaxMinBps = 100
	engine, state := newTestEngine(pol)
	admin := makeAddress(0x01)
	trader := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, trader, 0, 10_000)

	result, err := engine.Swap(trader, 10_000, 0, types.SwapBuyVEX)
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if result.Tax != 0 || result.TaxBps != 0 {
		t.Fatalf("buy direction must not be taxed: %+v", result)
	}
	if result.Fee != 30 {
		t.Fatalf("expected fee 30, got %d", result.Fee)
	}
	if state.pool.HouseFeesVUSD != 30 {
		t.Fatalf("expected house fee 30, got %d", state.pool.HouseFeesVUSD)
	}
	acc := state.accounts[string(trader.Bytes())]
	if acc.DailyNetBuy != 10_000 {
		t.Fatalf("expected daily buy 10000, got %d", acc.DailyNetBuy)
	}
}

func TestSwapSlippageRejectionIsIdempotent(t *testing.T) {
	engine, state := newTestEngine(testPolicy())
	admin := makeAddress(0x01)
	trader := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, trader, 10_000, 0)

	before := state.pool.Clone()
	for i := 0; i < 2; i++ {
		if _, err := engine.Swap(trader, 10_000, 1_000_000, types.SwapSellVEX); !errors.Is(err, ErrSlippage) {
			t.Fatalf("attempt %d: expected slippage rejection, got %v", i, err)
		}
	}
	if !reflect.DeepEqual(state.pool, before) {
		t.Fatalf("rejected swap mutated the pool: %+v vs %+v", state.pool, before)
	}
	acc := state.accounts[string(trader.Bytes())]
	if acc.BalanceVEX != 10_000 || acc.DailyNetSell != 0 {
		t.Fatalf("rejected swap mutated the account: %+v", acc)
	}
}

func TestSwapFlowCapRejectsCumulativeOverflow(t *testing.T) {
	pol := testPolicy()
	pol.MaxSellBpsPool = 100
	engine, state := newTestEngine(pol)
	admin := makeAddress(0x01)
	trader := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, trader, 30_000, 0)

	if _, err := engine.Swap(trader, 8_000, 0, types.SwapSellVEX); err != nil {
		t.Fatalf("first swap failed: %v", err)
	}
	if _, err := engine.Swap(trader, 3_000, 0, types.SwapSellVEX); !errors.Is(err, ErrFlowCapExceeded) {
		t.Fatalf("expected flow cap rejection, got %v", err)
	}
}

func TestSwapRespectsPause(t *testing.T) {
	pol := testPolicy()
	engine, state := newTestEngine(pol)
	admin := makeAddress(0x01)
	trader := makeAddress(0x02)
	seedAndFinalize(t, engine, state, admin, 1_000_000, 1_000_000)
	fund(state, trader, 10_000, 0)

	pol.AmmPaused = true
	if _, err := engine.Swap(trader, 1_000, 0, types.SwapSellVEX); err == nil {
		t.Fatalf("expected pause rejection")
	}
}
