package amm

import (
	"errors"

	"vexchain/core/types"
	"vexchain/crypto"
	nativecommon "vexchain/native/common"
	"vexchain/native/num"
	"vexchain/native/policy"
)

var (
	errNilState                 = errors.New("amm engine: state not configured")
	errNilPolicy                = errors.New("amm engine: policy not configured")
	errUnknownSeeder            = errors.New("amm engine: pool record carries no seeder")
	ErrPoolNotInitialised       = errors.New("amm engine: pool not initialised")
	ErrInvalidAmount            = errors.New("amm engine: amount must be positive")
	ErrInsufficientBalance      = errors.New("amm engine: insufficient balance")
	ErrInsufficientShares       = errors.New("amm engine: insufficient LP shares")
	ErrBootstrapLocked          = errors.New("amm engine: bootstrap already finalized")
	ErrBootstrapOpen            = errors.New("amm engine: bootstrap not finalized")
	ErrInitialLiquidityTooSmall = errors.New("amm engine: initial liquidity below burned minimum")
	ErrSlippage                 = errors.New("amm engine: output below minimum requested")
	ErrZeroSharesMinted         = errors.New("amm engine: deposit mints zero shares")
)

const moduleName = policy.ModuleAmm

type engineState interface {
	Pool() (*Pool, error)
	PutPool(pool *Pool) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Engine executes the liquidity and trading state transitions for the
// VEX/VUSD pool. A fresh policy view and chain timestamp are injected per
// instruction; nothing survives across calls.
type Engine struct {
	state  engineState
	policy *policy.State
	now    uint64
	pauses nativecommon.PauseView
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPolicy installs the read-only risk configuration for the current call.
func (e *Engine) SetPolicy(p *policy.State) {
	if e == nil {
		return
	}
	e.policy = p
}

// SetNow records the deterministic chain timestamp for the current call.
func (e *Engine) SetNow(now uint64) {
	if e == nil {
		return
	}
	e.now = now
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SwapResult reports the realised trade for event emission.
type SwapResult struct {
	Direction types.SwapDirection
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	Tax       uint64
	TaxBps    uint64
}

// Seed installs or replaces the bootstrap pool. Only callable while the
// bootstrap is open; the initial deposit follows the first-mint rule so the
// shares/reserves invariant holds from the very first state.
func (e *Engine) Seed(admin crypto.Address, reserveVEX, reserveVUSD, priceNum, priceDen uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if reserveVEX == 0 || reserveVUSD == 0 || priceNum == 0 {
		return 0, ErrInvalidAmount
	}
	if priceDen == 0 {
		return 0, errBadBootstrapDen
	}
	existing, err := e.state.Pool()
	if err != nil {
		return 0, err
	}
	if existing != nil && existing.Finalized {
		return 0, ErrBootstrapLocked
	}

	minted := num.SqrtProd(reserveVEX, reserveVUSD)
	if minted <= MinimumLiquidity {
		return 0, ErrInitialLiquidityTooSmall
	}
	adminShares := minted - MinimumLiquidity

	adminAcc, err := e.ensureAccount(admin)
	if err != nil {
		return 0, err
	}

	// Re-seeding refunds the recorded seeder's deposit and retires their
	// bootstrap shares before the new deposit is taken. The refund must
	// reach the account that actually paid, which need not be the caller.
	prevAcc := adminAcc
	var prevAddr crypto.Address
	if existing != nil {
		if len(existing.Seeder) != crypto.AddressLength {
			return 0, errUnknownSeeder
		}
		prevAddr = crypto.NewAddress(crypto.VexPrefix, existing.Seeder)
		if !prevAddr.Equal(admin) {
			prevAcc, err = e.ensureAccount(prevAddr)
			if err != nil {
				return 0, err
			}
		}
		refundVEX, err := num.Add(prevAcc.BalanceVEX, existing.ReserveVEX)
		if err != nil {
			return 0, err
		}
		refundVUSD, err := num.Add(prevAcc.BalanceVUSD, existing.ReserveVUSD)
		if err != nil {
			return 0, err
		}
		retiredShares, err := num.Sub(prevAcc.LPShares, sharesOwned(existing, prevAcc))
		if err != nil {
			return 0, err
		}
		prevAcc.BalanceVEX = refundVEX
		prevAcc.BalanceVUSD = refundVUSD
		prevAcc.LPShares = retiredShares
	}

	if adminAcc.BalanceVEX < reserveVEX || adminAcc.BalanceVUSD < reserveVUSD {
		return 0, ErrInsufficientBalance
	}

	pool := &Pool{
		ReserveVEX:        reserveVEX,
		ReserveVUSD:       reserveVUSD,
		TotalShares:       minted,
		FeeBps:            e.feeBps(),
		BootstrapPriceNum: priceNum,
		BootstrapPriceDen: priceDen,
		Seeder:            append([]byte(nil), admin.Bytes()...),
	}
	if err := validatePool(pool); err != nil {
		return 0, err
	}

	adminAcc.BalanceVEX -= reserveVEX
	adminAcc.BalanceVUSD -= reserveVUSD
	newShares, err := num.Add(adminAcc.LPShares, adminShares)
	if err != nil {
		return 0, err
	}
	adminAcc.LPShares = newShares

	if err := e.state.PutAccount(admin, adminAcc); err != nil {
		return 0, err
	}
	if prevAcc != adminAcc {
		if err := e.state.PutAccount(prevAddr, prevAcc); err != nil {
			return 0, err
		}
	}
	if err := e.state.PutPool(pool); err != nil {
		return 0, err
	}
	return adminShares, nil
}

// FinalizeBootstrap locks the bootstrap price and opens public trading.
func (e *Engine) FinalizeBootstrap() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	if pool.Finalized {
		return ErrBootstrapLocked
	}
	pool.Finalized = true
	if err := validatePool(pool); err != nil {
		return err
	}
	return e.state.PutPool(pool)
}

// AddLiquidity deposits both tokens and mints LP shares. The first deposit
// mints floor(sqrt(a*b)) shares with MinimumLiquidity burned; later deposits
// mint proportionally, donating any excess on the non-limiting side to the
// existing holders.
func (e *Engine) AddLiquidity(provider crypto.Address, amountVEX, amountVUSD uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amountVEX == 0 || amountVUSD == 0 {
		return 0, ErrInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return 0, err
	}
	if !pool.Finalized {
		return 0, ErrBootstrapOpen
	}

	acc, err := e.ensureAccount(provider)
	if err != nil {
		return 0, err
	}
	if acc.BalanceVEX < amountVEX || acc.BalanceVUSD < amountVUSD {
		return 0, ErrInsufficientBalance
	}

	var minted uint64
	if pool.TotalShares == 0 {
		initial := num.SqrtProd(amountVEX, amountVUSD)
		if initial <= MinimumLiquidity {
			return 0, ErrInitialLiquidityTooSmall
		}
		minted = initial - MinimumLiquidity
		pool.TotalShares = initial
	} else {
		byVEX, err := num.MulDiv(amountVEX, pool.TotalShares, pool.ReserveVEX)
		if err != nil {
			return 0, err
		}
		byVUSD, err := num.MulDiv(amountVUSD, pool.TotalShares, pool.ReserveVUSD)
		if err != nil {
			return 0, err
		}
		minted = byVEX
		if byVUSD < minted {
			minted = byVUSD
		}
		if minted == 0 {
			return 0, ErrZeroSharesMinted
		}
		total, err := num.Add(pool.TotalShares, minted)
		if err != nil {
			return 0, err
		}
		pool.TotalShares = total
	}

	reserveVEX, err := num.Add(pool.ReserveVEX, amountVEX)
	if err != nil {
		return 0, err
	}
	reserveVUSD, err := num.Add(pool.ReserveVUSD, amountVUSD)
	if err != nil {
		return 0, err
	}
	pool.ReserveVEX = reserveVEX
	pool.ReserveVUSD = reserveVUSD

	if err := validatePool(pool); err != nil {
		return 0, err
	}

	acc.BalanceVEX -= amountVEX
	acc.BalanceVUSD -= amountVUSD
	shares, err := num.Add(acc.LPShares, minted)
	if err != nil {
		return 0, err
	}
	acc.LPShares = shares

	if err := e.state.PutAccount(provider, acc); err != nil {
		return 0, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return 0, err
	}
	return minted, nil
}

// RemoveLiquidity burns shares and returns the proportional reserves. The
// burned minimum can never be redeemed, so reserves stay strictly positive
// while any shares remain outstanding.
func (e *Engine) RemoveLiquidity(provider crypto.Address, shares uint64) (amountVEX, amountVUSD uint64, err error) {
	if e == nil || e.state == nil {
		return 0, 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, 0, err
	}
	if shares == 0 {
		return 0, 0, ErrInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return 0, 0, err
	}
	if !pool.Finalized {
		return 0, 0, ErrBootstrapOpen
	}

	acc, err := e.ensureAccount(provider)
	if err != nil {
		return 0, 0, err
	}
	if acc.LPShares < shares {
		return 0, 0, ErrInsufficientShares
	}

	amountVEX, err = num.MulDiv(shares, pool.ReserveVEX, pool.TotalShares)
	if err != nil {
		return 0, 0, err
	}
	amountVUSD, err = num.MulDiv(shares, pool.ReserveVUSD, pool.TotalShares)
	if err != nil {
		return 0, 0, err
	}

	totalShares, err := num.Sub(pool.TotalShares, shares)
	if err != nil {
		return 0, 0, err
	}
	reserveVEX, err := num.Sub(pool.ReserveVEX, amountVEX)
	if err != nil {
		return 0, 0, err
	}
	reserveVUSD, err := num.Sub(pool.ReserveVUSD, amountVUSD)
	if err != nil {
		return 0, 0, err
	}
	pool.TotalShares = totalShares
	pool.ReserveVEX = reserveVEX
	pool.ReserveVUSD = reserveVUSD

	if err := validatePool(pool); err != nil {
		return 0, 0, err
	}

	acc.LPShares -= shares
	balVEX, err := num.Add(acc.BalanceVEX, amountVEX)
	if err != nil {
		return 0, 0, err
	}
	balVUSD, err := num.Add(acc.BalanceVUSD, amountVUSD)
	if err != nil {
		return 0, 0, err
	}
	acc.BalanceVEX = balVEX
	acc.BalanceVUSD = balVUSD

	if err := e.state.PutAccount(provider, acc); err != nil {
		return 0, 0, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return 0, 0, err
	}
	return amountVEX, amountVUSD, nil
}

// Swap executes a trade in either direction. Sells burn the dynamic tax
// before quoting; both directions enforce the daily flow caps and the
// caller's slippage bound. A rejected swap leaves every record untouched.
func (e *Engine) Swap(trader crypto.Address, amountIn, minAmountOut uint64, direction types.SwapDirection) (*SwapResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.policy == nil {
		return nil, errNilPolicy
	}
	if amountIn == 0 {
		return nil, ErrInvalidAmount
	}

	pool, err := e.ensurePool()
	if err != nil {
		return nil, err
	}
	if !pool.Finalized {
		return nil, ErrBootstrapOpen
	}

	acc, err := e.ensureAccount(trader)
	if err != nil {
		return nil, err
	}
	rollFlowDay(acc, e.now)

	switch direction {
	case types.SwapSellVEX:
		return e.sellVEX(trader, pool, acc, amountIn, minAmountOut)
	case types.SwapBuyVEX:
		return e.buyVEX(trader, pool, acc, amountIn, minAmountOut)
	default:
		return nil, ErrInvalidAmount
	}
}

func (e *Engine) sellVEX(trader crypto.Address, pool *Pool, acc *types.Account, amountIn, minAmountOut uint64) (*SwapResult, error) {
	if acc.BalanceVEX < amountIn {
		return nil, ErrInsufficientBalance
	}

	cumulative, err := num.Add(acc.DailyNetSell, amountIn)
	if err != nil {
		return nil, err
	}
	allowance, err := flowAllowance(acc.BalanceVEX, pool.ReserveVEX, e.policy.MaxSellBpsBalance, e.policy.MaxSellBpsPool)
	if err != nil {
		return nil, err
	}
	if err := checkFlow(cumulative, allowance); err != nil {
		return nil, err
	}

	taxBps, err := sellTaxBps(e.policy, cumulative, pool.ReserveVEX)
	if err != nil {
		return nil, err
	}
	tax, err := num.MulDiv(amountIn, taxBps, 10_000)
	if err != nil {
		return nil, err
	}
	netIn := amountIn - tax
	if netIn == 0 {
		return nil, ErrInvalidAmount
	}

	amountOut, fee, err := Quote(netIn, pool.ReserveVEX, pool.ReserveVUSD, pool.FeeBps)
	if err != nil {
		return nil, err
	}
	if amountOut < minAmountOut {
		return nil, ErrSlippage
	}

	reserveVEX, err := num.Add(pool.ReserveVEX, netIn-fee)
	if err != nil {
		return nil, err
	}
	reserveVUSD, err := num.Sub(pool.ReserveVUSD, amountOut)
	if err != nil {
		return nil, err
	}
	houseVEX, err := num.Add(pool.HouseFeesVEX, fee)
	if err != nil {
		return nil, err
	}
	pool.ReserveVEX = reserveVEX
	pool.ReserveVUSD = reserveVUSD
	pool.HouseFeesVEX = houseVEX
	pool.SellTaxBps = taxBps

	if err := validatePool(pool); err != nil {
		return nil, err
	}

	acc.BalanceVEX -= amountIn
	balVUSD, err := num.Add(acc.BalanceVUSD, amountOut)
	if err != nil {
		return nil, err
	}
	acc.BalanceVUSD = balVUSD
	acc.DailyNetSell = cumulative

	if err := e.state.PutAccount(trader, acc); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	return &SwapResult{
		Direction: types.SwapSellVEX,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       fee,
		Tax:       tax,
		TaxBps:    taxBps,
	}, nil
}

func (e *Engine) buyVEX(trader crypto.Address, pool *Pool, acc *types.Account, amountIn, minAmountOut uint64) (*SwapResult, error) {
	if acc.BalanceVUSD < amountIn {
		return nil, ErrInsufficientBalance
	}

	cumulative, err := num.Add(acc.DailyNetBuy, amountIn)
	if err != nil {
		return nil, err
	}
	allowance, err := flowAllowance(acc.BalanceVUSD, pool.ReserveVUSD, e.policy.MaxBuyBpsBalance, e.policy.MaxBuyBpsPool)
	if err != nil {
		return nil, err
	}
	if err := checkFlow(cumulative, allowance); err != nil {
		return nil, err
	}

	amountOut, fee, err := Quote(amountIn, pool.ReserveVUSD, pool.ReserveVEX, pool.FeeBps)
	if err != nil {
		return nil, err
	}
	if amountOut < minAmountOut {
		return nil, ErrSlippage
	}

	reserveVUSD, err := num.Add(pool.ReserveVUSD, amountIn-fee)
	if err != nil {
		return nil, err
	}
	reserveVEX, err := num.Sub(pool.ReserveVEX, amountOut)
	if err != nil {
		return nil, err
	}
	houseVUSD, err := num.Add(pool.HouseFeesVUSD, fee)
	if err != nil {
		return nil, err
	}
	pool.ReserveVUSD = reserveVUSD
	pool.ReserveVEX = reserveVEX
	pool.HouseFeesVUSD = houseVUSD

	if err := validatePool(pool); err != nil {
		return nil, err
	}

	acc.BalanceVUSD -= amountIn
	balVEX, err := num.Add(acc.BalanceVEX, amountOut)
	if err != nil {
		return nil, err
	}
	acc.BalanceVEX = balVEX
	acc.DailyNetBuy = cumulative

	if err := e.state.PutAccount(trader, acc); err != nil {
		return nil, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return nil, err
	}
	return &SwapResult{
		Direction: types.SwapBuyVEX,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       fee,
	}, nil
}

func (e *Engine) ensurePool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.state.Pool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotInitialised
	}
	if err := validatePool(pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (e *Engine) ensureAccount(addr crypto.Address) (*types.Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{CreatedAt: e.now}
	}
	return acc.Clone(), nil
}

func (e *Engine) feeBps() uint64 {
	if e.policy == nil {
		return 0
	}
	return e.policy.SwapFeeBps
}

// sharesOwned reports the admin's claim on an unfinalized pool being
// replaced; during bootstrap the admin is the only holder.
func sharesOwned(pool *Pool, acc *types.Account) uint64 {
	if pool == nil || acc == nil {
		return 0
	}
	if pool.TotalShares <= MinimumLiquidity {
		return 0
	}
	owned := pool.TotalShares - MinimumLiquidity
	if owned > acc.LPShares {
		return acc.LPShares
	}
	return owned
}
