package savings

import (
	"errors"

	"github.com/holiman/uint256"

	"vexchain/core/types"
	"vexchain/crypto"
	nativecommon "vexchain/native/common"
	"vexchain/native/num"
	"vexchain/native/policy"
)

var (
	errNilState            = errors.New("savings engine: state not configured")
	ErrInvalidAmount       = errors.New("savings engine: amount must be positive")
	ErrInsufficientBalance = errors.New("savings engine: insufficient balance")
	ErrInsufficientDeposit = errors.New("savings engine: withdrawal exceeds deposit")
	ErrNothingToClaim      = errors.New("savings engine: no unclaimed rewards")

	// ErrRewardDebtUnderflow marks an internal consistency fault: the
	// stored reward debt exceeds the current accumulator product. It is
	// unreachable while every mutation settles first.
	ErrRewardDebtUnderflow = errors.New("savings engine: reward debt underflow")
)

const moduleName = policy.ModuleSavings

// Scale is the fixed-point factor behind the reward-per-share accumulator.
const Scale uint64 = 1_000_000_000_000

type engineState interface {
	Pool() (*Pool, error)
	PutPool(pool *Pool) error
	Balance(addr crypto.Address) (*Balance, error)
	PutBalance(addr crypto.Address, balance *Balance) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Engine maintains the interest-bearing VUSD savings pool. Rewards arrive
// as stability fees and spread over depositors through the O(1)
// reward-per-share accumulator.
type Engine struct {
	state  engineState
	now    uint64
	pauses nativecommon.PauseView
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// FundRewards adds newly accrued stability fees to the distributable
// bucket. Called by the processor after vault interest accrual.
func (e *Engine) FundRewards(amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == 0 {
		return nil
	}
	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	pending, err := num.Add(pool.PendingRewards, amount)
	if err != nil {
		return err
	}
	pool.PendingRewards = pending
	return e.state.PutPool(pool)
}

// Deposit moves VUSD from the caller's balance into the pool.
func (e *Engine) Deposit(addr crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	distribute(pool)

	balance, err := e.ensureBalance(addr)
	if err != nil {
		return err
	}
	if err := settle(pool, balance); err != nil {
		return err
	}

	acc, err := e.ensureAccount(addr)
	if err != nil {
		return err
	}
	if acc.BalanceVUSD < amount {
		return ErrInsufficientBalance
	}
	deposit, err := num.Add(balance.DepositBalance, amount)
	if err != nil {
		return err
	}
	total, err := num.Add(pool.TotalDeposits, amount)
	if err != nil {
		return err
	}
	acc.BalanceVUSD -= amount
	balance.DepositBalance = deposit
	pool.TotalDeposits = total
	resetRewardDebt(pool, balance)

	if err := e.state.PutAccount(addr, acc); err != nil {
		return err
	}
	if err := e.state.PutBalance(addr, balance); err != nil {
		return err
	}
	return e.state.PutPool(pool)
}

// Withdraw returns VUSD from the pool to the caller's balance.
func (e *Engine) Withdraw(addr crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	pool, err := e.ensurePool()
	if err != nil {
		return err
	}
	distribute(pool)

	balance, err := e.ensureBalance(addr)
	if err != nil {
		return err
	}
	if err := settle(pool, balance); err != nil {
		return err
	}
	if balance.DepositBalance < amount {
		return ErrInsufficientDeposit
	}

	acc, err := e.ensureAccount(addr)
	if err != nil {
		return err
	}
	restored, err := num.Add(acc.BalanceVUSD, amount)
	if err != nil {
		return err
	}
	acc.BalanceVUSD = restored
	balance.DepositBalance -= amount
	pool.TotalDeposits -= amount
	resetRewardDebt(pool, balance)

	if err := e.state.PutAccount(addr, acc); err != nil {
		return err
	}
	if err := e.state.PutBalance(addr, balance); err != nil {
		return err
	}
	return e.state.PutPool(pool)
}

// Claim pays out the caller's settled rewards and returns the amount.
func (e *Engine) Claim(addr crypto.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	pool, err := e.ensurePool()
	if err != nil {
		return 0, err
	}
	distribute(pool)

	balance, err := e.ensureBalance(addr)
	if err != nil {
		return 0, err
	}
	if err := settle(pool, balance); err != nil {
		return 0, err
	}
	claimed := balance.UnclaimedRewards
	if claimed == 0 {
		return 0, ErrNothingToClaim
	}

	acc, err := e.ensureAccount(addr)
	if err != nil {
		return 0, err
	}
	credited, err := num.Add(acc.BalanceVUSD, claimed)
	if err != nil {
		return 0, err
	}
	acc.BalanceVUSD = credited
	balance.UnclaimedRewards = 0
	resetRewardDebt(pool, balance)

	if err := e.state.PutAccount(addr, acc); err != nil {
		return 0, err
	}
	if err := e.state.PutBalance(addr, balance); err != nil {
		return 0, err
	}
	if err := e.state.PutPool(pool); err != nil {
		return 0, err
	}
	return claimed, nil
}

// distribute folds pending rewards into the accumulator. Rewards too small
// to move the accumulator stay pending; the truncation remainder of a
// successful distribution also stays pending and is never discarded.
func distribute(pool *Pool) {
	if pool.TotalDeposits == 0 || pool.PendingRewards == 0 {
		return
	}
	delta := num.Prod(pool.PendingRewards, Scale)
	delta.Div(delta, num.U(pool.TotalDeposits))
	if delta.IsZero() {
		return
	}
	pool.RewardPerShare = new(uint256.Int).Add(pool.rewardPerShare(), delta)

	distributed := new(uint256.Int).Mul(delta, num.U(pool.TotalDeposits))
	distributed.Div(distributed, num.U(Scale))
	// delta was floor-divided, so the distributed amount fits uint64 and
	// never exceeds the pending bucket.
	pool.PendingRewards -= distributed.Uint64()
}

// settle credits the balance with rewards earned since its reward debt was
// last stamped and re-stamps it.
func settle(pool *Pool, balance *Balance) error {
	if balance.DepositBalance == 0 {
		balance.RewardDebt = new(uint256.Int)
		return nil
	}
	current := new(uint256.Int).Mul(num.U(balance.DepositBalance), pool.rewardPerShare())
	debt := balance.rewardDebt()
	if current.Cmp(debt) < 0 {
		return ErrRewardDebtUnderflow
	}
	pending := new(uint256.Int).Sub(current, debt)
	pending.Div(pending, num.U(Scale))
	earned, err := num.ToU64(pending)
	if err != nil {
		return err
	}
	unclaimed, err := num.Add(balance.UnclaimedRewards, earned)
	if err != nil {
		return err
	}
	balance.UnclaimedRewards = unclaimed
	balance.RewardDebt = current
	return nil
}

// resetRewardDebt re-stamps the debt against the post-mutation balance so
// already-settled rewards are not counted twice.
func resetRewardDebt(pool *Pool, balance *Balance) {
	if balance.DepositBalance == 0 {
		balance.RewardDebt = new(uint256.Int)
		return
	}
	balance.RewardDebt = new(uint256.Int).Mul(num.U(balance.DepositBalance), pool.rewardPerShare())
}

func (e *Engine) ensurePool() (*Pool, error) {
	pool, err := e.state.Pool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = &Pool{}
	}
	return pool.Clone(), nil
}

func (e *Engine) ensureBalance(addr crypto.Address) (*Balance, error) {
	balance, err := e.state.Balance(addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &Balance{}
	}
	return balance.Clone(), nil
}

func (e *Engine) ensureAccount(addr crypto.Address) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{CreatedAt: e.now}
	}
	return acc.Clone(), nil
}
