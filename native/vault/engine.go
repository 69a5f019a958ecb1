package vault

import (
	"bytes"
	"errors"

	"vexchain/core/types"
	"vexchain/crypto"
	nativecommon "vexchain/native/common"
	"vexchain/native/num"
	"vexchain/native/oracle"
	"vexchain/native/policy"
)

var (
	errNilState               = errors.New("vault engine: state not configured")
	errNilPolicy              = errors.New("vault engine: policy not configured")
	errNilPrice               = errors.New("vault engine: price view not configured")
	ErrInvalidAmount          = errors.New("vault engine: amount must be positive")
	ErrVaultExists            = errors.New("vault engine: vault already created")
	ErrVaultNotFound          = errors.New("vault engine: vault not found")
	ErrInsufficientBalance    = errors.New("vault engine: insufficient balance")
	ErrInsufficientCollateral = errors.New("vault engine: insufficient collateral")
	ErrLTVExceeded            = errors.New("vault engine: loan-to-value limit exceeded")
	ErrDebtCeilingExceeded    = errors.New("vault engine: debt ceiling exceeded")
	ErrNotLiquidatable        = errors.New("vault engine: vault not eligible for liquidation")
	ErrNoDebt                 = errors.New("vault engine: no outstanding debt")
	ErrRecoveryPoolDry        = errors.New("vault engine: recovery pool balance too low")
	ErrNoIndexedDebt          = errors.New("vault engine: no indexed vault debt to retire")
)

const moduleName = policy.ModuleVault

type engineState interface {
	Vault(addr crypto.Address) (*Vault, error)
	PutVault(addr crypto.Address, vault *Vault) error
	Globals() (*Globals, error)
	PutGlobals(globals *Globals) error
	DebtIndex() ([]DebtEntry, error)
	PutDebtIndex(entries []DebtEntry) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// PriceView supplies the effective VEX price (VUSD per VEX) for the given
// valuation role, already filtered through the oracle deviation guard.
type PriceView interface {
	EffectivePrice(role oracle.Role) (priceNum, priceDen uint64, err error)
}

// Engine orchestrates the collateralized borrowing state transitions. The
// processor injects state, policy, price view and chain time per
// instruction.
type Engine struct {
	state  engineState
	policy *policy.State
	price  PriceView
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

// SetPriceView wires the guarded price source for collateral valuation.
func (e *Engine) SetPriceView(view PriceView) {
	if e == nil {
		return
	}
	e.price = view
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

// CreateVault allocates the caller's vault record. Exactly once per
// account; a second attempt is rejected and the record is never deleted.
func (e *Engine) CreateVault(owner crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	existing, err := e.state.Vault(owner)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrVaultExists
	}
	return e.state.PutVault(owner, &Vault{LastAccrualTS: e.now})
}

// DepositCollateral locks VEX from the owner's balance into the vault.
func (e *Engine) DepositCollateral(owner crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	vault, err := e.ensureVault(owner)
	if err != nil {
		return err
	}
	acc, err := e.ensureAccount(owner)
	if err != nil {
		return err
	}
	if acc.BalanceVEX < amount {
		return ErrInsufficientBalance
	}
	collateral, err := num.Add(vault.Collateral, amount)
	if err != nil {
		return err
	}
	acc.BalanceVEX -= amount
	vault.Collateral = collateral

	if err := e.state.PutAccount(owner, acc); err != nil {
		return err
	}
	return e.state.PutVault(owner, vault)
}

// WithdrawCollateral releases VEX back to the owner while the remaining
// position still satisfies the borrow LTV limit.
func (e *Engine) WithdrawCollateral(owner crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.policy == nil {
		return errNilPolicy
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	vault, err := e.ensureVault(owner)
	if err != nil {
		return err
	}
	if vault.Collateral < amount {
		return ErrInsufficientCollateral
	}
	globals, err := e.ensureGlobals()
	if err != nil {
		return err
	}
	if err := e.accrue(vault, globals); err != nil {
		return err
	}

	remaining := vault.Collateral - amount
	acc, err := e.ensureAccount(owner)
	if err != nil {
		return err
	}
	if vault.Debt > 0 {
		priceNum, priceDen, err := e.effectivePrice(oracle.RoleBorrow)
		if err != nil {
			return err
		}
		ltv := maxLTVBps(acc, e.policy, e.now)
		if !withinLTV(vault.Debt, remaining, priceNum, priceDen, ltv) {
			return ErrLTVExceeded
		}
	}

	balance, err := num.Add(acc.BalanceVEX, amount)
	if err != nil {
		return err
	}
	vault.Collateral = remaining
	acc.BalanceVEX = balance

	if err := e.state.PutAccount(owner, acc); err != nil {
		return err
	}
	if err := e.state.PutVault(owner, vault); err != nil {
		return err
	}
	return e.state.PutGlobals(globals)
}

// Borrow mints VUSD against the vault's collateral, subject to the
// tier-selected LTV limit and the pool-wide debt ceiling.
func (e *Engine) Borrow(owner crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.policy == nil {
		return errNilPolicy
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	vault, err := e.ensureVault(owner)
	if err != nil {
		return err
	}
	globals, err := e.ensureGlobals()
	if err != nil {
		return err
	}
	if err := e.accrue(vault, globals); err != nil {
		return err
	}

	priceNum, priceDen, err := e.effectivePrice(oracle.RoleBorrow)
	if err != nil {
		return err
	}

	acc, err := e.ensureAccount(owner)
	if err != nil {
		return err
	}
	newDebt, err := num.Add(vault.Debt, amount)
	if err != nil {
		return err
	}
	ltv := maxLTVBps(acc, e.policy, e.now)
	if !withinLTV(newDebt, vault.Collateral, priceNum, priceDen, ltv) {
		return ErrLTVExceeded
	}

	newTotal, err := num.Add(globals.TotalDebt, amount)
	if err != nil {
		return err
	}
	if newTotal > e.policy.DebtCeiling {
		return ErrDebtCeilingExceeded
	}

	balance, err := num.Add(acc.BalanceVUSD, amount)
	if err != nil {
		return err
	}
	vault.Debt = newDebt
	globals.TotalDebt = newTotal
	acc.BalanceVUSD = balance

	if err := e.updateDebtIndex(owner, vault.Debt); err != nil {
		return err
	}
	if err := e.state.PutAccount(owner, acc); err != nil {
		return err
	}
	if err := e.state.PutVault(owner, vault); err != nil {
		return err
	}
	return e.state.PutGlobals(globals)
}

// Repay burns VUSD against the vault's debt. Over-repayment silently
// clamps to the outstanding amount; the clamped value is returned.
func (e *Engine) Repay(owner crypto.Address, amount uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	vault, err := e.ensureVault(owner)
	if err != nil {
		return 0, err
	}
	globals, err := e.ensureGlobals()
	if err != nil {
		return 0, err
	}
	if err := e.accrue(vault, globals); err != nil {
		return 0, err
	}
	if vault.Debt == 0 {
		return 0, ErrNoDebt
	}

	actual := amount
	if actual > vault.Debt {
		actual = vault.Debt
	}
	acc, err := e.ensureAccount(owner)
	if err != nil {
		return 0, err
	}
	if acc.BalanceVUSD < actual {
		return 0, ErrInsufficientBalance
	}

	acc.BalanceVUSD -= actual
	vault.Debt -= actual
	total, err := num.Sub(globals.TotalDebt, actual)
	if err != nil {
		return 0, err
	}
	globals.TotalDebt = total

	if err := e.updateDebtIndex(owner, vault.Debt); err != nil {
		return 0, err
	}
	if err := e.state.PutAccount(owner, acc); err != nil {
		return 0, err
	}
	if err := e.state.PutVault(owner, vault); err != nil {
		return 0, err
	}
	if err := e.state.PutGlobals(globals); err != nil {
		return 0, err
	}
	return actual, nil
}

// Liquidate lets any caller repay an under-collateralized vault down to the
// policy target in exchange for seized collateral plus the penalty bonus.
// The stability share of the penalty routes to the recovery pool.
func (e *Engine) Liquidate(liquidator, target crypto.Address) (*LiquidationResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.policy == nil {
		return nil, errNilPolicy
	}
	vault, err := e.ensureVault(target)
	if err != nil {
		return nil, err
	}
	globals, err := e.ensureGlobals()
	if err != nil {
		return nil, err
	}
	if err := e.accrue(vault, globals); err != nil {
		return nil, err
	}
	if vault.Debt == 0 {
		return nil, ErrNoDebt
	}

	priceNum, priceDen, err := e.effectivePrice(oracle.RoleLiquidate)
	if err != nil {
		return nil, err
	}
	if !isLiquidatable(vault, priceNum, priceDen, e.policy.LiquidationThresholdBps) {
		return nil, ErrNotLiquidatable
	}

	// Repay enough to bring the vault back to the target ratio.
	collateralValue, err := num.QuoU64(
		num.Prod(vault.Collateral, priceNum), num.U(priceDen))
	if err != nil {
		return nil, err
	}
	targetDebt, err := num.MulDiv(collateralValue, e.policy.LiquidationTargetBps, 10_000)
	if err != nil {
		return nil, err
	}
	var repay uint64
	if vault.Debt > targetDebt {
		repay = vault.Debt - targetDebt
	}
	if repay == 0 {
		return nil, ErrNotLiquidatable
	}

	liqAcc, err := e.ensureAccount(liquidator)
	if err != nil {
		return nil, err
	}
	if liqAcc.BalanceVUSD < repay {
		return nil, ErrInsufficientBalance
	}

	// Seize the repaid value in VEX plus the penalty, clamped to what the
	// vault actually holds.
	seizeBase, err := num.QuoU64(num.Prod(repay, priceDen), num.U(priceNum))
	if err != nil {
		return nil, err
	}
	if seizeBase > vault.Collateral {
		seizeBase = vault.Collateral
	}
	remaining := vault.Collateral - seizeBase
	bonus, err := num.MulDiv(seizeBase, e.policy.LiquidatorRewardBps, 10_000)
	if err != nil {
		return nil, err
	}
	if bonus > remaining {
		bonus = remaining
	}
	remaining -= bonus
	stability, err := num.MulDiv(seizeBase, e.policy.StabilityPoolBps, 10_000)
	if err != nil {
		return nil, err
	}
	if stability > remaining {
		stability = remaining
	}

	seized := seizeBase + bonus
	liqVEX, err := num.Add(liqAcc.BalanceVEX, seized)
	if err != nil {
		return nil, err
	}
	poolVEX, err := num.Add(globals.RecoveryPoolVEX, stability)
	if err != nil {
		return nil, err
	}
	totalDebt, err := num.Sub(globals.TotalDebt, repay)
	if err != nil {
		return nil, err
	}

	liqAcc.BalanceVUSD -= repay
	liqAcc.BalanceVEX = liqVEX
	vault.Debt -= repay
	vault.Collateral -= seized + stability
	globals.TotalDebt = totalDebt
	globals.RecoveryPoolVEX = poolVEX

	if err := e.updateDebtIndex(target, vault.Debt); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(liquidator, liqAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(target, vault); err != nil {
		return nil, err
	}
	if err := e.state.PutGlobals(globals); err != nil {
		return nil, err
	}
	return &LiquidationResult{
		RepaidDebt:       repay,
		SeizedCollateral: seized,
		LiquidatorBonus:  bonus,
		StabilityShare:   stability,
	}, nil
}

// FundRecoveryPool moves VUSD from the admin's balance into the recovery
// pool for later bad-debt retirement.
func (e *Engine) FundRecoveryPool(admin crypto.Address, amount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	acc, err := e.ensureAccount(admin)
	if err != nil {
		return err
	}
	if acc.BalanceVUSD < amount {
		return ErrInsufficientBalance
	}
	globals, err := e.ensureGlobals()
	if err != nil {
		return err
	}
	pool, err := num.Add(globals.RecoveryPoolVUSD, amount)
	if err != nil {
		return err
	}
	acc.BalanceVUSD -= amount
	globals.RecoveryPoolVUSD = pool

	if err := e.state.PutAccount(admin, acc); err != nil {
		return err
	}
	return e.state.PutGlobals(globals)
}

// RetireVaultDebt burns recovery-pool VUSD against the target vault's
// debt. The retired amount is clamped to both the pool balance and the
// outstanding debt.
func (e *Engine) RetireVaultDebt(target crypto.Address, amount uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	vault, err := e.ensureVault(target)
	if err != nil {
		return 0, err
	}
	globals, err := e.ensureGlobals()
	if err != nil {
		return 0, err
	}
	if err := e.accrue(vault, globals); err != nil {
		return 0, err
	}
	if vault.Debt == 0 {
		return 0, ErrNoDebt
	}
	if globals.RecoveryPoolVUSD == 0 {
		return 0, ErrRecoveryPoolDry
	}

	retired := amount
	if retired > vault.Debt {
		retired = vault.Debt
	}
	if retired > globals.RecoveryPoolVUSD {
		retired = globals.RecoveryPoolVUSD
	}

	total, err := num.Sub(globals.TotalDebt, retired)
	if err != nil {
		return 0, err
	}
	vault.Debt -= retired
	globals.RecoveryPoolVUSD -= retired
	globals.TotalDebt = total

	if err := e.updateDebtIndex(target, vault.Debt); err != nil {
		return 0, err
	}
	if err := e.state.PutVault(target, vault); err != nil {
		return 0, err
	}
	if err := e.state.PutGlobals(globals); err != nil {
		return 0, err
	}
	return retired, nil
}

// RetireWorstVaultDebt retires debt from the largest debtor in the bounded
// index. Returns the chosen vault address alongside the retired amount.
func (e *Engine) RetireWorstVaultDebt(amount uint64) ([]byte, uint64, error) {
	if e == nil || e.state == nil {
		return nil, 0, errNilState
	}
	if amount == 0 {
		return nil, 0, ErrInvalidAmount
	}
	entries, err := e.state.DebtIndex()
	if err != nil {
		return nil, 0, err
	}
	// Equal debts tie-break on byte order of the address so every replica
	// picks the same vault regardless of index insertion order.
	var worst *DebtEntry
	for i := range entries {
		switch {
		case worst == nil, entries[i].Debt > worst.Debt:
			worst = &entries[i]
		case entries[i].Debt == worst.Debt && bytes.Compare(entries[i].Addr, worst.Addr) < 0:
			worst = &entries[i]
		}
	}
	if worst == nil || worst.Debt == 0 {
		return nil, 0, ErrNoIndexedDebt
	}
	addr := crypto.NewAddress(crypto.VexPrefix, append([]byte(nil), worst.Addr...))
	retired, err := e.RetireVaultDebt(addr, amount)
	if err != nil {
		return nil, 0, err
	}
	return append([]byte(nil), worst.Addr...), retired, nil
}

// accrue folds vault interest into the global debt counter and the
// stability fee bucket that funds the savings pool.
func (e *Engine) accrue(v *Vault, g *Globals) error {
	if e.policy == nil {
		return errNilPolicy
	}
	interest, err := accrueInterest(v, e.policy.BorrowAprBps, e.now)
	if err != nil {
		return err
	}
	if interest == 0 {
		return nil
	}
	total, err := num.Add(g.TotalDebt, interest)
	if err != nil {
		return err
	}
	fees, err := num.Add(g.StabilityFeesAccrued, interest)
	if err != nil {
		return err
	}
	g.TotalDebt = total
	g.StabilityFeesAccrued = fees
	return nil
}

func (e *Engine) effectivePrice(role oracle.Role) (uint64, uint64, error) {
	if e.price == nil {
		return 0, 0, errNilPrice
	}
	return e.price.EffectivePrice(role)
}

func (e *Engine) ensureVault(addr crypto.Address) (*Vault, error) {
	vault, err := e.state.Vault(addr)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, ErrVaultNotFound
	}
	return vault.Clone(), nil
}

func (e *Engine) ensureGlobals() (*Globals, error) {
	globals, err := e.state.Globals()
	if err != nil {
		return nil, err
	}
	if globals == nil {
		globals = &Globals{}
	}
	return globals.Clone(), nil
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

// withinLTV checks debt*priceDen*10000 <= collateral*priceNum*ltvBps with
// 256-bit cross multiplication; the boundary itself is allowed.
func withinLTV(debt, collateral, priceNum, priceDen, ltvBps uint64) bool {
	if debt == 0 {
		return true
	}
	if collateral == 0 {
		return false
	}
	left := num.Prod(debt, priceDen, 10_000)
	right := num.Prod(collateral, priceNum, ltvBps)
	return left.Cmp(right) <= 0
}

// isLiquidatable is the computed eligibility predicate: the position is
// past the liquidation threshold at the guarded liquidation price.
func isLiquidatable(v *Vault, priceNum, priceDen, thresholdBps uint64) bool {
	if v == nil || v.Debt == 0 {
		return false
	}
	if v.Collateral == 0 {
		return true
	}
	left := num.Prod(v.Debt, priceDen, 10_000)
	right := num.Prod(v.Collateral, priceNum, thresholdBps)
	return left.Cmp(right) > 0
}

func (e *Engine) updateDebtIndex(addr crypto.Address, debt uint64) error {
	entries, err := e.state.DebtIndex()
	if err != nil {
		return err
	}
	raw := addr.Bytes()
	for i := range entries {
		if bytes.Equal(entries[i].Addr, raw) {
			if debt == 0 {
				entries = append(entries[:i], entries[i+1:]...)
			} else {
				entries[i].Debt = debt
			}
			return e.state.PutDebtIndex(entries)
		}
	}
	if debt == 0 {
		return nil
	}
	if len(entries) < maxDebtIndexEntries {
		entries = append(entries, DebtEntry{Addr: append([]byte(nil), raw...), Debt: debt})
		return e.state.PutDebtIndex(entries)
	}
	// Index full: displace the smallest tracked debt when ours is larger.
	smallest := 0
	for i := range entries {
		if entries[i].Debt < entries[smallest].Debt {
			smallest = i
		}
	}
	if entries[smallest].Debt < debt {
		entries[smallest] = DebtEntry{Addr: append([]byte(nil), raw...), Debt: debt}
		return e.state.PutDebtIndex(entries)
	}
	return nil
}
