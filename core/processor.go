package core

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"vexchain/core/events"
	"vexchain/core/state"
	"vexchain/core/types"
	"vexchain/crypto"
	"vexchain/native/amm"
	"vexchain/native/oracle"
	"vexchain/native/policy"
	"vexchain/native/savings"
	"vexchain/native/vault"
)

var (
	ErrUnauthorized       = errors.New("processor: instruction requires admin authority")
	ErrUnknownInstruction = errors.New("processor: unknown instruction")
	ErrInvalidTarget      = errors.New("processor: invalid target address")
	ErrNilManager         = errors.New("processor: state manager not configured")

	// ErrStateInconsistent marks a failure after the engine already
	// committed, leaving records mid-transition. Callers must halt rather
	// than treat it as an ordinary rejection.
	ErrStateInconsistent = errors.New("processor: state inconsistent")
)

// InstructionContext is the deterministic execution environment for a single
// instruction. Now is chain time in unix seconds; wall clocks are never
// consulted.
type InstructionContext struct {
	Caller crypto.Address
	Admin  bool
	Now    uint64
}

// Metrics is the instruction-outcome sink the processor reports into.
type Metrics interface {
	ObserveApplied(instruction string)
	ObserveRejected(instruction, code string)
}

// Processor routes economy instructions to the native engines. One instance
// serves the whole chain; the engines are re-wired with fresh state, policy
// and time on every Apply so no call can observe a stale view.
type Processor struct {
	state   *state.Manager
	emitter events.Emitter
	metrics Metrics
	amm     *amm.Engine
	vault   *vault.Engine
	savings *savings.Engine
}

func NewProcessor(manager *state.Manager, emitter events.Emitter) *Processor {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Processor{
		state:   manager,
		emitter: emitter,
		amm:     amm.NewEngine(),
		vault:   vault.NewEngine(),
		savings: savings.NewEngine(),
	}
}

// SetMetrics installs an optional instruction-outcome sink.
func (p *Processor) SetMetrics(m Metrics) {
	if p == nil {
		return
	}
	p.metrics = m
}

// Apply executes one instruction against current state. A returned error
// means the instruction was rejected and no state was written; the caller
// maps the error to a stable rejection code via RejectionCode.
func (p *Processor) Apply(ctx InstructionContext, instr types.Instruction) error {
	err := p.apply(ctx, instr)
	if p != nil && p.metrics != nil && instr != nil {
		if err != nil {
			p.metrics.ObserveRejected(instr.InstructionName(), RejectionCode(err))
		} else {
			p.metrics.ObserveApplied(instr.InstructionName())
		}
	}
	return err
}

func (p *Processor) apply(ctx InstructionContext, instr types.Instruction) error {
	if p == nil || p.state == nil {
		return ErrNilManager
	}
	pol, err := p.currentPolicy()
	if err != nil {
		return err
	}
	p.wire(pol, ctx.Now)

	switch in := instr.(type) {
	case types.SeedAmm:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		shares, err := p.amm.Seed(ctx.Caller, in.ReserveVEX, in.ReserveVUSD, in.PriceNum, in.PriceDen)
		if err != nil {
			return err
		}
		p.emitter.Emit(events.AmmSeeded{
			Admin:       ctx.Caller,
			ReserveVEX:  in.ReserveVEX,
			ReserveVUSD: in.ReserveVUSD,
			PriceNum:    in.PriceNum,
			PriceDen:    in.PriceDen,
			Shares:      shares,
		})
		return nil

	case types.FinalizeAmmBootstrap:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		if err := p.amm.FinalizeBootstrap(); err != nil {
			return err
		}
		p.emitter.Emit(events.AmmBootstrapFinalized{Admin: ctx.Caller})
		return nil

	case types.AddLiquidity:
		shares, err := p.amm.AddLiquidity(ctx.Caller, in.AmountVEX, in.AmountVUSD)
		if err != nil {
			return err
		}
		p.emitter.Emit(events.LiquidityAdded{
			Provider:   ctx.Caller,
			AmountVEX:  in.AmountVEX,
			AmountVUSD: in.AmountVUSD,
			Shares:     shares,
		})
		return nil

	case types.RemoveLiquidity:
		amountVEX, amountVUSD, err := p.amm.RemoveLiquidity(ctx.Caller, in.Shares)
		if err != nil {
			return err
		}
		p.emitter.Emit(events.LiquidityRemoved{
			Provider:   ctx.Caller,
			Shares:     in.Shares,
			AmountVEX:  amountVEX,
			AmountVUSD: amountVUSD,
		})
		return nil

	case types.Swap:
		result, err := p.amm.Swap(ctx.Caller, in.AmountIn, in.MinAmountOut, in.Direction)
		if err != nil {
			return err
		}
		p.emitter.Emit(events.Swapped{
			Trader:    ctx.Caller,
			Direction: result.Direction,
			AmountIn:  result.AmountIn,
			AmountOut: result.AmountOut,
			Fee:       result.Fee,
			Tax:       result.Tax,
			TaxBps:    result.TaxBps,
		})
		return nil

	case types.CreateVault:
		if err := p.vault.CreateVault(ctx.Caller); err != nil {
			return err
		}
		p.emitter.Emit(events.VaultCreated{Owner: ctx.Caller})
		return nil

	case types.DepositCollateral:
		if err := p.vault.DepositCollateral(ctx.Caller, in.Amount); err != nil {
			return err
		}
		p.emitter.Emit(events.CollateralDeposited{Owner: ctx.Caller, Amount: in.Amount})
		return nil

	case types.WithdrawCollateral:
		if err := p.vault.WithdrawCollateral(ctx.Caller, in.Amount); err != nil {
			return err
		}
		if err := p.forwardStabilityFees(); err != nil {
			return err
		}
		p.emitter.Emit(events.CollateralWithdrawn{Owner: ctx.Caller, Amount: in.Amount})
		return nil

	case types.Borrow:
		if err := p.vault.Borrow(ctx.Caller, in.Amount); err != nil {
			return err
		}
		if err := p.forwardStabilityFees(); err != nil {
			return err
		}
		p.emitter.Emit(events.Borrowed{Owner: ctx.Caller, Amount: in.Amount})
		return nil

	case types.Repay:
		repaid, err := p.vault.Repay(ctx.Caller, in.Amount)
		if err != nil {
			return err
		}
		if err := p.forwardStabilityFees(); err != nil {
			return err
		}
		p.emitter.Emit(events.Repaid{Owner: ctx.Caller, Amount: repaid})
		return nil

	case types.LiquidateVault:
		target, err := p.targetAddress(in.Target)
		if err != nil {
			return err
		}
		result, err := p.vault.Liquidate(ctx.Caller, target)
		if err != nil {
			return err
		}
		if err := p.forwardStabilityFees(); err != nil {
			return err
		}
		p.emitter.Emit(events.VaultLiquidated{
			Liquidator:       ctx.Caller,
			Target:           target,
			RepaidDebt:       result.RepaidDebt,
			SeizedCollateral: result.SeizedCollateral,
			LiquidatorBonus:  result.LiquidatorBonus,
			StabilityShare:   result.StabilityShare,
		})
		return nil

	case types.SavingsDeposit:
		if err := p.savings.Deposit(ctx.Caller, in.Amount); err != nil {
			return err
		}
		p.emitter.Emit(events.SavingsDeposited{Account: ctx.Caller, Amount: in.Amount})
		return nil

	case types.SavingsWithdraw:
		if err := p.savings.Withdraw(ctx.Caller, in.Amount); err != nil {
			return err
		}
		p.emitter.Emit(events.SavingsWithdrawn{Account: ctx.Caller, Amount: in.Amount})
		return nil

	case types.SavingsClaim:
		claimed, err := p.savings.Claim(ctx.Caller)
		if err != nil {
			return err
		}
		p.emitter.Emit(events.SavingsClaimed{Account: ctx.Caller, Amount: claimed})
		return nil

	case types.UpdateOracle:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		next := &oracle.State{
			PriceNum:  in.PriceNum,
			PriceDen:  in.PriceDen,
			UpdatedTS: in.UpdatedTS,
			Source:    in.Source,
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := p.state.PutOracleState(next); err != nil {
			return err
		}
		p.emitter.Emit(events.OracleUpdated{
			Admin:     ctx.Caller,
			PriceNum:  in.PriceNum,
			PriceDen:  in.PriceDen,
			UpdatedTS: in.UpdatedTS,
			Source:    in.Source,
		})
		return nil

	case types.SetPolicy:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		next := new(policy.State)
		if err := rlp.DecodeBytes(in.Policy, next); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := p.state.PutPolicy(next); err != nil {
			return err
		}
		p.emitter.Emit(events.PolicyUpdated{Admin: ctx.Caller})
		return nil

	case types.FundRecoveryPool:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		if err := p.vault.FundRecoveryPool(ctx.Caller, in.Amount); err != nil {
			return err
		}
		p.emitter.Emit(events.RecoveryPoolFunded{Admin: ctx.Caller, Amount: in.Amount})
		return nil

	case types.RetireVaultDebt:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		target, err := p.targetAddress(in.Target)
		if err != nil {
			return err
		}
		retired, err := p.vault.RetireVaultDebt(target, in.Amount)
		if err != nil {
			return err
		}
		if err := p.forwardStabilityFees(); err != nil {
			return err
		}
		p.emitter.Emit(events.VaultDebtRetired{Target: target.Bytes(), Retired: retired})
		return nil

	case types.RetireWorstVaultDebt:
		if !ctx.Admin {
			return ErrUnauthorized
		}
		target, retired, err := p.vault.RetireWorstVaultDebt(in.Amount)
		if err != nil {
			return err
		}
		if err := p.forwardStabilityFees(); err != nil {
			return err
		}
		p.emitter.Emit(events.VaultDebtRetired{Target: target, Retired: retired})
		return nil

	default:
		return ErrUnknownInstruction
	}
}

// currentPolicy loads the stored policy, falling back to the genesis default
// when none has been set yet.
func (p *Processor) currentPolicy() (*policy.State, error) {
	stored, err := p.state.Policy()
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return policy.Default(), nil
	}
	return stored, nil
}

// wire re-injects state, policy, pauses and chain time into every engine for
// the current instruction.
func (p *Processor) wire(pol *policy.State, now uint64) {
	p.amm.SetState(ammState{m: p.state})
	p.amm.SetPolicy(pol)
	p.amm.SetNow(now)
	p.amm.SetPauses(pol)

	p.vault.SetState(vaultState{m: p.state})
	p.vault.SetPolicy(pol)
	p.vault.SetNow(now)
	p.vault.SetPauses(pol)
	p.vault.SetPriceView(guardedPrice{m: p.state, pol: pol, now: now})

	p.savings.SetState(savingsState{m: p.state})
	p.savings.SetNow(now)
	p.savings.SetPauses(pol)
}

// forwardStabilityFees moves interest accrued by the vault engine into the
// savings reward bucket. Runs after every vault instruction so fees never sit
// outside the savings pool for more than one instruction. The vault engine
// has already committed by this point, so any failure here leaves records
// mid-transition and is reported as ErrStateInconsistent.
func (p *Processor) forwardStabilityFees() error {
	globals, err := p.state.VaultGlobals()
	if err != nil {
		return fmt.Errorf("%w: read vault globals: %v", ErrStateInconsistent, err)
	}
	if globals == nil || globals.StabilityFeesAccrued == 0 {
		return nil
	}
	accrued := globals.StabilityFeesAccrued
	if err := p.savings.FundRewards(accrued); err != nil {
		return fmt.Errorf("%w: forward stability fees: %v", ErrStateInconsistent, err)
	}
	cleared := globals.Clone()
	cleared.StabilityFeesAccrued = 0
	if err := p.state.PutVaultGlobals(cleared); err != nil {
		return fmt.Errorf("%w: clear stability fees: %v", ErrStateInconsistent, err)
	}
	return nil
}

// HouseFees reports the protocol fee counters accumulated by the AMM. Both
// values are zero before bootstrap.
func (p *Processor) HouseFees() (vex, vusd uint64, err error) {
	pool, err := p.state.AmmPool()
	if err != nil || pool == nil {
		return 0, 0, err
	}
	return pool.HouseFeesVEX, pool.HouseFeesVUSD, nil
}

func (p *Processor) targetAddress(raw []byte) (crypto.Address, error) {
	if len(raw) != crypto.AddressLength {
		return crypto.Address{}, ErrInvalidTarget
	}
	return crypto.NewAddress(crypto.VexPrefix, raw), nil
}

// The engines each declare a narrow persistence interface; these adapters
// map them onto the shared state manager.

type ammState struct{ m *state.Manager }

func (s ammState) Pool() (*amm.Pool, error)     { return s.m.AmmPool() }
func (s ammState) PutPool(pool *amm.Pool) error { return s.m.PutAmmPool(pool) }
func (s ammState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return s.m.GetAccount(addr)
}
func (s ammState) PutAccount(addr crypto.Address, acc *types.Account) error {
	return s.m.PutAccount(addr, acc)
}

type vaultState struct{ m *state.Manager }

func (s vaultState) Vault(addr crypto.Address) (*vault.Vault, error) { return s.m.Vault(addr) }
func (s vaultState) PutVault(addr crypto.Address, v *vault.Vault) error {
	return s.m.PutVault(addr, v)
}
func (s vaultState) Globals() (*vault.Globals, error)       { return s.m.VaultGlobals() }
func (s vaultState) PutGlobals(g *vault.Globals) error      { return s.m.PutVaultGlobals(g) }
func (s vaultState) DebtIndex() ([]vault.DebtEntry, error)  { return s.m.DebtIndex() }
func (s vaultState) PutDebtIndex(e []vault.DebtEntry) error { return s.m.PutDebtIndex(e) }
func (s vaultState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return s.m.GetAccount(addr)
}
func (s vaultState) PutAccount(addr crypto.Address, acc *types.Account) error {
	return s.m.PutAccount(addr, acc)
}

type savingsState struct{ m *state.Manager }

func (s savingsState) Pool() (*savings.Pool, error)     { return s.m.SavingsPool() }
func (s savingsState) PutPool(pool *savings.Pool) error { return s.m.PutSavingsPool(pool) }
func (s savingsState) Balance(addr crypto.Address) (*savings.Balance, error) {
	return s.m.SavingsBalance(addr)
}
func (s savingsState) PutBalance(addr crypto.Address, b *savings.Balance) error {
	return s.m.PutSavingsBalance(addr, b)
}
func (s savingsState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return s.m.GetAccount(addr)
}
func (s savingsState) PutAccount(addr crypto.Address, acc *types.Account) error {
	return s.m.PutAccount(addr, acc)
}

// guardedPrice values VEX through the oracle deviation guard: the AMM spot
// price is trusted unless a fresh oracle quote deviates beyond tolerance, in
// which case the lower of the two wins.
type guardedPrice struct {
	m   *state.Manager
	pol *policy.State
	now uint64
}

func (g guardedPrice) EffectivePrice(role oracle.Role) (uint64, uint64, error) {
	pool, err := g.m.AmmPool()
	if err != nil {
		return 0, 0, err
	}
	var ammNum, ammDen uint64
	if pool != nil {
		ammNum, ammDen = pool.PriceVEX()
	}
	quote, err := g.m.OracleState()
	if err != nil {
		return 0, 0, err
	}
	return oracle.EffectivePrice(quote, g.pol, ammNum, ammDen, g.now, role)
}
