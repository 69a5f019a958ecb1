package types

// SwapDirection selects which reserve the input amount is sold into.
type SwapDirection uint8

const (
	// SwapSellVEX trades VEX for VUSD (the taxed direction).
	SwapSellVEX SwapDirection = iota
	// SwapBuyVEX trades VUSD for VEX.
	SwapBuyVEX
)

// Instruction is the marker interface implemented by every typed economy
// instruction. Instructions arrive already authenticated and sequenced;
// the processor only consumes the caller address, the admin boolean and
// the deterministic chain timestamp.
type Instruction interface {
	InstructionName() string
}

type SeedAmm struct {
	ReserveVEX  uint64
	ReserveVUSD uint64
	PriceNum    uint64
	PriceDen    uint64
}

type FinalizeAmmBootstrap struct{}

type AddLiquidity struct {
	AmountVEX  uint64
	AmountVUSD uint64
}

type RemoveLiquidity struct {
	Shares uint64
}

type Swap struct {
	AmountIn     uint64
	MinAmountOut uint64
	Direction    SwapDirection
}

type CreateVault struct{}

type DepositCollateral struct {
	Amount uint64
}

type WithdrawCollateral struct {
	Amount uint64
}

type Borrow struct {
	Amount uint64
}

type Repay struct {
	Amount uint64
}

type LiquidateVault struct {
	Target []byte
}

type SavingsDeposit struct {
	Amount uint64
}

type SavingsWithdraw struct {
	Amount uint64
}

type SavingsClaim struct{}

type UpdateOracle struct {
	PriceNum  uint64
	PriceDen  uint64
	UpdatedTS uint64
	Source    string
}

type SetPolicy struct {
	Policy []byte // rlp-encoded policy.State payload
}

type FundRecoveryPool struct {
	Amount uint64
}

type RetireVaultDebt struct {
	Target []byte
	Amount uint64
}

type RetireWorstVaultDebt struct {
	Amount uint64
}

func (SeedAmm) InstructionName() string              { return "amm.seed" }
func (FinalizeAmmBootstrap) InstructionName() string { return "amm.finalize_bootstrap" }
func (AddLiquidity) InstructionName() string         { return "amm.add_liquidity" }
func (RemoveLiquidity) InstructionName() string      { return "amm.remove_liquidity" }
func (Swap) InstructionName() string                 { return "amm.swap" }
func (CreateVault) InstructionName() string          { return "vault.create" }
func (DepositCollateral) InstructionName() string    { return "vault.deposit_collateral" }
func (WithdrawCollateral) InstructionName() string   { return "vault.withdraw_collateral" }
func (Borrow) InstructionName() string               { return "vault.borrow" }
func (Repay) InstructionName() string                { return "vault.repay" }
func (LiquidateVault) InstructionName() string       { return "vault.liquidate" }
func (SavingsDeposit) InstructionName() string       { return "savings.deposit" }
func (SavingsWithdraw) InstructionName() string      { return "savings.withdraw" }
func (SavingsClaim) InstructionName() string         { return "savings.claim" }
func (UpdateOracle) InstructionName() string         { return "oracle.update" }
func (SetPolicy) InstructionName() string            { return "policy.set" }
func (FundRecoveryPool) InstructionName() string     { return "vault.fund_recovery_pool" }
func (RetireVaultDebt) InstructionName() string      { return "vault.retire_debt" }
func (RetireWorstVaultDebt) InstructionName() string { return "vault.retire_worst_debt" }
