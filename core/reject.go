package core

import (
	"errors"

	"vexchain/native/amm"
	nativecommon "vexchain/native/common"
	"vexchain/native/num"
	"vexchain/native/savings"
	"vexchain/native/vault"
)

// Rejection codes are part of the deterministic output of an instruction:
// every validator must derive the same code for the same failure, so the
// mapping below is fixed and append-only.
const (
	CodeUnauthorized    = "unauthorized"
	CodeUnknown         = "unknown_instruction"
	CodeModulePaused    = "module_paused"
	CodeInvalidAmount   = "invalid_amount"
	CodeInvalidTarget   = "invalid_target"
	CodeNotFound        = "not_found"
	CodeAlreadyExists   = "already_exists"
	CodeInsufficient    = "insufficient_funds"
	CodeBootstrap       = "bootstrap_state"
	CodeSlippage        = "slippage_exceeded"
	CodeFlowCap         = "flow_cap_exceeded"
	CodeLTV             = "ltv_exceeded"
	CodeDebtCeiling     = "debt_ceiling_exceeded"
	CodeNotLiquidatable = "not_liquidatable"
	CodeNoDebt          = "no_debt"
	CodeRecoveryDry     = "recovery_pool_dry"
	CodeNothingToClaim  = "nothing_to_claim"
	CodeArithmetic      = "arithmetic_error"
	CodeInternal        = "internal_error"
)

// RejectionCode maps an Apply error onto its stable code. Unmapped errors
// collapse into internal_error; callers log the underlying message but must
// not expose it as part of consensus output.
func RejectionCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrUnknownInstruction):
		return CodeUnknown
	case errors.Is(err, ErrInvalidTarget):
		return CodeInvalidTarget
	case errors.Is(err, ErrStateInconsistent):
		return CodeInternal
	case errors.Is(err, nativecommon.ErrModulePaused):
		return CodeModulePaused

	case errors.Is(err, amm.ErrInvalidAmount),
		errors.Is(err, amm.ErrZeroSharesMinted),
		errors.Is(err, amm.ErrInitialLiquidityTooSmall),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, savings.ErrInvalidAmount):
		return CodeInvalidAmount

	case errors.Is(err, amm.ErrPoolNotInitialised),
		errors.Is(err, vault.ErrVaultNotFound),
		errors.Is(err, vault.ErrNoIndexedDebt):
		return CodeNotFound

	case errors.Is(err, vault.ErrVaultExists):
		return CodeAlreadyExists

	case errors.Is(err, amm.ErrInsufficientBalance),
		errors.Is(err, amm.ErrInsufficientShares),
		errors.Is(err, vault.ErrInsufficientBalance),
		errors.Is(err, vault.ErrInsufficientCollateral),
		errors.Is(err, savings.ErrInsufficientBalance),
		errors.Is(err, savings.ErrInsufficientDeposit):
		return CodeInsufficient

	case errors.Is(err, amm.ErrBootstrapLocked),
		errors.Is(err, amm.ErrBootstrapOpen):
		return CodeBootstrap

	case errors.Is(err, amm.ErrSlippage):
		return CodeSlippage
	case errors.Is(err, amm.ErrFlowCapExceeded):
		return CodeFlowCap
	case errors.Is(err, vault.ErrLTVExceeded):
		return CodeLTV
	case errors.Is(err, vault.ErrDebtCeilingExceeded):
		return CodeDebtCeiling
	case errors.Is(err, vault.ErrNotLiquidatable):
		return CodeNotLiquidatable
	case errors.Is(err, vault.ErrNoDebt):
		return CodeNoDebt
	case errors.Is(err, vault.ErrRecoveryPoolDry):
		return CodeRecoveryDry
	case errors.Is(err, savings.ErrNothingToClaim):
		return CodeNothingToClaim

	case errors.Is(err, num.ErrOverflow),
		errors.Is(err, num.ErrUnderflow),
		errors.Is(err, num.ErrDivideByZero):
		return CodeArithmetic

	default:
		return CodeInternal
	}
}
