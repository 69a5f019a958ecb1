package events

import (
	"encoding/hex"
	"strconv"

	"vexchain/core/types"
	"vexchain/crypto"
)

const (
	TypeVaultCreated        = "vault.created"
	TypeCollateralDeposited = "vault.collateral_deposited"
	TypeCollateralWithdrawn = "vault.collateral_withdrawn"
	TypeBorrowed            = "vault.borrowed"
	TypeRepaid              = "vault.repaid"
	TypeVaultLiquidated     = "vault.liquidated"
	TypeRecoveryPoolFunded  = "vault.recovery_pool_funded"
	TypeVaultDebtRetired    = "vault.debt_retired"
)

type VaultCreated struct {
	Owner crypto.Address
}

func (VaultCreated) EventType() string { return TypeVaultCreated }

func (e VaultCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultCreated,
		Attributes: map[string]string{
			"owner": e.Owner.String(),
		},
	}
}

type CollateralDeposited struct {
	Owner  crypto.Address
	Amount uint64
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"owner":  e.Owner.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

type CollateralWithdrawn struct {
	Owner  crypto.Address
	Amount uint64
}

func (CollateralWithdrawn) EventType() string { return TypeCollateralWithdrawn }

func (e CollateralWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralWithdrawn,
		Attributes: map[string]string{
			"owner":  e.Owner.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

type Borrowed struct {
	Owner  crypto.Address
	Amount uint64
}

func (Borrowed) EventType() string { return TypeBorrowed }

func (e Borrowed) Event() *types.Event {
	return &types.Event{
		Type: TypeBorrowed,
		Attributes: map[string]string{
			"owner":  e.Owner.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

type Repaid struct {
	Owner  crypto.Address
	Amount uint64
}

func (Repaid) EventType() string { return TypeRepaid }

func (e Repaid) Event() *types.Event {
	return &types.Event{
		Type: TypeRepaid,
		Attributes: map[string]string{
			"owner":  e.Owner.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

type VaultLiquidated struct {
	Liquidator       crypto.Address
	Target           crypto.Address
	RepaidDebt       uint64
	SeizedCollateral uint64
	LiquidatorBonus  uint64
	StabilityShare   uint64
}

func (VaultLiquidated) EventType() string { return TypeVaultLiquidated }

func (e VaultLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultLiquidated,
		Attributes: map[string]string{
			"liquidator":       e.Liquidator.String(),
			"target":           e.Target.String(),
			"repaidDebt":       strconv.FormatUint(e.RepaidDebt, 10),
			"seizedCollateral": strconv.FormatUint(e.SeizedCollateral, 10),
			"liquidatorBonus":  strconv.FormatUint(e.LiquidatorBonus, 10),
			"stabilityShare":   strconv.FormatUint(e.StabilityShare, 10),
		},
	}
}

type RecoveryPoolFunded struct {
	Admin  crypto.Address
	Amount uint64
}

func (RecoveryPoolFunded) EventType() string { return TypeRecoveryPoolFunded }

func (e RecoveryPoolFunded) Event() *types.Event {
	return &types.Event{
		Type: TypeRecoveryPoolFunded,
		Attributes: map[string]string{
			"admin":  e.Admin.String(),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

type VaultDebtRetired struct {
	Target  []byte
	Retired uint64
}

func (VaultDebtRetired) EventType() string { return TypeVaultDebtRetired }

func (e VaultDebtRetired) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultDebtRetired,
		Attributes: map[string]string{
			"target":  hex.EncodeToString(e.Target),
			"retired": strconv.FormatUint(e.Retired, 10),
		},
	}
}
