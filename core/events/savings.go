package events

import (
	"strconv"

	"vexchain/core/types"
	"vexchain/crypto"
)

const (
	TypeSavingsDeposited = "savings.deposited"
	TypeSavingsWithdrawn = "savings.withdrawn"
	TypeSavingsClaimed   = "savings.claimed"
)

type SavingsDeposited struct {
	Account crypto.Address
	Amount  uint64
}

func (SavingsDeposited) EventType() string { return TypeSavingsDeposited }

func (e SavingsDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeSavingsDeposited,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"amount":  strconv.FormatUint(e.Amount, 10),
		},
	}
}

type SavingsWithdrawn struct {
	Account crypto.Address
	Amount  uint64
}

func (SavingsWithdrawn) EventType() string { return TypeSavingsWithdrawn }

func (e SavingsWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeSavingsWithdrawn,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"amount":  strconv.FormatUint(e.Amount, 10),
		},
	}
}

type SavingsClaimed struct {
	Account crypto.Address
	Amount  uint64
}

func (SavingsClaimed) EventType() string { return TypeSavingsClaimed }

func (e SavingsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeSavingsClaimed,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"amount":  strconv.FormatUint(e.Amount, 10),
		},
	}
}
