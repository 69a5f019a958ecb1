package events

import (
	"strconv"
	"strings"

	"vexchain/core/types"
	"vexchain/crypto"
)

const (
	TypeOracleUpdated = "oracle.updated"
	TypePolicyUpdated = "policy.updated"
)

type OracleUpdated struct {
	Admin     crypto.Address
	PriceNum  uint64
	PriceDen  uint64
	UpdatedTS uint64
	Source    string
}

func (OracleUpdated) EventType() string { return TypeOracleUpdated }

func (e OracleUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleUpdated,
		Attributes: map[string]string{
			"admin":     e.Admin.String(),
			"priceNum":  strconv.FormatUint(e.PriceNum, 10),
			"priceDen":  strconv.FormatUint(e.PriceDen, 10),
			"updatedTs": strconv.FormatUint(e.UpdatedTS, 10),
			"source":    strings.TrimSpace(e.Source),
		},
	}
}

type PolicyUpdated struct {
	Admin crypto.Address
}

func (PolicyUpdated) EventType() string { return TypePolicyUpdated }

func (e PolicyUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePolicyUpdated,
		Attributes: map[string]string{
			"admin": e.Admin.String(),
		},
	}
}
