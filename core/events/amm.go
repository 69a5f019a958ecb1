package events

import (
	"strconv"

	"vexchain/core/types"
	"vexchain/crypto"
)

const (
	// TypeAmmSeeded is emitted when the admin installs the bootstrap pool.
	TypeAmmSeeded = "amm.seeded"
	// TypeAmmBootstrapFinalized is emitted when trading opens.
	TypeAmmBootstrapFinalized = "amm.bootstrap_finalized"
	// TypeLiquidityAdded is emitted for every successful LP deposit.
	TypeLiquidityAdded = "amm.liquidity_added"
	// TypeLiquidityRemoved is emitted for every successful LP withdrawal.
	TypeLiquidityRemoved = "amm.liquidity_removed"
	// TypeSwapped is emitted for every executed trade.
	TypeSwapped = "amm.swapped"
)

type AmmSeeded struct {
	Admin       crypto.Address
	ReserveVEX  uint64
	ReserveVUSD uint64
	PriceNum    uint64
	PriceDen    uint64
	Shares      uint64
}

func (AmmSeeded) EventType() string { return TypeAmmSeeded }

func (e AmmSeeded) Event() *types.Event {
	return &types.Event{
		Type: TypeAmmSeeded,
		Attributes: map[string]string{
			"admin":       e.Admin.String(),
			"reserveVex":  strconv.FormatUint(e.ReserveVEX, 10),
			"reserveVusd": strconv.FormatUint(e.ReserveVUSD, 10),
			"priceNum":    strconv.FormatUint(e.PriceNum, 10),
			"priceDen":    strconv.FormatUint(e.PriceDen, 10),
			"shares":      strconv.FormatUint(e.Shares, 10),
		},
	}
}

type AmmBootstrapFinalized struct {
	Admin crypto.Address
}

func (AmmBootstrapFinalized) EventType() string { return TypeAmmBootstrapFinalized }

func (e AmmBootstrapFinalized) Event() *types.Event {
	return &types.Event{
		Type: TypeAmmBootstrapFinalized,
		Attributes: map[string]string{
			"admin": e.Admin.String(),
		},
	}
}

type LiquidityAdded struct {
	Provider   crypto.Address
	AmountVEX  uint64
	AmountVUSD uint64
	Shares     uint64
}

func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

func (e LiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityAdded,
		Attributes: map[string]string{
			"provider":   e.Provider.String(),
			"amountVex":  strconv.FormatUint(e.AmountVEX, 10),
			"amountVusd": strconv.FormatUint(e.AmountVUSD, 10),
			"shares":     strconv.FormatUint(e.Shares, 10),
		},
	}
}

type LiquidityRemoved struct {
	Provider   crypto.Address
	Shares     uint64
	AmountVEX  uint64
	AmountVUSD uint64
}

func (LiquidityRemoved) EventType() string { return TypeLiquidityRemoved }

func (e LiquidityRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidityRemoved,
		Attributes: map[string]string{
			"provider":   e.Provider.String(),
			"shares":     strconv.FormatUint(e.Shares, 10),
			"amountVex":  strconv.FormatUint(e.AmountVEX, 10),
			"amountVusd": strconv.FormatUint(e.AmountVUSD, 10),
		},
	}
}

type Swapped struct {
	Trader    crypto.Address
	Direction types.SwapDirection
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	Tax       uint64
	TaxBps    uint64
}

func (Swapped) EventType() string { return TypeSwapped }

func (e Swapped) Event() *types.Event {
	direction := "sell_vex"
	if e.Direction == types.SwapBuyVEX {
		direction = "buy_vex"
	}
	return &types.Event{
		Type: TypeSwapped,
		Attributes: map[string]string{
			"trader":    e.Trader.String(),
			"direction": direction,
			"amountIn":  strconv.FormatUint(e.AmountIn, 10),
			"amountOut": strconv.FormatUint(e.AmountOut, 10),
			"fee":       strconv.FormatUint(e.Fee, 10),
			"tax":       strconv.FormatUint(e.Tax, 10),
			"taxBps":    strconv.FormatUint(e.TaxBps, 10),
		},
	}
}
