package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"vexchain/core"
	"vexchain/core/types"
	"vexchain/crypto"
)

// replayLine is one newline-delimited JSON instruction in a replay file.
// Caller is a bech32 address; Target fields are hex-encoded 20-byte payloads.
type replayLine struct {
	Name   string          `json:"name"`
	Caller string          `json:"caller"`
	Admin  bool            `json:"admin"`
	Now    uint64          `json:"now"`
	Body   json.RawMessage `json:"body"`
}

// replay feeds a recorded instruction stream through the processor. Rejected
// instructions are logged and skipped; only malformed input aborts the run.
func replay(processor *core.Processor, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var line replayLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return fmt.Errorf("replay line %d: %w", lineNo, err)
		}
		caller, err := crypto.DecodeAddress(line.Caller)
		if err != nil {
			return fmt.Errorf("replay line %d: caller: %w", lineNo, err)
		}
		instr, err := decodeInstruction(line.Name, line.Body)
		if err != nil {
			return fmt.Errorf("replay line %d: %w", lineNo, err)
		}
		ctx := core.InstructionContext{Caller: caller, Admin: line.Admin, Now: line.Now}
		if err := processor.Apply(ctx, instr); err != nil {
			if errors.Is(err, core.ErrStateInconsistent) {
				return fmt.Errorf("replay line %d: %w", lineNo, err)
			}
			logger.Warn("Instruction rejected",
				slog.Int("line", lineNo),
				slog.String("instruction", line.Name),
				slog.String("code", core.RejectionCode(err)),
				slog.Any("error", err))
		}
	}
	return scanner.Err()
}

func decodeInstruction(name string, body json.RawMessage) (types.Instruction, error) {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	unmarshal := func(v interface{}) error {
		return json.Unmarshal(body, v)
	}
	switch name {
	case types.SeedAmm{}.InstructionName():
		var in seedAmmBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.SeedAmm{
			ReserveVEX:  in.ReserveVEX,
			ReserveVUSD: in.ReserveVUSD,
			PriceNum:    in.PriceNum,
			PriceDen:    in.PriceDen,
		}, nil
	case types.FinalizeAmmBootstrap{}.InstructionName():
		return types.FinalizeAmmBootstrap{}, nil
	case types.AddLiquidity{}.InstructionName():
		var in addLiquidityBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.AddLiquidity{AmountVEX: in.AmountVEX, AmountVUSD: in.AmountVUSD}, nil
	case types.RemoveLiquidity{}.InstructionName():
		var in sharesBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.RemoveLiquidity{Shares: in.Shares}, nil
	case types.Swap{}.InstructionName():
		var in swapBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		direction := types.SwapSellVEX
		if strings.EqualFold(in.Direction, "buy_vex") {
			direction = types.SwapBuyVEX
		}
		return types.Swap{AmountIn: in.AmountIn, MinAmountOut: in.MinAmountOut, Direction: direction}, nil
	case types.CreateVault{}.InstructionName():
		return types.CreateVault{}, nil
	case types.DepositCollateral{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.DepositCollateral{Amount: in.Amount}, nil
	case types.WithdrawCollateral{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.WithdrawCollateral{Amount: in.Amount}, nil
	case types.Borrow{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.Borrow{Amount: in.Amount}, nil
	case types.Repay{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.Repay{Amount: in.Amount}, nil
	case types.LiquidateVault{}.InstructionName():
		var in targetBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		target, err := hex.DecodeString(in.Target)
		if err != nil {
			return nil, err
		}
		return types.LiquidateVault{Target: target}, nil
	case types.SavingsDeposit{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.SavingsDeposit{Amount: in.Amount}, nil
	case types.SavingsWithdraw{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.SavingsWithdraw{Amount: in.Amount}, nil
	case types.SavingsClaim{}.InstructionName():
		return types.SavingsClaim{}, nil
	case types.UpdateOracle{}.InstructionName():
		var in oracleBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.UpdateOracle{
			PriceNum:  in.PriceNum,
			PriceDen:  in.PriceDen,
			UpdatedTS: in.UpdatedTS,
			Source:    in.Source,
		}, nil
	case types.SetPolicy{}.InstructionName():
		var in policyBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		payload, err := hex.DecodeString(in.Policy)
		if err != nil {
			return nil, err
		}
		return types.SetPolicy{Policy: payload}, nil
	case types.FundRecoveryPool{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.FundRecoveryPool{Amount: in.Amount}, nil
	case types.RetireVaultDebt{}.InstructionName():
		var in retireBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		target, err := hex.DecodeString(in.Target)
		if err != nil {
			return nil, err
		}
		return types.RetireVaultDebt{Target: target, Amount: in.Amount}, nil
	case types.RetireWorstVaultDebt{}.InstructionName():
		var in amountBody
		if err := unmarshal(&in); err != nil {
			return nil, err
		}
		return types.RetireWorstVaultDebt{Amount: in.Amount}, nil
	default:
		return nil, fmt.Errorf("unknown instruction %q", name)
	}
}

type seedAmmBody struct {
	ReserveVEX  uint64 `json:"reserveVex"`
	ReserveVUSD uint64 `json:"reserveVusd"`
	PriceNum    uint64 `json:"priceNum"`
	PriceDen    uint64 `json:"priceDen"`
}

type addLiquidityBody struct {
	AmountVEX  uint64 `json:"amountVex"`
	AmountVUSD uint64 `json:"amountVusd"`
}

type sharesBody struct {
	Shares uint64 `json:"shares"`
}

type swapBody struct {
	AmountIn     uint64 `json:"amountIn"`
	MinAmountOut uint64 `json:"minAmountOut"`
	Direction    string `json:"direction"`
}

type amountBody struct {
	Amount uint64 `json:"amount"`
}

type targetBody struct {
	Target string `json:"target"`
}

type retireBody struct {
	Target string `json:"target"`
	Amount uint64 `json:"amount"`
}

type oracleBody struct {
	PriceNum  uint64 `json:"priceNum"`
	PriceDen  uint64 `json:"priceDen"`
	UpdatedTS uint64 `json:"updatedTs"`
	Source    string `json:"source"`
}

type policyBody struct {
	Policy string `json:"policy"`
}
