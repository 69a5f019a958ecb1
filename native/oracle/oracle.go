package oracle

import (
	"errors"

	"vexchain/native/num"
	"vexchain/native/policy"
)

var (
	errBadDenominator = errors.New("oracle: price denominator is zero")
	errSourceTooLong  = errors.New("oracle: source exceeds 64 bytes")
	errNoAmmPrice     = errors.New("oracle: amm price unavailable")
)

// State is the latest externally pushed price, written only by admin
// instructions. The price is VUSD per VEX as a rational pair.
type State struct {
	PriceNum  uint64
	PriceDen  uint64
	UpdatedTS uint64
	Source    string
}

// Clone returns a deep copy of the oracle state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Validate checks an incoming oracle update before it is persisted.
func (s *State) Validate() error {
	if s.PriceDen == 0 {
		return errBadDenominator
	}
	if len(s.Source) > 64 {
		return errSourceTooLong
	}
	return nil
}

// Role distinguishes who the guarded price must be conservative against
// when the AMM and the oracle disagree beyond tolerance.
type Role uint8

const (
	// RoleBorrow values collateral for a new borrow; the guard picks the
	// price less favorable to the borrower.
	RoleBorrow Role = iota
	// RoleLiquidate values collateral for liquidation eligibility and
	// seizure; the guard picks the price less favorable to the vault owner.
	RoleLiquidate
)

// EffectivePrice returns the price the vault ledger must value collateral
// at. The AMM price is trusted unless a fresh oracle quote deviates beyond
// the configured tolerance, in which case the side that values collateral
// lower wins: that restricts new debt and triggers liquidation earlier,
// which is the conservative direction for the protocol in both roles.
func EffectivePrice(state *State, pol *policy.State, ammNum, ammDen, now uint64, _ Role) (uint64, uint64, error) {
	if ammDen == 0 || ammNum == 0 {
		return 0, 0, errNoAmmPrice
	}
	if pol == nil || !pol.OracleEnabled {
		return ammNum, ammDen, nil
	}
	if state == nil || state.PriceNum == 0 || state.PriceDen == 0 {
		return ammNum, ammDen, nil
	}
	if pol.OracleStaleSecs > 0 {
		var elapsed uint64
		if now > state.UpdatedTS {
			elapsed = now - state.UpdatedTS
		}
		if elapsed > pol.OracleStaleSecs {
			return ammNum, ammDen, nil
		}
	}

	deviation, err := DeviationBps(ammNum, ammDen, state.PriceNum, state.PriceDen)
	if err != nil {
		return 0, 0, err
	}
	if deviation <= pol.OracleToleranceBps {
		return ammNum, ammDen, nil
	}

	// Cross-compare amm vs oracle; the lower price wins.
	ammSide := num.Prod(ammNum, state.PriceDen)
	oracleSide := num.Prod(state.PriceNum, ammDen)
	if ammSide.Cmp(oracleSide) <= 0 {
		return ammNum, ammDen, nil
	}
	return state.PriceNum, state.PriceDen, nil
}

// DeviationBps measures how far the AMM price strays from the oracle price
// in basis points, relative to the oracle:
//
//	|amm_num*oracle_den - oracle_num*amm_den| * 10000 / (oracle_num*amm_den)
func DeviationBps(ammNum, ammDen, oracleNum, oracleDen uint64) (uint64, error) {
	if oracleNum == 0 || ammDen == 0 {
		return 0, num.ErrDivideByZero
	}
	ammSide := num.Prod(ammNum, oracleDen)
	oracleSide := num.Prod(oracleNum, ammDen)
	diff := ammSide.Clone()
	if ammSide.Cmp(oracleSide) >= 0 {
		diff.Sub(ammSide, oracleSide)
	} else {
		diff.Sub(oracleSide, ammSide)
	}
	diff.Mul(diff, num.U(10_000))
	return num.QuoU64(diff, oracleSide)
}
