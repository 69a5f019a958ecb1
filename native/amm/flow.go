package amm

import (
	"errors"
	"math"

	"vexchain/core/types"
	"vexchain/native/num"
	"vexchain/native/policy"
)

var ErrFlowCapExceeded = errors.New("amm: daily flow cap exceeded")

const secondsPerDay = 86_400

// rollFlowDay resets the account's daily counters when the derived day index
// has moved past the stored one. Chain time is the only clock consulted.
func rollFlowDay(acc *types.Account, now uint64) {
	day := now / secondsPerDay
	if acc.DailyFlowDay != day {
		acc.DailyFlowDay = day
		acc.DailyNetSell = 0
		acc.DailyNetBuy = 0
	}
}

// flowAllowance computes the per-day volume ceiling as the lesser of the
// balance-relative and reserve-relative caps. Both legs truncate.
func flowAllowance(balance, reserve, bpsBalance, bpsPool uint64) (uint64, error) {
	byBalance, err := num.MulDiv(balance, bpsBalance, 10_000)
	if err != nil {
		return 0, err
	}
	byPool, err := num.MulDiv(reserve, bpsPool, 10_000)
	if err != nil {
		return 0, err
	}
	if byPool < byBalance {
		return byPool, nil
	}
	return byBalance, nil
}

// checkFlow verifies that the cumulative daily volume after this trade stays
// within the allowance. A trade over the cap is rejected outright; there is
// no partial fill.
func checkFlow(cumulative, allowance uint64) error {
	if cumulative > allowance {
		return ErrFlowCapExceeded
	}
	return nil
}

// sellTaxBps selects the tax tier from the cumulative daily sell pressure
// measured against the VEX reserve. The outflow ratio saturates at the
// 16-bit ceiling rather than overflowing.
func sellTaxBps(pol *policy.State, cumulativeSell, reserveVEX uint64) (uint64, error) {
	if reserveVEX == 0 {
		return 0, errEmptyReserves
	}
	outflow, err := num.MulDiv(cumulativeSell, 10_000, reserveVEX)
	if err != nil {
		return 0, err
	}
	if outflow > math.MaxUint16 {
		outflow = math.MaxUint16
	}
	switch {
	case outflow <= pol.TaxLowThreshold:
		return pol.SellTaxMinBps, nil
	case outflow <= pol.TaxMidThreshold:
		return pol.SellTaxMidBps, nil
	default:
		return pol.SellTaxMaxBps, nil
	}
}
