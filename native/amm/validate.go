package amm

import "errors"

var (
	errFeeTooHigh       = errors.New("amm: fee exceeds 10000 bps")
	errTaxTooHigh       = errors.New("amm: sell tax exceeds 10000 bps")
	errBadBootstrapDen  = errors.New("amm: bootstrap price denominator is zero")
	errSharesNoReserves = errors.New("amm: shares outstanding with empty reserves")
	errReservesNoShares = errors.New("amm: reserves present without shares")
	errBelowMinShares   = errors.New("amm: total shares below burned minimum")
)

// validatePool checks the structural invariants of the pool record. It runs
// before and after every mutation; a post-mutation failure indicates the
// handler itself is broken and the caller must discard the mutated copy.
func validatePool(p *Pool) error {
	if p == nil {
		return ErrPoolNotInitialised
	}
	if p.FeeBps > 10_000 {
		return errFeeTooHigh
	}
	if p.SellTaxBps > 10_000 {
		return errTaxTooHigh
	}
	if p.BootstrapPriceDen == 0 {
		return errBadBootstrapDen
	}
	if p.TotalShares == 0 {
		if p.ReserveVEX != 0 || p.ReserveVUSD != 0 {
			return errReservesNoShares
		}
		return nil
	}
	if p.ReserveVEX == 0 || p.ReserveVUSD == 0 {
		return errSharesNoReserves
	}
	if p.TotalShares < MinimumLiquidity {
		return errBelowMinShares
	}
	return nil
}
