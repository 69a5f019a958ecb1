package amm

// MinimumLiquidity is the share amount permanently burned on the first
// liquidity mint. Keeping these shares unowned prevents total drain of the
// reserves and the classic first-depositor share inflation attack.
const MinimumLiquidity uint64 = 1000

// Pool captures the constant-product market state for the VEX/VUSD pair.
// All amounts are smallest-unit uint64 values.
type Pool struct {
	// ReserveVEX and ReserveVUSD are the tradable reserves.
	ReserveVEX  uint64
	ReserveVUSD uint64
	// TotalShares is the LP share supply including the burned minimum.
	TotalShares uint64
	// FeeBps is the swap fee in basis points, credited to the house counters.
	FeeBps uint64
	// SellTaxBps records the dynamic tax tier applied to the most recent
	// sell. Informational; the tier is re-derived on every trade.
	SellTaxBps uint64
	// BootstrapPriceNum/Den is the admin-declared launch price.
	BootstrapPriceNum uint64
	BootstrapPriceDen uint64
	// Seeder is the account that provided the current bootstrap deposit.
	// A re-seed before finalize refunds this account and replaces the
	// record with the new seeder.
	Seeder []byte
	// Finalized locks the bootstrap phase and opens public trading.
	Finalized bool
	// HouseFeesVEX/VUSD accumulate collected swap fees per input token.
	HouseFeesVEX  uint64
	HouseFeesVUSD uint64
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Seeder = append([]byte(nil), p.Seeder...)
	return &clone
}

// PriceVEX reports the instantaneous AMM price of one VEX in VUSD terms as
// a numerator/denominator pair (ReserveVUSD / ReserveVEX).
func (p *Pool) PriceVEX() (num, den uint64) {
	if p == nil || p.ReserveVEX == 0 {
		return 0, 0
	}
	return p.ReserveVUSD, p.ReserveVEX
}
