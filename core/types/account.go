package types

// Account is the ledger record for a single participant. Balances are
// denominated in the smallest token unit and held as unsigned 64-bit
// integers to keep replica arithmetic exact.
type Account struct {
	// BalanceVEX is the spendable native token balance.
	BalanceVEX uint64
	// BalanceVUSD is the spendable stable token balance.
	BalanceVUSD uint64
	// StakedVEX is the amount locked in staking; consulted by the vault
	// tier predicate, never spent by the economy engine.
	StakedVEX uint64
	// LPShares is the account's AMM pool share balance. Created on first
	// liquidity deposit and only ever decremented back to zero.
	LPShares uint64
	// CreatedAt is the chain timestamp when the account first appeared.
	CreatedAt uint64
	// DailyFlowDay is the unix day index the flow counters belong to.
	// Counters reset whenever the stored day differs from the current one.
	DailyFlowDay uint64
	// DailyNetSell accumulates VEX sold into the pool during DailyFlowDay.
	DailyNetSell uint64
	// DailyNetBuy accumulates VEX bought from the pool during DailyFlowDay.
	DailyNetBuy uint64
}

// Clone returns a deep copy of the account record.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
