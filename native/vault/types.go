package vault

// Vault is a collateralized debt position, exactly one per account. The
// lifecycle phase (empty, active, liquidatable) is derived from the field
// values; no enum is stored that could drift from the numeric truth.
type Vault struct {
	// Collateral is the locked VEX amount.
	Collateral uint64
	// Debt is the outstanding VUSD debt including accrued interest.
	Debt uint64
	// LastAccrualTS is the chain timestamp interest was last applied at.
	LastAccrualTS uint64
}

// Clone returns a deep copy of the vault record.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// Globals aggregates the pool-wide vault accounting updated in the same
// handler call as the per-vault records.
type Globals struct {
	// TotalDebt mirrors the sum of all vault debts.
	TotalDebt uint64
	// StabilityFeesAccrued holds interest accrued since the last forward
	// into the savings pool.
	StabilityFeesAccrued uint64
	// RecoveryPoolVUSD is the admin-funded balance used to retire bad debt.
	RecoveryPoolVUSD uint64
	// RecoveryPoolVEX accumulates the stability share of liquidation
	// penalties.
	RecoveryPoolVEX uint64
}

// Clone returns a deep copy of the global counters.
func (g *Globals) Clone() *Globals {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}

// maxDebtIndexEntries bounds the worst-vault scan so a single instruction
// never iterates unbounded state.
const maxDebtIndexEntries = 64

// DebtEntry is one row of the bounded largest-debtors index.
type DebtEntry struct {
	Addr []byte
	Debt uint64
}

// LiquidationResult reports the realised liquidation for event emission.
type LiquidationResult struct {
	RepaidDebt       uint64
	SeizedCollateral uint64
	LiquidatorBonus  uint64
	StabilityShare   uint64
}
