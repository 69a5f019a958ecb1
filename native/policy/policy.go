package policy

import "errors"

var (
	errFeeBpsRange        = errors.New("policy: swap fee exceeds 10000 bps")
	errTaxBpsRange        = errors.New("policy: sell tax tier exceeds 10000 bps")
	errTaxTierOrder       = errors.New("policy: sell tax tiers must be non-decreasing")
	errTaxThresholdOrder  = errors.New("policy: tax thresholds must be non-decreasing")
	errFlowBpsRange       = errors.New("policy: flow cap exceeds 10000 bps")
	errLTVRange           = errors.New("policy: max LTV exceeds 10000 bps")
	errLTVTierOrder       = errors.New("policy: tier-2 LTV below base LTV")
	errLTVThreshold       = errors.New("policy: max LTV must be below liquidation threshold")
	errLiqThresholdRange  = errors.New("policy: liquidation threshold exceeds 10000 bps")
	errLiqTargetRange     = errors.New("policy: liquidation target must be below threshold")
	errPenaltySplit       = errors.New("policy: reward and stability bps must sum to penalty bps")
	errPenaltyRange       = errors.New("policy: liquidation penalty exceeds 10000 bps")
	errAprRange           = errors.New("policy: borrow APR exceeds 10000 bps")
	errOracleTolerance    = errors.New("policy: oracle tolerance exceeds 10000 bps")
	errZeroDebtCeiling    = errors.New("policy: debt ceiling must be positive")
	errZeroTierStake      = errors.New("policy: tier-2 stake minimum must be positive")
	errZeroMatureDuration = errors.New("policy: account maturity duration must be positive")
)

// Module identifiers used with the pause guard.
const (
	ModuleAmm     = "amm"
	ModuleVault   = "vault"
	ModuleSavings = "savings"
)

// State is the admin-governed risk configuration consumed read-only by the
// amm, vault, savings and oracle components. It is validated as a whole at
// write time; individual fields are never mutated in place.
type State struct {
	// AMM trading parameters.
	SwapFeeBps     uint64
	SellTaxMinBps  uint64
	SellTaxMidBps  uint64
	SellTaxMaxBps  uint64
	TaxLowThreshold uint64 // daily outflow bps selecting the min tier
	TaxMidThreshold uint64 // daily outflow bps selecting the mid tier

	// Flow caps, expressed against account balance and pool reserve.
	MaxSellBpsBalance uint64
	MaxSellBpsPool    uint64
	MaxBuyBpsBalance  uint64
	MaxBuyBpsPool     uint64

	// Vault risk parameters.
	MaxLTVBps               uint64
	Tier2MaxLTVBps          uint64
	LiquidationThresholdBps uint64
	LiquidationTargetBps    uint64
	LiquidationPenaltyBps   uint64
	LiquidatorRewardBps     uint64
	StabilityPoolBps        uint64
	BorrowAprBps            uint64
	DebtCeiling             uint64

	// Account tier thresholds.
	MatureSecs    uint64
	Tier2StakeMin uint64

	// Oracle guard configuration.
	OracleEnabled      bool
	OracleToleranceBps uint64
	OracleStaleSecs    uint64

	// Module pause switches.
	AmmPaused     bool
	VaultPaused   bool
	SavingsPaused bool
}

// IsPaused implements the native/common pause view over the policy switches.
func (s *State) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	switch module {
	case ModuleAmm:
		return s.AmmPaused
	case ModuleVault:
		return s.VaultPaused
	case ModuleSavings:
		return s.SavingsPaused
	}
	return false
}

// Clone returns a deep copy of the policy state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

const maxBps = 10_000

// Validate checks the internal consistency of the full parameter set. A
// policy that fails validation is rejected wholesale and the stored state
// remains untouched.
func (s *State) Validate() error {
	if s.SwapFeeBps > maxBps {
		return errFeeBpsRange
	}
	if s.SellTaxMinBps > maxBps || s.SellTaxMidBps > maxBps || s.SellTaxMaxBps > maxBps {
		return errTaxBpsRange
	}
	if s.SellTaxMinBps > s.SellTaxMidBps || s.SellTaxMidBps > s.SellTaxMaxBps {
		return errTaxTierOrder
	}
	if s.TaxLowThreshold > s.TaxMidThreshold {
		return errTaxThresholdOrder
	}
	if s.MaxSellBpsBalance > maxBps || s.MaxSellBpsPool > maxBps ||
		s.MaxBuyBpsBalance > maxBps || s.MaxBuyBpsPool > maxBps {
		return errFlowBpsRange
	}
	if s.MaxLTVBps > maxBps || s.Tier2MaxLTVBps > maxBps {
		return errLTVRange
	}
	if s.Tier2MaxLTVBps < s.MaxLTVBps {
		return errLTVTierOrder
	}
	if s.LiquidationThresholdBps > maxBps {
		return errLiqThresholdRange
	}
	if s.Tier2MaxLTVBps >= s.LiquidationThresholdBps {
		return errLTVThreshold
	}
	if s.LiquidationTargetBps >= s.LiquidationThresholdBps {
		return errLiqTargetRange
	}
	if s.LiquidationPenaltyBps > maxBps {
		return errPenaltyRange
	}
	if s.LiquidatorRewardBps+s.StabilityPoolBps != s.LiquidationPenaltyBps {
		return errPenaltySplit
	}
	if s.BorrowAprBps > maxBps {
		return errAprRange
	}
	if s.OracleToleranceBps > maxBps {
		return errOracleTolerance
	}
	if s.DebtCeiling == 0 {
		return errZeroDebtCeiling
	}
	if s.Tier2StakeMin == 0 {
		return errZeroTierStake
	}
	if s.MatureSecs == 0 {
		return errZeroMatureDuration
	}
	return nil
}

// Default returns the genesis policy used when no governance override has
// been written yet. Values mirror the launch configuration.
func Default() *State {
	return &State{
		SwapFeeBps:              30,
		SellTaxMinBps:           100,
		SellTaxMidBps:           300,
		SellTaxMaxBps:           800,
		TaxLowThreshold:         500,
		TaxMidThreshold:         2_000,
		MaxSellBpsBalance:       5_000,
		MaxSellBpsPool:          300,
		MaxBuyBpsBalance:        10_000,
		MaxBuyBpsPool:           500,
		MaxLTVBps:               5_000,
		Tier2MaxLTVBps:          6_000,
		LiquidationThresholdBps: 7_500,
		LiquidationTargetBps:    5_000,
		LiquidationPenaltyBps:   1_000,
		LiquidatorRewardBps:     800,
		StabilityPoolBps:        200,
		BorrowAprBps:            500,
		DebtCeiling:             1_000_000_000_000,
		MatureSecs:              30 * 24 * 3600,
		Tier2StakeMin:           10_000_000,
		OracleEnabled:           true,
		OracleToleranceBps:      500,
		OracleStaleSecs:         900,
	}
}
