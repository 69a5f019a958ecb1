package vault

import (
	"vexchain/core/types"
	"vexchain/native/policy"
)

// isTier2 reports whether the account qualifies for the higher LTV tier:
// the account must be older than the maturity window and hold the minimum
// staked VEX. Evaluated fresh on every borrow, never cached.
func isTier2(acc *types.Account, pol *policy.State, now uint64) bool {
	if acc == nil || pol == nil {
		return false
	}
	var age uint64
	if now > acc.CreatedAt {
		age = now - acc.CreatedAt
	}
	return age >= pol.MatureSecs && acc.StakedVEX >= pol.Tier2StakeMin
}

// maxLTVBps selects the borrow LTV ceiling for the account's tier.
func maxLTVBps(acc *types.Account, pol *policy.State, now uint64) uint64 {
	if pol == nil {
		return 0
	}
	if isTier2(acc, pol, now) {
		return pol.Tier2MaxLTVBps
	}
	return pol.MaxLTVBps
}
