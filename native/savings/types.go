package savings

import "github.com/holiman/uint256"

// Pool is the singleton savings ledger. PendingRewards holds stability
// fees that have not yet been folded into the accumulator; truncation dust
// parks here indefinitely rather than being rounded away.
type Pool struct {
	TotalDeposits  uint64
	PendingRewards uint64
	// RewardPerShare is the cumulative reward accumulator scaled by Scale.
	RewardPerShare *uint256.Int
}

// Balance is one account's savings position.
type Balance struct {
	DepositBalance uint64
	// RewardDebt equals DepositBalance*RewardPerShare immediately after
	// every settle; the gap to the current product is the earned reward.
	RewardDebt       *uint256.Int
	UnclaimedRewards uint64
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := &Pool{
		TotalDeposits:  p.TotalDeposits,
		PendingRewards: p.PendingRewards,
	}
	if p.RewardPerShare != nil {
		clone.RewardPerShare = new(uint256.Int).Set(p.RewardPerShare)
	}
	return clone
}

// Clone returns a deep copy of the balance record.
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	clone := &Balance{
		DepositBalance:   b.DepositBalance,
		UnclaimedRewards: b.UnclaimedRewards,
	}
	if b.RewardDebt != nil {
		clone.RewardDebt = new(uint256.Int).Set(b.RewardDebt)
	}
	return clone
}

func (p *Pool) rewardPerShare() *uint256.Int {
	if p.RewardPerShare == nil {
		return new(uint256.Int)
	}
	return p.RewardPerShare
}

func (b *Balance) rewardDebt() *uint256.Int {
	if b.RewardDebt == nil {
		return new(uint256.Int)
	}
	return b.RewardDebt
}
