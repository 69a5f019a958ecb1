package vault

import "vexchain/native/num"

const secondsPerYear = 31_536_000

// accrueInterest applies simple interest to the vault since its last
// accrual and stamps the timestamp. The caller is responsible for folding
// the returned interest into the global counters:
//
//	interest = debt * aprBps * elapsed / (10000 * secondsPerYear)
//
// The division truncates toward zero. The timestamp advances even when the
// computed interest is zero so short intervals cannot be replayed for extra
// accrual.
func accrueInterest(v *Vault, aprBps, now uint64) (uint64, error) {
	if v == nil {
		return 0, ErrVaultNotFound
	}
	if v.Debt == 0 {
		v.LastAccrualTS = now
		return 0, nil
	}
	var elapsed uint64
	if now > v.LastAccrualTS {
		elapsed = now - v.LastAccrualTS
	}
	if elapsed == 0 || aprBps == 0 {
		v.LastAccrualTS = now
		return 0, nil
	}
	numerator := num.Prod(v.Debt, aprBps, elapsed)
	denominator := num.Prod(10_000, secondsPerYear)
	interest, err := num.QuoU64(numerator, denominator)
	if err != nil {
		return 0, err
	}
	newDebt, err := num.Add(v.Debt, interest)
	if err != nil {
		return 0, err
	}
	v.Debt = newDebt
	v.LastAccrualTS = now
	return interest, nil
}
