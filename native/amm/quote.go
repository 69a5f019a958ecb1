package amm

import (
	"errors"

	"vexchain/native/num"
)

var (
	errQuoteFeeRange  = errors.New("amm: quote fee exceeds 10000 bps")
	errEmptyReserves  = errors.New("amm: quote against empty reserves")
	errZeroQuoteInput = errors.New("amm: quote input must be positive")
)

// Quote prices amountIn against the constant-product curve. The fee is
// deducted from the input first; the output floor-divides so every rounding
// remainder stays with the pool:
//
//	fee        = amountIn * feeBps / 10000
//	netIn      = amountIn - fee
//	amountOut  = floor(netIn*reserveOut*10000 / (reserveIn*10000 + netIn*10000))
//
// The returned fee is denominated in the input token. Any overflow of the
// 64-bit result or an out-of-range fee yields an error, never a panic.
func Quote(amountIn, reserveIn, reserveOut, feeBps uint64) (amountOut, fee uint64, err error) {
	if amountIn == 0 {
		return 0, 0, errZeroQuoteInput
	}
	if feeBps > 10_000 {
		return 0, 0, errQuoteFeeRange
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, 0, errEmptyReserves
	}
	fee, err = num.MulDiv(amountIn, feeBps, 10_000)
	if err != nil {
		return 0, 0, err
	}
	netIn := amountIn - fee
	if netIn == 0 {
		return 0, fee, nil
	}
	numerator := num.Prod(netIn, reserveOut, 10_000)
	denominator := num.Prod(reserveIn, 10_000)
	denominator.Add(denominator, num.Prod(netIn, 10_000))
	amountOut, err = num.QuoU64(numerator, denominator)
	if err != nil {
		return 0, 0, err
	}
	return amountOut, fee, nil
}
