// Package num provides the checked, deterministic integer arithmetic shared
// by the economy modules. Stored quantities are uint64; intermediates run
// through 256-bit integers so that a multiplication can never wrap before
// the final width check. Division always truncates toward zero.
package num

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow signals a result that does not fit the 64-bit storage width.
	ErrOverflow = errors.New("num: result exceeds 64 bits")
	// ErrUnderflow signals a subtraction below zero.
	ErrUnderflow = errors.New("num: subtraction underflow")
	// ErrDivideByZero signals a zero divisor detected before dividing.
	ErrDivideByZero = errors.New("num: division by zero")
)

// U lifts a uint64 into a 256-bit integer.
func U(x uint64) *uint256.Int {
	return uint256.NewInt(x)
}

// Prod multiplies the factors in a 256-bit accumulator. With at most four
// 64-bit factors the product cannot wrap.
func Prod(factors ...uint64) *uint256.Int {
	out := uint256.NewInt(1)
	for _, f := range factors {
		out.Mul(out, uint256.NewInt(f))
	}
	return out
}

// ToU64 narrows a 256-bit value back to uint64, rejecting anything wider.
func ToU64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrOverflow
	}
	return x.Uint64(), nil
}

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// MulDiv returns floor(a*b/den) with a 128-bit intermediate.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrDivideByZero
	}
	out := Prod(a, b)
	out.Div(out, uint256.NewInt(den))
	return ToU64(out)
}

// QuoU64 divides two wide values and narrows the quotient to uint64.
func QuoU64(numerator, denominator *uint256.Int) (uint64, error) {
	if denominator.IsZero() {
		return 0, ErrDivideByZero
	}
	out := new(uint256.Int).Div(numerator, denominator)
	return ToU64(out)
}

// SqrtProd returns floor(sqrt(a*b)). The 128-bit product roots to a value
// that always fits 64 bits.
func SqrtProd(a, b uint64) uint64 {
	root := new(uint256.Int).Sqrt(Prod(a, b))
	return root.Uint64()
}
