// Package fixedmath implements the scaled-integer arithmetic used across the
// risk and reward engines. Ratios are carried as Exp values scaled by 1e18;
// reward indices use the larger Double scale (1e36) so they resist precision
// loss over long accrual periods. Every operation reports overflow and
// division-by-zero explicitly instead of wrapping or clamping.
package fixedmath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow signals that an intermediate or final value exceeded 256 bits.
	ErrOverflow = errors.New("fixedmath: overflow")
	// ErrUnderflow signals a subtraction below zero.
	ErrUnderflow = errors.New("fixedmath: underflow")
	// ErrDivisionByZero signals a zero divisor.
	ErrDivisionByZero = errors.New("fixedmath: division by zero")
)

var (
	// ExpScale is the 1e18 mantissa scale.
	ExpScale = uint256.NewInt(1_000_000_000_000_000_000)
	// DoubleScale is the 1e36 mantissa scale used for reward indices.
	DoubleScale = mustUint("1000000000000000000000000000000000000")
	// HalfExpScale is used when rounding an Exp product to the nearest unit.
	HalfExpScale = new(uint256.Int).Rsh(ExpScale, 1)
)

func mustUint(value string) *uint256.Int {
	v, err := uint256.FromDecimal(value)
	if err != nil {
		panic("fixedmath: invalid integer constant: " + value)
	}
	return v
}

// AddUint returns a+b, reporting overflow.
func AddUint(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// SubUint returns a-b, reporting underflow.
func SubUint(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return diff, nil
}

// MulUint returns a*b, reporting overflow.
func MulUint(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product, nil
}

// DivUint returns a/b, reporting a zero divisor.
func DivUint(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// SubOrZero returns a-b, or zero when b exceeds a. Used where the caller
// wants max(0, a-b) semantics rather than an underflow error.
func SubOrZero(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(a, b)
}

func zero() *uint256.Int { return uint256.NewInt(0) }
