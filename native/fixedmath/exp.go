package fixedmath

import "github.com/holiman/uint256"

// Exp is a fixed-point value scaled by 1e18. The zero value has a nil
// mantissa and is treated as zero.
type Exp struct {
	Mantissa *uint256.Int
}

// NewExp wraps a raw 1e18-scaled mantissa.
func NewExp(mantissa *uint256.Int) Exp {
	if mantissa == nil {
		return Exp{Mantissa: zero()}
	}
	return Exp{Mantissa: new(uint256.Int).Set(mantissa)}
}

// ExpFromBps converts a basis-point quantity into an Exp (10_000 bps = 1.0).
func ExpFromBps(bps uint64) Exp {
	mantissa := new(uint256.Int).Mul(uint256.NewInt(bps), uint256.NewInt(100_000_000_000_000))
	return Exp{Mantissa: mantissa}
}

// OneExp returns the Exp representation of 1.0.
func OneExp() Exp {
	return Exp{Mantissa: new(uint256.Int).Set(ExpScale)}
}

// ZeroExp returns the Exp representation of zero.
func ZeroExp() Exp {
	return Exp{Mantissa: zero()}
}

func (e Exp) mantissa() *uint256.Int {
	if e.Mantissa == nil {
		return zero()
	}
	return e.Mantissa
}

// IsZero reports whether the mantissa is zero (or unset).
func (e Exp) IsZero() bool {
	return e.Mantissa == nil || e.Mantissa.IsZero()
}

// Clone returns an independent copy of the value.
func (e Exp) Clone() Exp {
	return Exp{Mantissa: new(uint256.Int).Set(e.mantissa())}
}

// MulExp returns a*b at Exp precision.
func MulExp(a, b Exp) (Exp, error) {
	product, overflow := new(uint256.Int).MulOverflow(a.mantissa(), b.mantissa())
	if overflow {
		return Exp{}, ErrOverflow
	}
	return Exp{Mantissa: product.Div(product, ExpScale)}, nil
}

// MulExp3 returns a*b*c at Exp precision.
func MulExp3(a, b, c Exp) (Exp, error) {
	ab, err := MulExp(a, b)
	if err != nil {
		return Exp{}, err
	}
	return MulExp(ab, c)
}

// DivExp returns a/b at Exp precision.
func DivExp(a, b Exp) (Exp, error) {
	if b.IsZero() {
		return Exp{}, ErrDivisionByZero
	}
	scaled, overflow := new(uint256.Int).MulOverflow(a.mantissa(), ExpScale)
	if overflow {
		return Exp{}, ErrOverflow
	}
	return Exp{Mantissa: scaled.Div(scaled, b.mantissa())}, nil
}

// AddExp returns a+b.
func AddExp(a, b Exp) (Exp, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a.mantissa(), b.mantissa())
	if overflow {
		return Exp{}, ErrOverflow
	}
	return Exp{Mantissa: sum}, nil
}

// SubExp returns a-b, reporting underflow.
func SubExp(a, b Exp) (Exp, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a.mantissa(), b.mantissa())
	if underflow {
		return Exp{}, ErrUnderflow
	}
	return Exp{Mantissa: diff}, nil
}

// MulScalar scales an Exp by an integer quantity, keeping Exp precision.
func MulScalar(a Exp, scalar *uint256.Int) (Exp, error) {
	product, overflow := new(uint256.Int).MulOverflow(a.mantissa(), scalar)
	if overflow {
		return Exp{}, ErrOverflow
	}
	return Exp{Mantissa: product}, nil
}

// MulScalarTruncate multiplies an Exp by an integer quantity and truncates
// the fractional remainder, returning a plain integer amount.
func MulScalarTruncate(a Exp, scalar *uint256.Int) (*uint256.Int, error) {
	product, err := MulScalar(a, scalar)
	if err != nil {
		return nil, err
	}
	return Truncate(product), nil
}

// MulScalarTruncateAdd is MulScalarTruncate followed by a checked addition.
func MulScalarTruncateAdd(a Exp, scalar, addend *uint256.Int) (*uint256.Int, error) {
	truncated, err := MulScalarTruncate(a, scalar)
	if err != nil {
		return nil, err
	}
	return AddUint(truncated, addend)
}

// DivByExp divides an integer quantity by an Exp, returning an integer.
func DivByExp(scalar *uint256.Int, divisor Exp) (*uint256.Int, error) {
	if divisor.IsZero() {
		return nil, ErrDivisionByZero
	}
	numerator, overflow := new(uint256.Int).MulOverflow(ExpScale, scalar)
	if overflow {
		return nil, ErrOverflow
	}
	return numerator.Div(numerator, divisor.mantissa()), nil
}

// Truncate drops the fractional part of an Exp, returning the whole units.
func Truncate(a Exp) *uint256.Int {
	return new(uint256.Int).Div(a.mantissa(), ExpScale)
}

// LessThanExp reports a < b.
func LessThanExp(a, b Exp) bool {
	return a.mantissa().Lt(b.mantissa())
}

// LessThanOrEqualExp reports a <= b.
func LessThanOrEqualExp(a, b Exp) bool {
	return !b.mantissa().Lt(a.mantissa())
}
