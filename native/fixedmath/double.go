package fixedmath

import "github.com/holiman/uint256"

// Double is a fixed-point value scaled by 1e36, used for reward indices that
// accumulate tiny per-block ratios over very long horizons.
type Double struct {
	Mantissa *uint256.Int
}

// NewDouble wraps a raw 1e36-scaled mantissa.
func NewDouble(mantissa *uint256.Int) Double {
	if mantissa == nil {
		return Double{Mantissa: zero()}
	}
	return Double{Mantissa: new(uint256.Int).Set(mantissa)}
}

// ZeroDouble returns the Double representation of zero.
func ZeroDouble() Double {
	return Double{Mantissa: zero()}
}

func (d Double) mantissa() *uint256.Int {
	if d.Mantissa == nil {
		return zero()
	}
	return d.Mantissa
}

// IsZero reports whether the mantissa is zero (or unset).
func (d Double) IsZero() bool {
	return d.Mantissa == nil || d.Mantissa.IsZero()
}

// Clone returns an independent copy of the value.
func (d Double) Clone() Double {
	return Double{Mantissa: new(uint256.Int).Set(d.mantissa())}
}

// FractionDouble computes num/den at Double precision.
func FractionDouble(num, den *uint256.Int) (Double, error) {
	if den.IsZero() {
		return Double{}, ErrDivisionByZero
	}
	scaled, overflow := new(uint256.Int).MulOverflow(num, DoubleScale)
	if overflow {
		return Double{}, ErrOverflow
	}
	return Double{Mantissa: scaled.Div(scaled, den)}, nil
}

// AddDouble returns a+b.
func AddDouble(a, b Double) (Double, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a.mantissa(), b.mantissa())
	if overflow {
		return Double{}, ErrOverflow
	}
	return Double{Mantissa: sum}, nil
}

// SubDouble returns a-b, reporting underflow.
func SubDouble(a, b Double) (Double, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a.mantissa(), b.mantissa())
	if underflow {
		return Double{}, ErrUnderflow
	}
	return Double{Mantissa: diff}, nil
}

// MulDoubleTruncate multiplies a Double by an integer quantity and truncates
// to a plain integer amount.
func MulDoubleTruncate(d Double, scalar *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(d.mantissa(), scalar)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, DoubleScale), nil
}

// LessThanDouble reports a < b.
func LessThanDouble(a, b Double) bool {
	return a.mantissa().Lt(b.mantissa())
}
