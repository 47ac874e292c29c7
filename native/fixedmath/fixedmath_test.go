package fixedmath

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func exp(mantissa string) Exp {
	return Exp{Mantissa: mustUint(mantissa)}
}

func TestMulExp(t *testing.T) {
	half := exp("500000000000000000")
	two := exp("2000000000000000000")
	product, err := MulExp(half, two)
	if err != nil {
		t.Fatalf("mul: %v", err)
	}
	if product.Mantissa.Cmp(ExpScale) != 0 {
		t.Fatalf("0.5*2.0 mantissa = %s, want %s", product.Mantissa, ExpScale)
	}
}

func TestMulExpOverflow(t *testing.T) {
	huge := Exp{Mantissa: new(uint256.Int).Not(uint256.NewInt(0))}
	if _, err := MulExp(huge, huge); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestDivExpByZero(t *testing.T) {
	if _, err := DivExp(OneExp(), ZeroExp()); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if _, err := DivByExp(uint256.NewInt(10), ZeroExp()); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestMulScalarTruncate(t *testing.T) {
	rate := exp("1500000000000000000") // 1.5
	out, err := MulScalarTruncate(rate, uint256.NewInt(3))
	if err != nil {
		t.Fatalf("mul scalar truncate: %v", err)
	}
	if !out.Eq(uint256.NewInt(4)) {
		t.Fatalf("truncate(1.5*3) = %s, want 4", out)
	}
}

func TestMulScalarTruncateAdd(t *testing.T) {
	rate := exp("2000000000000000000")
	out, err := MulScalarTruncateAdd(rate, uint256.NewInt(5), uint256.NewInt(7))
	if err != nil {
		t.Fatalf("mul scalar truncate add: %v", err)
	}
	if !out.Eq(uint256.NewInt(17)) {
		t.Fatalf("2*5+7 = %s, want 17", out)
	}
}

func TestSubUintUnderflow(t *testing.T) {
	if _, err := SubUint(uint256.NewInt(1), uint256.NewInt(2)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if out := SubOrZero(uint256.NewInt(1), uint256.NewInt(2)); !out.IsZero() {
		t.Fatalf("SubOrZero(1,2) = %s, want 0", out)
	}
}

func TestFractionDouble(t *testing.T) {
	ratio, err := FractionDouble(uint256.NewInt(1000), uint256.NewInt(50))
	if err != nil {
		t.Fatalf("fraction: %v", err)
	}
	want := new(uint256.Int).Mul(uint256.NewInt(20), DoubleScale)
	if ratio.Mantissa.Cmp(want) != 0 {
		t.Fatalf("fraction(1000,50) mantissa = %s, want %s", ratio.Mantissa, want)
	}
	if _, err := FractionDouble(uint256.NewInt(1), uint256.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestMulDoubleTruncate(t *testing.T) {
	delta := Double{Mantissa: new(uint256.Int).Mul(uint256.NewInt(3), DoubleScale)}
	out, err := MulDoubleTruncate(delta, uint256.NewInt(40))
	if err != nil {
		t.Fatalf("mul double truncate: %v", err)
	}
	if !out.Eq(uint256.NewInt(120)) {
		t.Fatalf("3*40 = %s, want 120", out)
	}
}

func TestExpFromBps(t *testing.T) {
	if got := ExpFromBps(10_000); got.Mantissa.Cmp(ExpScale) != 0 {
		t.Fatalf("10000 bps mantissa = %s, want %s", got.Mantissa, ExpScale)
	}
	half := ExpFromBps(5_000)
	if half.Mantissa.Cmp(mustUint("500000000000000000")) != 0 {
		t.Fatalf("5000 bps mantissa = %s", half.Mantissa)
	}
}

func TestComparisons(t *testing.T) {
	a := exp("100")
	b := exp("200")
	if !LessThanExp(a, b) || LessThanExp(b, a) {
		t.Fatal("LessThanExp ordering broken")
	}
	if !LessThanOrEqualExp(a, a) {
		t.Fatal("LessThanOrEqualExp not reflexive")
	}
	if !LessThanDouble(ZeroDouble(), Double{Mantissa: DoubleScale}) {
		t.Fatal("LessThanDouble ordering broken")
	}
}
