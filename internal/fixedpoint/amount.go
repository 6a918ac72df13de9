package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	// ErrScaleMismatch is returned when two amounts with different decimal
	// counts are combined without an explicit Rescale.
	ErrScaleMismatch = errors.New("fixedpoint: scale mismatch")
	// ErrDivisionByZero is returned by DivFloor when the divisor is zero.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	// ErrInvalidAmount is returned for malformed decimal strings or raw
	// values a constructor cannot accept.
	ErrInvalidAmount = errors.New("fixedpoint: invalid amount")
)

// Amount is an exact decimal value: an arbitrary-precision integer tagged
// with the number of fractional digits it implies. Two amounts combine only
// at equal scale; every cross-scale step must go through Rescale, which pins
// the rounding point down to a single documented policy (truncate toward
// zero). The raw value is never a float at any point in any operation.
//
// The zero value is 0 at scale 0. Amounts are immutable; all operations
// return new values.
type Amount struct {
	raw      *big.Int
	decimals int32
}

// Zero returns 0 at the given scale.
func Zero(decimals int32) Amount {
	return Amount{raw: new(big.Int), decimals: decimals}
}

// FromInt64 builds an amount from a raw integer at the given scale.
// FromInt64(1_500_000, 6) is 1.5.
func FromInt64(raw int64, decimals int32) Amount {
	return Amount{raw: big.NewInt(raw), decimals: decimals}
}

// FromBigInt builds an amount from a raw big integer at the given scale.
// The input is copied; callers keep ownership of raw.
func FromBigInt(raw *big.Int, decimals int32) (Amount, error) {
	if raw == nil {
		return Amount{}, fmt.Errorf("nil raw: %w", ErrInvalidAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), decimals: decimals}, nil
}

// Parse reads a decimal string ("1234", "12.34", "-0.5") into an amount at
// the given scale. A string carrying more fractional digits than the scale
// can hold is rejected rather than silently rounded; rounding is always an
// explicit Rescale.
func Parse(s string, decimals int32) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse %q: %w", s, ErrInvalidAmount)
	}
	return FromDecimal(d, decimals)
}

// FromDecimal converts a shopspring decimal into an amount at the given
// scale, with the same no-silent-rounding rule as Parse.
func FromDecimal(d decimal.Decimal, decimals int32) (Amount, error) {
	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return Amount{}, fmt.Errorf("%v does not fit %d decimals: %w", d, decimals, ErrInvalidAmount)
	}
	return Amount{raw: shifted.BigInt(), decimals: decimals}, nil
}

// Decimals reports the scale.
func (a Amount) Decimals() int32 { return a.decimals }

// BigInt returns a copy of the raw integer.
func (a Amount) BigInt() *big.Int { return new(big.Int).Set(a.value()) }

// Sign reports -1, 0 or +1.
func (a Amount) Sign() int { return a.value().Sign() }

func (a Amount) IsZero() bool     { return a.Sign() == 0 }
func (a Amount) IsNegative() bool { return a.Sign() < 0 }
func (a Amount) IsPositive() bool { return a.Sign() > 0 }

// value guards the zero-value Amount, whose raw pointer is nil.
func (a Amount) value() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return a.raw
}

// Rescale returns the amount at a new scale. Growing the scale pads with
// zeros and is exact. Shrinking truncates toward zero — never rounds to
// nearest — so settlement math keeps a consistent truncation direction.
func (a Amount) Rescale(newDecimals int32) Amount {
	diff := newDecimals - a.decimals
	if diff == 0 {
		return Amount{raw: new(big.Int).Set(a.value()), decimals: newDecimals}
	}
	if diff > 0 {
		return Amount{raw: new(big.Int).Mul(a.value(), pow10(diff)), decimals: newDecimals}
	}
	return Amount{raw: new(big.Int).Quo(a.value(), pow10(-diff)), decimals: newDecimals}
}

// Mul multiplies two amounts. The result's scale is the sum of the input
// scales, so a base×price product lands at base+price decimals and the
// caller must Rescale it to the quote scale explicitly, choosing the
// rounding point instead of inheriting one.
func (a Amount) Mul(b Amount) Amount {
	return Amount{
		raw:      new(big.Int).Mul(a.value(), b.value()),
		decimals: a.decimals + b.decimals,
	}
}

// DivFloor divides truncating toward zero. The result's scale is
// a.decimals − b.decimals (the inverse of Mul); rescale the numerator up
// first when more fractional resolution is needed.
func (a Amount) DivFloor(b Amount) (Amount, error) {
	if b.Sign() == 0 {
		return Amount{}, ErrDivisionByZero
	}
	d := a.decimals - b.decimals
	if d < 0 {
		return Amount{}, fmt.Errorf("result scale %d: %w", d, ErrScaleMismatch)
	}
	return Amount{raw: new(big.Int).Quo(a.value(), b.value()), decimals: d}, nil
}

// Add sums two amounts at equal scale.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.decimals != b.decimals {
		return Amount{}, scaleErr(a, b)
	}
	return Amount{raw: new(big.Int).Add(a.value(), b.value()), decimals: a.decimals}, nil
}

// Sub subtracts b from a at equal scale.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.decimals != b.decimals {
		return Amount{}, scaleErr(a, b)
	}
	return Amount{raw: new(big.Int).Sub(a.value(), b.value()), decimals: a.decimals}, nil
}

// Cmp compares two amounts at equal scale: -1 if a < b, 0 if equal, +1 if
// a > b.
func (a Amount) Cmp(b Amount) (int, error) {
	if a.decimals != b.decimals {
		return 0, scaleErr(a, b)
	}
	return a.value().Cmp(b.value()), nil
}

// MustCmp is Cmp for call sites that have already established equal scales
// (e.g. orders validated at ingestion). Panics on mismatch.
func (a Amount) MustCmp(b Amount) int {
	c, err := a.Cmp(b)
	if err != nil {
		panic(err)
	}
	return c
}

// Lt reports a < b at equal scale.
func (a Amount) Lt(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c < 0, err
}

// Gt reports a > b at equal scale.
func (a Amount) Gt(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c > 0, err
}

// Eq reports a == b at equal scale.
func (a Amount) Eq(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c == 0, err
}

// RoundHalfUp rounds to the given number of fractional digits, half away
// from zero, keeping the scale: digits below places become zero. This is
// the one rounding policy used for display-level price bucketing.
// places at or above the scale is a no-op.
func (a Amount) RoundHalfUp(places int32) Amount {
	if places >= a.decimals {
		return Amount{raw: new(big.Int).Set(a.value()), decimals: a.decimals}
	}
	unit := pow10(a.decimals - places)
	q, r := new(big.Int).QuoRem(a.value(), unit, new(big.Int))
	r.Abs(r)
	if r.Lsh(r, 1).Cmp(unit) >= 0 {
		if a.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	return Amount{raw: q.Mul(q, unit), decimals: a.decimals}
}

// Decimal renders the amount as a shopspring decimal for display and JSON.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.BigInt(), -a.decimals)
}

// String renders the canonical decimal form ("100.5", not "100.50").
// Numerically equal amounts at different scales stringify identically,
// which is what makes the string usable as an aggregation key.
func (a Amount) String() string { return a.Decimal().String() }

// MarshalJSON emits the decimal string, quoted. Raw integers never cross
// the JSON boundary as numbers, where they would be read back as float64.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func scaleErr(a, b Amount) error {
	return fmt.Errorf("%d vs %d: %w", a.decimals, b.decimals, ErrScaleMismatch)
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
