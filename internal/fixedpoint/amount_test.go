package fixedpoint

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func mustParse(t *testing.T, s string, decimals int32) Amount {
	t.Helper()
	a, err := Parse(s, decimals)
	if err != nil {
		t.Fatalf("parse %q at %d: %v", s, decimals, err)
	}
	return a
}

func TestParse(t *testing.T) {
	a := mustParse(t, "12.34", 4)
	if got := a.BigInt().Int64(); got != 123400 {
		t.Fatalf("raw got %d want 123400", got)
	}
	if a.Decimals() != 4 {
		t.Fatalf("decimals got %d", a.Decimals())
	}
	if a.String() != "12.34" {
		t.Fatalf("string got %s", a.String())
	}

	if _, err := Parse("not-a-number", 2); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("malformed: got %v", err)
	}
	// more fractional digits than the scale holds: rejected, never rounded
	if _, err := Parse("1.234", 2); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("excess digits: got %v", err)
	}

	neg := mustParse(t, "-0.5", 1)
	if !neg.IsNegative() {
		t.Fatal("sign lost")
	}
}

func TestRescaleTruncatesTowardZero(t *testing.T) {
	a := mustParse(t, "1.999", 3)
	if got := a.Rescale(1).String(); got != "1.9" {
		t.Fatalf("shrink got %s want 1.9", got)
	}
	n := mustParse(t, "-1.999", 3)
	if got := n.Rescale(1).String(); got != "-1.9" {
		t.Fatalf("negative shrink got %s want -1.9 (toward zero)", got)
	}
	// growing is exact
	if got := a.Rescale(6).BigInt().Int64(); got != 1999000 {
		t.Fatalf("grow got %d", got)
	}
}

// No precision is gained by round-tripping through a coarser scale:
// rescale(rescale(a, d2), d1) == rescale(a, d1) for d1 <= d2 <= a.decimals.
func TestRescaleRoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		decs := int32(rng.Intn(12)) + 2
		raw := rng.Int63n(1 << 50)
		if rng.Intn(2) == 0 {
			raw = -raw
		}
		a := FromInt64(raw, decs)
		d2 := int32(rng.Intn(int(decs) + 1))
		d1 := int32(rng.Intn(int(d2) + 1))

		via := a.Rescale(d2).Rescale(d1)
		direct := a.Rescale(d1)
		if c, err := via.Cmp(direct); err != nil || c != 0 {
			t.Fatalf("raw=%d decs=%d d2=%d d1=%d: via=%s direct=%s err=%v", raw, decs, d2, d1, via, direct, err)
		}
	}
}

// Cross-asset product at 6 vs 9 decimals, rescaled to the settlement
// scale, must match an arbitrary-precision rational reference exactly.
func TestMulRescaleMatchesRationalReference(t *testing.T) {
	const (
		baseDecs   = int32(9)
		priceDecs  = int32(6)
		settleDecs = int32(6)
	)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		baseRaw := rng.Int63n(1_000_000_000_000)
		priceRaw := rng.Int63n(1_000_000_000)

		base := FromInt64(baseRaw, baseDecs)
		price := FromInt64(priceRaw, priceDecs)
		got := base.Mul(price).Rescale(settleDecs)

		// reference: floor(baseRaw * priceRaw / 10^(baseDecs+priceDecs-settleDecs))
		num := new(big.Int).Mul(big.NewInt(baseRaw), big.NewInt(priceRaw))
		den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(baseDecs+priceDecs-settleDecs)), nil)
		ref := new(big.Rat).SetFrac(num, den)
		refFloor := new(big.Int).Quo(ref.Num(), ref.Denom())

		if got.BigInt().Cmp(refFloor) != 0 {
			t.Fatalf("base=%d price=%d: got %s want %s", baseRaw, priceRaw, got.BigInt(), refFloor)
		}

		// and the shopspring rendering agrees with the exact decimal product
		want := decimal.New(baseRaw, -baseDecs).Mul(decimal.New(priceRaw, -priceDecs)).Truncate(settleDecs)
		if !got.Decimal().Equal(want) {
			t.Fatalf("decimal divergence: got %s want %s", got.Decimal(), want)
		}
	}
}

func TestDivFloor(t *testing.T) {
	a := mustParse(t, "201.00", 2)
	two := FromInt64(2, 0)
	half, err := a.DivFloor(two)
	if err != nil {
		t.Fatal(err)
	}
	if half.String() != "100.5" {
		t.Fatalf("got %s want 100.5", half)
	}
	if half.Decimals() != 2 {
		t.Fatalf("scale got %d want 2", half.Decimals())
	}

	if _, err := a.DivFloor(Zero(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("div by zero: got %v", err)
	}
	if _, err := FromInt64(1, 0).DivFloor(mustParse(t, "0.5", 2)); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("negative result scale: got %v", err)
	}
}

func TestComparisonsRequireEqualScale(t *testing.T) {
	a := mustParse(t, "1.0", 1)
	b := mustParse(t, "1.00", 2)
	if _, err := a.Cmp(b); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("cmp: got %v", err)
	}
	if _, err := a.Add(b); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("add: got %v", err)
	}
	if _, err := a.Sub(b); !errors.Is(err, ErrScaleMismatch) {
		t.Fatalf("sub: got %v", err)
	}

	lt, err := a.Lt(mustParse(t, "1.1", 1))
	if err != nil || !lt {
		t.Fatalf("lt got %v %v", lt, err)
	}
	eq, err := b.Eq(mustParse(t, "1.00", 2))
	if err != nil || !eq {
		t.Fatalf("eq got %v %v", eq, err)
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in     string
		places int32
		want   string
	}{
		{"100.014", 2, "100.01"},
		{"100.015", 2, "100.02"}, // exactly half rounds up
		{"100.016", 2, "100.02"},
		{"100.999", 0, "101"},
		{"-100.015", 2, "-100.02"}, // half away from zero
		{"100.01", 4, "100.01"},    // places above scale: no-op
	}
	for _, c := range cases {
		got := mustParse(t, c.in, 3).RoundHalfUp(c.places)
		if got.String() != c.want {
			t.Fatalf("round(%s, %d) got %s want %s", c.in, c.places, got, c.want)
		}
		if got.Decimals() != 3 {
			t.Fatalf("round(%s, %d): scale changed to %d", c.in, c.places, got.Decimals())
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	a := mustParse(t, "1234.56", 6)
	b, err := a.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1234.56"` {
		t.Fatalf("json got %s", b)
	}
}

func TestZeroValueAmountIsSafe(t *testing.T) {
	var a Amount
	if !a.IsZero() || a.Decimals() != 0 {
		t.Fatalf("zero value: %s at %d", a, a.Decimals())
	}
	sum, err := a.Add(Zero(0))
	if err != nil || !sum.IsZero() {
		t.Fatalf("zero add: %v %v", sum, err)
	}
}
