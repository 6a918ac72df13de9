package tokens

import (
	"strings"
	"testing"
)

func testRegistry() *StaticRegistry {
	return NewStaticRegistry([]Asset{
		{Symbol: "SOL", Decimals: 9},
		{Symbol: "USDC", Decimals: 6},
	})
}

func TestRegistryLookup(t *testing.T) {
	r := testRegistry()
	d, err := r.Decimals(" sol ")
	if err != nil || d != 9 {
		t.Fatalf("got %d %v", d, err)
	}
	if _, err := r.Decimals("DOGE"); err == nil {
		t.Fatal("unknown asset must error")
	}
}

func TestNewMarket(t *testing.T) {
	m, err := NewMarket("SOL-USDC", "SOL", "USDC", 6, []int32{0, 1, 2}, 2, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if m.Base.Decimals != 9 || m.Quote.Decimals != 6 {
		t.Fatalf("asset decimals: %+v", m)
	}
	if !m.ValidPrecision(1) || m.ValidPrecision(5) {
		t.Fatal("precision menu wrong")
	}
}

func TestNewMarketValidation(t *testing.T) {
	r := testRegistry()
	if _, err := NewMarket("X", "DOGE", "USDC", 6, nil, 0, r); err == nil {
		t.Fatal("unknown base must fail")
	}
	if _, err := NewMarket("X", "SOL", "USDC", 6, []int32{0, 9}, 0, r); err == nil || !strings.Contains(err.Error(), "precision") {
		t.Fatalf("precision above price scale must fail: %v", err)
	}
	if _, err := NewMarket("X", "SOL", "USDC", 6, []int32{0, 1}, 3, r); err == nil {
		t.Fatal("default precision off the menu must fail")
	}
}
