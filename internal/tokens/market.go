package tokens

import (
	"fmt"
	"slices"
)

// Market describes one trading pair: the base and quote assets, the
// protocol-wide price scale (quote per base), and the menu of display
// precisions the UI may group levels at. Precisions are configuration, not
// something computed from the book.
type Market struct {
	ID               string
	Base             Asset
	Quote            Asset
	PriceDecimals    int32
	Precisions       []int32
	DefaultPrecision int32
}

// NewMarket resolves a pair against the registry and validates the
// precision menu.
func NewMarket(id, baseSym, quoteSym string, priceDecimals int32, precisions []int32, defaultPrecision int32, reg *StaticRegistry) (Market, error) {
	base, err := reg.Asset(baseSym)
	if err != nil {
		return Market{}, fmt.Errorf("market %s base: %w", id, err)
	}
	quote, err := reg.Asset(quoteSym)
	if err != nil {
		return Market{}, fmt.Errorf("market %s quote: %w", id, err)
	}
	if priceDecimals < 0 {
		return Market{}, fmt.Errorf("market %s: negative price decimals", id)
	}
	if len(precisions) == 0 {
		precisions = []int32{defaultPrecision}
	}
	for _, p := range precisions {
		if p < 0 || p > priceDecimals {
			return Market{}, fmt.Errorf("market %s: precision %d outside [0, %d]", id, p, priceDecimals)
		}
	}
	if !slices.Contains(precisions, defaultPrecision) {
		return Market{}, fmt.Errorf("market %s: default precision %d not offered", id, defaultPrecision)
	}
	return Market{
		ID:               id,
		Base:             base,
		Quote:            quote,
		PriceDecimals:    priceDecimals,
		Precisions:       precisions,
		DefaultPrecision: defaultPrecision,
	}, nil
}

// ValidPrecision reports whether p is on this market's menu.
func (m Market) ValidPrecision(p int32) bool {
	return slices.Contains(m.Precisions, p)
}
