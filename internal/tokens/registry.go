package tokens

import (
	"fmt"
	"strings"
)

// Registry supplies the decimal count for each listed asset. Decimals are
// always an external input: nothing in this process infers a scale from a
// value, it asks the registry.
type Registry interface {
	Decimals(symbol string) (int32, error)
}

// Asset is one listed token.
type Asset struct {
	Symbol   string
	Decimals int32
}

// StaticRegistry serves decimals from a fixed table, typically built from
// config at startup.
type StaticRegistry struct {
	bySymbol map[string]Asset
}

func NewStaticRegistry(assets []Asset) *StaticRegistry {
	m := make(map[string]Asset, len(assets))
	for _, a := range assets {
		m[canonSymbol(a.Symbol)] = a
	}
	return &StaticRegistry{bySymbol: m}
}

func (r *StaticRegistry) Decimals(symbol string) (int32, error) {
	a, ok := r.bySymbol[canonSymbol(symbol)]
	if !ok {
		return 0, fmt.Errorf("unknown asset %q", symbol)
	}
	return a.Decimals, nil
}

// Asset returns the full asset record.
func (r *StaticRegistry) Asset(symbol string) (Asset, error) {
	a, ok := r.bySymbol[canonSymbol(symbol)]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset %q", symbol)
	}
	return a, nil
}

func canonSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
