package depth

import (
	"dexbook/internal/book"
)

// Group buckets a side's orders into display price levels at the requested
// precision (fractional digits of the bucket price). The input must already
// be in side priority order, as published by SideBook.Orders.
//
// Rounding half-up is monotonic, so a price-sorted input maps to a
// bucket-sorted output and one linear pass suffices: no map keyed on a
// decimal, which would have to canonicalize numerically-equal values with
// different exponents. Every input order id lands in exactly one level, and
// the base/quote totals over all levels equal the input sums exactly —
// bucketing moves display prices, never mass.
func Group(orders []book.Order, precision int32) []Level {
	if len(orders) == 0 {
		return nil
	}
	levels := make([]Level, 0, len(orders))
	for _, o := range orders {
		bucket := o.Price.RoundHalfUp(precision)
		if n := len(levels); n > 0 && levels[n-1].BucketPrice.MustCmp(bucket) == 0 {
			lvl := &levels[n-1]
			lvl.TotalBase, _ = lvl.TotalBase.Add(o.RemainingBase)
			lvl.TotalQuote, _ = lvl.TotalQuote.Add(o.RemainingQuote)
			lvl.OrderIDs = append(lvl.OrderIDs, o.ID)
			continue
		}
		levels = append(levels, Level{
			BucketPrice: bucket,
			TotalBase:   o.RemainingBase,
			TotalQuote:  o.RemainingQuote,
			OrderIDs:    []string{o.ID},
		})
	}
	return levels
}
