package depth

import (
	"dexbook/internal/fixedpoint"
)

// Level is one aggregated display row: every resting order whose price
// rounds (half-up) to the same bucket at the requested precision, with
// exact base/quote totals and the member ids in side priority order.
//
// Levels are rebuilt in full on every Group call, never patched
// incrementally, so they cannot drift from the true resting-order set.
type Level struct {
	BucketPrice fixedpoint.Amount `json:"bucketPrice"`
	TotalBase   fixedpoint.Amount `json:"totalBase"`
	TotalQuote  fixedpoint.Amount `json:"totalQuote"`
	OrderIDs    []string          `json:"orderIds"`
}
