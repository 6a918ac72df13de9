package book

import (
	"dexbook/internal/fixedpoint"
)

// Side labels one half of the book.
type Side string

const (
	SideBid Side = "BID"
	SideAsk Side = "ASK"
)

// Order is one resting order as delivered by a snapshot. Price is quote per
// base at the market's protocol-wide price scale; RemainingBase is at the
// base asset's scale; RemainingQuote is derived at ingestion (base × price,
// truncated to the quote scale) and carried so downstream consumers never
// redo the conversion with a different rounding point.
//
// An order with zero remaining base is never present in a published
// snapshot: it is removed, not zeroed.
type Order struct {
	ID             string            `json:"id"`
	Side           Side              `json:"side"`
	Price          fixedpoint.Amount `json:"price"`
	RemainingBase  fixedpoint.Amount `json:"remainingBase"`
	RemainingQuote fixedpoint.Amount `json:"remainingQuote"`
	Sequence       uint64            `json:"sequence"`
}
