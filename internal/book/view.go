package book

import (
	"dexbook/internal/fixedpoint"
)

// percentDecimals is the fixed output scale of SpreadPercent: four
// fractional digits, i.e. basis-point resolution.
const percentDecimals = 4

// View answers read-only queries over both sides of one market's book. It
// never mutates anything; each call reads whatever snapshots are currently
// published. Emptiness is reported through the ok return, not an error —
// an empty side is a normal market condition.
type View struct {
	Bids *SideBook
	Asks *SideBook
}

func NewView(bids, asks *SideBook) View {
	return View{Bids: bids, Asks: asks}
}

// BestBid returns the highest-priced resting bid.
func (v View) BestBid() (Order, bool) {
	orders := v.Bids.Orders()
	if len(orders) == 0 {
		return Order{}, false
	}
	return orders[0], true
}

// BestAsk returns the lowest-priced resting ask.
func (v View) BestAsk() (Order, bool) {
	orders := v.Asks.Orders()
	if len(orders) == 0 {
		return Order{}, false
	}
	return orders[0], true
}

// SpreadAbsolute is bestAsk − bestBid at the price scale. Invalid unless
// both sides are non-empty.
func (v View) SpreadAbsolute() (fixedpoint.Amount, bool) {
	bid, okB := v.BestBid()
	ask, okA := v.BestAsk()
	if !okB || !okA {
		return fixedpoint.Amount{}, false
	}
	spread, err := ask.Price.Sub(bid.Price)
	if err != nil {
		return fixedpoint.Amount{}, false
	}
	return spread, true
}

// SpreadPercent is spread / bestBid × 100 at four fractional digits,
// floor-truncated. Invalid when either side is empty or the best bid is
// zero.
func (v View) SpreadPercent() (fixedpoint.Amount, bool) {
	spread, ok := v.SpreadAbsolute()
	if !ok {
		return fixedpoint.Amount{}, false
	}
	bid, _ := v.BestBid()
	if bid.Price.IsZero() {
		return fixedpoint.Amount{}, false
	}
	hundred := fixedpoint.FromInt64(100, 0)
	num := spread.Mul(hundred).Rescale(spread.Decimals() + percentDecimals)
	pct, err := num.DivFloor(bid.Price)
	if err != nil {
		return fixedpoint.Amount{}, false
	}
	return pct, true
}

// MidPrice is (bestBid + bestAsk) / 2, floored at the price scale. Same
// validity rule as the spread queries.
func (v View) MidPrice() (fixedpoint.Amount, bool) {
	bid, okB := v.BestBid()
	ask, okA := v.BestAsk()
	if !okB || !okA || bid.Price.IsZero() {
		return fixedpoint.Amount{}, false
	}
	sum, err := bid.Price.Add(ask.Price)
	if err != nil {
		return fixedpoint.Amount{}, false
	}
	mid, err := sum.DivFloor(fixedpoint.FromInt64(2, 0))
	if err != nil {
		return fixedpoint.Amount{}, false
	}
	return mid, true
}
