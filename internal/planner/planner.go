package planner

import (
	"fmt"

	"dexbook/internal/book"
	"dexbook/internal/fixedpoint"
	"dexbook/internal/tokens"
)

// Plan is the deterministic result of simulating a taker order against a
// book snapshot: the exact resting orders a settlement transaction must
// reference, the totals they carry, and the worst (last-touched) price as
// the slippage bound. It is a value object, never a live view — a
// concurrent ingest cannot change a plan already built.
//
// Insufficient liquidity is FullyFilled=false, not an error: it is an
// expected, frequent outcome the order-entry UI handles by reducing size or
// aborting.
type Plan struct {
	ConsumedOrderIDs []string          `json:"consumedOrderIds"`
	FilledBase       fixedpoint.Amount `json:"filledBase"`
	FilledQuote      fixedpoint.Amount `json:"filledQuote"`
	WorstPrice       fixedpoint.Amount `json:"worstPrice"`
	FullyFilled      bool              `json:"fullyFilled"`
}

// Planner walks resting orders best-price-first, consuming each touched
// order in full. Granularity is whole orders: the settlement contract
// fulfills per-order units, so the last order is referenced with its entire
// remaining amount even when the budget only needed part of it. FilledQuote
// and FilledBase are therefore worst-case outlays, possibly above the
// budget.
//
// Each consumed base amount converts to quote at that order's own price,
// never a blended average, so the plan's totals match per-order settlement
// exactly.
type Planner struct {
	market tokens.Market
}

func New(market tokens.Market) Planner {
	return Planner{market: market}
}

// PlanBuy simulates spending a quote-asset budget into the ask side.
// The snapshot must be ask-sorted (ascending price), as published by
// SideBook.Orders. Returns an error only for a budget at the wrong scale;
// business outcomes are fields on the plan.
func (p Planner) PlanBuy(asks []book.Order, quoteBudget fixedpoint.Amount) (Plan, error) {
	if quoteBudget.Decimals() != p.market.Quote.Decimals {
		return Plan{}, fmt.Errorf("quote budget: %w", fixedpoint.ErrScaleMismatch)
	}
	return p.walk(asks, quoteBudget, func(o book.Order) fixedpoint.Amount {
		return o.RemainingQuote
	})
}

// PlanSell simulates spending a base-asset budget into the bid side.
// The snapshot must be bid-sorted (descending price).
func (p Planner) PlanSell(bids []book.Order, baseBudget fixedpoint.Amount) (Plan, error) {
	if baseBudget.Decimals() != p.market.Base.Decimals {
		return Plan{}, fmt.Errorf("base budget: %w", fixedpoint.ErrScaleMismatch)
	}
	return p.walk(bids, baseBudget, func(o book.Order) fixedpoint.Amount {
		return o.RemainingBase
	})
}

// walk consumes whole orders best-price-first until the budget is spent or
// the side runs out. cost picks which of an order's amounts the budget is
// denominated in.
func (p Planner) walk(orders []book.Order, budget fixedpoint.Amount, cost func(book.Order) fixedpoint.Amount) (Plan, error) {
	plan := Plan{
		ConsumedOrderIDs: []string{},
		FilledBase:       fixedpoint.Zero(p.market.Base.Decimals),
		FilledQuote:      fixedpoint.Zero(p.market.Quote.Decimals),
		WorstPrice:       fixedpoint.Zero(p.market.PriceDecimals),
	}
	if !budget.IsPositive() {
		return plan, nil
	}
	remaining := budget
	for _, o := range orders {
		if !remaining.IsPositive() {
			break
		}
		var err error
		if plan.FilledBase, err = plan.FilledBase.Add(o.RemainingBase); err != nil {
			return Plan{}, fmt.Errorf("order %s base: %w", o.ID, err)
		}
		if plan.FilledQuote, err = plan.FilledQuote.Add(o.RemainingQuote); err != nil {
			return Plan{}, fmt.Errorf("order %s quote: %w", o.ID, err)
		}
		if remaining, err = remaining.Sub(cost(o)); err != nil {
			return Plan{}, fmt.Errorf("order %s cost: %w", o.ID, err)
		}
		plan.ConsumedOrderIDs = append(plan.ConsumedOrderIDs, o.ID)
		plan.WorstPrice = o.Price
	}
	plan.FullyFilled = !remaining.IsPositive()
	return plan, nil
}
