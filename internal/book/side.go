package book

import (
	"slices"
	"sync/atomic"

	"dexbook/internal/fixedpoint"
	"dexbook/internal/tokens"
)

// SideBook holds the current resting-order set for one (market, side) pair.
// The upstream feed delivers complete snapshots, not diffs, so Ingest is a
// wholesale replace: merging would accumulate orders cancelled or filled
// upstream but never explicitly retracted.
//
// The published set is an immutable sorted slice swapped in through an
// atomic pointer. Readers get either the previous snapshot or the next one,
// never a mix, and a slice once handed out is never mutated afterward — a
// plan built over it cannot be corrupted by a concurrent ingest.
type SideBook struct {
	market tokens.Market
	side   Side

	snap  atomic.Pointer[[]Order]
	stale atomic.Bool
	seq   atomic.Uint64
}

func NewSideBook(market tokens.Market, side Side) *SideBook {
	b := &SideBook{market: market, side: side}
	b.stale.Store(true) // nothing ingested yet
	return b
}

func (b *SideBook) Market() tokens.Market { return b.market }
func (b *SideBook) Side() Side            { return b.side }

// Stale reports whether the snapshot may no longer reflect the live book
// (subscription lost, or nothing ingested yet). Callers serving plans or
// quotes must check it; a stale side is never silently served as current.
func (b *SideBook) Stale() bool { return b.stale.Load() }
func (b *SideBook) MarkStale()  { b.stale.Store(true) }

// Ingest validates, sorts and atomically publishes a full replacement
// snapshot. Offending orders — non-positive price, negative remaining
// amount, or a scale that does not match the market — are dropped
// individually rather than rejecting the whole snapshot; the dropped count
// is returned for logging and metrics. Zero-remaining orders are simply
// removed, they are not inconsistencies.
func (b *SideBook) Ingest(orders []Order) (dropped int) {
	kept := make([]Order, 0, len(orders))
	for _, o := range orders {
		switch {
		case o.Price.Decimals() != b.market.PriceDecimals,
			o.RemainingBase.Decimals() != b.market.Base.Decimals,
			!o.Price.IsPositive(),
			o.RemainingBase.IsNegative():
			dropped++
			continue
		case o.RemainingBase.IsZero():
			continue
		}
		o.Side = b.side
		o.RemainingQuote = o.RemainingBase.Mul(o.Price).Rescale(b.market.Quote.Decimals)
		if o.Sequence == 0 {
			o.Sequence = b.seq.Add(1)
		}
		kept = append(kept, o)
	}

	desc := b.side == SideBid
	slices.SortStableFunc(kept, func(x, y Order) int {
		c := x.Price.MustCmp(y.Price)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		// ties resolve by arrival sequence so repeated reads of the same
		// input produce identical output
		switch {
		case x.Sequence < y.Sequence:
			return -1
		case x.Sequence > y.Sequence:
			return 1
		}
		return 0
	})

	b.snap.Store(&kept)
	b.stale.Store(false)
	return dropped
}

// Orders returns the current published snapshot in side priority order:
// bids descending by price, asks ascending, ties by arrival sequence. The
// returned slice is shared and read-only; callers must not modify it. Nil
// before the first ingest.
func (b *SideBook) Orders() []Order {
	p := b.snap.Load()
	if p == nil {
		return nil
	}
	return *p
}

// TotalBase sums remaining base over the snapshot, at the base scale.
func (b *SideBook) TotalBase() fixedpoint.Amount {
	total := fixedpoint.Zero(b.market.Base.Decimals)
	for _, o := range b.Orders() {
		total, _ = total.Add(o.RemainingBase)
	}
	return total
}
