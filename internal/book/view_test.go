package book

import (
	"testing"
)

func freshView(t *testing.T) View {
	m := testMarket()
	return NewView(NewSideBook(m, SideBid), NewSideBook(m, SideAsk))
}

func TestViewEmptySides(t *testing.T) {
	v := freshView(t)
	if _, ok := v.BestBid(); ok {
		t.Fatal("empty bids: best bid must be invalid")
	}
	if _, ok := v.SpreadAbsolute(); ok {
		t.Fatal("empty book: spread must be invalid")
	}
	if _, ok := v.SpreadPercent(); ok {
		t.Fatal("empty book: spread percent must be invalid")
	}
	if _, ok := v.MidPrice(); ok {
		t.Fatal("empty book: mid must be invalid")
	}

	// one-sided book is still invalid for the derived stats
	v.Asks.Ingest([]Order{ask(t, "a", "101", "1")})
	if _, ok := v.BestAsk(); !ok {
		t.Fatal("ask ingested: best ask must be valid")
	}
	if _, ok := v.SpreadAbsolute(); ok {
		t.Fatal("one-sided: spread must be invalid")
	}
	if _, ok := v.MidPrice(); ok {
		t.Fatal("one-sided: mid must be invalid")
	}
}

func TestViewStats(t *testing.T) {
	m := testMarket()
	v := freshView(t)
	v.Bids.Ingest([]Order{{ID: "b", Price: amt(t, "100", m.PriceDecimals), RemainingBase: amt(t, "1", m.Base.Decimals)}})
	v.Asks.Ingest([]Order{ask(t, "a", "101", "1")})

	bid, ok := v.BestBid()
	if !ok || bid.ID != "b" {
		t.Fatalf("best bid: %+v ok=%v", bid, ok)
	}

	spread, ok := v.SpreadAbsolute()
	if !ok || spread.String() != "1" {
		t.Fatalf("spread got %s ok=%v", spread, ok)
	}

	pct, ok := v.SpreadPercent()
	if !ok || pct.String() != "1" {
		t.Fatalf("spread%% got %s ok=%v", pct, ok)
	}
	if pct.Decimals() != 4 {
		t.Fatalf("spread%% scale got %d want 4", pct.Decimals())
	}

	mid, ok := v.MidPrice()
	if !ok || mid.String() != "100.5" {
		t.Fatalf("mid got %s ok=%v", mid, ok)
	}
	if mid.Decimals() != m.PriceDecimals {
		t.Fatalf("mid scale got %d want %d", mid.Decimals(), m.PriceDecimals)
	}
}

func TestSpreadPercentZeroBid(t *testing.T) {
	m := testMarket()
	v := freshView(t)
	// a zero-price bid is dropped at ingestion, so build the edge case by
	// checking the guard directly with the smallest representable bid
	v.Bids.Ingest([]Order{{ID: "b", Price: amt(t, "0.000001", m.PriceDecimals), RemainingBase: amt(t, "1", m.Base.Decimals)}})
	v.Asks.Ingest([]Order{ask(t, "a", "1", "1")})
	if _, ok := v.SpreadPercent(); !ok {
		t.Fatal("tiny but positive bid: spread percent is still valid")
	}
}

func TestSpreadPercentTruncates(t *testing.T) {
	m := testMarket()
	v := freshView(t)
	// spread 1 over bid 3: 33.3333...% floors to 33.3333
	v.Bids.Ingest([]Order{{ID: "b", Price: amt(t, "3", m.PriceDecimals), RemainingBase: amt(t, "1", m.Base.Decimals)}})
	v.Asks.Ingest([]Order{ask(t, "a", "4", "1")})
	pct, ok := v.SpreadPercent()
	if !ok || pct.String() != "33.3333" {
		t.Fatalf("got %s ok=%v want 33.3333", pct, ok)
	}
}
