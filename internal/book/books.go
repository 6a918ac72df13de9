package book

import (
	"dexbook/internal/tokens"
)

// MarketBooks is the pair of side books for one market. No state is shared
// across markets; each market owns its two sides outright.
type MarketBooks struct {
	Market tokens.Market
	Bids   *SideBook
	Asks   *SideBook
}

func NewMarketBooks(m tokens.Market) *MarketBooks {
	return &MarketBooks{
		Market: m,
		Bids:   NewSideBook(m, SideBid),
		Asks:   NewSideBook(m, SideAsk),
	}
}

func (mb *MarketBooks) View() View {
	return NewView(mb.Bids, mb.Asks)
}

func (mb *MarketBooks) SideBook(s Side) *SideBook {
	if s == SideBid {
		return mb.Bids
	}
	return mb.Asks
}

// MarkStale flags both sides, e.g. on subscription loss or when the UI
// leaves this market.
func (mb *MarketBooks) MarkStale() {
	mb.Bids.MarkStale()
	mb.Asks.MarkStale()
}
