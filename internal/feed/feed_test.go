package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexbook/internal/book"
	"dexbook/internal/fixedpoint"
	"dexbook/internal/tokens"
)

func testMarket() tokens.Market {
	return tokens.Market{
		ID:               "SOL-USDC",
		Base:             tokens.Asset{Symbol: "SOL", Decimals: 9},
		Quote:            tokens.Asset{Symbol: "USDC", Decimals: 6},
		PriceDecimals:    6,
		Precisions:       []int32{0, 1, 2},
		DefaultPrecision: 2,
	}
}

func TestDecodeOrder(t *testing.T) {
	m := testMarket()
	o, err := decodeOrder(wireOrder{
		ID:        "ord-1",
		Price:     "1500000",    // 1.5 at 6 decimals
		Remaining: "2000000000", // 2 at 9 decimals
		Sequence:  7,
	}, book.SideAsk, m)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", o.ID)
	assert.Equal(t, book.SideAsk, o.Side)
	assert.Equal(t, "1.5", o.Price.String())
	assert.Equal(t, int32(m.PriceDecimals), o.Price.Decimals())
	assert.Equal(t, "2", o.RemainingBase.String())
	assert.Equal(t, uint64(7), o.Sequence)
}

func TestDecodeOrderRejectsBadAmounts(t *testing.T) {
	m := testMarket()
	_, err := decodeOrder(wireOrder{ID: "x", Price: "1.5", Remaining: "1"}, book.SideAsk, m)
	require.Error(t, err, "wire amounts are raw integers, not decimal strings")

	_, err = decodeOrder(wireOrder{ID: "x", Price: "100", Remaining: "abc"}, book.SideAsk, m)
	require.ErrorIs(t, err, fixedpoint.ErrInvalidAmount)
}

func TestParseRawAllowsNegativeForValidationDownstream(t *testing.T) {
	// ingestion, not the decoder, owns the consistency policy: a negative
	// remaining decodes fine and is dropped by SideBook.Ingest
	a, err := parseRaw("-5", 0)
	require.NoError(t, err)
	assert.True(t, a.IsNegative())
}

func TestMockFeedSubscribeLifecycle(t *testing.T) {
	m := NewMockFeed()
	defer m.Close()

	statusCh := make(chan bool, 1)
	m.Run(context.Background(), func(connected bool) { statusCh <- connected })
	assert.True(t, <-statusCh)

	require.NoError(t, m.Subscribe("sol-usdc"))
	assert.Equal(t, "SOL-USDC", m.SubscribedMarket())

	m.SendSnapshot(Snapshot{Market: "SOL-USDC", Side: book.SideAsk})
	snap := <-m.Updates()
	assert.Equal(t, "SOL-USDC", snap.Market)
	assert.Equal(t, book.SideAsk, snap.Side)

	m.Unsubscribe()
	assert.Empty(t, m.SubscribedMarket())
}
