package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dexbook/internal/book"
	"dexbook/internal/fixedpoint"
	"dexbook/internal/metrics"
	"dexbook/internal/tokens"
)

// Snapshot is one complete push for a (market, side): the full currently
// active resting-order set, replacing whatever was held before.
type Snapshot struct {
	Market string
	Side   book.Side
	Orders []book.Order
}

// Feed delivers order snapshots for the subscribed market. One market is
// active at a time; switching tears the old subscriptions down before the
// new ones are established, so a stale market's snapshot can never land in
// the new market's book.
type Feed interface {
	Run(ctx context.Context, onStatus func(connected bool))
	Subscribe(marketID string) error
	Unsubscribe()
	Updates() <-chan Snapshot
	Errors() <-chan error
	Connected() bool
	Close()
}

// GatewayFeed implements Feed against the exchange gateway's websocket. It
// maintains a single connection with reconnect & resubscribe; each
// (market, side) subscription carries an open-status filter, and the
// gateway answers every book change with a complete ordered order list.
type GatewayFeed struct {
	url     string
	markets map[string]tokens.Market
	log     *slog.Logger

	mu        sync.RWMutex
	market    string
	connected bool

	updCh  chan Snapshot
	errCh  chan error
	wsConn *websocket.Conn

	maxBackoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func NewGatewayFeed(url string, markets map[string]tokens.Market, maxBackoff time.Duration, bufferLen int, logger *slog.Logger) *GatewayFeed {
	return &GatewayFeed{
		url:        url,
		markets:    markets,
		log:        logger,
		maxBackoff: maxBackoff,
		updCh:      make(chan Snapshot, bufferLen),
		errCh:      make(chan error, 16),
	}
}

func (f *GatewayFeed) Connected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *GatewayFeed) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *GatewayFeed) Updates() <-chan Snapshot { return f.updCh }
func (f *GatewayFeed) Errors() <-chan error     { return f.errCh }

// Subscribe records the market and forces a resubscription by closing the
// socket; the run loop reconnects and subscribes both sides of the current
// market. Closing first guarantees the prior market's subscriptions are
// gone before the new ones exist.
func (f *GatewayFeed) Subscribe(marketID string) error {
	canon := strings.ToUpper(strings.TrimSpace(marketID))
	if canon == "" {
		return fmt.Errorf("empty market")
	}
	if _, ok := f.markets[canon]; !ok {
		return fmt.Errorf("unknown market %q", canon)
	}
	f.mu.Lock()
	f.market = canon
	ws := f.wsConn
	f.mu.Unlock()
	if ws != nil {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "resub"))
		_ = ws.Close()
	}
	return nil
}

func (f *GatewayFeed) Unsubscribe() {
	f.mu.Lock()
	ws := f.wsConn
	market := f.market
	f.market = ""
	f.mu.Unlock()

	if ws != nil && market != "" {
		for _, side := range []book.Side{book.SideBid, book.SideAsk} {
			_ = ws.WriteJSON(subscribeMsg{Op: "unsubscribe", Channel: "orders", Market: market, Side: strings.ToLower(string(side)), Status: "open"})
		}
	}
	if ws != nil {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "unsubscribe"))
		_ = ws.Close()
	}
}

func (f *GatewayFeed) Close() {
	if f.cancel != nil {
		f.cancel()
	}
	close(f.errCh)
	close(f.updCh)
}

func (f *GatewayFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	if f.cancel != nil {
		return
	}
	f.ctx, f.cancel = context.WithCancel(ctx)

	backoff := time.Second
	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		ws, err := f.openWS()
		if err != nil {
			onStatus(false)
			f.setConnected(false)
			f.emitErr(fmt.Errorf("ws open: %w", err))
			metrics.FeedReconnectsTotal.Inc()
			time.Sleep(backoff)
			backoff = min(backoff*2, f.maxBackoff)
			continue
		}
		f.mu.Lock()
		f.wsConn = ws
		f.mu.Unlock()
		f.setConnected(true)
		onStatus(true)
		backoff = time.Second

		if market := f.currentMarket(); market != "" {
			if err := f.subscribeSides(market); err != nil {
				f.emitErr(fmt.Errorf("subscribe %s: %w", market, err))
				_ = ws.Close()
				continue
			}
		}

		if err := f.readLoop(); err != nil {
			onStatus(false)
			f.setConnected(false)
			f.emitErr(err)
			metrics.FeedReconnectsTotal.Inc()
			// loop will reconnect
		}
	}
}

func (f *GatewayFeed) currentMarket() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.market
}

func (f *GatewayFeed) openWS() (*websocket.Conn, error) {
	d := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var nd net.Dialer
			return nd.DialContext(ctx, network, addr)
		},
	}
	ws, _, err := d.DialContext(f.ctx, f.url, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

type subscribeMsg struct {
	Op      string `json:"op"`
	Channel string `json:"channel"`
	Market  string `json:"market"`
	Side    string `json:"side"`
	Status  string `json:"status"`
}

func (f *GatewayFeed) subscribeSides(market string) error {
	for _, side := range []book.Side{book.SideBid, book.SideAsk} {
		msg := subscribeMsg{Op: "subscribe", Channel: "orders", Market: market, Side: strings.ToLower(string(side)), Status: "open"}
		if err := f.wsConn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

// wireOrder carries amounts as string-encoded raw integers at the
// protocol scales. Strings, never JSON numbers: a number would round-trip
// through float64.
type wireOrder struct {
	ID        string `json:"id"`
	Price     string `json:"price"`
	Remaining string `json:"remaining"`
	Sequence  uint64 `json:"sequence"`
}

type inboundWS struct {
	Channel string      `json:"channel"`
	Market  string      `json:"market"`
	Side    string      `json:"side"`
	Orders  []wireOrder `json:"orders"`
}

func (f *GatewayFeed) readLoop() error {
	defer func() {
		if f.wsConn != nil {
			_ = f.wsConn.Close()
		}
	}()

	f.wsConn.SetReadLimit(1 << 20)
	_ = f.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
	f.wsConn.SetPongHandler(func(string) error {
		_ = f.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return nil
		default:
		}

		// Keepalive ping
		select {
		case <-ticker.C:
			_ = f.wsConn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		default:
		}

		_, data, err := f.wsConn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read: %w", err)
		}

		var msg inboundWS
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // ack/heartbeat
		}
		if msg.Channel != "orders" {
			continue
		}
		marketID := strings.ToUpper(msg.Market)
		if marketID != f.currentMarket() {
			continue // late frame from a market we already left
		}
		market, ok := f.markets[marketID]
		if !ok {
			continue
		}
		side := book.SideAsk
		if strings.EqualFold(msg.Side, string(book.SideBid)) {
			side = book.SideBid
		}

		orders := make([]book.Order, 0, len(msg.Orders))
		for _, w := range msg.Orders {
			o, err := decodeOrder(w, side, market)
			if err != nil {
				f.log.Warn("bad wire order", slog.String("id", w.ID), slog.String("err", err.Error()))
				continue
			}
			orders = append(orders, o)
		}

		f.updCh <- Snapshot{Market: marketID, Side: side, Orders: orders}
	}
}

func decodeOrder(w wireOrder, side book.Side, market tokens.Market) (book.Order, error) {
	price, err := parseRaw(w.Price, market.PriceDecimals)
	if err != nil {
		return book.Order{}, fmt.Errorf("price: %w", err)
	}
	base, err := parseRaw(w.Remaining, market.Base.Decimals)
	if err != nil {
		return book.Order{}, fmt.Errorf("remaining: %w", err)
	}
	return book.Order{
		ID:            w.ID,
		Side:          side,
		Price:         price,
		RemainingBase: base,
		Sequence:      w.Sequence,
	}, nil
}

func parseRaw(s string, decimals int32) (fixedpoint.Amount, error) {
	raw, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return fixedpoint.Amount{}, fmt.Errorf("%q: %w", s, fixedpoint.ErrInvalidAmount)
	}
	return fixedpoint.FromBigInt(raw, decimals)
}

func (f *GatewayFeed) emitErr(err error) {
	select {
	case f.errCh <- err:
	default:
		// drop if buffer full
	}
}

// ---------- Test/mock feed (handy for integration tests & demos) ----------

type MockFeed struct {
	updates   chan Snapshot
	errors    chan error
	connected bool
	subMarket string
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewMockFeed() *MockFeed {
	return &MockFeed{
		updates:   make(chan Snapshot, 10),
		errors:    make(chan error, 10),
		connected: true,
	}
}

func (m *MockFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	go func() {
		onStatus(m.connected)
		<-m.ctx.Done()
	}()
}

func (m *MockFeed) Subscribe(marketID string) error {
	m.subMarket = strings.ToUpper(strings.TrimSpace(marketID))
	return nil
}

func (m *MockFeed) Unsubscribe()             { m.subMarket = "" }
func (m *MockFeed) Updates() <-chan Snapshot { return m.updates }
func (m *MockFeed) Errors() <-chan error     { return m.errors }
func (m *MockFeed) Connected() bool          { return m.connected }

func (m *MockFeed) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	close(m.updates)
	close(m.errors)
}

// Helpers for tests
func (m *MockFeed) SendSnapshot(s Snapshot)  { m.updates <- s }
func (m *MockFeed) SendError(e error)        { m.errors <- e }
func (m *MockFeed) SetConnected(c bool)      { m.connected = c }
func (m *MockFeed) SubscribedMarket() string { return m.subMarket }
