package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"dexbook/internal/book"
	"dexbook/internal/config"
	"dexbook/internal/depth"
	"dexbook/internal/feed"
	"dexbook/internal/fixedpoint"
	"dexbook/internal/metrics"
	"dexbook/internal/planner"
	"dexbook/internal/state"
)

type Server struct {
	cfg   config.Config
	st    *state.State
	feed  feed.Feed
	books map[string]*book.MarketBooks
	hub   *hub
	log   *slog.Logger
	mux   *http.ServeMux
}

func NewServer(cfg config.Config, st *state.State, f feed.Feed, books map[string]*book.MarketBooks, reg *prometheus.Registry, logger *slog.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		st:    st,
		feed:  f,
		books: books,
		hub:   newHub(logger),
		log:   logger,
		mux:   http.NewServeMux(),
	}
	s.routes(reg)
	go s.hub.run()
	return s
}

func (s *Server) Router() http.Handler { return s.mux }

// --------- WS broadcasts ----------

func (s *Server) BroadcastStatus() {
	msg := map[string]any{
		"connected": s.st.Connected(),
		"market":    s.st.Market(),
		"precision": s.st.Precision(),
	}
	s.hub.broadcast <- marshalWS("status", msg)
}

// BroadcastBook regroups both sides of the market at the currently selected
// precision and pushes levels plus derived stats. Called after each
// completed ingest, so browsers never see a partially applied snapshot.
func (s *Server) BroadcastBook(marketID string) {
	payload, ok := s.bookPayload(marketID)
	if !ok {
		return
	}
	s.hub.broadcast <- marshalWS("book", payload)
}

func (s *Server) BroadcastError(msg string) {
	s.hub.broadcast <- marshalWS("error", map[string]string{"message": msg})
}

func (s *Server) bookPayload(marketID string) (map[string]any, bool) {
	mb, ok := s.books[marketID]
	if !ok {
		return nil, false
	}
	precision := s.st.Precision()
	if !mb.Market.ValidPrecision(precision) {
		precision = mb.Market.DefaultPrecision
	}
	v := mb.View()

	stats := map[string]any{}
	if bid, ok := v.BestBid(); ok {
		stats["bestBid"] = bid.Price
	}
	if ask, ok := v.BestAsk(); ok {
		stats["bestAsk"] = ask.Price
	}
	if spread, ok := v.SpreadAbsolute(); ok {
		stats["spread"] = spread
	}
	if pct, ok := v.SpreadPercent(); ok {
		stats["spreadPercent"] = pct
	}
	if mid, ok := v.MidPrice(); ok {
		stats["midPrice"] = mid
	}

	return map[string]any{
		"market":    marketID,
		"precision": precision,
		"bids":      depth.Group(mb.Bids.Orders(), precision),
		"asks":      depth.Group(mb.Asks.Orders(), precision),
		"stats":     stats,
		"stale": map[string]bool{
			"bids": mb.Bids.Stale(),
			"asks": mb.Asks.Stale(),
		},
	}, true
}

// --------- Routes ----------

func (s *Server) routes(reg *prometheus.Registry) {
	// SPA
	s.mux.HandleFunc("/", s.serveIndex)
	s.mux.HandleFunc("/index.html", s.serveIndex)
	s.mux.HandleFunc("/app.js", s.serveAppJS)
	s.mux.HandleFunc("/styles.css", s.serveCSS)

	// WS
	s.mux.HandleFunc("/ws", s.hub.serveWS)

	// Metrics
	s.mux.Handle("/metrics", metrics.Handler(reg))

	// API
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
	s.mux.HandleFunc("/api/markets", s.apiMarkets)
	s.mux.HandleFunc("/api/book", s.apiBook)
	s.mux.HandleFunc("/api/start", s.apiStart)
	s.mux.HandleFunc("/api/stop", s.apiStop)
	s.mux.HandleFunc("/api/precision", s.apiPrecision)
	s.mux.HandleFunc("/api/quote", s.apiQuote)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) serveAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/app.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) serveCSS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/styles.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) apiHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":        true,
		"connected": s.st.Connected(),
	})
}

func (s *Server) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"currentMarket":    s.st.Market(),
		"currentPrecision": s.st.Precision(),
		"connected":        s.st.Connected(),
		"feedURL":          s.cfg.FeedURL,
	})
}

func (s *Server) apiMarkets(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(s.books))
	for id, mb := range s.books {
		out = append(out, map[string]any{
			"id":               id,
			"base":             mb.Market.Base.Symbol,
			"baseDecimals":     mb.Market.Base.Decimals,
			"quote":            mb.Market.Quote.Symbol,
			"quoteDecimals":    mb.Market.Quote.Decimals,
			"priceDecimals":    mb.Market.PriceDecimals,
			"precisions":       mb.Market.Precisions,
			"defaultPrecision": mb.Market.DefaultPrecision,
		})
	}
	writeJSON(w, map[string]any{"markets": out})
}

func (s *Server) apiBook(w http.ResponseWriter, r *http.Request) {
	marketID := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("market")))
	if marketID == "" {
		marketID = s.st.Market()
	}
	payload, ok := s.bookPayload(marketID)
	if !ok {
		http.Error(w, "unknown market", http.StatusNotFound)
		return
	}
	writeJSON(w, payload)
}

func (s *Server) apiStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Market    string `json:"market"`
		Precision *int32 `json:"precision,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	marketID := strings.ToUpper(strings.TrimSpace(req.Market))
	mb, ok := s.books[marketID]
	if !ok {
		http.Error(w, "unknown market", http.StatusBadRequest)
		return
	}

	// Leaving a market invalidates its snapshots; the new market starts
	// stale until its first push lands.
	if prev := s.st.Market(); prev != "" && prev != marketID {
		if prevBooks, ok := s.books[prev]; ok {
			prevBooks.MarkStale()
		}
	}

	precision := mb.Market.DefaultPrecision
	if req.Precision != nil && mb.Market.ValidPrecision(*req.Precision) {
		precision = *req.Precision
	}
	s.st.SetMarket(marketID)
	s.st.SetPrecision(precision)

	if err := s.feed.Subscribe(marketID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.BroadcastStatus()
	writeJSON(w, map[string]any{"ok": true, "market": s.st.Market(), "precision": s.st.Precision()})
}

func (s *Server) apiStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.feed.Unsubscribe()
	if mb, ok := s.books[s.st.Market()]; ok {
		mb.MarkStale()
	}
	s.st.SetMarket("")
	s.BroadcastStatus()
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) apiPrecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Precision int32 `json:"precision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	mb, ok := s.books[s.st.Market()]
	if !ok {
		http.Error(w, "no active market", http.StatusConflict)
		return
	}
	if !mb.Market.ValidPrecision(req.Precision) {
		http.Error(w, "precision not offered for this market", http.StatusBadRequest)
		return
	}
	s.st.SetPrecision(req.Precision)
	s.BroadcastBook(mb.Market.ID)
	writeJSON(w, map[string]any{"ok": true, "precision": s.st.Precision()})
}

// apiQuote simulates a taker order against the current snapshot and answers
// with the plan a settlement transaction needs: consumed order ids and the
// worst price. A stale opposite side is refused outright rather than served
// as if current.
func (s *Server) apiQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Market string `json:"market"`
		Side   string `json:"side"`   // "buy" or "sell"
		Budget string `json:"budget"` // decimal string in the spend asset
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	marketID := strings.ToUpper(strings.TrimSpace(req.Market))
	if marketID == "" {
		marketID = s.st.Market()
	}
	mb, ok := s.books[marketID]
	if !ok {
		http.Error(w, "unknown market", http.StatusBadRequest)
		return
	}

	var (
		opposite *book.SideBook
		scale    int32
	)
	switch strings.ToLower(req.Side) {
	case "buy":
		opposite, scale = mb.Asks, mb.Market.Quote.Decimals
	case "sell":
		opposite, scale = mb.Bids, mb.Market.Base.Decimals
	default:
		http.Error(w, `side must be "buy" or "sell"`, http.StatusBadRequest)
		return
	}
	if opposite.Stale() {
		http.Error(w, "book is stale; refusing to quote", http.StatusServiceUnavailable)
		return
	}

	budget, err := fixedpoint.Parse(req.Budget, scale)
	if err != nil {
		http.Error(w, "bad budget: "+err.Error(), http.StatusBadRequest)
		return
	}

	pl := planner.New(mb.Market)
	var plan planner.Plan
	if strings.ToLower(req.Side) == "buy" {
		plan, err = pl.PlanBuy(opposite.Orders(), budget)
	} else {
		plan, err = pl.PlanSell(opposite.Orders(), budget)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.QuotesServedTotal.Inc()
	writeJSON(w, map[string]any{
		"id":     uuid.NewString(),
		"market": marketID,
		"side":   strings.ToLower(req.Side),
		"budget": budget,
		"plan":   plan,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
