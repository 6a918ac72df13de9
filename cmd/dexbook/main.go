package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dexbook/internal/book"
	"dexbook/internal/config"
	"dexbook/internal/feed"
	"dexbook/internal/metrics"
	"dexbook/internal/server"
	"dexbook/internal/state"
	"dexbook/internal/tokens"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("dexbook starting",
		slog.Int("port", cfg.Port),
		slog.String("feed_url", cfg.FeedURL),
		slog.Int("markets", len(cfg.Markets)),
	)

	// Token metadata & markets
	assets := make([]tokens.Asset, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		assets = append(assets, tokens.Asset{Symbol: a.Symbol, Decimals: a.Decimals})
	}
	registry := tokens.NewStaticRegistry(assets)

	markets := make(map[string]tokens.Market, len(cfg.Markets))
	books := make(map[string]*book.MarketBooks, len(cfg.Markets))
	for _, mc := range cfg.Markets {
		m, err := tokens.NewMarket(mc.ID, mc.Base, mc.Quote, mc.PriceDecimals, mc.Precisions, mc.DefaultPrecision, registry)
		if err != nil {
			logger.Error("market config", slog.String("err", err.Error()))
			os.Exit(1)
		}
		markets[m.ID] = m
		books[m.ID] = book.NewMarketBooks(m)
	}

	// Metrics
	reg := metrics.Init()

	// State
	defaultPrecision := int32(0)
	if len(cfg.Markets) > 0 {
		defaultPrecision = cfg.Markets[0].DefaultPrecision
	}
	st := state.NewState(defaultPrecision)

	// Feed
	maxBackoff := time.Duration(cfg.ReconnectMaxSecs) * time.Second
	fd := feed.NewGatewayFeed(cfg.FeedURL, markets, maxBackoff, cfg.SnapshotBufferLen, logger)

	// HTTP server + WS hub
	srv := server.NewServer(cfg, st, fd, books, reg, logger)

	// Context & signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start feed (connect loop)
	go fd.Run(ctx, func(connected bool) {
		st.SetConnected(connected)
		if !connected {
			// A lost subscription means every held snapshot may be behind
			// the live book; flag them so quoting refuses until re-ingested.
			for id, mb := range books {
				mb.MarkStale()
				metrics.SideStale.WithLabelValues(id, string(book.SideBid)).Set(1)
				metrics.SideStale.WithLabelValues(id, string(book.SideAsk)).Set(1)
			}
		}
		srv.BroadcastStatus()
	})

	// Pipe feed → book → hub. Each snapshot applies to completion before the
	// next is taken off the channel, so readers only ever see whole ingests.
	go func() {
		for {
			select {
			case snap, ok := <-fd.Updates():
				if !ok {
					return
				}
				mb, known := books[snap.Market]
				if !known {
					continue
				}
				side := mb.SideBook(snap.Side)
				dropped := side.Ingest(snap.Orders)
				metrics.SnapshotsIngestedTotal.WithLabelValues(snap.Market, string(snap.Side)).Inc()
				metrics.SideStale.WithLabelValues(snap.Market, string(snap.Side)).Set(0)
				if dropped > 0 {
					metrics.OrdersDroppedTotal.WithLabelValues(snap.Market, string(snap.Side)).Add(float64(dropped))
					logger.Warn("dropped inconsistent orders",
						slog.String("market", snap.Market),
						slog.String("side", string(snap.Side)),
						slog.Int("count", dropped),
					)
				}
				srv.BroadcastBook(snap.Market)
			case err := <-fd.Errors():
				if err != nil {
					logger.Error("feed error", slog.String("err", err.Error()))
					srv.BroadcastError(err.Error())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP serving
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
		close(done)
	}()

	// Graceful shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	fd.Close()
	<-done
	logger.Info("bye")
}
