package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotsIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_snapshots_ingested_total", Help: "Full snapshots applied, by market and side"}, []string{"market", "side"})
	OrdersDroppedTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_orders_dropped_total", Help: "Orders dropped at ingestion for consistency violations"}, []string{"market", "side"})
	FeedReconnectsTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "feed_reconnects_total", Help: "Feed websocket reconnect attempts"})
	QuotesServedTotal      = prometheus.NewCounter(prometheus.CounterOpts{Name: "quotes_served_total", Help: "Execution plans served over the quote API"})
	SideStale              = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "book_side_stale", Help: "1 while a side's snapshot is stale"}, []string{"market", "side"})
)

func Init() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotsIngestedTotal, OrdersDroppedTotal, FeedReconnectsTotal, QuotesServedTotal, SideStale,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
