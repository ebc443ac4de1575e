// Package metrics provides Prometheus metrics for the feed and book.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdatesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbook_updates_applied_total",
		Help: "Accepted order book updates",
	})
	UpdatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbook_updates_rejected_total",
		Help: "Rejected order book updates by reason",
	}, []string{"reason"})
	ApplyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderbook_apply_seconds",
		Help:    "Latency of applying one update",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
	BestBid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderbook_best_bid",
		Help: "Current best bid price",
	})
	BestAsk = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderbook_best_ask",
		Help: "Current best ask price",
	})
	MidPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderbook_mid_price",
		Help: "Current mid price",
	})
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_reconnects_total",
		Help: "Websocket feed reconnect attempts",
	})
)

const (
	ReasonStale     = "stale"
	ReasonMalformed = "malformed"
)

// ObserveApply records the outcome and latency of one apply.
func ObserveApply(start time.Time, reason string) {
	ApplyLatency.Observe(time.Since(start).Seconds())
	if reason == "" {
		UpdatesApplied.Inc()
	} else {
		UpdatesRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateBookPrices publishes the current top of book.
func UpdateBookPrices(bestBid, bestAsk, mid float64) {
	BestBid.Set(bestBid)
	BestAsk.Set(bestAsk)
	MidPrice.Set(mid)
}

// StartMetricsServer exposes /metrics on addr.
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
