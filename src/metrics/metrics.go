package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_ticks_total",
			Help: "Live polling ticks by outcome",
		},
		[]string{"result"},
	)

	BarsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_bars_total",
			Help: "Bars by kind (history, history_skipped, live_new, live_update)",
		},
		[]string{"kind"},
	)

	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_upstream_errors_total",
			Help: "Failed upstream calls by operation",
		},
		[]string{"operation"},
	)

	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_sink_errors_total",
			Help: "Failed bar sink writes by sink",
		},
		[]string{"sink"},
	)

	ReferenceRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datafeed_reference_rate",
			Help: "Last cached reference asset price in fiat",
		},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datafeed_active_subscriptions",
			Help: "Live polling subscriptions currently running",
		},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "datafeed_upstream_duration_seconds",
			Help: "Upstream call duration",
		},
		[]string{"operation"},
	)
)

// Tick outcomes
const (
	TickDelivered  = "delivered"
	TickNoSwap     = "no_swap"
	TickNoSeed     = "no_seed"
	TickDegenerate = "degenerate"
	TickError      = "error"
	TickDropped    = "dropped"
)
