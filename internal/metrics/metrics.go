package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quote_requests_total",
			Help: "Total number of evaluated quote requests",
		},
		[]string{"direction", "status"},
	)

	QuoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_quote_duration_seconds",
		Help:    "Quote computation duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_feed_fetches_total",
			Help: "Total number of price feed fetches",
		},
		[]string{"status"},
	)

	CandlesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_candles_applied_total",
			Help: "Candles applied to the presentation layer",
		},
		[]string{"kind"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_submissions_total",
			Help: "Transaction submissions by final status",
		},
		[]string{"status"},
	)
)
