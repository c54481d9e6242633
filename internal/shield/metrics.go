package shield

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanPairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_scan_pairs_total",
			Help: "Asset/target pairs crawled, by outcome (match, clean, failed).",
		},
		[]string{"outcome"},
	)

	scanSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_scan_sessions_total",
			Help: "Scan sessions that reached a terminal state, by status.",
		},
		[]string{"status"},
	)

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shield_scan_duration_seconds",
		Help:    "Wall-clock duration of scan sessions.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	})

	assetsRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shield_assets_registered_total",
		Help: "Protected assets fingerprinted and stored.",
	})

	registrationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shield_registration_failures_total",
		Help: "Asset registrations that failed (decode, hashing or persistence).",
	})

	alertsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shield_alerts_evicted_total",
		Help: "Alerts dropped because the alert log reached capacity.",
	})
)
