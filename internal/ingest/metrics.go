package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alertd_alerts_accepted_total",
		Help: "Alerts accepted into the store",
	})
	duplicatesSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertd_duplicates_suppressed_total",
		Help: "Candidates dropped by dedup, by mechanism",
	}, []string{"reason"})
	feedFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alertd_feed_failures_total",
		Help: "Upstream fetch failures (cycle skipped)",
	})
	ingestCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alertd_ingest_cycles_total",
		Help: "Completed ingestion cycles",
	})
	keysRetained = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alertd_processed_keys",
		Help: "Identity keys currently retained",
	})
)
