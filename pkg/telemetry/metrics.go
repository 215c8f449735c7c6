// Package telemetry exposes the server's Prometheus collectors and the
// /metrics handler.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"newsdb/pkg/store"
)

var (
	articlesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsdb",
		Subsystem: "ingest",
		Name:      "articles_total",
		Help:      "Overview rows written to the cache",
	}, []string{"group"})

	rowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsdb",
		Subsystem: "ingest",
		Name:      "rows_skipped_total",
		Help:      "Overview rows dropped during ingest",
	}, []string{"group", "reason"})

	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsdb",
		Subsystem: "ingest",
		Name:      "syncs_total",
		Help:      "Group sync runs by outcome",
	}, []string{"status"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "newsdb",
		Subsystem: "ingest",
		Name:      "queue_depth",
		Help:      "Operations waiting in the ingest queue",
	})

	threadsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsdb",
		Subsystem: "threads",
		Name:      "built_total",
		Help:      "Conversation trees assembled",
	}, []string{"group"})

	threadBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "newsdb",
		Subsystem: "threads",
		Name:      "build_seconds",
		Help:      "Time spent assembling one group's trees",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	threadArticles = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "newsdb",
		Subsystem: "threads",
		Name:      "articles",
		Help:      "Articles fed into one build",
		Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
	})

	dialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsdb",
		Subsystem: "nntp",
		Name:      "dials_total",
		Help:      "Upstream connection attempts by outcome",
	}, []string{"status"})

	expiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsdb",
		Subsystem: "retention",
		Name:      "articles_expired_total",
		Help:      "Articles removed by the retention sweep",
	}, []string{"group"})
)

func init() {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "newsdb",
		Subsystem: "store",
		Name:      "disk_bytes",
		Help:      "Best-effort on-disk size of the pebble directory",
	}, func() float64 { return float64(store.DiskUsage()) })
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler { return promhttp.Handler() }

// RecordArticlesIngested counts rows written for a group.
func RecordArticlesIngested(group string, n int) {
	if n > 0 {
		articlesIngested.WithLabelValues(group).Add(float64(n))
	}
}

// RecordRowSkipped counts one dropped overview row.
func RecordRowSkipped(group, reason string) {
	rowsSkipped.WithLabelValues(group, reason).Inc()
}

// RecordSync counts one sync run; status is "success" or "error".
func RecordSync(status string) {
	syncsTotal.WithLabelValues(status).Inc()
}

// RecordQueueDepth publishes the current ingest queue length.
func RecordQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordThreadBuild observes one tree assembly.
func RecordThreadBuild(group string, seconds float64, articles int) {
	threadsBuilt.WithLabelValues(group).Inc()
	threadBuildSeconds.Observe(seconds)
	threadArticles.Observe(float64(articles))
}

// RecordDial counts one upstream dial; status is "success" or "error".
func RecordDial(status string) {
	dialsTotal.WithLabelValues(status).Inc()
}

// RecordExpired counts articles removed by retention.
func RecordExpired(group string, n int) {
	if n > 0 {
		expiredTotal.WithLabelValues(group).Add(float64(n))
	}
}
