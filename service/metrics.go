package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DebRC/Vortex-Layer-1.5/store"
)

var (
	discoveredMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vortex",
		Subsystem: "discovery",
		Name:      "proofs_total",
		Help:      "Number of newly discovered proofs",
	})

	cursorMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vortex",
		Subsystem: "discovery",
		Name:      "cursor_block",
		Help:      "Last block scanned for announcements",
	})

	verifiedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vortex",
		Subsystem: "verification",
		Name:      "proofs_total",
		Help:      "Number of verified proofs by result",
	}, []string{"result"})

	verificationLatencyMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vortex",
		Subsystem: "verification",
		Name:      "latency_seconds",
		Help:      "Latency of a single proof verification",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	submittedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vortex",
		Subsystem: "submission",
		Name:      "confirmed_total",
		Help:      "Number of confirmed state submissions",
	})

	submissionErrorsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vortex",
		Subsystem: "submission",
		Name:      "errors_total",
		Help:      "Number of failed submission attempts by stage",
	}, []string{"stage"})

	gasFallbackMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vortex",
		Subsystem: "submission",
		Name:      "gas_fallbacks_total",
		Help:      "Number of submissions sent with the default gas limit",
	})

	expiredMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vortex",
		Subsystem: "submission",
		Name:      "expired_total",
		Help:      "Number of proofs that left their submission window",
	}, []string{"reason"})

	statusMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vortex",
		Subsystem: "store",
		Name:      "proofs",
		Help:      "Number of proofs by status",
	}, []string{"status"})
)

func reportStatus(s *store.Store) {
	counts := s.Counts()
	for _, status := range store.Statuses {
		statusMetric.WithLabelValues(status.String()).Set(float64(counts[status]))
	}
}
