package manager

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the usage counters reported by GET /metrics. They only grow.
type Metrics struct {
	TotalRequests        uint64
	TotalTokensGenerated uint64
	TotalTimeMS          uint64
}

// metricsAggregator applies one update per counted generation; the three
// counters move together under mu so readers never see a partial update.
type metricsAggregator struct {
	mu sync.Mutex
	m  Metrics
}

func (a *metricsAggregator) record(tokens int, elapsed time.Duration) {
	a.mu.Lock()
	a.m.TotalRequests++
	a.m.TotalTokensGenerated += uint64(tokens)
	a.m.TotalTimeMS += uint64(elapsed.Milliseconds())
	a.mu.Unlock()
}

func (a *metricsAggregator) snapshot() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.m
}

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "generation",
			Name:      "total",
			Help:      "Generations by terminal outcome",
		},
		[]string{"outcome"},
	)

	generationTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Token fragments emitted by counted generations",
		},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Wall time of counted generations",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	generationsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "generation",
			Name:      "inflight",
			Help:      "Generations currently holding a shared view of the model slot",
		},
	)

	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Model load attempts by result",
		},
		[]string{"result"},
	)

	cancellationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "generation",
			Name:      "cancellations_total",
			Help:      "Cancellation epoch advances",
		},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationTokens, generationDuration, generationsInflight, modelLoadsTotal, cancellationsTotal)
}
