package observe

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// Metrics holds the collectors recorded for every tree operation.
type Metrics struct {
	// Operations counts calls by operation and result.
	Operations *prometheus.CounterVec
	// Duration observes call latency by operation.
	Duration *prometheus.HistogramVec
	// Nodes is the node count after the last successful mutation.
	Nodes prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grove",
			Name:      "operations_total",
			Help:      "Tree operations by operation and result",
		}, []string{"operation", "result"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grove",
			Name:      "operation_duration_seconds",
			Help:      "Tree operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
		}, []string{"operation"}),
		Nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "grove",
			Name:      "nodes",
			Help:      "Number of nodes after the last mutation",
		}),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns collectors registered with the default Prometheus
// registry, created on first use.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Result labels.
const (
	ResultOK        = "ok"
	ResultNotFound  = "not_found"
	ResultInvariant = "invariant_violation"
	ResultNotEmpty  = "not_empty"
	ResultClosed    = "closed"
	ResultStorage   = "storage"
	ResultError     = "error"
)

// resultOf maps err onto a low-cardinality label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, types.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, types.ErrInvariantViolation):
		return ResultInvariant
	case errors.Is(err, types.ErrNotEmpty):
		return ResultNotEmpty
	case errors.Is(err, types.ErrClosed):
		return ResultClosed
	case errors.Is(err, types.ErrStorage):
		return ResultStorage
	default:
		return ResultError
	}
}
