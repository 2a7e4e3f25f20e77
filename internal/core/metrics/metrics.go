package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultUnknown  = "unknown_carrier"
	ResultError    = "error"
	ResultCacheHit = "cache_hit"
	ResultBadInput = "invalid_request"
)

// LookupMetrics groups Prometheus collectors for tracking lookups.
type LookupMetrics struct {
	Total    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewLookupMetrics creates the lookup collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil). Collectors already registered are reused.
func NewLookupMetrics(namespace string, reg prometheus.Registerer) *LookupMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &LookupMetrics{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_lookups_total",
			Help:      "Count of tracking lookups by carrier and result.",
		}, []string{"carrier", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracking_lookup_duration_seconds",
			Help:      "Tracking lookup latency, browser start-up included.",
			Buckets:   []float64{1, 2.5, 5, 10, 15, 20, 30, 45, 60},
		}, []string{"carrier"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracking_lookups_in_flight",
			Help:      "Number of tracking lookups currently driving a browser.",
		}),
	}
	m.Total = register(reg, m.Total)
	m.Duration = register(reg, m.Duration)
	m.InFlight = register(reg, m.InFlight)
	return m
}

// Observe records one finished lookup.
func (m *LookupMetrics) Observe(carrier, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Total.WithLabelValues(carrier, result).Inc()
	m.Duration.WithLabelValues(carrier).Observe(elapsed.Seconds())
}

// Track increments the in-flight gauge and returns the matching decrement.
func (m *LookupMetrics) Track() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
