package observability

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "corndex"

// VenueMetricsRegistry tracks atomic unit outcomes and the pool state left
// behind by committed units.
type VenueMetricsRegistry struct {
	units    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	reserves *prometheus.GaugeVec
	price    prometheus.Gauge
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	venueMetricsOnce sync.Once
	venueRegistry    *VenueMetricsRegistry

	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics
)

// VenueMetrics returns the lazily-initialised venue metrics registry.
func VenueMetrics() *VenueMetricsRegistry {
	venueMetricsOnce.Do(func() {
		venueRegistry = &VenueMetricsRegistry{
			units: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "venue",
				Name:      "units_total",
				Help:      "Atomic units executed segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "venue",
				Name:      "errors_total",
				Help:      "Rolled back units segmented by operation and failure kind.",
			}, []string{"op", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "venue",
				Name:      "unit_duration_seconds",
				Help:      "Latency distribution for atomic units.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "reserve",
				Help:      "Pool reserves in whole asset units.",
			}, []string{"asset"}),
			price: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "price",
				Help:      "CORN price of one native unit.",
			}),
		}
		prometheus.MustRegister(
			venueRegistry.units,
			venueRegistry.errors,
			venueRegistry.latency,
			venueRegistry.reserves,
			venueRegistry.price,
		)
	})
	return venueRegistry
}

// ObserveUnit records a finished unit. kind is empty for committed units.
func (m *VenueMetricsRegistry) ObserveUnit(op, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	outcome := "committed"
	if kind != "" {
		outcome = "reverted"
		m.errors.WithLabelValues(op, kind).Inc()
	}
	m.units.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// SetPool publishes reserves and price. Values are fixed-point with the given
// decimals.
func (m *VenueMetricsRegistry) SetPool(baseAsset, quotedAsset string, base, quoted, price *big.Int, decimals int) {
	if m == nil {
		return
	}
	m.reserves.WithLabelValues(normalizeAsset(baseAsset)).Set(toFloat(base, decimals))
	m.reserves.WithLabelValues(normalizeAsset(quotedAsset)).Set(toFloat(quoted, decimals))
	m.price.Set(toFloat(price, decimals))
}

// HTTPMetrics returns the registry for the venue HTTP API.
func HTTPMetrics() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route and outcome.",
			}, []string{"route", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.errors, httpRegistry.latency)
	})
	return httpRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *httpMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

func normalizeAsset(asset string) string {
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}

func toFloat(v *big.Int, decimals int) float64 {
	if v == nil {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), scale).Float64()
	return f
}
