package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Token lifecycle
	TokenExchangesTotal        *prometheus.CounterVec
	TokenRefreshesTotal        *prometheus.CounterVec
	TokenConversionsTotal      *prometheus.CounterVec
	ConversionCacheHitsTotal   prometheus.Counter
	RefreshSweepDuration       prometheus.Histogram
	InstallationsTotal         prometheus.Gauge
	InstallationsNeedingReauth prometheus.Gauge

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns a Prometheus-backed Recorder when enabled, otherwise a
// zero-overhead noop. Prometheus metrics are registered at most once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		TokenExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_exchanges_total",
				Help: "Total number of authorization-code exchanges",
			},
			[]string{"result"}, // success, error
		),
		TokenRefreshesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_refreshes_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"}, // success, terminal, transient
		),
		TokenConversionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_location_token_conversions_total",
				Help: "Total number of Company-to-Location token conversions",
			},
			[]string{"result"}, // success, unauthorized, failed
		),
		ConversionCacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_location_token_cache_hits_total",
				Help: "Conversions answered from the cached Location token",
			},
		),
		RefreshSweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_refresh_sweep_duration_seconds",
				Help:    "Duration of the periodic token refresh sweep",
				Buckets: prometheus.DefBuckets,
			},
		),
		InstallationsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "oauth_installations_total",
				Help: "Number of known installations",
			},
		),
		InstallationsNeedingReauth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "oauth_installations_needing_reauthorization",
				Help: "Installations whose refresh token was rejected",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

func (m *Metrics) RecordExchange(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.TokenExchangesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRefresh(result string) {
	m.TokenRefreshesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordConversion(result string) {
	m.TokenConversionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordConversionCacheHit() {
	m.ConversionCacheHitsTotal.Inc()
}

func (m *Metrics) RecordSweep(duration time.Duration) {
	m.RefreshSweepDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetInstallationsCount(total, needsReauth int) {
	m.InstallationsTotal.Set(float64(total))
	m.InstallationsNeedingReauth.Set(float64(needsReauth))
}
