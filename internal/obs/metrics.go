package obs

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsConfig struct {
	KeyTopK           int
	RecomputeInterval time.Duration
}

type Metrics struct {
	registry      *prometheus.Registry
	topk          *TopK
	reads         *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	coalesced     *prometheus.CounterVec
	staleDiscards *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	refetches     *prometheus.CounterVec
	retries       *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	redirects     *prometheus.CounterVec
	backendCalls  *prometheus.CounterVec
	gcEvictions   prometheus.Counter
	entries       prometheus.Gauge
	fetchDuration *prometheus.HistogramVec
}

var (
	defaultMetricsMu sync.RWMutex
	defaultMetrics   *Metrics
)

func SetDefaultMetrics(metrics *Metrics) {
	defaultMetricsMu.Lock()
	defaultMetrics = metrics
	defaultMetricsMu.Unlock()
}

func DefaultMetrics() *Metrics {
	defaultMetricsMu.RLock()
	defer defaultMetricsMu.RUnlock()
	return defaultMetrics
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	registry := prometheus.NewRegistry()

	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_reads_total",
		Help: "Total cache reads by outcome",
	}, []string{"key", "result"})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_fetches_total",
		Help: "Total fetcher invocations by outcome",
	}, []string{"key", "result"})

	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_coalesced_total",
		Help: "Total reads that joined an in-flight fetch",
	}, []string{"key"})

	staleDiscards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_stale_responses_total",
		Help: "Total fetch results discarded by the sequence guard",
	}, []string{"key"})

	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_invalidations_total",
		Help: "Total entries marked stale by invalidation",
	}, []string{"key"})

	refetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_refetches_total",
		Help: "Total refetches scheduled by invalidation",
	}, []string{"key"})

	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_cache_retries_total",
		Help: "Total fetch retries",
	}, []string{"key", "reason"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_mutations_total",
		Help: "Total mutations by error class",
	}, []string{"mutation", "kind"})

	redirects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_auth_redirects_total",
		Help: "Total login redirects scheduled",
	}, []string{"trigger"})

	backendCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxclient_backend_requests_total",
		Help: "Total backend requests by transport and status class",
	}, []string{"transport", "method", "status_class"})

	gcEvictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taxclient_cache_gc_evictions_total",
		Help: "Total entries removed by garbage collection",
	})

	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taxclient_cache_entries",
		Help: "Current number of cache entries",
	})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxclient_cache_fetch_duration_seconds",
		Help:    "Fetch duration including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"key"})

	registry.MustRegister(reads, fetches, coalesced, staleDiscards, invalidations, refetches, retries, mutations, redirects, backendCalls, gcEvictions, entries, fetchDuration)

	return &Metrics{
		registry:      registry,
		topk:          NewTopK(cfg.KeyTopK, cfg.RecomputeInterval),
		reads:         reads,
		fetches:       fetches,
		coalesced:     coalesced,
		staleDiscards: staleDiscards,
		invalidations: invalidations,
		refetches:     refetches,
		retries:       retries,
		mutations:     mutations,
		redirects:     redirects,
		backendCalls:  backendCalls,
		gcEvictions:   gcEvictions,
		entries:       entries,
		fetchDuration: fetchDuration,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) canon(key string) string {
	m.topk.ObserveHit(key)
	return m.topk.Canon(key)
}

func (m *Metrics) RecordRead(key string, result string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(m.canon(key), defaultString(result, "unknown")).Inc()
}

func (m *Metrics) ObserveFetch(key string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	canonKey := m.canon(key)
	result := "success"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(canonKey, result).Inc()
	m.fetchDuration.WithLabelValues(canonKey).Observe(duration.Seconds())
}

func (m *Metrics) RecordCoalesced(key string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(m.canon(key)).Inc()
}

func (m *Metrics) RecordStaleDiscard(key string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(m.canon(key)).Inc()
}

func (m *Metrics) RecordInvalidation(key string, refetched bool) {
	if m == nil {
		return
	}
	canonKey := m.canon(key)
	m.invalidations.WithLabelValues(canonKey).Inc()
	if refetched {
		m.refetches.WithLabelValues(canonKey).Inc()
	}
}

func (m *Metrics) RecordRetry(key string, reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(m.canon(key), defaultString(reason, "unknown")).Inc()
}

func (m *Metrics) RecordMutation(name string, kind string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(defaultString(name, "unnamed"), defaultString(kind, "none")).Inc()
}

func (m *Metrics) RecordRedirect(trigger string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(defaultString(trigger, "unknown")).Inc()
}

func (m *Metrics) RecordBackendCall(transport string, method string, status int) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(transport, method, statusClass(status)).Inc()
}

func (m *Metrics) RecordEviction(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.gcEvictions.Add(float64(count))
}

func (m *Metrics) SetEntries(count int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(count))
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	switch status / 100 {
	case 1:
		return "1xx"
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	default:
		return "5xx"
	}
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
