package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/3leaps/bucketwalk/pkg/walker"
)

const namespace = "bucketwalk"

// Metrics owns a Prometheus registry with walk and HTTP collectors.
//
// Metrics implements walker.Observer, so one instance can be attached to
// every walker the process creates.
type Metrics struct {
	reg *prometheus.Registry

	listings        prometheus.Counter
	listingDuration prometheus.Histogram
	keysSeen        prometheus.Counter
	prefixesSeen    prometheus.Counter
	retries         *prometheus.CounterVec
	prefixFailures  *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	runKeys         prometheus.Histogram

	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ walker.Observer = (*Metrics)(nil)

// NewMetrics creates a Metrics instance with a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		listings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "listings_total",
			Help:      "Successful prefix listings.",
		}),
		listingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "listing_duration_seconds",
			Help:      "Latency of successful prefix listings, including pagination.",
			Buckets:   prometheus.DefBuckets,
		}),
		keysSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "leaf_entries_total",
			Help:      "Leaf entries returned by listings, before de-duplication.",
		}),
		prefixesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "directory_entries_total",
			Help:      "Directory entries returned by listings, before de-duplication.",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "retries_total",
			Help:      "Listing retries, partitioned by error kind.",
		}, []string{"kind"}),
		prefixFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "prefix_failures_total",
			Help:      "Prefixes abandoned after retries, partitioned by error kind.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "runs_total",
			Help:      "Finished enumerations, partitioned by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished enumerations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		runKeys: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "walker",
			Name:      "run_keys",
			Help:      "Unique keys discovered per enumeration.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 9),
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of inflight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests processed, partitioned by status code and method.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}

	reg.MustRegister(
		m.listings, m.listingDuration, m.keysSeen, m.prefixesSeen,
		m.retries, m.prefixFailures, m.runs, m.runDuration, m.runKeys,
		m.inflight, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Listed(_ string, leaves, dirs int, elapsed time.Duration) {
	m.listings.Inc()
	m.listingDuration.Observe(elapsed.Seconds())
	m.keysSeen.Add(float64(leaves))
	m.prefixesSeen.Add(float64(dirs))
}

func (m *Metrics) Retried(_ string, _ int, err error, _ time.Duration) {
	m.retries.WithLabelValues(walker.Classify(err).String()).Inc()
}

func (m *Metrics) PrefixFailed(_ string, err error) {
	m.prefixFailures.WithLabelValues(walker.Classify(err).String()).Inc()
}

func (m *Metrics) Finished(res *walker.Result) {
	if res == nil {
		return
	}
	m.runs.WithLabelValues(string(res.Status)).Inc()
	m.runDuration.Observe(res.Stats.Duration.Seconds())
	m.runKeys.Observe(float64(len(res.Keys)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records inflight requests, request counts and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		m.requests.WithLabelValues(code, r.Method).Inc()
		m.latency.WithLabelValues(code, r.Method).Observe(time.Since(start).Seconds())
	})
}
