package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_submissions_total",
			Help: "Transaction submissions by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	secondaryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_secondary_failures_total",
			Help: "Tolerated post-create failures by effect (balance, sync, push).",
		},
		[]string{"effect"},
	)

	syncDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_events_dropped_total",
		Help: "Outbound sync events dropped by the client-side rate limiter.",
	})

	pushDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_alerts_dropped_total",
		Help: "Push alerts dropped by the client-side rate limiter.",
	})

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Backend API round-trip latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers the client metrics in the default registry.
func Init() {
	prometheus.MustRegister(submissionsTotal, secondaryFailuresTotal, syncDroppedTotal, pushDroppedTotal, apiRequestDuration)
}

// Handler exposes the registry for embedding hosts that scrape metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountSubmission records one submission outcome.
func CountSubmission(kind, outcome string) {
	submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

// CountSecondaryFailure records a tolerated post-create failure.
func CountSecondaryFailure(effect string) {
	secondaryFailuresTotal.WithLabelValues(effect).Inc()
}

// CountSyncDropped records an outbound sync event dropped under rate pressure.
func CountSyncDropped() {
	syncDroppedTotal.Inc()
}

// CountPushDropped records a push alert dropped under rate pressure.
func CountPushDropped() {
	pushDroppedTotal.Inc()
}

// InstrumentTransport wraps an http.RoundTripper with latency metrics.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		duration := time.Since(start).Seconds()

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		apiRequestDuration.WithLabelValues(req.Method, CanonicalPath(req.URL.Path), status).Observe(duration)
		return resp, err
	})
}

// CanonicalPath collapses resource identifiers in API paths so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segs := strings.Split(path, "/")
	for i := 1; i < len(segs); i++ {
		switch segs[i-1] {
		case "assets", "books", "ledgers":
			if isResourceID(segs[i]) {
				segs[i] = ":id"
			}
		}
	}
	return strings.Join(segs, "/")
}

func isResourceID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
