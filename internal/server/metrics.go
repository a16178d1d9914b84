// Prometheus metrics owned by the HTTP server and the helpers handlers use
// to record them.

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/kbchat-go/internal/chat"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts answered /api/chat requests, partitioned by
	// source ("model" or "fallback") and fallback reason.
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the end-to-end duration of each chat turn,
	// including the completion call.
	chatDurationSeconds *prometheus.HistogramVec

	// retrievalMatches records how many knowledge entries were used as
	// context per chat turn.
	retrievalMatches prometheus.Histogram

	// fallbackRulesTotal counts fallback replies by the rule that produced them.
	fallbackRulesTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) registers into the provided
// registry rather than the global default, keeping unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbchat",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of chat turns answered, partitioned by source and fallback reason.",
		}, []string{"source", "reason"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kbchat",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "End-to-end duration of chat turns, including the completion call.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 15},
		}, []string{"source"}),

		retrievalMatches: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kbchat",
			Subsystem: "retrieval",
			Name:      "matches",
			Help:      "Number of knowledge entries used as context per chat turn.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),

		fallbackRulesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbchat",
			Subsystem: "fallback",
			Name:      "replies_total",
			Help:      "Total number of fallback replies, partitioned by the rule that produced them.",
		}, []string{"rule"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kbchat",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observeChat records one answered chat turn.
func (m *serverMetrics) observeChat(resp chat.Response) {
	m.chatRequestsTotal.WithLabelValues(string(resp.Source), string(resp.Reason)).Inc()
	m.chatDurationSeconds.WithLabelValues(string(resp.Source)).Observe(resp.Duration.Seconds())
	m.retrievalMatches.Observe(float64(len(resp.Matches)))
	if resp.Source == chat.SourceFallback {
		m.fallbackRulesTotal.WithLabelValues(resp.Rule).Inc()
	}
}

// instrument wraps next so every request is counted and timed under the
// given logical handler name.
func (m *serverMetrics) instrument(handler string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rw, r)
		m.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
	})
}
