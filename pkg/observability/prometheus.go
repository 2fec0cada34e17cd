package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/vase/pkg/errors"
)

const namespace = "vase"

// PrometheusHooks implements CodecHooks, CacheHooks and JobHooks by
// recording Prometheus metrics.
type PrometheusHooks struct {
	codecOps      *prometheus.CounterVec
	codecDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	jobStates     *prometheus.CounterVec
	jobDuration   prometheus.Histogram
}

// NewPrometheusHooks creates the metrics and registers them with reg.
// It panics if the metrics are already registered, like MustRegister.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		codecOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codec_operations_total",
			Help:      "Document encode/decode calls by operation and result code.",
		}, []string{"op", "result"}),
		codecDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "codec_duration_seconds",
			Help:      "Time spent encoding or decoding a document.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by driver and outcome.",
		}, []string{"driver", "outcome"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the document cache.",
		}, []string{"driver"}),
		jobStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Job state transitions by target state.",
		}, []string{"state"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from a job starting to run until it finishes or fails.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(h.codecOps, h.codecDuration, h.cacheLookups, h.cacheBytes, h.jobStates, h.jobDuration)
	return h
}

// resultLabel maps an error to a low-cardinality label value.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return "io"
}

func (h *PrometheusHooks) OnDecode(d time.Duration, err error) {
	h.codecOps.WithLabelValues("decode", resultLabel(err)).Inc()
	h.codecDuration.WithLabelValues("decode").Observe(d.Seconds())
}

func (h *PrometheusHooks) OnEncode(d time.Duration, err error) {
	h.codecOps.WithLabelValues("encode", resultLabel(err)).Inc()
	h.codecDuration.WithLabelValues("encode").Observe(d.Seconds())
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, driver string) {
	h.cacheLookups.WithLabelValues(driver, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, driver string) {
	h.cacheLookups.WithLabelValues(driver, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, driver string, size int) {
	h.cacheBytes.WithLabelValues(driver).Add(float64(size))
}

func (h *PrometheusHooks) OnJobTransition(_ context.Context, _ string, state string) {
	h.jobStates.WithLabelValues(state).Inc()
}

func (h *PrometheusHooks) OnJobComplete(_ context.Context, _ string, d time.Duration, _ error) {
	h.jobDuration.Observe(d.Seconds())
}

var (
	_ CodecHooks = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
	_ JobHooks   = (*PrometheusHooks)(nil)
)
