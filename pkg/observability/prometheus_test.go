package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/vase/pkg/errors"
)

func TestPrometheusHooksCodec(t *testing.T) {
	h := NewPrometheusHooks(prometheus.NewRegistry())

	h.OnDecode(time.Millisecond, nil)
	h.OnDecode(time.Millisecond, nil)
	h.OnDecode(time.Millisecond, errors.New(errors.ErrCodeTypeMismatch, "column x is not numeric"))
	h.OnDecode(time.Millisecond, fmt.Errorf("read: %w", context.Canceled))
	h.OnEncode(time.Millisecond, nil)

	tests := []struct {
		op, result string
		want       float64
	}{
		{"decode", "ok", 2},
		{"decode", "TYPE_MISMATCH", 1},
		{"decode", "io", 1},
		{"encode", "ok", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(h.codecOps.WithLabelValues(tt.op, tt.result))
		if got != tt.want {
			t.Errorf("codec_operations_total{op=%q,result=%q} = %v, want %v", tt.op, tt.result, got, tt.want)
		}
	}
}

func TestPrometheusHooksCacheAndJobs(t *testing.T) {
	ctx := context.Background()
	h := NewPrometheusHooks(prometheus.NewRegistry())

	h.OnCacheHit(ctx, "file")
	h.OnCacheMiss(ctx, "file")
	h.OnCacheMiss(ctx, "file")
	h.OnCacheSet(ctx, "file", 512)
	h.OnCacheSet(ctx, "file", 512)

	if got := testutil.ToFloat64(h.cacheLookups.WithLabelValues("file", "miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.cacheBytes.WithLabelValues("file")); got != 1024 {
		t.Errorf("written bytes = %v, want 1024", got)
	}

	h.OnJobTransition(ctx, "a", "QUEUED")
	h.OnJobTransition(ctx, "a", "RUNNING")
	h.OnJobTransition(ctx, "b", "QUEUED")
	h.OnJobComplete(ctx, "a", time.Second, nil)

	if got := testutil.ToFloat64(h.jobStates.WithLabelValues("QUEUED")); got != 2 {
		t.Errorf("QUEUED transitions = %v, want 2", got)
	}
}

func TestPrometheusHooksDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusHooks(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on the same registry should panic")
		}
	}()
	NewPrometheusHooks(reg)
}
