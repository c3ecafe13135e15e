package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/jwt"
)

type fakeSource struct {
	snapshot tokenguard.MetricsSnapshot
}

func (f fakeSource) MetricsSnapshot() tokenguard.MetricsSnapshot { return f.snapshot }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters:   map[tokenguard.MetricID]uint64{},
			Histograms: map[tokenguard.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters: map[tokenguard.MetricID]uint64{
				tokenguard.MetricAuthorized: 7,
			},
			Histograms: map[tokenguard.MetricID][]uint64{
				tokenguard.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	out := exp.Render()
	if !strings.Contains(out, "tokenguard_authorized_total 7") {
		t.Fatalf("expected authorized counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tokenguard_rejected_session_revoked_total 0") {
		t.Fatalf("expected zero-valued counters in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tokenguard_authorize_latency_seconds_bucket{le=\"0.001\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tokenguard_authorize_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
}

func TestRenderOmitsHistogramWhenLatencyDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters:   map[tokenguard.MetricID]uint64{tokenguard.MetricAuthorized: 1},
			Histograms: map[tokenguard.MetricID][]uint64{},
		},
	})
	if strings.Contains(exp.Render(), "latency") {
		t.Fatal("histogram rendered without samples")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters:   map[tokenguard.MetricID]uint64{tokenguard.MetricLoginAttempt: 1},
			Histograms: map[tokenguard.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExporterReadsLiveEngine(t *testing.T) {
	priv, pub, err := jwt.GenerateKeyPairPEM(jwt.ES256)
	require.NoError(t, err)
	cfg := tokenguard.DefaultConfig()
	cfg.JWT.Algorithm = string(jwt.ES256)
	cfg.JWT.PrivateKeyPEM, cfg.JWT.PublicKeyPEM = priv, pub

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := tokenguard.New().WithConfig(cfg).WithRedis(rdb).WithLogger(zerolog.Nop()).Build()
	require.NoError(t, err)

	_, _ = engine.Authorize(context.Background(), "")
	out := NewPrometheusExporter(engine).Render()
	assert.Contains(t, out, "tokenguard_rejected_no_token_total 1")
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenguard.MetricsSnapshot{
			Counters: map[tokenguard.MetricID]uint64{
				tokenguard.MetricSessionIssued:          1000,
				tokenguard.MetricRefreshSuccess:         800,
				tokenguard.MetricRefreshFailure:         10,
				tokenguard.MetricAuthorized:             90000,
				tokenguard.MetricRejectedSessionRevoked: 20,
				tokenguard.MetricLoginBlocked:           3,
			},
			Histograms: map[tokenguard.MetricID][]uint64{
				tokenguard.MetricAuthorizeLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
