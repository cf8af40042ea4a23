package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fpierr/zikauth"
)

type fakeSource struct {
	snapshot zikauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() zikauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: zikauth.MetricsSnapshot{
			Counters:   map[zikauth.MetricID]uint64{},
			Histograms: map[zikauth.MetricID][]uint64{},
		},
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestCollectCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: zikauth.MetricsSnapshot{
			Counters: map[zikauth.MetricID]uint64{
				zikauth.MetricLoginSuccess:     7,
				zikauth.MetricAuthCSRFMismatch: 3,
			},
			Histograms: map[zikauth.MetricID][]uint64{
				zikauth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := scrape(t, c)
	assert.Contains(t, out, "zikauth_login_success_total 7")
	assert.Contains(t, out, "zikauth_authenticate_csrf_mismatch_total 3")
	assert.Contains(t, out, "zikauth_refresh_reuse_detected_total 0")
	assert.Contains(t, out, `zikauth_authenticate_latency_seconds_bucket{le="0.005"} 1`)
	assert.Contains(t, out, `zikauth_authenticate_latency_seconds_bucket{le="0.5"} 28`)
	assert.Contains(t, out, `zikauth_authenticate_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, out, "zikauth_authenticate_latency_seconds_count 36")
	assert.Contains(t, out, "zikauth_audit_dropped_total 2")
}

func TestCollectorRegistersCleanly(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(fakeSource{})))
	assert.Error(t, reg.Register(NewCollectorFromSource(fakeSource{})), "duplicate descriptors are rejected")
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: zikauth.MetricsSnapshot{
			Counters: map[zikauth.MetricID]uint64{
				zikauth.MetricAuthSuccess:    10000,
				zikauth.MetricLoginSuccess:   1000,
				zikauth.MetricLoginFailure:   40,
				zikauth.MetricRefreshSuccess: 800,
				zikauth.MetricSessionCreated: 1800,
			},
			Histograms: map[zikauth.MetricID][]uint64{
				zikauth.MetricAuthenticateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Gather()
	}
}
