package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func disabledSnapshot() goSession.MetricsSnapshot {
	return goSession.MetricsSnapshot{
		Counters:   map[goSession.MetricID]uint64{},
		Histograms: map[goSession.MetricID][]uint64{},
	}
}

func TestCollectorOnlyAuditDroppedWhenDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: disabledSnapshot(), dropped: 3})

	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "gosession_audit_dropped_total"))
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess:  7,
				goSession.MetricLoginFailure:  0,
				goSession.MetricLogout:        2,
				goSession.MetricCleanupFailed: 1,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP gosession_login_success_total Successful logins.
# TYPE gosession_login_success_total counter
gosession_login_success_total 7
# HELP gosession_logout_total Logouts that removed a session.
# TYPE gosession_logout_total counter
gosession_logout_total 2
# HELP gosession_audit_dropped_total Audit events dropped under dispatcher backpressure.
# TYPE gosession_audit_dropped_total counter
gosession_audit_dropped_total 2
# HELP gosession_validate_latency_seconds Validate latency.
# TYPE gosession_validate_latency_seconds histogram
gosession_validate_latency_seconds_bucket{le="0.005"} 1
gosession_validate_latency_seconds_bucket{le="0.01"} 3
gosession_validate_latency_seconds_bucket{le="0.025"} 6
gosession_validate_latency_seconds_bucket{le="0.05"} 10
gosession_validate_latency_seconds_bucket{le="0.1"} 15
gosession_validate_latency_seconds_bucket{le="0.25"} 21
gosession_validate_latency_seconds_bucket{le="0.5"} 28
gosession_validate_latency_seconds_bucket{le="+Inf"} 36
gosession_validate_latency_seconds_sum 0
gosession_validate_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gosession_login_success_total",
		"gosession_logout_total",
		"gosession_audit_dropped_total",
		"gosession_validate_latency_seconds",
	)
	require.NoError(t, err)
}

func TestCollectorPassesLint(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: disabledSnapshot()})
	problems, err := testutil.CollectAndLint(c)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestCollectorWithEngine(t *testing.T) {
	m := goSession.NewMetrics(goSession.MetricsConfig{Enabled: true})
	m.Add(goSession.MetricSessionRevoked, 4)

	c := NewCollectorFromSource(metricsOnly{m})

	expected := `
# HELP gosession_session_revoked_total Prior sessions removed by single-session enforcement or admin revoke.
# TYPE gosession_session_revoked_total counter
gosession_session_revoked_total 4
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "gosession_session_revoked_total"))
}

type metricsOnly struct{ m *goSession.Metrics }

func (s metricsOnly) MetricsSnapshot() goSession.MetricsSnapshot { return s.m.Snapshot() }
func (s metricsOnly) AuditDropped() uint64                       { return 0 }

func TestHandlerServesExposition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricLoginSuccess: 1},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gosession_login_success_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
