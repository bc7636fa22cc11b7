package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterMetricsSnapshot(t *testing.T) {
	recorder := NewCounterMetrics()
	recorder.Increment("whoop.sync.success")
	recorder.Increment("whoop.sync.success")
	recorder.Increment("auth.login.failure")

	require.Equal(t, int64(2), recorder.Count("whoop.sync.success"))
	snapshot := recorder.Snapshot()
	require.Equal(t, map[string]int64{"whoop.sync.success": 2, "auth.login.failure": 1}, snapshot)

	snapshot["whoop.sync.success"] = 100
	require.Equal(t, int64(2), recorder.Count("whoop.sync.success"))
}

func TestPrometheusMetricsHandler(t *testing.T) {
	recorder := NewPrometheusMetrics("lifecrm")
	recorder.Increment("whoop.token.refresh")

	server := httptest.NewServer(recorder.Handler())
	defer server.Close()

	response, err := http.Get(server.URL)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `lifecrm_events_total{event="whoop.token.refresh"} 1`)
}

func TestCaptureErrorWithoutSentryIsSafe(t *testing.T) {
	require.NoError(t, InitSentry("", "test"))
	CaptureError("test.code", io.EOF)
	CaptureError("test.code", nil)
}
