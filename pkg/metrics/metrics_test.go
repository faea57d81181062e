package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Loads.WithLabelValues(ResultSuccess).Inc()
	m.Records.Set(42)
	m.HTTPRequests.WithLabelValues("/api/v1/records", "200").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(ResultSuccess)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gedash_loads_total{result="success"} 1`)
	assert.Contains(t, string(body), "gedash_cached_records 42")
	assert.Contains(t, string(body), `gedash_http_requests_total{code="200",route="/api/v1/records"} 1`)
}

func TestNewIsolatedRegistries(t *testing.T) {
	// two instances must not collide on registration
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
