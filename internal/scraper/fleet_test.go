package scraper

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStatsReturnsEmptyArrayBeforeFirstTick(t *testing.T) {
	f := NewFleet(nil, nil, nil)
	mux := http.NewServeMux()
	f.ServeHTTP(mux)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var elements []StatElement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elements))
	assert.Empty(t, elements)
}

func TestHandleStatsReflectsTickSnapshot(t *testing.T) {
	sv := newTestSupervisor(t)
	f := NewFleet([]*Supervisor{sv}, nil, nil)
	f.tick()

	mux := http.NewServeMux()
	f.ServeHTTP(mux)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var elements []StatElement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elements))
	require.Len(t, elements, 1)
	assert.Equal(t, "kiwi1_14097", elements[0].Name)
	assert.Equal(t, "20m", elements[0].Band)
}

func TestHealthzBeforeStartIsUnavailable(t *testing.T) {
	f := NewFleet(nil, nil, nil)
	mux := http.NewServeMux()
	f.ServeHTTP(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthzAfterStartedIsOK(t *testing.T) {
	f := NewFleet(nil, nil, nil)
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()

	mux := http.NewServeMux()
	f.ServeHTTP(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStopWithNoSupervisorsIsSafe(t *testing.T) {
	f := NewFleet(nil, nil, nil)
	assert.NotPanics(t, func() { f.Stop() })
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	f := NewFleet(nil, nil, nil)
	mux := http.NewServeMux()
	f.ServeHTTP(mux)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kiwiscrape_host_cpu_percent")
}
