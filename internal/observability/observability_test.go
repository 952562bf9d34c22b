package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveClassification(OutcomeFallback, "normal")
		c.ObserveCollaborator("classifier", errors.New("x"), time.Second)
		c.BranchFailed("themes")
		c.ThemeConflict("dropped")
		c.CycleDecision("created")
		c.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("test")
	c.ObserveClassification(OutcomeClassified, "nightmare")
	c.ObserveClassification(OutcomeClassified, "nightmare")
	c.BranchFailed("cycles")
	c.ThemeConflict("retried")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Classifications.WithLabelValues(OutcomeClassified, "nightmare")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BranchFailures.WithLabelValues("cycles")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ThemeConflicts.WithLabelValues("retried")))

	// Separate registries never collide.
	assert.NotPanics(t, func() { NewCollector("test") })
}

func TestHTTPMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("test")
	r := chi.NewRouter()
	r.Use(HTTPMiddleware("test", c))
	r.Get("/cycles/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cycles/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/cycles/{id}", "418")))

	rec = httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestSetLevel(t *testing.T) {
	level := zap.NewAtomicLevel()
	require.NoError(t, SetLevel(level, "debug"))
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	require.NoError(t, SetLevel(level, ""))
	assert.Equal(t, zapcore.InfoLevel, level.Level())
	assert.Error(t, SetLevel(level, "loud"))
}

func TestNewLogger(t *testing.T) {
	logger, level, err := NewLogger("production", "warn")
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	_, _, err = NewLogger("development", "nope")
	assert.Error(t, err)
}
