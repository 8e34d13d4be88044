// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	healthy = pingFunc(func(context.Context) error { return nil })
	failing = pingFunc(func(context.Context) error { return errors.New("down") })
)

func readiness(t *testing.T, h *Handler) (int, ReadinessResponse) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadinessAllHealthy(t *testing.T) {
	code, body := readiness(t, NewHandler(
		Dependency{Name: "database", Checker: healthy},
		Dependency{Name: "redis", Checker: healthy},
	))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "database", body.Checks[0].Name)
}

func TestReadinessOptionalFailureIsDegraded(t *testing.T) {
	code, body := readiness(t, NewHandler(
		Dependency{Name: "database", Checker: failing},
		Dependency{Name: "archive"},
	))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "not configured", body.Checks[1].Message)
}

func TestReadinessRequiredFailure(t *testing.T) {
	code, body := readiness(t, NewHandler(
		Dependency{Name: "redis", Checker: failing, Required: true},
	))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body.Status)
}

func TestShutdownFailsReadiness(t *testing.T) {
	h := NewHandler()
	h.SetShutdown(true)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "shutting_down")
	}
}
