// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/consultation"
	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type statsFunc func(ctx context.Context) ([]consultation.KindStats, error)

func (f statsFunc) Stats(ctx context.Context) ([]consultation.KindStats, error) { return f(ctx) }

func passthrough(next http.Handler) http.Handler { return next }

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSystemStats(t *testing.T) {
	h := NewHandler(HandlerConfig{
		DBStats: func() sql.DBStats { return sql.DBStats{OpenConnections: 3, InUse: 1} },
		DBPing:  func(context.Context) error { return nil },
		Consultations: statsFunc(func(context.Context) ([]consultation.KindStats, error) {
			return []consultation.KindStats{{
				Kind:   consultation.KindTarot,
				Counts: map[consultation.Status]int{consultation.StatusCompleted: 2},
			}}, nil
		}),
	})

	rec := serve(t, h, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Data.Database.Healthy)
	assert.Equal(t, 3, body.Data.Database.Stats.OpenConnections)
	assert.False(t, body.Data.Redis.Healthy)
	assert.Nil(t, body.Data.Redis.Stats)
	require.Len(t, body.Data.Consultations, 1)
	assert.Equal(t, 2, body.Data.Consultations[0].Counts[consultation.StatusCompleted])
}

func TestConsultationStatsUnavailable(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Consultations: statsFunc(func(context.Context) ([]consultation.KindStats, error) {
			return nil, errors.Join(errors.New("count consultations"), core.ErrStorageUnavailable)
		}),
	})

	rec := serve(t, h, "/admin/stats/consultations")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
