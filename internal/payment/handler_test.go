// AngelaMos | 2026
// handler_test.go

package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/carterperez-dev/mystic-backend/internal/consultation"
	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/middleware"
)

type userTokens struct{}

func (userTokens) VerifyAccessToken(_ context.Context, token string) (*middleware.AccessTokenClaims, error) {
	return &middleware.AccessTokenClaims{
		UserID:    token,
		Role:      "user",
		TokenID:   "jti-" + token,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func newTestRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, middleware.Authenticator(userTokens{}))
	return r
}

func do(h http.Handler, method, path, token, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerPreferenceRequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := do(newTestRouter(f), http.MethodPost, "/payments/preference", "",
		`{"consultation_kind":"tarot","consultation_id":"`+consultationID+`"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerPreferenceValidation(t *testing.T) {
	f := newFixture(t)
	rec := do(newTestRouter(f), http.MethodPost, "/payments/preference", "user-1",
		`{"consultation_kind":"palmistry","consultation_id":"nope"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "consultation_kind")
}

func TestHandlerPreferenceForeignConsultation(t *testing.T) {
	f := newFixture(t)
	f.cons.On("Get", mock.Anything, "user-2", consultation.KindTarot, consultationID).
		Return(nil, core.ErrNotFound)

	rec := do(newTestRouter(f), http.MethodPost, "/payments/preference", "user-2",
		`{"consultation_kind":"tarot","consultation_id":"`+consultationID+`"}`, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	f.cons.AssertExpectations(t)
}

func TestHandlerWebhookSecret(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)
	payload := `{"data":{"external_reference":"p-1","id":"mp-9","status":"approved"}}`

	rec := do(router, http.MethodPost, "/payments/webhook", "", payload,
		map[string]string{WebhookSecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(router, http.MethodPost, "/payments/webhook", "", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.NoError(t, f.sql.ExpectationsWereMet())
}
