// AngelaMos | 2026
// gateway_test.go

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/config"
	"github.com/carterperez-dev/mystic-backend/internal/core"
)

func preferenceRequest() PreferenceRequest {
	return PreferenceRequest{
		Reference:   "pay-1",
		Title:       "Leitura de Tarot - 3 perguntas",
		Description: "Tarot reading",
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("7.00"),
		Currency:    "BRL",
		PayerEmail:  "ana@example.com",
	}
}

func TestMercadoPagoCreatePreference(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer mp-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-123","init_point":"https://mp.example/checkout?pref=pref-123"}`))
	}))
	t.Cleanup(srv.Close)

	gw := NewMercadoPagoGateway(config.PaymentConfig{
		BaseURL:     srv.URL,
		AccessToken: "mp-token",
		SuccessURL:  "https://app.example/success",
	})

	pref, err := gw.CreatePreference(context.Background(), preferenceRequest())
	require.NoError(t, err)
	assert.Equal(t, "pref-123", pref.ID)
	assert.Equal(t, "https://mp.example/checkout?pref=pref-123", pref.InitPoint)

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Leitura de Tarot - 3 perguntas", item["title"])
	assert.Equal(t, float64(1), item["quantity"])
	assert.InDelta(t, 7.0, item["unit_price"], 0.0001)
	assert.Equal(t, "pay-1", got["external_reference"])
	assert.Equal(t, "approved", got["auto_return"])
	assert.Equal(t, "ana@example.com", got["payer"].(map[string]any)["email"])
}

func TestMercadoPagoProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid access token","error":"unauthorized"}`))
	}))
	t.Cleanup(srv.Close)

	gw := NewMercadoPagoGateway(config.PaymentConfig{BaseURL: srv.URL})

	_, err := gw.CreatePreference(context.Background(), preferenceRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPaymentProvider)
	assert.Contains(t, err.Error(), "invalid access token")
}

func TestPayPalCreatePreference(t *testing.T) {
	var order map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"pp-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pp-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&order))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "ORDER-9",
			"status": "CREATED",
			"links": [
				{"href": "https://paypal.example/orders/ORDER-9", "rel": "self", "method": "GET"},
				{"href": "https://paypal.example/approve?token=ORDER-9", "rel": "approve", "method": "GET"}
			]
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gw, err := NewPayPalGateway(config.PaymentConfig{
		PayPalClientID:     "id",
		PayPalClientSecret: "secret",
		PayPalBaseURL:      srv.URL,
	})
	require.NoError(t, err)

	pref, err := gw.CreatePreference(context.Background(), preferenceRequest())
	require.NoError(t, err)
	assert.Equal(t, "ORDER-9", pref.ID)
	assert.Equal(t, "https://paypal.example/approve?token=ORDER-9", pref.InitPoint)

	units := order["purchase_units"].([]any)
	require.Len(t, units, 1)
	amount := units[0].(map[string]any)["amount"].(map[string]any)
	assert.Equal(t, "7.00", amount["value"])
	assert.Equal(t, "BRL", amount["currency_code"])
}

func TestMapProviderStatus(t *testing.T) {
	tests := map[string]Status{
		"approved":     StatusApproved,
		"COMPLETED":    StatusApproved,
		"rejected":     StatusFailed,
		"cancelled":    StatusFailed,
		"refunded":     StatusRefunded,
		"charged_back": StatusRefunded,
		"in_process":   StatusPending,
		"":             StatusPending,
	}

	for input, want := range tests {
		assert.Equal(t, want, MapProviderStatus(input), input)
	}
}

func TestMercadoPagoLookupPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/1234567", r.URL.Path)
		assert.Equal(t, "Bearer mp-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1234567,"status":"approved","external_reference":"pay-1"}`))
	}))
	t.Cleanup(srv.Close)

	gw := NewMercadoPagoGateway(config.PaymentConfig{BaseURL: srv.URL, AccessToken: "mp-token"})

	p, err := gw.LookupPayment(context.Background(), "1234567")
	require.NoError(t, err)
	assert.Equal(t, &ProviderPayment{ID: "1234567", Reference: "pay-1", Status: "approved"}, p)
}

func TestMercadoPagoLookupPaymentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Payment not found","error":"not_found"}`))
	}))
	t.Cleanup(srv.Close)

	gw := NewMercadoPagoGateway(config.PaymentConfig{BaseURL: srv.URL})

	_, err := gw.LookupPayment(context.Background(), "404")
	assert.ErrorIs(t, err, core.ErrPaymentProvider)
}
