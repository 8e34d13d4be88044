// AngelaMos | 2026
// mercadopago.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carterperez-dev/mystic-backend/internal/config"
	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type MercadoPagoGateway struct {
	baseURL         string
	accessToken     string
	notificationURL string
	backURLs        BackURLs
	httpClient      *http.Client
}

func NewMercadoPagoGateway(cfg config.PaymentConfig) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		accessToken:     cfg.AccessToken,
		notificationURL: cfg.NotificationURL,
		backURLs:        backURLs(cfg),
		httpClient:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *MercadoPagoGateway) Name() string { return ProviderMercadoPago }

type mpItem struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Quantity    int         `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	CurrencyID  string      `json:"currency_id"`
}

type mpPayer struct {
	Email string `json:"email,omitempty"`
}

type mpBackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type mpPreferenceRequest struct {
	Items             []mpItem    `json:"items"`
	Payer             *mpPayer    `json:"payer,omitempty"`
	ExternalReference string      `json:"external_reference"`
	BackURLs          *mpBackURLs `json:"back_urls,omitempty"`
	AutoReturn        string      `json:"auto_return,omitempty"`
	NotificationURL   string      `json:"notification_url,omitempty"`
}

type mpPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mpError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (g *MercadoPagoGateway) CreatePreference(
	ctx context.Context,
	req PreferenceRequest,
) (*Preference, error) {
	body := mpPreferenceRequest{
		Items: []mpItem{{
			Title:       req.Title,
			Description: req.Description,
			Quantity:    req.Quantity,
			UnitPrice:   json.Number(req.UnitPrice.StringFixed(2)),
			CurrencyID:  req.Currency,
		}},
		ExternalReference: req.Reference,
		NotificationURL:   g.notificationURL,
	}
	if req.PayerEmail != "" {
		body.Payer = &mpPayer{Email: req.PayerEmail}
	}
	if g.backURLs.Success != "" {
		body.BackURLs = &mpBackURLs{
			Success: g.backURLs.Success,
			Failure: g.backURLs.Failure,
			Pending: g.backURLs.Pending,
		}
		body.AutoReturn = "approved"
	}

	var out mpPreferenceResponse
	if err := g.call(ctx, http.MethodPost, "/checkout/preferences", req.Reference, body, &out); err != nil {
		return nil, fmt.Errorf("mercadopago preference: %w", err)
	}
	if out.ID == "" || out.InitPoint == "" {
		return nil, fmt.Errorf("mercadopago preference: incomplete response: %w", core.ErrPaymentProvider)
	}

	return &Preference{ID: out.ID, InitPoint: out.InitPoint}, nil
}

type mpPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// LookupPayment reads a payment by the id Mercado Pago sends in its
// notifications, which carry neither status nor external_reference.
func (g *MercadoPagoGateway) LookupPayment(ctx context.Context, externalID string) (*ProviderPayment, error) {
	var out mpPayment
	if err := g.call(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(externalID), "", nil, &out); err != nil {
		return nil, fmt.Errorf("mercadopago payment %s: %w", externalID, err)
	}

	return &ProviderPayment{
		ID:        out.ID.String(),
		Reference: out.ExternalReference,
		Status:    out.Status,
	}, nil
}

// call sends body as JSON when it is not nil and decodes the reply into out.
// Every failure wraps core.ErrPaymentProvider.
func (g *MercadoPagoGateway) call(
	ctx context.Context,
	method, path, idempotencyKey string,
	body, out any,
) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	if idempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPaymentProvider, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPaymentProvider, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr mpError
		_ = json.Unmarshal(raw, &apiErr) //nolint:errcheck // message is optional
		return fmt.Errorf("status %d %s: %w", resp.StatusCode, apiErr.Message, core.ErrPaymentProvider)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode: %w: %w", core.ErrPaymentProvider, err)
	}
	return nil
}
