// AngelaMos | 2026
// paypal.go

package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/mystic-backend/internal/config"
	"github.com/carterperez-dev/mystic-backend/internal/core"
)

// PayPalGateway creates PayPal orders; the approve link is the init point.
type PayPalGateway struct {
	client   *paypal.Client
	backURLs BackURLs

	tokenMu sync.Mutex
}

func NewPayPalGateway(cfg config.PaymentConfig) (*PayPalGateway, error) {
	base := paypal.APIBaseLive
	if cfg.PayPalSandbox {
		base = paypal.APIBaseSandBox
	}
	if cfg.PayPalBaseURL != "" {
		base = cfg.PayPalBaseURL
	}

	client, err := paypal.NewClient(cfg.PayPalClientID, cfg.PayPalClientSecret, base)
	if err != nil {
		return nil, fmt.Errorf("init paypal client: %w", err)
	}

	return &PayPalGateway{client: client, backURLs: backURLs(cfg)}, nil
}

func (g *PayPalGateway) Name() string { return ProviderPayPal }

func (g *PayPalGateway) ensureToken(ctx context.Context) error {
	g.tokenMu.Lock()
	defer g.tokenMu.Unlock()

	if g.client.Token != nil {
		return nil
	}
	if _, err := g.client.GetAccessToken(ctx); err != nil {
		return fmt.Errorf("paypal access token: %w: %w", core.ErrPaymentProvider, err)
	}
	return nil
}

func (g *PayPalGateway) CreatePreference(
	ctx context.Context,
	req PreferenceRequest,
) (*Preference, error) {
	if err := g.ensureToken(ctx); err != nil {
		return nil, err
	}

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.Reference,
		Description: req.Title,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: strings.ToUpper(req.Currency),
			Value:    req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))).StringFixed(2),
		},
	}}

	appCtx := &paypal.ApplicationContext{
		ReturnURL: g.backURLs.Success,
		CancelURL: g.backURLs.Failure,
	}

	order, err := g.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, fmt.Errorf("paypal create order: %w: %w", core.ErrPaymentProvider, err)
	}

	for _, link := range order.Links {
		if link.Rel == "approve" {
			return &Preference{ID: order.ID, InitPoint: link.Href}, nil
		}
	}

	return nil, fmt.Errorf("paypal order %s has no approve link: %w", order.ID, core.ErrPaymentProvider)
}
