// AngelaMos | 2026
// gateway.go

package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

const (
	ProviderMercadoPago = "mercadopago"
	ProviderPayPal      = "paypal"
	MethodManual        = "manual"
)

type PreferenceRequest struct {
	// Reference is echoed back by the gateway in webhooks.
	Reference   string
	Title       string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Currency    string
	PayerEmail  string
}

type Preference struct {
	ID        string
	InitPoint string
}

// Gateway creates hosted checkout sessions. Implementations wrap every
// failure in core.ErrPaymentProvider and never retry.
type Gateway interface {
	Name() string
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}

// ProviderPayment is the gateway's view of one payment.
type ProviderPayment struct {
	ID        string
	Reference string
	Status    string
}

// PaymentLookup is implemented by gateways whose callbacks only name the
// provider's payment id.
type PaymentLookup interface {
	LookupPayment(ctx context.Context, externalID string) (*ProviderPayment, error)
}

type BackURLs struct {
	Success string
	Failure string
	Pending string
}

func backURLs(cfg config.PaymentConfig) BackURLs {
	return BackURLs{
		Success: cfg.SuccessURL,
		Failure: cfg.FailureURL,
		Pending: cfg.PendingURL,
	}
}

// NewGateway builds the gateway named by cfg.Provider.
func NewGateway(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case ProviderMercadoPago:
		return NewMercadoPagoGateway(cfg), nil
	case ProviderPayPal:
		return NewPayPalGateway(cfg)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
