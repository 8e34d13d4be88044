// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/mystic-backend/internal/consultation"
	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/notify"
)

const tracerName = "github.com/carterperez-dev/mystic-backend/internal/payment"

var paymentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mystic_payments_total",
		Help: "Payment status transitions by provider",
	},
	[]string{"method", "status"},
)

// Consultations is the read side of the consultation service the payment
// flow needs.
type Consultations interface {
	Get(ctx context.Context, requesterID string, kind consultation.Kind, id string) (*consultation.Consultation, error)
	Feature(kind consultation.Kind) (*consultation.Feature, error)
}

// UserLookup resolves the payer email for the gateway. Optional.
type UserLookup interface {
	Email(ctx context.Context, userID string) (string, error)
}

type ServiceConfig struct {
	DB            *sqlx.DB
	Consultations Consultations
	Gateway       Gateway
	Notifier      notify.Notifier
	Users         UserLookup
	Currency      string
	WebhookSecret string
	Logger        *slog.Logger
}

type Service struct {
	db            *sqlx.DB
	repo          Repository
	consultations Consultations
	gateway       Gateway
	notifier      notify.Notifier
	users         UserLookup
	currency      string
	webhookSecret string
	logger        *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		db:            cfg.DB,
		consultations: cfg.Consultations,
		gateway:       cfg.Gateway,
		notifier:      cfg.Notifier,
		users:         cfg.Users,
		currency:      cfg.Currency,
		webhookSecret: cfg.WebhookSecret,
		logger:        cfg.Logger,
	}
	var db core.DBTX
	if cfg.DB != nil {
		db = cfg.DB
	}
	s.repo = NewRepository(db)
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger)
	}
	if s.currency == "" {
		s.currency = "BRL"
	}
	return s
}

func (s *Service) available() error {
	if s.db == nil {
		return fmt.Errorf("payments: %w", core.ErrStorageUnavailable)
	}
	return nil
}

// payable loads a consultation owned by the requester and checks it can be
// charged.
func (s *Service) payable(
	ctx context.Context,
	requesterID string,
	kind consultation.Kind,
	consultationID string,
) (*consultation.Consultation, *consultation.Feature, error) {
	feature, err := s.consultations.Feature(kind)
	if err != nil {
		return nil, nil, err
	}

	c, err := s.consultations.Get(ctx, requesterID, kind, consultationID)
	if err != nil {
		return nil, nil, err
	}

	if !feature.Paid || !c.Price.IsPositive() {
		return nil, nil, core.InvalidInput("%s consultation has no price to pay", kind)
	}
	if c.IsPaid() {
		return nil, nil, fmt.Errorf("consultation %s already paid: %w", c.ID, core.ErrConflict)
	}

	return c, feature, nil
}

func (s *Service) newPayment(requesterID string, c *consultation.Consultation, method string) *Payment {
	return &Payment{
		ID:               uuid.New().String(),
		UserID:           requesterID,
		ConsultationKind: c.Kind,
		ConsultationID:   c.ID,
		Amount:           c.Price,
		Currency:         s.currency,
		PaymentMethod:    method,
		Status:           StatusPending,
	}
}

// CreatePreference records a pending payment and opens a hosted checkout
// for it. A gateway failure marks the payment failed.
func (s *Service) CreatePreference(
	ctx context.Context,
	requesterID string,
	kind consultation.Kind,
	consultationID string,
) (*PreferenceResponse, error) {
	if err := s.available(); err != nil {
		return nil, err
	}

	c, feature, err := s.payable(ctx, requesterID, kind, consultationID)
	if err != nil {
		return nil, err
	}

	p := s.newPayment(requesterID, c, s.gateway.Name())
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	req := PreferenceRequest{
		Reference:   p.ID,
		Title:       lineItemTitle(feature, c),
		Description: feature.Title,
		Quantity:    1,
		UnitPrice:   c.Price,
		Currency:    s.currency,
	}
	if s.users != nil {
		if email, err := s.users.Email(ctx, requesterID); err == nil {
			req.PayerEmail = email
		}
	}

	pref, err := s.gateway.CreatePreference(ctx, req)
	if err != nil {
		paymentsTotal.WithLabelValues(p.PaymentMethod, "provider_error").Inc()
		s.logger.WarnContext(ctx, "payment gateway failed",
			"payment_id", p.ID,
			"provider", p.PaymentMethod,
			"error", err,
		)
		if _, markErr := s.repo.UpdateStatus(ctx, p.ID, StatusFailed, nil); markErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark payment failed",
				"payment_id", p.ID,
				"error", markErr,
			)
		}
		return nil, err
	}

	if err := s.repo.SetPreference(ctx, p.ID, pref.ID); err != nil {
		return nil, err
	}

	paymentsTotal.WithLabelValues(p.PaymentMethod, string(StatusPending)).Inc()
	s.notifyOwner(ctx, "payment.created", "New payment started", p)

	return &PreferenceResponse{
		InitPoint:    pref.InitPoint,
		PreferenceID: pref.ID,
		PaymentID:    p.ID,
	}, nil
}

// Create records a payment intent settled outside the hosted checkout.
func (s *Service) Create(
	ctx context.Context,
	requesterID string,
	kind consultation.Kind,
	consultationID string,
	method string,
) (*Payment, error) {
	if err := s.available(); err != nil {
		return nil, err
	}

	c, _, err := s.payable(ctx, requesterID, kind, consultationID)
	if err != nil {
		return nil, err
	}

	if method == "" {
		method = MethodManual
	}

	p := s.newPayment(requesterID, c, method)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	paymentsTotal.WithLabelValues(method, string(StatusPending)).Inc()
	s.notifyOwner(ctx, "payment.created", "New payment recorded", p)

	return p, nil
}

// UpdateStatus changes a payment owned by the requester and mirrors the
// result onto the linked consultation in the same transaction.
func (s *Service) UpdateStatus(
	ctx context.Context,
	requesterID string,
	paymentID string,
	status Status,
	externalID *string,
) (*Payment, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, core.InvalidInput("unknown payment status %q", status)
	}

	return s.transition(ctx, paymentID, status, externalID, func(p *Payment) error {
		if p.UserID != requesterID {
			return fmt.Errorf("payment %s: %w", paymentID, core.ErrNotFound)
		}
		return nil
	}, false)
}

// WebhookEvent is a gateway callback normalized to our payment id. Topic is
// the provider's notification type when it sends one.
type WebhookEvent struct {
	Topic      string
	Reference  string
	ExternalID string
	Status     string
}

// HandleWebhook applies a gateway callback after checking the shared secret.
// Callbacks that only carry the provider's payment id are resolved through
// the gateway. Topics other than payment are acknowledged and dropped with
// a nil payment.
func (s *Service) HandleWebhook(ctx context.Context, secret string, event WebhookEvent) (*Payment, error) {
	if s.webhookSecret == "" || !core.SecretsEqual(secret, s.webhookSecret) {
		return nil, fmt.Errorf("webhook secret mismatch: %w", core.ErrUnauthorized)
	}
	if event.Topic != "" && event.Topic != "payment" {
		s.logger.InfoContext(ctx, "webhook topic ignored", "topic", event.Topic)
		return nil, nil
	}
	if err := s.available(); err != nil {
		return nil, err
	}

	if (event.Reference == "" || event.Status == "") && event.ExternalID != "" {
		if lookup, ok := s.gateway.(PaymentLookup); ok {
			resolved, err := lookup.LookupPayment(ctx, event.ExternalID)
			if err != nil {
				return nil, err
			}
			event.Reference = firstNonEmpty(resolved.Reference, event.Reference)
			event.Status = resolved.Status
		}
	}

	if event.Reference == "" {
		return nil, core.InvalidInput("webhook has no payment reference")
	}

	var externalID *string
	if event.ExternalID != "" {
		externalID = &event.ExternalID
	}

	return s.transition(ctx, event.Reference, MapProviderStatus(event.Status), externalID, nil, true)
}

// ErrStatusRegression marks a status change the payment may not take.
var ErrStatusRegression = errors.New("payment status cannot move back")

// transition moves a payment and mirrors the result onto its consultation in
// one transaction. With ignoreRegression set, an out of order status is
// dropped and the stored payment returned unchanged.
func (s *Service) transition(
	ctx context.Context,
	paymentID string,
	status Status,
	externalID *string,
	authorize func(*Payment) error,
	ignoreRegression bool,
) (*Payment, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "payment.transition",
		attribute.String("payment.id", paymentID),
		attribute.String("payment.status", string(status)),
	)

	var (
		updated *Payment
		changed bool
	)

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		payments := NewRepository(tx)

		current, err := payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(current); err != nil {
				return err
			}
		}

		if current.Status == status && externalID == nil {
			updated = current
			return nil
		}
		if !current.Status.CanMoveTo(status) {
			if ignoreRegression {
				s.logger.InfoContext(ctx, "stale payment status ignored",
					"payment_id", paymentID,
					"current", current.Status,
					"received", status,
				)
				updated = current
				return nil
			}
			return fmt.Errorf("payment %s %s to %s: %w: %w",
				paymentID, current.Status, status, ErrStatusRegression, core.ErrConflict)
		}

		updated, err = payments.UpdateStatus(ctx, paymentID, status, externalID)
		if err != nil {
			return err
		}
		changed = current.Status != status

		linked, ok := status.ConsultationStatus()
		if !ok {
			return nil
		}

		kept, err := consultation.NewRepository(tx).SetPaymentStatus(
			ctx,
			current.ConsultationKind,
			current.ConsultationID,
			linked,
		)
		if err != nil {
			return err
		}
		if !kept {
			s.logger.InfoContext(ctx, "consultation already paid, payment status not mirrored",
				"payment_id", paymentID,
				"consultation_id", current.ConsultationID,
				"status", status,
			)
		}
		return nil
	})
	core.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	paymentsTotal.WithLabelValues(updated.PaymentMethod, string(status)).Inc()
	s.logger.InfoContext(ctx, "payment status updated",
		"payment_id", updated.ID,
		"status", status,
		"consultation_id", updated.ConsultationID,
	)

	if status == StatusApproved {
		s.notifyOwner(ctx, "payment.approved", "Payment approved", updated)
	}

	return updated, nil
}

// Get and List degrade with the store: an unreachable database reads as
// not found or an empty history.
func (s *Service) Get(ctx context.Context, requesterID, paymentID string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != requesterID {
		return nil, fmt.Errorf("payment %s: %w", paymentID, core.ErrNotFound)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, requesterID string) ([]Payment, error) {
	return s.repo.ListByUser(ctx, requesterID)
}

// notifyOwner never fails the caller; delivery problems are logged.
func (s *Service) notifyOwner(ctx context.Context, event, title string, p *Payment) {
	err := s.notifier.Notify(ctx, notify.Notification{
		Title: title,
		Content: fmt.Sprintf("%s consultation %s: %s %s via %s",
			p.ConsultationKind, p.ConsultationID, p.Amount.StringFixed(2), p.Currency, p.PaymentMethod),
		Event: event,
		Fields: map[string]string{
			"payment_id": p.ID,
			"user_id":    p.UserID,
			"status":     string(p.Status),
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "owner notification failed",
			"event", event,
			"payment_id", p.ID,
			"error", err,
		)
	}
}

// MapProviderStatus folds gateway status names onto payment statuses.
func MapProviderStatus(providerStatus string) Status {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "approved", "completed", "authorized":
		return StatusApproved
	case "rejected", "cancelled", "canceled", "failed", "denied", "voided":
		return StatusFailed
	case "refunded", "charged_back":
		return StatusRefunded
	default:
		return StatusPending
	}
}

func lineItemTitle(feature *consultation.Feature, c *consultation.Consultation) string {
	switch c.Kind {
	case consultation.KindTarot:
		n := len(c.Questions)
		if n == 1 {
			return "Leitura de Tarot - 1 pergunta"
		}
		return fmt.Sprintf("Leitura de Tarot - %d perguntas", n)
	default:
		if c.Tier != "" {
			return fmt.Sprintf("%s - %s", feature.Title, c.Tier)
		}
		return feature.Title
	}
}
