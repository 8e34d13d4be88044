// AngelaMos | 2026
// entity.go

package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/mystic-backend/internal/consultation"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// CanMoveTo reports whether a payment in s may take next. Nothing returns
// to pending, and an approved payment only moves on to refunded.
func (s Status) CanMoveTo(next Status) bool {
	switch s {
	case StatusPending:
		return true
	case StatusFailed:
		return next == StatusApproved || next == StatusFailed
	case StatusApproved:
		return next == StatusApproved || next == StatusRefunded
	case StatusRefunded:
		return next == StatusRefunded
	}
	return false
}

// ConsultationStatus is the payment_status the linked consultation takes
// when a payment moves to s. The second result is false when the
// consultation is left untouched.
func (s Status) ConsultationStatus() (string, bool) {
	switch s {
	case StatusApproved:
		return consultation.PaymentCompleted, true
	case StatusFailed:
		return consultation.PaymentFailed, true
	}
	return "", false
}

type Payment struct {
	ID                string            `db:"id"`
	UserID            string            `db:"user_id"`
	ConsultationKind  consultation.Kind `db:"consultation_kind"`
	ConsultationID    string            `db:"consultation_id"`
	Amount            decimal.Decimal   `db:"amount"`
	Currency          string            `db:"currency"`
	PaymentMethod     string            `db:"payment_method"`
	PreferenceID      *string           `db:"preference_id"`
	ExternalPaymentID *string           `db:"external_payment_id"`
	Status            Status            `db:"status"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}
