// AngelaMos | 2026
// dto.go

package payment

import (
	"encoding/json"
	"time"

	"github.com/carterperez-dev/mystic-backend/internal/consultation"
)

type PreferenceRequestBody struct {
	ConsultationKind consultation.Kind `json:"consultation_kind" validate:"required,oneof=tarot dream astral oracle radionic energy numerology"`
	ConsultationID   string            `json:"consultation_id"   validate:"required,uuid"`
}

type CreatePaymentRequest struct {
	ConsultationKind consultation.Kind `json:"consultation_kind" validate:"required,oneof=tarot dream astral oracle radionic energy numerology"`
	ConsultationID   string            `json:"consultation_id"   validate:"required,uuid"`
	PaymentMethod    string            `json:"payment_method"    validate:"omitempty,max=64"`
}

type UpdateStatusRequest struct {
	Status            Status `json:"status"              validate:"required,oneof=pending approved failed refunded"`
	ExternalPaymentID string `json:"external_payment_id" validate:"omitempty,max=255"`
}

// WebhookPayload accepts both the flat form and the Mercado Pago
// notification {"type": "payment", "data": {"id": ...}}, whose status and
// external_reference are looked up at the gateway.
type WebhookPayload struct {
	Type              string `json:"type"`
	ExternalReference string `json:"external_reference"`
	ID                flexID `json:"id"`
	Status            string `json:"status"`
	Data              *struct {
		ExternalReference string `json:"external_reference"`
		ID                flexID `json:"id"`
		Status            string `json:"status"`
	} `json:"data"`
}

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}

func (p WebhookPayload) Event() WebhookEvent {
	ev := WebhookEvent{
		Topic:      p.Type,
		Reference:  p.ExternalReference,
		ExternalID: string(p.ID),
		Status:     p.Status,
	}
	if p.Data != nil {
		ev.Reference = firstNonEmpty(ev.Reference, p.Data.ExternalReference)
		ev.ExternalID = firstNonEmpty(string(p.Data.ID), ev.ExternalID)
		ev.Status = firstNonEmpty(ev.Status, p.Data.Status)
	}
	return ev
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type PreferenceResponse struct {
	InitPoint    string `json:"init_point"`
	PreferenceID string `json:"preference_id"`
	PaymentID    string `json:"payment_id"`
}

type PaymentResponse struct {
	ID                string            `json:"id"`
	ConsultationKind  consultation.Kind `json:"consultation_kind"`
	ConsultationID    string            `json:"consultation_id"`
	Amount            string            `json:"amount"`
	Currency          string            `json:"currency"`
	PaymentMethod     string            `json:"payment_method"`
	PreferenceID      *string           `json:"preference_id"`
	ExternalPaymentID *string           `json:"external_payment_id"`
	Status            Status            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		ConsultationKind:  p.ConsultationKind,
		ConsultationID:    p.ConsultationID,
		Amount:            p.Amount.StringFixed(2),
		Currency:          p.Currency,
		PaymentMethod:     p.PaymentMethod,
		PreferenceID:      p.PreferenceID,
		ExternalPaymentID: p.ExternalPaymentID,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func ToPaymentResponseList(items []Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToPaymentResponse(&items[i]))
	}
	return out
}
