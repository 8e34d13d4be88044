// AngelaMos | 2026
// dto.go

package consultation

import (
	"time"
)

type CreateResponse struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Tier   string `json:"tier,omitempty"`
	Price  string `json:"price"`
	Status Status `json:"status"`
}

type ConsultationResponse struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Input         map[string]any `json:"input"`
	Questions     []string       `json:"questions"`
	Responses     []string       `json:"responses"`
	Metadata      map[string]any `json:"metadata"`
	Tier          string         `json:"tier,omitempty"`
	Price         string         `json:"price"`
	PaymentStatus *string        `json:"payment_status"`
	Status        Status         `json:"status"`
	Archived      bool           `json:"archived"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

type TranscriptLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type GenerateResponse struct {
	ID        string         `json:"id"`
	Responses []string       `json:"responses"`
	Metadata  map[string]any `json:"metadata"`
	Status    Status         `json:"status"`
}

type PricesResponse struct {
	Kind   Kind         `json:"kind"`
	Title  string       `json:"title"`
	Paid   bool         `json:"paid"`
	Prices []PriceEntry `json:"prices"`
}

func ToCreateResponse(c *Consultation) CreateResponse {
	return CreateResponse{
		ID:     c.ID,
		Kind:   c.Kind,
		Tier:   c.Tier,
		Price:  c.Price.StringFixed(2),
		Status: c.Status,
	}
}

func ToConsultationResponse(c *Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:            c.ID,
		Kind:          c.Kind,
		Input:         c.Input,
		Questions:     nonNil(c.Questions),
		Responses:     nonNil(c.Responses),
		Metadata:      c.Metadata,
		Tier:          c.Tier,
		Price:         c.Price.StringFixed(2),
		PaymentStatus: c.PaymentStatus,
		Status:        c.Status,
		Archived:      c.ArchiveKey != nil,
		CreatedAt:     c.CreatedAt,
		CompletedAt:   c.CompletedAt,
	}
}

func ToConsultationResponseList(items []Consultation) []ConsultationResponse {
	out := make([]ConsultationResponse, 0, len(items))
	for i := range items {
		out = append(out, ToConsultationResponse(&items[i]))
	}
	return out
}

func ToGenerateResponse(c *Consultation) GenerateResponse {
	return GenerateResponse{
		ID:        c.ID,
		Responses: nonNil(c.Responses),
		Metadata:  c.Metadata,
		Status:    c.Status,
	}
}

func nonNil(l List) []string {
	if l == nil {
		return []string{}
	}
	return l
}
