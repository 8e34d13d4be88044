// AngelaMos | 2026
// transcript.go

package consultation

import (
	"fmt"
	"time"
)

// Transcript is the archived JSON document of a completed consultation.
type Transcript struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	UserID      string         `json:"user_id"`
	Input       map[string]any `json:"input"`
	Exchanges   []Exchange     `json:"exchanges"`
	Metadata    map[string]any `json:"metadata"`
	Tier        string         `json:"tier,omitempty"`
	Price       string         `json:"price"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	ArchivedAt  time.Time      `json:"archived_at"`
}

type Exchange struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

func NewTranscript(c *Consultation) Transcript {
	exchanges := make([]Exchange, 0, len(c.Questions))
	for i, q := range c.Questions {
		ex := Exchange{Question: q}
		if i < len(c.Responses) {
			ex.Response = c.Responses[i]
		}
		exchanges = append(exchanges, ex)
	}

	return Transcript{
		ID:          c.ID,
		Kind:        c.Kind,
		UserID:      c.UserID,
		Input:       c.Input,
		Exchanges:   exchanges,
		Metadata:    c.Metadata,
		Tier:        c.Tier,
		Price:       c.Price.StringFixed(2),
		CreatedAt:   c.CreatedAt,
		CompletedAt: c.CompletedAt,
		ArchivedAt:  time.Now().UTC(),
	}
}

// TranscriptKey is the object key a consultation is archived under.
func TranscriptKey(c *Consultation) string {
	return fmt.Sprintf("%s/%s/%s.json", c.Kind, c.UserID, c.ID)
}
