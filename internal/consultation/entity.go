// AngelaMos | 2026
// entity.go

package consultation

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindTarot      Kind = "tarot"
	KindDream      Kind = "dream"
	KindAstral     Kind = "astral"
	KindOracle     Kind = "oracle"
	KindRadionic   Kind = "radionic"
	KindEnergy     Kind = "energy"
	KindNumerology Kind = "numerology"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// AnonymousOwner owns records created without an authenticated user.
const AnonymousOwner = "anonymous"

type Consultation struct {
	ID            string          `db:"id"`
	Kind          Kind            `db:"-"`
	UserID        string          `db:"user_id"`
	Input         Object          `db:"input"`
	Questions     List            `db:"questions"`
	Responses     List            `db:"responses"`
	Metadata      Object          `db:"metadata"`
	Tier          string          `db:"tier"`
	Price         decimal.Decimal `db:"price"`
	PaymentStatus *string         `db:"payment_status"`
	Status        Status          `db:"status"`
	Revision      int             `db:"revision"`
	ArchiveKey    *string         `db:"archive_key"`
	CreatedAt     time.Time       `db:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (c *Consultation) IsPaid() bool {
	return c.PaymentStatus != nil && *c.PaymentStatus == PaymentCompleted
}

func (c *Consultation) OwnedBy(userID string) bool {
	return c.UserID == userID
}

// Patch lists the columns an update touches. Nil fields are left as stored.
type Patch struct {
	Responses     List
	Metadata      Object
	Status        *Status
	PaymentStatus *string
	CompletedAt   *time.Time
	ArchiveKey    *string
}
