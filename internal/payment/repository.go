// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByUser(ctx context.Context, userID string) ([]Payment, error)
	SetPreference(ctx context.Context, id, preferenceID string) error
	UpdateStatus(ctx context.Context, id string, status Status, externalID *string) (*Payment, error)
}

const columns = `id, user_id, consultation_kind, consultation_id, amount, currency,
		       payment_method, preference_id, external_payment_id, status,
		       created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	if r.db == nil {
		return fmt.Errorf("create payment: %w", core.ErrStorageUnavailable)
	}

	query := `
		INSERT INTO payments (id, user_id, consultation_kind, consultation_id,
		                      amount, currency, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		p.UserID,
		p.ConsultationKind,
		p.ConsultationID,
		p.Amount,
		p.Currency,
		p.PaymentMethod,
		p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", core.StorageError(err))
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	if r.db == nil {
		slog.WarnContext(ctx, "payment store not configured", "payment_id", id)
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}

	query := `SELECT ` + columns + ` FROM payments WHERE id = $1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "payment store unavailable, treating as not found",
			"payment_id", id,
			"error", err,
		)
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", core.StorageError(err))
	}

	return &p, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	if r.db == nil {
		slog.WarnContext(ctx, "payment store not configured")
		return []Payment{}, nil
	}

	query := `
		SELECT ` + columns + ` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	var items []Payment
	err := r.db.SelectContext(ctx, &items, query, userID)
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "payment store unavailable, returning empty history",
			"error", err,
		)
		return []Payment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if items == nil {
		items = []Payment{}
	}

	return items, nil
}

func (r *repository) SetPreference(ctx context.Context, id, preferenceID string) error {
	if r.db == nil {
		return fmt.Errorf("set payment preference: %w", core.ErrStorageUnavailable)
	}

	query := `
		UPDATE payments
		SET preference_id = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, preferenceID)
	if err != nil {
		return fmt.Errorf("set payment preference: %w", core.StorageError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set payment preference: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set payment preference: %w", core.ErrNotFound)
	}

	return nil
}

// UpdateStatus sets the status and, when externalID is not nil, the
// gateway's payment id. A second approved payment for the same consultation
// fails with core.ErrConflict.
func (r *repository) UpdateStatus(
	ctx context.Context,
	id string,
	status Status,
	externalID *string,
) (*Payment, error) {
	if r.db == nil {
		return nil, fmt.Errorf("update payment status: %w", core.ErrStorageUnavailable)
	}

	query := `
		UPDATE payments
		SET status = $2,
		    external_payment_id = COALESCE($3, external_payment_id),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + columns

	var p Payment
	err := r.db.GetContext(ctx, &p, query, id, status, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update payment status: %w", core.ErrNotFound)
	}
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("update payment status: consultation already paid: %w", core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", core.StorageError(err))
	}

	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
