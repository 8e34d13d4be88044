// AngelaMos | 2026
// repository.go

package consultation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, kind Kind, id string) (*Consultation, error)
	ListByUser(ctx context.Context, kind Kind, userID string) ([]Consultation, error)
	// Update applies patch unconditionally.
	Update(ctx context.Context, kind Kind, id string, patch Patch) (*Consultation, error)
	// UpdateIfRevision applies patch only while the stored revision still
	// equals revision, and fails with core.ErrConflict otherwise.
	UpdateIfRevision(ctx context.Context, kind Kind, id string, revision int, patch Patch) (*Consultation, error)
	// SetPaymentStatus records a payment outcome without bumping revision.
	// A completed payment status is only ever replaced by completed; the
	// result reports whether the row changed.
	SetPaymentStatus(ctx context.Context, kind Kind, id, status string) (bool, error)
	CountByStatus(ctx context.Context, kind Kind) (map[Status]int, error)
}

// tables whitelists the per-kind table names interpolated into SQL.
var tables = func() map[Kind]string {
	out := map[Kind]string{}
	for kind, f := range DefaultFeatures() {
		out[kind] = f.Table
	}
	return out
}()

const columns = `id, user_id, input, questions, responses, metadata, tier, price,
		       payment_status, status, revision, archive_key,
		       created_at, completed_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func tableFor(kind Kind) (string, error) {
	table, ok := tables[kind]
	if !ok {
		return "", fmt.Errorf("unknown consultation kind %q: %w", kind, core.ErrNotFound)
	}
	return table, nil
}

func (r *repository) Create(ctx context.Context, c *Consultation) error {
	if r.db == nil {
		return fmt.Errorf("create consultation: %w", core.ErrStorageUnavailable)
	}

	table, err := tableFor(c.Kind)
	if err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, input, questions, responses, metadata,
		                tier, price, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING revision, created_at, updated_at`, table)

	row := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.UserID,
		c.Input,
		c.Questions,
		c.Responses,
		c.Metadata,
		c.Tier,
		c.Price,
		c.PaymentStatus,
		c.Status,
	)
	if err := row.Scan(&c.Revision, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("create consultation: %w", core.StorageError(err))
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	kind Kind,
	id string,
) (*Consultation, error) {
	if r.db == nil {
		slog.WarnContext(ctx, "consultation store not configured", "kind", kind)
		return nil, fmt.Errorf("get consultation: %w", core.ErrNotFound)
	}

	table, err := tableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("get consultation: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, table)

	var c Consultation
	err = r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get consultation: %w", core.ErrNotFound)
	}
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "consultation store unavailable, treating as not found",
			"kind", kind,
			"error", err,
		)
		return nil, fmt.Errorf("get consultation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get consultation: %w", err)
	}

	c.Kind = kind
	return &c, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	kind Kind,
	userID string,
) ([]Consultation, error) {
	if r.db == nil {
		slog.WarnContext(ctx, "consultation store not configured", "kind", kind)
		return []Consultation{}, nil
	}

	table, err := tableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, columns, table)

	var items []Consultation
	err = r.db.SelectContext(ctx, &items, query, userID)
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "consultation store unavailable, returning empty history",
			"kind", kind,
			"error", err,
		)
		return []Consultation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}

	for i := range items {
		items[i].Kind = kind
	}
	if items == nil {
		items = []Consultation{}
	}

	return items, nil
}

func (r *repository) Update(
	ctx context.Context,
	kind Kind,
	id string,
	patch Patch,
) (*Consultation, error) {
	c, err := r.update(ctx, kind, id, nil, patch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update consultation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update consultation: %w", err)
	}
	return c, nil
}

func (r *repository) UpdateIfRevision(
	ctx context.Context,
	kind Kind,
	id string,
	revision int,
	patch Patch,
) (*Consultation, error) {
	c, err := r.update(ctx, kind, id, &revision, patch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update consultation: %w", core.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update consultation: %w", err)
	}
	return c, nil
}

func (r *repository) update(
	ctx context.Context,
	kind Kind,
	id string,
	revision *int,
	patch Patch,
) (*Consultation, error) {
	if r.db == nil {
		return nil, core.ErrStorageUnavailable
	}

	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	sets := []string{"revision = revision + 1", "updated_at = NOW()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Responses != nil {
		add("responses", patch.Responses)
	}
	if patch.Metadata != nil {
		add("metadata", patch.Metadata)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.PaymentStatus != nil {
		add("payment_status", *patch.PaymentStatus)
	}
	if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	}
	if patch.ArchiveKey != nil {
		add("archive_key", *patch.ArchiveKey)
	}

	where := "id = $1"
	if revision != nil {
		args = append(args, *revision)
		where += fmt.Sprintf(" AND revision = $%d", len(args))
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE %s
		RETURNING %s`, table, strings.Join(sets, ", "), where, columns)

	var c Consultation
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		return nil, core.StorageError(err)
	}

	c.Kind = kind
	return &c, nil
}

func (r *repository) SetPaymentStatus(
	ctx context.Context,
	kind Kind,
	id string,
	status string,
) (bool, error) {
	if r.db == nil {
		return false, fmt.Errorf("set payment status: %w", core.ErrStorageUnavailable)
	}

	table, err := tableFor(kind)
	if err != nil {
		return false, fmt.Errorf("set payment status: %w", err)
	}

	args := []any{id, status}
	where := "id = $1"
	if status != PaymentCompleted {
		args = append(args, PaymentCompleted)
		where += " AND payment_status IS DISTINCT FROM $3"
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET payment_status = $2, updated_at = NOW()
		WHERE %s`, table, where)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set payment status: %w", core.StorageError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set payment status: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	var exists bool
	query = fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("set payment status: %w", core.StorageError(err))
	}
	if !exists {
		return false, fmt.Errorf("set payment status: %w", core.ErrNotFound)
	}

	return false, nil
}

func (r *repository) CountByStatus(ctx context.Context, kind Kind) (map[Status]int, error) {
	if r.db == nil {
		return nil, fmt.Errorf("count consultations: %w", core.ErrStorageUnavailable)
	}

	table, err := tableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("count consultations: %w", err)
	}

	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	query := fmt.Sprintf(`SELECT status, COUNT(*) AS count FROM %s GROUP BY status`, table)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count consultations: %w", core.StorageError(err))
	}

	counts := map[Status]int{}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
