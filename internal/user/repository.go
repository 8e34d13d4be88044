// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type Repository interface {
	// Upsert inserts the user or updates the fields present in profile.
	// last_signed_in is always refreshed.
	Upsert(ctx context.Context, profile LoginProfile, signedIn time.Time) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateName(ctx context.Context, id, name string) (*User, error)
	UpdateRole(ctx context.Context, id, role string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

const columns = `id, email, password_hash, name, login_method, role, token_version,
		       created_at, last_signed_in, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(
	ctx context.Context,
	profile LoginProfile,
	signedIn time.Time,
) (*User, error) {
	query := `
		INSERT INTO users (id, email, name, login_method, role, password_hash,
		                   last_signed_in)
		VALUES ($1, $2, $3, $4, COALESCE($5, 'user'), $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email          = COALESCE($2, users.email),
			name           = COALESCE($3, users.name),
			login_method   = COALESCE($4, users.login_method),
			role           = COALESCE($5, users.role),
			password_hash  = COALESCE($6, users.password_hash),
			last_signed_in = $7,
			updated_at     = NOW()
		RETURNING ` + columns

	var user User
	err := r.db.GetContext(ctx, &user, query,
		profile.ID,
		profile.Email,
		profile.Name,
		profile.LoginMethod,
		profile.Role,
		profile.PasswordHash,
		signedIn,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("upsert user: %w", core.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("upsert user: %w", core.StorageError(err))
	}

	return &user, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + columns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "user store unavailable, treating as not found",
			"user_id", id,
			"error", err,
		)
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", core.StorageError(err))
	}

	return &user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + columns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "user store unavailable, treating as not found", "error", err)
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", core.StorageError(err))
	}

	return &user, nil
}

func (r *repository) UpdateName(ctx context.Context, id, name string) (*User, error) {
	return r.updateOne(ctx, "update user", `name = $2`, id, name)
}

func (r *repository) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	return r.updateOne(ctx, "update role", `role = $2`, id, role)
}

func (r *repository) updateOne(
	ctx context.Context,
	op, set, id string,
	value any,
) (*User, error) {
	query := `
		UPDATE users
		SET ` + set + `, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + columns

	var user User
	err := r.db.GetContext(ctx, &user, query, id, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, core.StorageError(err))
	}

	return &user, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "increment token version", query, id)
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, core.StorageError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause
	err := r.db.GetContext(ctx, &total, countQuery, args...)
	if core.IsUnavailable(err) {
		slog.WarnContext(ctx, "user store unavailable, returning empty page", "error", err)
		return []User{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY last_signed_in DESC
		LIMIT $%d OFFSET $%d`,
		columns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", core.StorageError(err))
	}

	return users, total, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
