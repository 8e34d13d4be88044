// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID           string    `db:"id"`
	Email        *string   `db:"email"`
	PasswordHash *string   `db:"password_hash"`
	Name         *string   `db:"name"`
	LoginMethod  *string   `db:"login_method"`
	Role         string    `db:"role"`
	TokenVersion int       `db:"token_version"`
	CreatedAt    time.Time `db:"created_at"`
	LastSignedIn time.Time `db:"last_signed_in"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// LoginProfile is what an identity source knows about a user at sign in.
// Nil fields leave the stored value unchanged.
type LoginProfile struct {
	ID           string
	Email        *string
	Name         *string
	LoginMethod  *string
	Role         *string
	PasswordHash *string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
