// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type memoryRepo struct {
	Repository
	users map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]*User{}}
}

func (m *memoryRepo) Upsert(_ context.Context, p LoginProfile, signedIn time.Time) (*User, error) {
	u, ok := m.users[p.ID]
	if !ok {
		u = &User{ID: p.ID, Role: RoleUser, CreatedAt: signedIn}
		m.users[p.ID] = u
	}
	if p.Email != nil {
		u.Email = p.Email
	}
	if p.Name != nil {
		u.Name = p.Name
	}
	if p.LoginMethod != nil {
		u.LoginMethod = p.LoginMethod
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.PasswordHash != nil {
		u.PasswordHash = p.PasswordHash
	}
	u.LastSignedIn = signedIn
	copied := *u
	return &copied, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryRepo) UpdateRole(_ context.Context, id, role string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.Role = role
	copied := *u
	return &copied, nil
}

func TestOwnerIsAlwaysAdmin(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, "owner-1")

	user, err := svc.UpsertOnLogin(context.Background(), LoginProfile{
		ID:   "owner-1",
		Role: strPtr(RoleUser),
	})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, user.Role)

	other, err := svc.UpsertOnLogin(context.Background(), LoginProfile{ID: "u-2"})
	require.NoError(t, err)
	assert.Equal(t, RoleUser, other.Role)
}

func TestUpsertKeepsAbsentFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, "")

	_, err := svc.UpsertOnLogin(context.Background(), LoginProfile{
		ID:    "u-1",
		Email: strPtr("  Ana@Example.com "),
		Name:  strPtr("Ana"),
	})
	require.NoError(t, err)

	info, err := svc.RecordLogin(context.Background(), "u-1", "google")
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", info.Email)
	assert.Equal(t, "Ana", info.Name)
	assert.Equal(t, "google", info.LoginMethod)
}

func TestUpsertRejectsInvalidInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), "")

	_, err := svc.UpsertOnLogin(context.Background(), LoginProfile{ID: " "})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.UpsertOnLogin(context.Background(), LoginProfile{ID: "u-1", Role: strPtr("root")})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCreateUsesPasswordLogin(t *testing.T) {
	svc := NewService(newMemoryRepo(), "")

	info, err := svc.Create(context.Background(), "ana@example.com", "hash", "Ana")
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "password", info.LoginMethod)
	assert.Equal(t, "hash", info.PasswordHash)

	email, err := svc.Email(context.Background(), info.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", email)
}

func TestOwnerRoleCannotBeLowered(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, "owner-1")
	_, err := svc.UpsertOnLogin(context.Background(), LoginProfile{ID: "owner-1"})
	require.NoError(t, err)

	_, err = svc.UpdateUserRole(context.Background(), "owner-1", RoleUser)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateUserRole(context.Background(), "owner-1", "root")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestGetMeRequiresUser(t *testing.T) {
	svc := NewService(newMemoryRepo(), "")

	_, err := svc.GetMe(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}
