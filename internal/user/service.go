// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/mystic-backend/internal/auth"
	"github.com/carterperez-dev/mystic-backend/internal/core"
)

type Service struct {
	repo    Repository
	ownerID string
	now     func() time.Time
}

// NewService builds the user service. The account whose id equals ownerID
// is promoted to admin on every sign in.
func NewService(repo Repository, ownerID string) *Service {
	return &Service{
		repo:    repo,
		ownerID: ownerID,
		now:     time.Now,
	}
}

// UpsertOnLogin records a sign in. Only the fields present in profile are
// written; the owner account always ends up admin.
func (s *Service) UpsertOnLogin(ctx context.Context, profile LoginProfile) (*User, error) {
	if strings.TrimSpace(profile.ID) == "" {
		return nil, core.InvalidInput("user id is required")
	}

	if profile.Email != nil {
		lower := strings.ToLower(strings.TrimSpace(*profile.Email))
		profile.Email = &lower
	}

	if s.ownerID != "" && profile.ID == s.ownerID {
		admin := RoleAdmin
		profile.Role = &admin
	} else if profile.Role != nil && *profile.Role != RoleUser && *profile.Role != RoleAdmin {
		return nil, core.InvalidInput("invalid role %q", *profile.Role)
	}

	return s.repo.Upsert(ctx, profile, s.now().UTC())
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.UserInfo, error) {
	method := auth.LoginMethodPassword

	user, err := s.UpsertOnLogin(ctx, LoginProfile{
		ID:           uuid.New().String(),
		Email:        &email,
		Name:         &name,
		LoginMethod:  &method,
		PasswordHash: &passwordHash,
	})
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) RecordLogin(
	ctx context.Context,
	userID, loginMethod string,
) (*auth.UserInfo, error) {
	profile := LoginProfile{ID: userID}
	if loginMethod != "" {
		profile.LoginMethod = &loginMethod
	}

	user, err := s.UpsertOnLogin(ctx, profile)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// Email returns the address payments are billed to. Users without one
// resolve to the empty string.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return deref(user.Email), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	if req.Name == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.UpdateName(ctx, id, strings.TrimSpace(*req.Name))
}

func (s *Service) UpdateUserRole(ctx context.Context, id, role string) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("update role: invalid role %q: %w", role, core.ErrInvalidInput)
	}

	if id == s.ownerID && role != RoleAdmin {
		return nil, fmt.Errorf("update role: owner must stay admin: %w", core.ErrForbidden)
	}

	return s.repo.UpdateRole(ctx, id, role)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        deref(u.Email),
		Name:         deref(u.Name),
		PasswordHash: deref(u.PasswordHash),
		Role:         u.Role,
		LoginMethod:  deref(u.LoginMethod),
		TokenVersion: u.TokenVersion,
		LastSignedIn: u.LastSignedIn,
	}
}

var _ auth.UserProvider = (*Service)(nil)
