// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/middleware"
)

const (
	LoginMethodPassword = "password"

	blacklistPrefix = "blacklist:"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	LoginMethod  string
	TokenVersion int
	LastSignedIn time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, email, passwordHash, name string) (*UserInfo, error)
	// RecordLogin runs the login upsert and returns the stored user.
	RecordLogin(ctx context.Context, userID, loginMethod string) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	jwt          *JWTManager
	userProvider UserProvider
	redis        *redis.Client
	logger       *slog.Logger
}

func NewService(
	jwt *JWTManager,
	userProvider UserProvider,
	redisClient *redis.Client,
) *Service {
	return &Service{
		jwt:          jwt,
		userProvider: userProvider,
		redis:        redisClient,
		logger:       slog.Default(),
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			_, _, _ = core.CheckPasswordOrDummy(req.Password, nil) //nolint:errcheck // same work as a real check
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.CheckPasswordOrDummy(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	user, err = s.userProvider.RecordLogin(ctx, user.ID, LoginMethodPassword)
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	return s.createAuthResponse(user)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.createAuthResponse(user)
}

// Logout revokes the access token carried by the request.
func (s *Service) Logout(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}
	return s.RevokeAccessToken(ctx, claims.TokenID, claims.ExpiresAt)
}

// LogoutAll invalidates every token issued to the user so far.
func (s *Service) LogoutAll(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if claims == nil {
		return fmt.Errorf("logout all: %w", core.ErrUnauthorized)
	}

	if err := s.userProvider.IncrementTokenVersion(ctx, claims.UserID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return s.RevokeAccessToken(ctx, claims.TokenID, claims.ExpiresAt)
}

func (s *Service) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

// VerifyAccessToken layers revocation on top of the signature check: a
// blacklisted jti or an outdated token_version is rejected. An unreachable
// Redis is logged and the token accepted, since the signature and the
// token version still hold.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.IsAccessTokenBlacklisted(ctx, claims.TokenID)
	if err != nil {
		s.logger.WarnContext(ctx, "token blacklist unavailable", "error", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	if err := s.ValidateTokenVersion(ctx, claims.UserID, claims.TokenVersion); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
	currentPassword, newPassword string,
) error {
	user, err := s.userProvider.GetByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.CheckPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, claims)
}

func (s *Service) ValidateTokenVersion(ctx context.Context, userID string, tokenVersion int) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("validate token version: %w", core.ErrTokenInvalid)
		}
		return fmt.Errorf("get user: %w", err)
	}

	if tokenVersion < user.TokenVersion {
		return fmt.Errorf("validate token version: %w", core.ErrTokenRevoked)
	}

	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) createAuthResponse(user *UserInfo) (*AuthResponse, error) {
	issued, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken: issued.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int(time.Until(issued.ExpiresAt).Round(time.Second) / time.Second),
			ExpiresAt:   issued.ExpiresAt,
		},
	}, nil
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		LoginMethod:  u.LoginMethod,
		LastSignedIn: u.LastSignedIn,
	}
}
