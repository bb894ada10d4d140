package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dialdesk/internal/auth"
	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/repository"
)

const bcryptCost = 10

// AuthService handles login, token validation, and session revocation.
// Every issued token is backed by a session row; deleting the row is the
// revocation mechanism, so validation always consults the database.
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
	Validate(ctx context.Context, token string) (*model.UserIdentity, error)
	Logout(ctx context.Context, token string) error
	CreateAdmin(ctx context.Context, input CreateUserInput) (*model.User, error)
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokens      *auth.TokenService
	users       UserService
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, tokens *auth.TokenService, users UserService) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		users:       users,
	}
}

// Login authenticates a user and mints a session-backed token. Unknown
// emails and wrong passwords fail identically so responses cannot be used
// to probe which addresses exist.
func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, errors.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errors.ErrInvalidCredentials
	}

	// Deactivated accounts fail with the same error as a bad password.
	if !user.IsActive {
		return "", nil, errors.ErrInvalidCredentials
	}

	sessionID, token, expiresAt, err := s.tokens.Generate(user, time.Now())
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: expiresAt,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	return token, user, nil
}

// Validate checks a token end to end: signature, backing session row,
// token hash, lazy expiry, and that the user is still live and active.
// It returns the fresh identity from the user row, so role changes take
// effect on the next request.
func (s *authService) Validate(ctx context.Context, token string) (*model.UserIdentity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		// Missing row means revoked, expired-and-swept, or never issued.
		return nil, errors.ErrInvalidToken
	}

	if session.TokenHash != auth.HashToken(token) {
		return nil, errors.ErrInvalidToken
	}

	if session.Expired(time.Now()) {
		_ = s.sessionRepo.Delete(ctx, session.ID)
		return nil, errors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, errors.ErrInvalidToken
	}

	return user.Identity(), nil
}

// Logout revokes every session the token's user holds, signing the user
// out of all devices at once. Logging out twice is not an error.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return errors.ErrInvalidToken
	}
	if _, err := s.sessionRepo.DeleteByUserID(ctx, claims.UserID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// CreateAdmin is the one-time bootstrap: it creates the first admin and
// refuses as soon as any admin row exists, deactivated ones included.
func (s *authService) CreateAdmin(ctx context.Context, input CreateUserInput) (*model.User, error) {
	count, err := s.userRepo.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil, errors.ErrAdminExists
	}

	input.Role = model.RoleAdmin
	return s.users.Create(ctx, input)
}
