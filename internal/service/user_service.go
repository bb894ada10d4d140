package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dialdesk/internal/cache"
	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/realtime"
	"dialdesk/internal/repository"
)

const (
	userCacheTTL     = 5 * time.Minute
	userListCacheKey = "users:list"
)

// Broadcaster pushes directory and presence events to realtime clients.
// Implemented by realtime.Hub.
type Broadcaster interface {
	BroadcastToAll(event realtime.Event)
	BroadcastToRoles(event realtime.Event, roles ...model.UserRole)
}

// CreateUserInput carries the fields for creating a user.
type CreateUserInput struct {
	FullName  string
	Email     string
	Password  string
	Phone     string
	Extension string
	Role      model.UserRole
}

// UpdateUserInput carries the optional fields for updating a user. Nil
// means "leave unchanged".
type UpdateUserInput struct {
	FullName  *string
	Email     *string
	Password  *string
	Phone     *string
	Extension *string
	Role      *model.UserRole
	IsActive  *bool
}

// UserService exposes directory operations.
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*model.User, error)
	Update(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, id uint, actor *model.UserIdentity) error
	Get(ctx context.Context, id uint) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	presenceRepo repository.CallPresenceRepository
	cache        *cache.Client
	hub          Broadcaster
}

// NewUserService builds a UserService with repositories, cache, and the
// realtime hub for directory broadcasts.
func NewUserService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	presenceRepo repository.CallPresenceRepository,
	cache *cache.Client,
	hub Broadcaster,
) UserService {
	return &userService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		presenceRepo: presenceRepo,
		cache:        cache,
		hub:          hub,
	}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// Create adds a user after checking email and extension against every
// row ever written, deactivated ones included. Nothing is persisted when
// either is taken.
func (s *userService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if taken, err := s.userRepo.EmailTaken(ctx, input.Email, 0); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, errors.ErrEmailTaken
	}
	if taken, err := s.userRepo.ExtensionTaken(ctx, input.Extension, 0); err != nil {
		return nil, fmt.Errorf("check extension: %w", err)
	} else if taken {
		return nil, errors.ErrExtensionTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: string(hashed),
		Phone:        input.Phone,
		Extension:    input.Extension,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.invalidate(ctx, user.ID)
	s.hub.BroadcastToRoles(realtime.UserCreated(user), model.RoleAdmin, model.RoleManager)

	return user, nil
}

// Update applies the given fields. Setting IsActive to false also revokes
// every session the user holds, cutting off live tokens.
func (s *userService) Update(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if input.Email != nil && *input.Email != user.Email {
		if taken, err := s.userRepo.EmailTaken(ctx, *input.Email, id); err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		} else if taken {
			return nil, errors.ErrEmailTaken
		}
		user.Email = *input.Email
	}
	if input.Extension != nil && *input.Extension != user.Extension {
		if taken, err := s.userRepo.ExtensionTaken(ctx, *input.Extension, id); err != nil {
			return nil, fmt.Errorf("check extension: %w", err)
		} else if taken {
			return nil, errors.ErrExtensionTaken
		}
		user.Extension = *input.Extension
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	deactivated := false
	if input.IsActive != nil {
		deactivated = user.IsActive && !*input.IsActive
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if deactivated {
		if _, err := s.sessionRepo.DeleteByUserID(ctx, id); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
	}

	s.invalidate(ctx, id)
	s.hub.BroadcastToRoles(realtime.UserUpdated(user), model.RoleAdmin, model.RoleManager)

	return user, nil
}

// Delete deactivates a user, revokes their sessions, and clears any call
// presence they left behind. The row itself stays. Admins cannot delete
// themselves.
func (s *userService) Delete(ctx context.Context, id uint, actor *model.UserIdentity) error {
	if actor != nil && actor.ID == id {
		return errors.ErrSelfDelete
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if _, err := s.sessionRepo.DeleteByUserID(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if _, err := s.presenceRepo.DeleteByUserID(ctx, id); err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}

	s.invalidate(ctx, id)
	s.hub.BroadcastToRoles(realtime.UserDeleted(user), model.RoleAdmin, model.RoleManager)

	return nil
}

// Get returns one user, cached.
func (s *userService) Get(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

// List returns the directory ordered by extension, with presence, cached.
func (s *userService) List(ctx context.Context) ([]model.User, error) {
	if data, _ := s.cache.Get(ctx, userListCacheKey); data != nil {
		var cached []model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(users); err == nil {
		_ = s.cache.Set(ctx, userListCacheKey, payload, userCacheTTL)
	}
	return users, nil
}

func (s *userService) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, s.cacheKey(id), userListCacheKey)
}
