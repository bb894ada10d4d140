package repository

import (
	"context"

	"gorm.io/gorm"

	"dialdesk/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.User, error)
	List(ctx context.Context) ([]model.User, error)
	CountByRole(ctx context.Context, role model.UserRole) (int64, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	ExtensionTaken(ctx context.Context, extension string, excludeID uint) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete deactivates a user. The row stays, keeping its email and
// extension reserved against reuse.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// FindByID finds a user by ID.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Presence").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users with the given IDs, ordered by extension.
func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	users := make([]model.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("extension asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// List returns all users with their call presence, ordered by extension.
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Preload("Presence").Order("extension asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CountByRole counts users holding the given role, deactivated rows
// included.
func (r *userRepository) CountByRole(ctx context.Context, role model.UserRole) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// EmailTaken reports whether any user, deactivated ones included, holds
// the email. excludeID skips the user being updated.
func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExtensionTaken reports whether any user, deactivated ones included,
// holds the extension. excludeID skips the user being updated.
func (r *userRepository) ExtensionTaken(ctx context.Context, extension string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("extension = ? AND id <> ?", extension, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
