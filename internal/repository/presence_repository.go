package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dialdesk/internal/model"
)

// CallPresenceRepository persists the one-row-per-user call state.
type CallPresenceRepository interface {
	Upsert(ctx context.Context, presence *model.CallPresence) error
	FindByUserID(ctx context.Context, userID uint) (*model.CallPresence, error)
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)
	List(ctx context.Context) ([]model.CallPresence, error)
}

type presenceRepository struct {
	db *gorm.DB
}

// NewCallPresenceRepository builds a GORM-backed repository.
func NewCallPresenceRepository(db *gorm.DB) CallPresenceRepository {
	return &presenceRepository{db: db}
}

// Upsert inserts the presence row or overwrites the existing one for the
// same user, so back-to-back calls land on the latest call.
func (r *presenceRepository) Upsert(ctx context.Context, presence *model.CallPresence) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(presence).Error
}

// FindByUserID finds the presence row for a user.
func (r *presenceRepository) FindByUserID(ctx context.Context, userID uint) (*model.CallPresence, error) {
	var presence model.CallPresence
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&presence).Error; err != nil {
		return nil, err
	}
	return &presence, nil
}

// DeleteByUserID removes the presence row for a user and reports whether
// one existed.
func (r *presenceRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CallPresence{})
	return res.RowsAffected, res.Error
}

// List returns every live presence row.
func (r *presenceRepository) List(ctx context.Context) ([]model.CallPresence, error) {
	var presences []model.CallPresence
	if err := r.db.WithContext(ctx).Find(&presences).Error; err != nil {
		return nil, err
	}
	return presences, nil
}
