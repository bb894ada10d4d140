package repository

import (
	"context"

	"gorm.io/gorm"

	"dialdesk/internal/model"
)

// CallLogRepository persists finished-call records.
type CallLogRepository interface {
	Create(ctx context.Context, entry *model.CallLog) error
	CreateBatch(ctx context.Context, entries []model.CallLog) error
	ListRecent(ctx context.Context, limit int) ([]model.CallLog, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.CallLog, error)
}

type callLogRepository struct {
	db *gorm.DB
}

// NewCallLogRepository builds a GORM-backed repository.
func NewCallLogRepository(db *gorm.DB) CallLogRepository {
	return &callLogRepository{db: db}
}

// Create writes a single call record.
func (r *callLogRepository) Create(ctx context.Context, entry *model.CallLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CreateBatch writes a batch of call records in one insert.
func (r *callLogRepository) CreateBatch(ctx context.Context, entries []model.CallLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// ListRecent returns the most recently ended calls, newest first.
func (r *callLogRepository) ListRecent(ctx context.Context, limit int) ([]model.CallLog, error) {
	var entries []model.CallLog
	if err := r.db.WithContext(ctx).Order("ended_at desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByUser returns the most recently ended calls for one user.
func (r *callLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.CallLog, error) {
	var entries []model.CallLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ended_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
