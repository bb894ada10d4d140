package repository

import (
	"context"

	"gorm.io/gorm"

	"dialdesk/internal/model"
)

// TelephonyCredentialsRepository persists the tenant's single vendor
// credential set.
type TelephonyCredentialsRepository interface {
	Get(ctx context.Context) (*model.TelephonyCredentials, error)
	Replace(ctx context.Context, creds *model.TelephonyCredentials) error
}

type credentialsRepository struct {
	db *gorm.DB
}

// NewTelephonyCredentialsRepository builds a GORM-backed repository.
func NewTelephonyCredentialsRepository(db *gorm.DB) TelephonyCredentialsRepository {
	return &credentialsRepository{db: db}
}

// Get returns the stored credentials, or gorm.ErrRecordNotFound when the
// vendor has never been configured.
func (r *credentialsRepository) Get(ctx context.Context) (*model.TelephonyCredentials, error) {
	var creds model.TelephonyCredentials
	if err := r.db.WithContext(ctx).First(&creds).Error; err != nil {
		return nil, err
	}
	return &creds, nil
}

// Replace swaps the stored credential set for the given one inside a
// transaction, keeping the table at a single row.
func (r *credentialsRepository) Replace(ctx context.Context, creds *model.TelephonyCredentials) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.TelephonyCredentials{}).Error; err != nil {
			return err
		}
		return tx.Create(creds).Error
	})
}
