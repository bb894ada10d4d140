package repository

import (
	"context"

	"gorm.io/gorm"

	"dialdesk/internal/model"
)

// ContactRepository defines contact persistence operations.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Contact, error)
	FindByPhone(ctx context.Context, number string) (*model.Contact, error)
	List(ctx context.Context) ([]model.Contact, error)
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository builds a GORM-backed repository.
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// Create creates a new contact.
func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// Update updates an existing contact.
func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

// Delete soft-deletes a contact.
func (r *contactRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Contact{}, id).Error
}

// FindByID finds a contact by ID.
func (r *contactRepository) FindByID(ctx context.Context, id uint) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).First(&contact, id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

// FindByPhone finds the contact holding a phone number.
func (r *contactRepository) FindByPhone(ctx context.Context, number string) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).Where("phone_number = ?", number).First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

// List returns all contacts ordered by name.
func (r *contactRepository) List(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := r.db.WithContext(ctx).Order("name asc").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}
