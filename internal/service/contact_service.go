package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/repository"
)

// ContactInput carries the fields for creating or updating a contact.
type ContactInput struct {
	Name        string
	Company     string
	PhoneNumber string
	Email       string
	Notes       string
}

// ContactService exposes address-book operations.
type ContactService interface {
	Create(ctx context.Context, input ContactInput) (*model.Contact, error)
	Update(ctx context.Context, id uint, input ContactInput) (*model.Contact, error)
	Delete(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint) (*model.Contact, error)
	List(ctx context.Context) ([]model.Contact, error)
}

type contactService struct {
	repo repository.ContactRepository
}

// NewContactService builds a ContactService.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactService{repo: repo}
}

func (s *contactService) Create(ctx context.Context, input ContactInput) (*model.Contact, error) {
	contact := &model.Contact{
		Name:        input.Name,
		Company:     input.Company,
		PhoneNumber: input.PhoneNumber,
		Email:       input.Email,
		Notes:       input.Notes,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

func (s *contactService) Update(ctx context.Context, id uint, input ContactInput) (*model.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrContactNotFound
		}
		return nil, fmt.Errorf("find contact: %w", err)
	}

	contact.Name = input.Name
	contact.Company = input.Company
	contact.PhoneNumber = input.PhoneNumber
	contact.Email = input.Email
	contact.Notes = input.Notes

	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrContactNotFound
		}
		return fmt.Errorf("find contact: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *contactService) Get(ctx context.Context, id uint) (*model.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrContactNotFound
		}
		return nil, err
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context) ([]model.Contact, error) {
	return s.repo.List(ctx)
}
