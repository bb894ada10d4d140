package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"dialdesk/internal/errors"
	"dialdesk/internal/model"
)

func TestContactService_Create(t *testing.T) {
	mockContacts := new(MockContactRepository)
	mockContacts.On("Create", mock.Anything, mock.AnythingOfType("*model.Contact")).Return(nil)

	service := NewContactService(mockContacts)
	contact, err := service.Create(context.Background(), ContactInput{
		Name:        "Acme Reception",
		Company:     "Acme Corp",
		PhoneNumber: "+15551234",
	})

	assert.NoError(t, err)
	assert.Equal(t, "Acme Reception", contact.Name)
	assert.Equal(t, "+15551234", contact.PhoneNumber)
	mockContacts.AssertExpectations(t)
}

func TestContactService_Update(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		mockContacts := new(MockContactRepository)
		mockContacts.On("FindByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)

		service := NewContactService(mockContacts)
		contact, err := service.Update(context.Background(), 9, ContactInput{Name: "X"})

		assert.Equal(t, errors.ErrContactNotFound, err)
		assert.Nil(t, contact)
	})

	t.Run("replaces all fields", func(t *testing.T) {
		mockContacts := new(MockContactRepository)
		mockContacts.On("FindByID", mock.Anything, uint(9)).Return(&model.Contact{
			ID:          9,
			Name:        "Old Name",
			PhoneNumber: "+15550001",
		}, nil)
		mockContacts.On("Update", mock.Anything, mock.AnythingOfType("*model.Contact")).Return(nil)

		service := NewContactService(mockContacts)
		contact, err := service.Update(context.Background(), 9, ContactInput{
			Name:        "New Name",
			PhoneNumber: "+15550002",
		})

		assert.NoError(t, err)
		assert.Equal(t, "New Name", contact.Name)
		assert.Equal(t, "+15550002", contact.PhoneNumber)
		assert.Empty(t, contact.Company)
		mockContacts.AssertExpectations(t)
	})
}

func TestContactService_Delete_NotFound(t *testing.T) {
	mockContacts := new(MockContactRepository)
	mockContacts.On("FindByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)

	service := NewContactService(mockContacts)

	assert.Equal(t, errors.ErrContactNotFound, service.Delete(context.Background(), 9))
	mockContacts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestContactService_Get(t *testing.T) {
	mockContacts := new(MockContactRepository)
	mockContacts.On("FindByID", mock.Anything, uint(9)).Return(&model.Contact{ID: 9, Name: "Acme"}, nil)

	service := NewContactService(mockContacts)
	contact, err := service.Get(context.Background(), 9)

	assert.NoError(t, err)
	assert.Equal(t, "Acme", contact.Name)
}
