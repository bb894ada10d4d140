package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/realtime"
)

func newUserServiceForTest(
	mUsers *MockUserRepository,
	mSessions *MockSessionRepository,
	mPresence *MockPresenceRepository,
	hub *recordingHub,
) UserService {
	return NewUserService(mUsers, mSessions, mPresence, nil, hub)
}

func TestUserService_Create(t *testing.T) {
	input := CreateUserInput{
		FullName:  "Omar Haddad",
		Email:     "omar@example.com",
		Password:  "password123",
		Phone:     "+15550100",
		Extension: "1004",
	}

	tests := []struct {
		name          string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name: "successful create",
			setupMock: func(m *MockUserRepository) {
				m.On("EmailTaken", mock.Anything, "omar@example.com", uint(0)).Return(false, nil)
				m.On("ExtensionTaken", mock.Anything, "1004", uint(0)).Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "email taken",
			setupMock: func(m *MockUserRepository) {
				m.On("EmailTaken", mock.Anything, "omar@example.com", uint(0)).Return(true, nil)
			},
			expectedError: errors.ErrEmailTaken,
		},
		{
			name: "extension taken by a deleted user",
			setupMock: func(m *MockUserRepository) {
				m.On("EmailTaken", mock.Anything, "omar@example.com", uint(0)).Return(false, nil)
				m.On("ExtensionTaken", mock.Anything, "1004", uint(0)).Return(true, nil)
			},
			expectedError: errors.ErrExtensionTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUsers := new(MockUserRepository)
			hub := &recordingHub{}
			tt.setupMock(mockUsers)

			service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), hub)
			user, err := service.Create(context.Background(), input)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, user)
				// A conflict must not write or announce anything.
				mockUsers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				assert.Empty(t, hub.Calls())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "omar@example.com", user.Email)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.True(t, user.IsActive)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))

				calls := hub.Calls()
				assert.Len(t, calls, 1)
				assert.Equal(t, realtime.EventUserCreated, calls[0].Event.Type)
				assert.Equal(t, []model.UserRole{model.RoleAdmin, model.RoleManager}, calls[0].Roles)
			}

			mockUsers.AssertExpectations(t)
		})
	}
}

func TestUserService_Update_EmailConflict(t *testing.T) {
	existing := testUser()

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
	mockUsers.On("EmailTaken", mock.Anything, "taken@example.com", existing.ID).Return(true, nil)

	hub := &recordingHub{}
	service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), hub)

	email := "taken@example.com"
	user, err := service.Update(context.Background(), existing.ID, UpdateUserInput{Email: &email})

	assert.Equal(t, errors.ErrEmailTaken, err)
	assert.Nil(t, user)
	mockUsers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Empty(t, hub.Calls())
}

func TestUserService_Update_DeactivateRevokesSessions(t *testing.T) {
	existing := testUser()

	mockUsers := new(MockUserRepository)
	mockSessions := new(MockSessionRepository)
	mockUsers.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
	mockUsers.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
	mockSessions.On("DeleteByUserID", mock.Anything, existing.ID).Return(int64(2), nil)

	hub := &recordingHub{}
	service := newUserServiceForTest(mockUsers, mockSessions, new(MockPresenceRepository), hub)

	inactive := false
	user, err := service.Update(context.Background(), existing.ID, UpdateUserInput{IsActive: &inactive})

	assert.NoError(t, err)
	assert.False(t, user.IsActive)

	calls := hub.Calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, realtime.EventUserUpdated, calls[0].Event.Type)

	mockUsers.AssertExpectations(t)
	mockSessions.AssertExpectations(t)
}

func TestUserService_Update_ReactivateKeepsSessionsAlone(t *testing.T) {
	existing := testUser()
	existing.IsActive = false

	mockUsers := new(MockUserRepository)
	mockSessions := new(MockSessionRepository)
	mockUsers.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
	mockUsers.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	service := newUserServiceForTest(mockUsers, mockSessions, new(MockPresenceRepository), &recordingHub{})

	active := true
	user, err := service.Update(context.Background(), existing.ID, UpdateUserInput{IsActive: &active})

	assert.NoError(t, err)
	assert.True(t, user.IsActive)
	mockSessions.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
}

func TestUserService_Update_PasswordRehash(t *testing.T) {
	existing := testUser()
	oldHash := existing.PasswordHash

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
	mockUsers.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), &recordingHub{})

	password := "fresh-password"
	user, err := service.Update(context.Background(), existing.ID, UpdateUserInput{Password: &password})

	assert.NoError(t, err)
	assert.NotEqual(t, oldHash, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("fresh-password")))
}

func TestUserService_Update_NotFound(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), &recordingHub{})

	name := "Anyone"
	user, err := service.Update(context.Background(), 99, UpdateUserInput{FullName: &name})

	assert.Equal(t, errors.ErrUserNotFound, err)
	assert.Nil(t, user)
}

func TestUserService_Delete(t *testing.T) {
	admin := &model.UserIdentity{ID: 1, Role: model.RoleAdmin}

	t.Run("self delete refused", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		hub := &recordingHub{}
		service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), hub)

		err := service.Delete(context.Background(), admin.ID, admin)

		assert.Equal(t, errors.ErrSelfDelete, err)
		mockUsers.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		assert.Empty(t, hub.Calls())
	})

	t.Run("not found", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockUsers.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), &recordingHub{})

		assert.Equal(t, errors.ErrUserNotFound, service.Delete(context.Background(), 99, admin))
	})

	t.Run("delete revokes sessions and clears presence", func(t *testing.T) {
		target := testUser()

		mockUsers := new(MockUserRepository)
		mockSessions := new(MockSessionRepository)
		mockPresence := new(MockPresenceRepository)
		mockUsers.On("FindByID", mock.Anything, target.ID).Return(target, nil)
		mockUsers.On("Delete", mock.Anything, target.ID).Return(nil)
		mockSessions.On("DeleteByUserID", mock.Anything, target.ID).Return(int64(1), nil)
		mockPresence.On("DeleteByUserID", mock.Anything, target.ID).Return(int64(1), nil)

		hub := &recordingHub{}
		service := newUserServiceForTest(mockUsers, mockSessions, mockPresence, hub)

		assert.NoError(t, service.Delete(context.Background(), target.ID, admin))

		calls := hub.Calls()
		assert.Len(t, calls, 1)
		assert.Equal(t, realtime.EventUserDeleted, calls[0].Event.Type)
		assert.Equal(t, []model.UserRole{model.RoleAdmin, model.RoleManager}, calls[0].Roles)

		mockUsers.AssertExpectations(t)
		mockSessions.AssertExpectations(t)
		mockPresence.AssertExpectations(t)
	})
}

func TestUserService_Get_NotFound(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(42)).Return(nil, gorm.ErrRecordNotFound)

	service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), &recordingHub{})

	user, err := service.Get(context.Background(), 42)

	assert.Equal(t, errors.ErrUserNotFound, err)
	assert.Nil(t, user)
}

func TestUserService_List(t *testing.T) {
	mockUsers := new(MockUserRepository)
	mockUsers.On("List", mock.Anything).Return([]model.User{
		{ID: 1, Extension: "1001"},
		{ID: 2, Extension: "1002"},
	}, nil)

	service := newUserServiceForTest(mockUsers, new(MockSessionRepository), new(MockPresenceRepository), &recordingHub{})

	users, err := service.List(context.Background())

	assert.NoError(t, err)
	assert.Len(t, users, 2)
}
