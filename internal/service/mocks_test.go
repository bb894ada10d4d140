package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"dialdesk/internal/model"
	"dialdesk/internal/realtime"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role model.UserRole) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExtensionTaken(ctx context.Context, extension string, excludeID uint) (bool, error) {
	args := m.Called(ctx, extension, excludeID)
	return args.Bool(0), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockCredentialsRepository is a mock implementation of TelephonyCredentialsRepository.
type MockCredentialsRepository struct {
	mock.Mock
}

func (m *MockCredentialsRepository) Get(ctx context.Context) (*model.TelephonyCredentials, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TelephonyCredentials), args.Error(1)
}

func (m *MockCredentialsRepository) Replace(ctx context.Context, creds *model.TelephonyCredentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

// MockPresenceRepository is a mock implementation of CallPresenceRepository.
type MockPresenceRepository struct {
	mock.Mock
}

func (m *MockPresenceRepository) Upsert(ctx context.Context, presence *model.CallPresence) error {
	args := m.Called(ctx, presence)
	return args.Error(0)
}

func (m *MockPresenceRepository) FindByUserID(ctx context.Context, userID uint) (*model.CallPresence, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallPresence), args.Error(1)
}

func (m *MockPresenceRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPresenceRepository) List(ctx context.Context) ([]model.CallPresence, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CallPresence), args.Error(1)
}

// MockContactRepository is a mock implementation of ContactRepository.
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) Update(ctx context.Context, contact *model.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContactRepository) FindByID(ctx context.Context, id uint) (*model.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactRepository) FindByPhone(ctx context.Context, number string) (*model.Contact, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *MockContactRepository) List(ctx context.Context) ([]model.Contact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

// MockCallLogRepository is a mock implementation of CallLogRepository.
type MockCallLogRepository struct {
	mock.Mock
}

func (m *MockCallLogRepository) Create(ctx context.Context, entry *model.CallLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCallLogRepository) CreateBatch(ctx context.Context, entries []model.CallLog) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockCallLogRepository) ListRecent(ctx context.Context, limit int) ([]model.CallLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CallLog), args.Error(1)
}

func (m *MockCallLogRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.CallLog, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CallLog), args.Error(1)
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id uint, actor *model.UserIdentity) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockUserService) Get(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// broadcastCall records one hub publish for later inspection.
type broadcastCall struct {
	Event realtime.Event
	Roles []model.UserRole // nil for BroadcastToAll
}

// recordingHub captures broadcasts instead of delivering them.
type recordingHub struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (h *recordingHub) BroadcastToAll(event realtime.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, broadcastCall{Event: event})
}

func (h *recordingHub) BroadcastToRoles(event realtime.Event, roles ...model.UserRole) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, broadcastCall{Event: event, Roles: roles})
}

func (h *recordingHub) Calls() []broadcastCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]broadcastCall, len(h.calls))
	copy(out, h.calls)
	return out
}

// stubDirectory serves a fixed connected-user set to the voice webhook.
type stubDirectory struct {
	ids []uint
}

func (d *stubDirectory) ConnectedUserIDs() []uint {
	return d.ids
}
