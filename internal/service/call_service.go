package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dialdesk/internal/cache"
	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/realtime"
	"dialdesk/internal/repository"
)

const (
	logBatchSize    = 10
	historyLimit    = 50
	historyLimitMax = 200
)

// StartCallInput describes the call a user just answered or placed.
type StartCallInput struct {
	CallSID      string
	CallerNumber string
	Direction    model.CallDirection
	StartedAt    time.Time // zero means now
}

// CallService tracks who is on a call, fans presence out to realtime
// clients, and records finished calls.
type CallService interface {
	StartCall(ctx context.Context, userID uint, input StartCallInput) (*model.CallPresence, error)
	EndCall(ctx context.Context, userID uint) error
	ActiveCalls(ctx context.Context) ([]model.CallPresence, error)
	History(ctx context.Context, limit int) ([]model.CallLog, error)
	HistoryByUser(ctx context.Context, userID uint, limit int) ([]model.CallLog, error)
	Close()
}

type callService struct {
	presenceRepo repository.CallPresenceRepository
	userRepo     repository.UserRepository
	contactRepo  repository.ContactRepository
	callLogRepo  repository.CallLogRepository
	cache        *cache.Client
	hub          Broadcaster

	// Channel for async call record writes
	logChannel chan model.CallLog
	workerDone chan struct{}
}

// NewCallService creates a new call service and starts its async call
// record worker.
func NewCallService(
	presenceRepo repository.CallPresenceRepository,
	userRepo repository.UserRepository,
	contactRepo repository.ContactRepository,
	callLogRepo repository.CallLogRepository,
	cache *cache.Client,
	hub Broadcaster,
) CallService {
	service := &callService{
		presenceRepo: presenceRepo,
		userRepo:     userRepo,
		contactRepo:  contactRepo,
		callLogRepo:  callLogRepo,
		cache:        cache,
		hub:          hub,
		logChannel:   make(chan model.CallLog, 100),
		workerDone:   make(chan struct{}),
	}

	// Start async log worker
	go service.logWorker(context.Background())

	return service
}

// logWorker batches finished-call records so hangup bursts become a few
// inserts instead of many.
func (s *callService) logWorker(ctx context.Context) {
	defer close(s.workerDone)

	batch := make([]model.CallLog, 0, logBatchSize)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-s.logChannel:
			if !ok {
				// Channel closed, flush remaining records
				if len(batch) > 0 {
					_ = s.callLogRepo.CreateBatch(ctx, batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= logBatchSize {
				_ = s.callLogRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			// Flush batch periodically
			if len(batch) > 0 {
				_ = s.callLogRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close flushes pending call records and stops the worker.
func (s *callService) Close() {
	close(s.logChannel)
	<-s.workerDone
}

// StartCall marks the user as on the given call, tagging the presence
// with the contact name behind the caller number when we know it. The
// row is upserted, so answering a new call while a stale one was never
// cleared simply overwrites it. Every start broadcasts call_answered
// first and the busy notice second: ringing devices need the answer
// before anything else.
func (s *callService) StartCall(ctx context.Context, userID uint, input StartCallInput) (*model.CallPresence, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	direction := input.Direction
	if direction == "" {
		direction = model.DirectionInbound
	}
	startedAt := input.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	presence := &model.CallPresence{
		UserID:       user.ID,
		CallSID:      input.CallSID,
		CallerNumber: input.CallerNumber,
		CallerName:   s.resolveCallerName(ctx, input.CallerNumber),
		Direction:    direction,
		StartedAt:    startedAt,
	}
	if err := s.presenceRepo.Upsert(ctx, presence); err != nil {
		return nil, fmt.Errorf("upsert presence: %w", err)
	}

	s.invalidateDirectory(ctx, user.ID)

	s.hub.BroadcastToAll(realtime.CallAnswered(input.CallSID, user.ID, user.FullName))
	s.hub.BroadcastToAll(realtime.UserCallStarted(user.ID, user.FullName))

	return presence, nil
}

// EndCall clears the user's presence, queues the call record, and tells
// everyone the user is free. Ending a call that is already over is a
// no-op, so client and vendor callbacks can race without harm.
func (s *callService) EndCall(ctx context.Context, userID uint) error {
	presence, err := s.presenceRepo.FindByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return fmt.Errorf("find presence: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if _, err := s.presenceRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}

	endedAt := time.Now()
	s.enqueueRecord(ctx, model.CallLog{
		CallSID:      presence.CallSID,
		UserID:       userID,
		CallerNumber: presence.CallerNumber,
		CallerName:   presence.CallerName,
		Direction:    presence.Direction,
		StartedAt:    presence.StartedAt,
		EndedAt:      endedAt,
		DurationSecs: int64(endedAt.Sub(presence.StartedAt) / time.Second),
	})

	s.invalidateDirectory(ctx, userID)

	s.hub.BroadcastToAll(realtime.UserCallEnded(user.ID, user.FullName))

	return nil
}

// ActiveCalls lists every user currently on a call.
func (s *callService) ActiveCalls(ctx context.Context) ([]model.CallPresence, error) {
	return s.presenceRepo.List(ctx)
}

// History returns the most recently finished calls.
func (s *callService) History(ctx context.Context, limit int) ([]model.CallLog, error) {
	return s.callLogRepo.ListRecent(ctx, clampLimit(limit))
}

// HistoryByUser returns the most recently finished calls of one user.
func (s *callService) HistoryByUser(ctx context.Context, userID uint, limit int) ([]model.CallLog, error) {
	return s.callLogRepo.ListByUser(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return historyLimit
	}
	if limit > historyLimitMax {
		return historyLimitMax
	}
	return limit
}

// resolveCallerName puts a contact name on the number if we know it.
func (s *callService) resolveCallerName(ctx context.Context, number string) string {
	if number == "" {
		return ""
	}
	contact, err := s.contactRepo.FindByPhone(ctx, number)
	if err != nil {
		return ""
	}
	return contact.Name
}

// enqueueRecord hands the record to the async worker without blocking;
// if the channel is full it falls back to a synchronous write.
func (s *callService) enqueueRecord(ctx context.Context, entry model.CallLog) {
	select {
	case s.logChannel <- entry:
	default:
		_ = s.callLogRepo.Create(ctx, &entry)
	}
}

// invalidateDirectory drops the cached directory views that embed call
// presence.
func (s *callService) invalidateDirectory(ctx context.Context, userID uint) {
	_ = s.cache.Delete(ctx, fmt.Sprintf("user:%d", userID), userListCacheKey)
}
