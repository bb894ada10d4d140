package device

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dialdesk/internal/model"
)

const (
	testUserID  = uint(7)
	testCallSID = "CA-42"
)

type MockLine struct {
	mock.Mock
}

func (m *MockLine) Register(token string) error {
	return m.Called(token).Error(0)
}

func (m *MockLine) Unregister() error {
	return m.Called().Error(0)
}

func (m *MockLine) Accept(callSID string) error {
	return m.Called(callSID).Error(0)
}

func (m *MockLine) Reject(callSID string) error {
	return m.Called(callSID).Error(0)
}

func (m *MockLine) Hangup(callSID string) error {
	return m.Called(callSID).Error(0)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) ReportCallStarted(call Call) error {
	return m.Called(call).Error(0)
}

func (m *MockTracker) ReportCallEnded() error {
	return m.Called().Error(0)
}

// eventLog records which controller events fired, in order.
type eventLog struct {
	mu   sync.Mutex
	keys []EventKey
}

func watchEvents(c *Controller) *eventLog {
	lg := &eventLog{}
	for _, key := range []EventKey{
		EventRegistered, EventUnregistered, EventIncomingCall,
		EventCallActive, EventCallEnded, EventCallDismissed, EventNotice,
	} {
		k := key
		c.Emitter.On(k, func(interface{}) {
			lg.mu.Lock()
			lg.keys = append(lg.keys, k)
			lg.mu.Unlock()
		})
	}
	return lg
}

func (l *eventLog) seen() []EventKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKey, len(l.keys))
	copy(out, l.keys)
	return out
}

func (l *eventLog) count(key EventKey) int {
	n := 0
	for _, k := range l.seen() {
		if k == key {
			n++
		}
	}
	return n
}

func newTestController() (*Controller, *MockLine, *MockTracker) {
	line := new(MockLine)
	tracker := new(MockTracker)
	return NewController(testUserID, line, tracker), line, tracker
}

// ringIn walks a fresh controller to Ringing on testCallSID.
func ringIn(c *Controller) {
	c.HandleRegistered()
	c.HandleIncoming(testCallSID, "+15557001212", "+15550000")
}

func TestController_RegistrationLifecycle(t *testing.T) {
	c, line, _ := newTestController()
	events := watchEvents(c)
	line.On("Register", "vendor-token").Return(nil)

	err := c.Register("vendor-token")

	assert.NoError(t, err)
	// Registered only once the vendor confirms.
	assert.Equal(t, StateUnregistered, c.State())

	c.HandleRegistered()
	assert.Equal(t, StateRegistered, c.State())

	// A duplicate confirmation changes nothing.
	c.HandleRegistered()
	assert.Equal(t, StateRegistered, c.State())
	assert.Equal(t, 1, events.count(EventRegistered))
	line.AssertExpectations(t)
}

func TestController_RegisterVendorError(t *testing.T) {
	c, line, _ := newTestController()
	events := watchEvents(c)
	line.On("Register", "vendor-token").Return(errors.New("vendor unreachable"))

	err := c.Register("vendor-token")

	assert.Error(t, err)
	assert.Equal(t, StateUnregistered, c.State())
	assert.Equal(t, 1, events.count(EventNotice))
}

func TestController_AnswerFlow(t *testing.T) {
	c, line, tracker := newTestController()
	events := watchEvents(c)
	ringIn(c)

	assert.Equal(t, StateRinging, c.State())
	ringing := c.CurrentCall()
	assert.Equal(t, testCallSID, ringing.SID)
	assert.Equal(t, "+15557001212", ringing.From)
	assert.Equal(t, model.DirectionInbound, ringing.Direction)
	assert.Equal(t, CallRinging, ringing.Status)

	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.MatchedBy(func(call Call) bool {
		return call.SID == testCallSID && call.Status == CallAnswered && !call.StartedAt.IsZero()
	})).Return(nil)

	err := c.Accept()

	assert.NoError(t, err)
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, CallAnswered, c.CurrentCall().Status)
	assert.Equal(t, []EventKey{EventRegistered, EventIncomingCall, EventCallActive}, events.seen())
	line.AssertExpectations(t)
	tracker.AssertExpectations(t)
}

func TestController_SelfAnswerEchoIgnored(t *testing.T) {
	c, line, tracker := newTestController()
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)
	assert.NoError(t, c.Accept())

	// The hub echoes our own answer back. Nothing may move.
	c.HandleCallAnswered(testCallSID, testUserID, "Dana Reyes")

	assert.Equal(t, StateActive, c.State())
	assert.NotNil(t, c.CurrentCall())
	tracker.AssertNumberOfCalls(t, "ReportCallStarted", 1)
	tracker.AssertNotCalled(t, "ReportCallEnded")
}

func TestController_SelfAnswerRace(t *testing.T) {
	c, line, tracker := newTestController()
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)

	// Local accept and the broadcast echo land on different goroutines in
	// production; either order must leave the call active exactly once.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Accept()
	}()
	go func() {
		defer wg.Done()
		c.HandleCallAnswered(testCallSID, testUserID, "Dana Reyes")
	}()
	wg.Wait()

	assert.Equal(t, StateActive, c.State())
	tracker.AssertNumberOfCalls(t, "ReportCallStarted", 1)
	tracker.AssertNotCalled(t, "ReportCallEnded")
}

func TestController_DismissedWhenAnsweredElsewhere(t *testing.T) {
	c, line, tracker := newTestController()
	events := watchEvents(c)
	ringIn(c)

	c.HandleCallAnswered(testCallSID, 9, "Marco Silva")

	assert.Equal(t, StateRegistered, c.State())
	assert.Nil(t, c.CurrentCall())
	assert.Equal(t, 1, events.count(EventCallDismissed))
	line.AssertNotCalled(t, "Accept", mock.Anything)
	tracker.AssertNotCalled(t, "ReportCallStarted", mock.Anything)
	tracker.AssertNotCalled(t, "ReportCallEnded")
}

func TestController_AnsweredElsewhereDifferentCall(t *testing.T) {
	c, _, _ := newTestController()
	ringIn(c)

	// Somebody answered a different call; our popup stays up.
	c.HandleCallAnswered("CA-99", 9, "Marco Silva")

	assert.Equal(t, StateRinging, c.State())
	assert.Equal(t, testCallSID, c.CurrentCall().SID)
}

func TestController_RejectWithoutWrite(t *testing.T) {
	c, line, tracker := newTestController()
	events := watchEvents(c)
	ringIn(c)
	line.On("Reject", testCallSID).Return(nil)

	err := c.Reject()

	assert.NoError(t, err)
	assert.Equal(t, StateRegistered, c.State())
	assert.Nil(t, c.CurrentCall())
	assert.Equal(t, 1, events.count(EventCallDismissed))
	tracker.AssertNotCalled(t, "ReportCallStarted", mock.Anything)
	tracker.AssertNotCalled(t, "ReportCallEnded")
	line.AssertExpectations(t)
}

func TestController_HangupThenDisconnect(t *testing.T) {
	c, line, tracker := newTestController()
	events := watchEvents(c)
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)
	assert.NoError(t, c.Accept())

	line.On("Hangup", testCallSID).Return(nil)
	assert.NoError(t, c.Hangup())
	// The hangup is only a request; the disconnect callback owns the
	// transition.
	assert.Equal(t, StateActive, c.State())

	tracker.On("ReportCallEnded").Return(nil)
	c.HandleDisconnect(testCallSID)

	assert.Equal(t, StateRegistered, c.State())
	assert.Nil(t, c.CurrentCall())
	assert.Equal(t, 1, events.count(EventCallEnded))
	tracker.AssertNumberOfCalls(t, "ReportCallEnded", 1)

	// A late duplicate disconnect is stale and ignored.
	c.HandleDisconnect(testCallSID)
	assert.Equal(t, StateRegistered, c.State())
	tracker.AssertNumberOfCalls(t, "ReportCallEnded", 1)
}

func TestController_CallerAbandonsWhileRinging(t *testing.T) {
	c, _, tracker := newTestController()
	events := watchEvents(c)
	ringIn(c)

	c.HandleDisconnect(testCallSID)

	assert.Equal(t, StateRegistered, c.State())
	assert.Nil(t, c.CurrentCall())
	assert.Equal(t, 1, events.count(EventCallDismissed))
	tracker.AssertNotCalled(t, "ReportCallEnded")
}

func TestController_RegistrationLossDiscardsCall(t *testing.T) {
	c, line, tracker := newTestController()
	events := watchEvents(c)
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)
	assert.NoError(t, c.Accept())

	c.HandleRegistrationLost(errors.New("websocket torn down"))

	assert.Equal(t, StateUnregistered, c.State())
	assert.Nil(t, c.CurrentCall())
	assert.Equal(t, 1, events.count(EventUnregistered))
	tracker.AssertNotCalled(t, "ReportCallEnded")
}

func TestController_BusyDeviceDoesNotRing(t *testing.T) {
	c, line, tracker := newTestController()
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)
	assert.NoError(t, c.Accept())

	c.HandleIncoming("CA-99", "+15553334444", "+15550000")

	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, testCallSID, c.CurrentCall().SID)
}

func TestController_LocalOpsRequireState(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(c *Controller)
		op      func(c *Controller) error
		wantErr error
	}{
		{
			name:    "accept with nothing ringing",
			prepare: func(c *Controller) { c.HandleRegistered() },
			op:      (*Controller).Accept,
			wantErr: ErrNoRingingCall,
		},
		{
			name:    "reject with nothing ringing",
			prepare: func(c *Controller) { c.HandleRegistered() },
			op:      (*Controller).Reject,
			wantErr: ErrNoRingingCall,
		},
		{
			name:    "hangup while only ringing",
			prepare: ringIn,
			op:      (*Controller).Hangup,
			wantErr: ErrNoActiveCall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController()
			tt.prepare(c)

			err := tt.op(c)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestController_ShutdownClearsActiveCall(t *testing.T) {
	c, line, tracker := newTestController()
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)
	assert.NoError(t, c.Accept())

	line.On("Hangup", testCallSID).Return(nil)
	line.On("Unregister").Return(nil)
	tracker.On("ReportCallEnded").Return(nil)

	c.Shutdown()

	assert.Equal(t, StateUnregistered, c.State())
	assert.Nil(t, c.CurrentCall())
	line.AssertExpectations(t)
	tracker.AssertExpectations(t)
}
