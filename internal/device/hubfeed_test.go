package device

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dialdesk/internal/realtime"
)

func marshalEvent(t *testing.T, event realtime.Event) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	assert.NoError(t, err)
	return data
}

func TestHubFeed_DispatchDismissesRingingCall(t *testing.T) {
	c, _, tracker := newTestController()
	ringIn(c)
	feed := NewHubFeed("localhost:8081", "tok-abc", c)

	var forwarded []realtime.EventType
	feed.OnEvent = func(event realtime.Event) {
		forwarded = append(forwarded, event.Type)
	}

	keepGoing := feed.dispatch(marshalEvent(t, realtime.CallAnswered(testCallSID, 9, "Marco Silva")))

	assert.True(t, keepGoing)
	assert.Equal(t, StateRegistered, c.State())
	assert.Nil(t, c.CurrentCall())
	assert.Equal(t, []realtime.EventType{realtime.EventCallAnswered}, forwarded)
	tracker.AssertNotCalled(t, "ReportCallEnded")
}

func TestHubFeed_DispatchIgnoresOwnEcho(t *testing.T) {
	c, line, tracker := newTestController()
	ringIn(c)
	line.On("Accept", testCallSID).Return(nil)
	tracker.On("ReportCallStarted", mock.Anything).Return(nil)
	assert.NoError(t, c.Accept())

	feed := NewHubFeed("localhost:8081", "tok-abc", c)
	keepGoing := feed.dispatch(marshalEvent(t, realtime.CallAnswered(testCallSID, testUserID, "Dana Reyes")))

	assert.True(t, keepGoing)
	assert.Equal(t, StateActive, c.State())
	tracker.AssertNumberOfCalls(t, "ReportCallStarted", 1)
}

func TestHubFeed_DispatchStopsOnAuthError(t *testing.T) {
	c, _, _ := newTestController()
	events := watchEvents(c)
	feed := NewHubFeed("localhost:8081", "tok-expired", c)

	keepGoing := feed.dispatch(marshalEvent(t, realtime.AuthError()))

	assert.False(t, keepGoing)
	assert.Equal(t, 1, events.count(EventNotice))
}

func TestHubFeed_DispatchSkipsGarbageFrames(t *testing.T) {
	c, _, _ := newTestController()
	ringIn(c)
	feed := NewHubFeed("localhost:8081", "tok-abc", c)

	keepGoing := feed.dispatch([]byte("{not json"))

	assert.True(t, keepGoing)
	assert.Equal(t, StateRinging, c.State())
}

func TestHubFeed_StopIsIdempotent(t *testing.T) {
	c, _, _ := newTestController()
	feed := NewHubFeed("localhost:8081", "tok-abc", c)

	assert.NotPanics(t, func() {
		feed.Stop()
		feed.Stop()
	})
}
