package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"dialdesk/internal/model"
)

var (
	ErrNotRegistered = errors.New("line is not registered")
	ErrNoRingingCall = errors.New("no ringing call")
	ErrNoActiveCall  = errors.New("no active call")
)

// Call is the controller's record of the call it is currently handling.
// A device drives at most one call at a time.
type Call struct {
	SID       string
	From      string
	To        string
	Direction model.CallDirection
	Status    CallStatus
	StartedAt time.Time
}

// Dismissal explains why a ringing call went away without this device
// taking it.
type Dismissal struct {
	Call           Call
	AnsweredByName string
}

// Line is the vendor-side call leg the controller drives. The production
// binding wraps the vendor SDK; cmd/softphone ships a console-driven one.
type Line interface {
	Register(token string) error
	Unregister() error
	Accept(callSID string) error
	Reject(callSID string) error
	Hangup(callSID string) error
}

// CallStatusWriter persists answered and ended transitions so the rest of
// the team sees presence flip. Implemented by the REST client.
type CallStatusWriter interface {
	ReportCallStarted(call Call) error
	ReportCallEnded() error
}

// Controller is the per-device call state machine. Vendor callbacks, hub
// notifications, and local operations all land here, on arbitrary
// goroutines, and race freely; the controller serializes them and keeps
// the lifecycle Unregistered → Registered → Ringing → Active coherent.
type Controller struct {
	userID  uint
	line    Line
	tracker CallStatusWriter
	logger  *log.Logger

	// Emitter pushes transitions to the attached frontend.
	Emitter *EventEmitter

	mu    sync.RWMutex
	state State
	call  *Call
}

// NewController builds a controller for the given user's device. It starts
// Unregistered; call Register to bring the line up.
func NewController(userID uint, line Line, tracker CallStatusWriter) *Controller {
	return &Controller{
		userID:  userID,
		line:    line,
		tracker: tracker,
		logger:  log.New("device"),
		Emitter: NewEventEmitter(),
		state:   StateUnregistered,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentCall returns a copy of the in-flight call, or nil when idle.
func (c *Controller) CurrentCall() *Call {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.call == nil {
		return nil
	}
	snapshot := *c.call
	return &snapshot
}

// Register asks the vendor to bring the line up with a minted access
// token. The Registered transition happens when the vendor confirms via
// HandleRegistered, not here.
func (c *Controller) Register(token string) error {
	if err := c.line.Register(token); err != nil {
		c.notice(fmt.Sprintf("registration failed: %v", err))
		return err
	}
	return nil
}

// Accept answers the ringing call. On success the controller goes Active
// and reports the answered call to the tracker, which fans the
// call_answered broadcast out to every other ringing device.
func (c *Controller) Accept() error {
	c.mu.RLock()
	if c.state != StateRinging || c.call == nil {
		c.mu.RUnlock()
		return ErrNoRingingCall
	}
	sid := c.call.SID
	c.mu.RUnlock()

	if err := c.line.Accept(sid); err != nil {
		c.notice(fmt.Sprintf("accept failed: %v", err))
		return err
	}

	c.mu.Lock()
	// The call may have been dismissed while the vendor was connecting the
	// leg. Whoever dismissed it already moved the state on.
	if c.state != StateRinging || c.call == nil || c.call.SID != sid {
		c.mu.Unlock()
		c.logger.Warnf("accept raced a dismissal, call=%s", sid)
		return nil
	}
	c.state = StateActive
	c.call.Status = CallAnswered
	c.call.StartedAt = time.Now()
	answered := *c.call
	c.mu.Unlock()

	if err := c.tracker.ReportCallStarted(answered); err != nil {
		c.notice(fmt.Sprintf("presence update failed: %v", err))
	}
	c.Emitter.Emit(EventCallActive, answered)
	return nil
}

// Reject declines the ringing call and returns the controller to
// Registered. Nothing is written to the tracker; this device never owned
// the call.
func (c *Controller) Reject() error {
	c.mu.RLock()
	if c.state != StateRinging || c.call == nil {
		c.mu.RUnlock()
		return ErrNoRingingCall
	}
	sid := c.call.SID
	c.mu.RUnlock()

	if err := c.line.Reject(sid); err != nil {
		c.notice(fmt.Sprintf("reject failed: %v", err))
	}
	c.dismiss(sid, "")
	return nil
}

// Hangup asks the vendor to tear down the active call. The controller
// stays Active until the vendor's disconnect callback arrives; that
// callback owns the Registered transition and the endCall write, so a
// local hangup and a remote hangup land on the same path.
func (c *Controller) Hangup() error {
	c.mu.RLock()
	if c.state != StateActive || c.call == nil {
		c.mu.RUnlock()
		return ErrNoActiveCall
	}
	sid := c.call.SID
	c.mu.RUnlock()

	if err := c.line.Hangup(sid); err != nil {
		c.notice(fmt.Sprintf("hangup failed: %v", err))
		return err
	}
	return nil
}

// HandleRegistered is the vendor callback confirming line registration.
func (c *Controller) HandleRegistered() {
	c.mu.Lock()
	if c.state != StateUnregistered {
		c.mu.Unlock()
		return
	}
	c.state = StateRegistered
	c.mu.Unlock()

	c.logger.Infof("line registered user=%d", c.userID)
	c.Emitter.Emit(EventRegistered, nil)
}

// HandleRegistrationLost is the vendor callback for a dead line. All
// in-flight call state is discarded; nothing is written to the tracker
// because the device can no longer say how the call ended.
func (c *Controller) HandleRegistrationLost(err error) {
	c.mu.Lock()
	if c.state == StateUnregistered {
		c.mu.Unlock()
		return
	}
	dropped := c.call
	c.state = StateUnregistered
	c.call = nil
	c.mu.Unlock()

	if dropped != nil {
		c.logger.Warnf("registration lost mid-call, discarding call=%s", dropped.SID)
	}
	c.Emitter.Emit(EventUnregistered, err)
}

// HandleIncoming is the vendor callback for an inbound call offered to
// this device. A device already ringing or on a call does not ring again;
// the vendor keeps offering the call to the other registered extensions.
func (c *Controller) HandleIncoming(callSID, from, to string) {
	c.mu.Lock()
	if c.state != StateRegistered {
		state := c.state
		c.mu.Unlock()
		c.logger.Infof("ignoring incoming call=%s in state=%s", callSID, state)
		return
	}
	c.state = StateRinging
	c.call = &Call{
		SID:       callSID,
		From:      from,
		To:        to,
		Direction: model.DirectionInbound,
		Status:    CallRinging,
	}
	ringing := *c.call
	c.mu.Unlock()

	c.Emitter.Emit(EventIncomingCall, ringing)
}

// HandleDisconnect is the vendor callback for a finished call leg. An
// Active call ending here is the one transition that writes endCall; a
// Ringing call ending here means the caller gave up before anyone
// answered, which is a plain dismissal.
func (c *Controller) HandleDisconnect(callSID string) {
	c.mu.Lock()
	if c.call == nil || c.call.SID != callSID {
		c.mu.Unlock()
		return
	}
	if c.state == StateRinging {
		c.mu.Unlock()
		c.dismiss(callSID, "")
		return
	}
	ended := *c.call
	c.state = StateRegistered
	c.call = nil
	c.mu.Unlock()

	if err := c.tracker.ReportCallEnded(); err != nil {
		c.notice(fmt.Sprintf("presence update failed: %v", err))
	}
	c.Emitter.Emit(EventCallEnded, ended)
}

// HandleCallAnswered is the hub notification that some user took a call.
// A broadcast naming this controller's own user is its own echo, already
// handled by Accept, and is ignored. Anyone else answering the call this
// device is ringing on dismisses the popup without a tracker write.
func (c *Controller) HandleCallAnswered(callSID string, answeredByUserID uint, answeredByName string) {
	if answeredByUserID == c.userID {
		return
	}
	c.dismiss(callSID, answeredByName)
}

// dismiss drops a ringing call and returns to Registered. It is a no-op
// unless the controller is ringing on exactly the given call.
func (c *Controller) dismiss(callSID, answeredByName string) {
	c.mu.Lock()
	if c.state != StateRinging || c.call == nil || c.call.SID != callSID {
		c.mu.Unlock()
		return
	}
	dismissed := *c.call
	c.state = StateRegistered
	c.call = nil
	c.mu.Unlock()

	c.Emitter.Emit(EventCallDismissed, Dismissal{Call: dismissed, AnsweredByName: answeredByName})
}

// Shutdown tears the device down: hang up whatever is active, clear
// presence, and deregister the line. Errors are logged and swallowed so a
// quitting console never wedges.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	wasActive := c.state == StateActive && c.call != nil
	var sid string
	if wasActive {
		sid = c.call.SID
	}
	c.state = StateUnregistered
	c.call = nil
	c.mu.Unlock()

	if wasActive {
		if err := c.line.Hangup(sid); err != nil {
			c.logger.Warnf("hangup on shutdown: %v", err)
		}
		if err := c.tracker.ReportCallEnded(); err != nil {
			c.logger.Warnf("presence clear on shutdown: %v", err)
		}
	}
	if err := c.line.Unregister(); err != nil {
		c.logger.Warnf("unregister on shutdown: %v", err)
	}
	c.Emitter.Emit(EventUnregistered, nil)
}

func (c *Controller) notice(message string) {
	c.logger.Warn(message)
	c.Emitter.Emit(EventNotice, message)
}
