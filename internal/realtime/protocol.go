package realtime

import (
	"fmt"

	"dialdesk/internal/model"
)

// MessageTypeAuth is the only client→server message the hub consumes.
const MessageTypeAuth = "auth"

// ClientMessage is the auth handshake a connection must send before it
// receives anything.
type ClientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// EventType names every message the hub pushes to clients.
type EventType string

const (
	EventAuthSuccess     EventType = "auth_success"
	EventAuthError       EventType = "auth_error"
	EventUserCreated     EventType = "user_created"
	EventUserUpdated     EventType = "user_updated"
	EventUserDeleted     EventType = "user_deleted"
	EventUserCallStarted EventType = "user_call_started"
	EventUserCallEnded   EventType = "user_call_ended"
	EventCallAnswered    EventType = "call_answered"
)

// Event is the wire envelope for every server→client push. Only the
// fields relevant to Type are set.
type Event struct {
	Type             EventType           `json:"type"`
	Message          string              `json:"message,omitempty"`
	User             *model.User         `json:"user,omitempty"`
	Identity         *model.UserIdentity `json:"identity,omitempty"`
	UserID           uint                `json:"userId,omitempty"`
	CallSID          string              `json:"callSid,omitempty"`
	AnsweredByUserID uint                `json:"answeredByUserId,omitempty"`
	AnsweredByName   string              `json:"answeredByName,omitempty"`
}

// AuthSuccess confirms a handshake and echoes who the connection now is.
func AuthSuccess(identity *model.UserIdentity) Event {
	return Event{Type: EventAuthSuccess, Identity: identity, Message: "authenticated"}
}

// AuthError rejects a handshake. The connection stays open but unregistered.
func AuthError() Event {
	return Event{Type: EventAuthError, Message: "invalid or expired token"}
}

// UserCreated announces a new user to directory watchers.
func UserCreated(user *model.User) Event {
	return Event{
		Type:    EventUserCreated,
		User:    user,
		Message: fmt.Sprintf("New user created: %s", user.FullName),
	}
}

// UserUpdated announces a user change to directory watchers.
func UserUpdated(user *model.User) Event {
	return Event{
		Type:    EventUserUpdated,
		User:    user,
		Message: fmt.Sprintf("User updated: %s", user.FullName),
	}
}

// UserDeleted announces a removal to directory watchers.
func UserDeleted(user *model.User) Event {
	return Event{
		Type:    EventUserDeleted,
		User:    user,
		Message: fmt.Sprintf("User deleted: %s", user.FullName),
	}
}

// UserCallStarted marks a user busy for everyone's presence view.
func UserCallStarted(userID uint, fullName string) Event {
	return Event{
		Type:    EventUserCallStarted,
		UserID:  userID,
		Message: fmt.Sprintf("%s is on a call", fullName),
	}
}

// UserCallEnded marks a user available again.
func UserCallEnded(userID uint, fullName string) Event {
	return Event{
		Type:    EventUserCallEnded,
		UserID:  userID,
		Message: fmt.Sprintf("%s is off the call", fullName),
	}
}

// CallAnswered tells every ringing device which user took the call so the
// others dismiss it.
func CallAnswered(callSID string, userID uint, fullName string) Event {
	return Event{
		Type:             EventCallAnswered,
		CallSID:          callSID,
		AnsweredByUserID: userID,
		AnsweredByName:   fullName,
	}
}
