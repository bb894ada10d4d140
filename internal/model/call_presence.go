package model

import "time"

// CallDirection distinguishes who initiated a call.
type CallDirection string

const (
	// DirectionInbound is a call received on the tenant number.
	DirectionInbound CallDirection = "inbound"
	// DirectionOutbound is a call placed by a user.
	DirectionOutbound CallDirection = "outbound"
)

// Valid reports whether the direction is a known value.
func (d CallDirection) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// CallPresence marks a user as currently on a call. One row per user:
// starting a call upserts the row and ending one deletes it, so a user
// taking back-to-back calls always shows the latest call.
type CallPresence struct {
	UserID       uint          `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	CallSID      string        `json:"call_sid" gorm:"size:64;not null;index"`
	CallerNumber string        `json:"caller_number,omitempty" gorm:"size:32"`
	CallerName   string        `json:"caller_name,omitempty" gorm:"size:255"`
	Direction    CallDirection `json:"direction" gorm:"type:varchar(10);not null"`
	StartedAt    time.Time     `json:"started_at" gorm:"not null"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
