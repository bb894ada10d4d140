package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallLog is the permanent record of a finished call. Rows are written in
// batches by an async worker so a burst of hangups never blocks requests.
type CallLog struct {
	ID           uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	CallSID      string        `json:"call_sid" gorm:"size:64;not null;index"`
	UserID       uint          `json:"user_id" gorm:"not null;index"`
	CallerNumber string        `json:"caller_number,omitempty" gorm:"size:32"`
	CallerName   string        `json:"caller_name,omitempty" gorm:"size:255"`
	Direction    CallDirection `json:"direction" gorm:"type:varchar(10);not null"`
	StartedAt    time.Time     `json:"started_at" gorm:"not null"`
	EndedAt      time.Time     `json:"ended_at" gorm:"not null"`
	DurationSecs int64         `json:"duration_secs" gorm:"not null"`
	CreatedAt    time.Time     `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (cl *CallLog) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == uuid.Nil {
		cl.ID = uuid.New()
	}
	return nil
}
