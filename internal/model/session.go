package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one issued login token. The ID doubles as the token's "jti"
// claim, and TokenHash holds a SHA-256 digest of the signed token so a
// leaked sessions table cannot be replayed as credentials.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	TokenHash string    `json:"-" gorm:"size:64;not null"` // Never expose in JSON
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the session lifetime has elapsed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
