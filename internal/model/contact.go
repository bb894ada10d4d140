package model

import (
	"time"

	"gorm.io/gorm"
)

// Contact is an address-book entry, used to put a name on caller numbers.
type Contact struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:255;not null"`
	Company     string         `json:"company,omitempty" gorm:"size:255"`
	PhoneNumber string         `json:"phone_number" gorm:"size:32;not null;index"`
	Email       string         `json:"email,omitempty" gorm:"size:255"`
	Notes       string         `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
