package model

import "time"

// UserRole enumerates the access levels a user can hold.
type UserRole string

const (
	// RoleAdmin can manage users, telephony credentials, and contacts.
	RoleAdmin UserRole = "admin"
	// RoleManager can view the user directory and receive directory broadcasts.
	RoleManager UserRole = "manager"
	// RoleUser is a regular agent who signs in and handles calls.
	RoleUser UserRole = "user"
)

// Valid reports whether the role is one of the known levels.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// User represents a staff member who can sign in and handle calls.
// Rows are never hard-deleted: delete flips IsActive to false and the row
// stays, so the unique email and extension remain reserved.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	FullName     string    `json:"full_name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Phone        string    `json:"phone,omitempty" gorm:"size:50"`
	Extension    string    `json:"extension" gorm:"uniqueIndex;size:20;not null"`
	Role         UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'user';index"`
	IsActive     bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Presence *CallPresence `json:"presence,omitempty" gorm:"foreignKey:UserID"`
}

// Identity returns the principal view of the user carried by sessions
// and realtime connections.
func (u *User) Identity() *UserIdentity {
	return &UserIdentity{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Extension: u.Extension,
		Role:      u.Role,
	}
}

// UserIdentity is the authenticated principal attached to a request or a
// realtime connection after token validation.
type UserIdentity struct {
	ID        uint     `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Extension string   `json:"extension"`
	Role      UserRole `json:"role"`
}
