package model

import "time"

// SecretMask replaces the vendor API secret on every credentials read.
// A save that carries the mask back is rejected instead of persisted.
const SecretMask = "********"

// TelephonyCredentials is the tenant's single vendor credential set.
// The table never holds more than one live row; saving replaces it.
type TelephonyCredentials struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	AccountSID  string    `json:"account_sid" gorm:"size:64;not null"`
	APIKey      string    `json:"api_key" gorm:"size:64;not null"`
	APISecret   string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	AppSID      string    `json:"app_sid" gorm:"size:64;not null"`
	PhoneNumber string    `json:"phone_number" gorm:"size:32;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Masked returns the read view of the credentials with the secret
// replaced by SecretMask.
func (t *TelephonyCredentials) Masked() *MaskedCredentials {
	return &MaskedCredentials{
		AccountSID:  t.AccountSID,
		APIKey:      t.APIKey,
		APISecret:   SecretMask,
		AppSID:      t.AppSID,
		PhoneNumber: t.PhoneNumber,
		UpdatedAt:   t.UpdatedAt,
	}
}

// MaskedCredentials is what admin clients see when reading credentials.
type MaskedCredentials struct {
	AccountSID  string    `json:"account_sid"`
	APIKey      string    `json:"api_key"`
	APISecret   string    `json:"api_secret"`
	AppSID      string    `json:"app_sid"`
	PhoneNumber string    `json:"phone_number"`
	UpdatedAt   time.Time `json:"updated_at"`
}
