package domain

import "time"

type Admin struct {
	ID           string
	Email        string // stored lowercase
	Username     string
	PasswordHash string
	Role         Role
	IsActive     bool
	LastLoginAt  *time.Time
	MFASecret    *string    // base32 TOTP secret, set at enrollment
	MFAEnabledAt *time.Time // set once the first code is confirmed
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAEnabled reports whether logins need a TOTP code.
func (a Admin) MFAEnabled() bool {
	return a.MFAEnabledAt != nil && a.MFASecret != nil
}
