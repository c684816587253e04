package models

import "time"

// ResetPassword is stored inline on the user row. TokenHash is the SHA-256 of
// the token handed out by forgot-password; both fields are nil when no reset
// is pending.
type ResetPassword struct {
	TokenHash *string    `gorm:"column:token;size:128;index"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
}

func (r ResetPassword) Pending() bool {
	return r.TokenHash != nil
}

func (r ResetPassword) Expired(now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.Before(now)
}
