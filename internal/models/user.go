package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Refresh      *RefreshReference
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshReference is the stored half of the currently valid refresh token.
// At most one reference is live per user; replacing it invalidates the
// previously issued refresh token.
type RefreshReference struct {
	Selector     string
	VerifierHash string
	ExpiresAt    time.Time
}

// HasActiveRefresh reports whether the user currently holds a refresh
// reference that has not yet expired.
func (u *User) HasActiveRefresh(now time.Time) bool {
	return u.Refresh != nil && now.Before(u.Refresh.ExpiresAt)
}
