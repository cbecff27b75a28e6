package models

import "time"

// UserProfile represents an account in the system
type UserProfile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  *string   `json:"-"`
	OAuthProvider *string   `json:"-"`
	OAuthSubject  *string   `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasPassword reports whether the account can log in with a password
func (u *UserProfile) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Session is an issued bearer token and the user it belongs to
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *UserProfile `json:"user"`
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SignupCode is a pending email verification for a new password account.
// Only the bcrypt hash of the code is stored.
type SignupCode struct {
	Email     string
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt reports whether the code has expired at now
func (c *SignupCode) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
