package bridge

import (
	"strings"
	"time"
)

// SignInMethodPassword is the source-provider method for password accounts.
// Anything else (oauth providers, phone, anonymous) carries no password
// credential worth migrating.
const SignInMethodPassword = "password"

// Claims are the identity attributes extracted from a verified source
// token. They are ephemeral and live only for the duration of one request.
type Claims struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	SignInMethod  string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// NormalizedEmail returns the claim email lowered and trimmed, the form
// used for every store comparison.
func (c *Claims) NormalizedEmail() string {
	return NormalizeEmail(c.Email)
}

// Expired reports whether the claim expiry has passed at the given instant.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// UsedPassword reports whether the source sign-in method was password based.
func (c *Claims) UsedPassword() bool {
	return c.SignInMethod == SignInMethodPassword
}

// NormalizeEmail lowers and trims an email address. Target store emails are
// unique case-insensitively, so every comparison goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
