package bridge

import "github.com/goliatone/go-errors"

const (
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenRevoked       = "token_revoked"
	TextCodeTokenMalformed     = "token_malformed"
	TextCodeUserNotFound       = "user_not_found"
	TextCodeCredentialMismatch = "credential_mismatch"
	TextCodeNoSourcePassword   = "no_source_password"
	TextCodeServiceUnavailable = "service_unavailable"
	TextCodeSessionIssue       = "session_issue_failed"
	TextCodePersistence        = "persistence_failed"
)

// ErrTokenExpired is returned when the source token's expiry has passed.
var ErrTokenExpired = errors.New("source token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked is returned when the source provider reports revocation.
var ErrTokenRevoked = errors.New("source token revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for structurally invalid tokens.
var ErrTokenMalformed = errors.New("source token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when no target record matches the claims.
var ErrUserNotFound = errors.New("no matching user in target store", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrCredentialMismatch is returned when a password fails verification
// against the stored source hash.
var ErrCredentialMismatch = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrNoSourcePassword is returned for records without imported password
// material, which usually means an OAuth-only account.
var ErrNoSourcePassword = errors.New("account has no password to migrate", errors.CategoryAuth).
	WithTextCode(TextCodeNoSourcePassword).
	WithCode(errors.CodeUnauthorized)

// ErrServiceUnavailable covers downstream transport failures, timeouts, and
// non-success responses from external collaborators.
var ErrServiceUnavailable = errors.New("downstream service unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeServiceUnavailable).
	WithCode(errors.CodeInternal)

// ErrSessionIssue is returned when session issuance fails, at either the
// artifact or the redemption step.
var ErrSessionIssue = errors.New("session issuance failed", errors.CategoryOperation).
	WithTextCode(TextCodeSessionIssue).
	WithCode(errors.CodeInternal)

// ErrPersistence is returned when a user-store write fails.
var ErrPersistence = errors.New("target store write failed", errors.CategoryOperation).
	WithTextCode(TextCodePersistence).
	WithCode(errors.CodeInternal)

// HasTextCode reports whether err carries the given machine-readable code.
func HasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsUserNotFound reports whether err is a user-not-found failure.
func IsUserNotFound(err error) bool {
	return HasTextCode(err, TextCodeUserNotFound)
}

// IsServiceUnavailable reports whether err is a downstream availability
// failure rather than a verdict.
func IsServiceUnavailable(err error) bool {
	return HasTextCode(err, TextCodeServiceUnavailable)
}
