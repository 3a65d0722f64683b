package bridge

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// SessionTokens is a target-provider session. Every mint produces fresh,
// independent token values.
type SessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// SourceCredential is the password material imported from the source
// provider: the stored hash plus its per-user salt. The fixed algorithm
// parameters (memory cost, rounds, salt separator, signer key) live in
// configuration, not on the record.
type SourceCredential struct {
	Hash string
	Salt string
}

// ClaimsVerifier validates a source-provider token and extracts identity
// claims. Implementations must fail closed: a transport failure is surfaced
// as ErrServiceUnavailable, never treated as a valid token.
type ClaimsVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// CredentialVerifier validates a plaintext password against a stored
// source-provider credential. A nil return means the password matches.
type CredentialVerifier interface {
	Verify(ctx context.Context, password string, cred SourceCredential) error
}

// UserStore is the target identity datastore. The gateway never creates or
// deletes records; it only reads and selectively updates them.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByExternalID(ctx context.Context, subjectID string) (*User, error)
	SetNativePassword(ctx context.Context, user *User, plaintext string) error
	UpdateMetadata(ctx context.Context, user *User) error
}

// SessionAPI is the slice of the target store's surface that issues
// sessions: the one-time sign-in artifact flow and native password login.
type SessionAPI interface {
	GenerateSignInArtifact(ctx context.Context, email string) (string, error)
	RedeemSignInArtifact(ctx context.Context, artifact string) (*SessionTokens, error)
	PasswordLogin(ctx context.Context, email, password string) (*SessionTokens, error)
}

// ExchangeTracker records successful session exchanges. Implementations are
// best-effort and must never block or fail the caller.
type ExchangeTracker interface {
	RecordExchange(user *User)
}

// NopLogger discards everything. Useful as a default for adapters and in
// tests that don't assert on logs.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] BRIDGE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] BRIDGE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] BRIDGE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] BRIDGE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
