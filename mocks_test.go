package bridge_test

import (
	"context"
	"fmt"
	"sync"

	bridge "github.com/goliatone/go-identity-bridge"
	"github.com/stretchr/testify/mock"
)

// MockClaimsVerifier implements bridge.ClaimsVerifier
type MockClaimsVerifier struct {
	mock.Mock
}

func (m *MockClaimsVerifier) Verify(ctx context.Context, token string) (*bridge.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*bridge.Claims)
	return claims, args.Error(1)
}

// MockCredentialVerifier implements bridge.CredentialVerifier
type MockCredentialVerifier struct {
	mock.Mock
}

func (m *MockCredentialVerifier) Verify(ctx context.Context, password string, cred bridge.SourceCredential) error {
	args := m.Called(ctx, password, cred)
	return args.Error(0)
}

// MockUserStore implements bridge.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*bridge.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*bridge.User)
	return user, args.Error(1)
}

func (m *MockUserStore) GetByExternalID(ctx context.Context, subjectID string) (*bridge.User, error) {
	args := m.Called(ctx, subjectID)
	user, _ := args.Get(0).(*bridge.User)
	return user, args.Error(1)
}

func (m *MockUserStore) SetNativePassword(ctx context.Context, user *bridge.User, plaintext string) error {
	args := m.Called(ctx, user, plaintext)
	return args.Error(0)
}

func (m *MockUserStore) UpdateMetadata(ctx context.Context, user *bridge.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockSessionAPI implements bridge.SessionAPI
type MockSessionAPI struct {
	mock.Mock
}

func (m *MockSessionAPI) GenerateSignInArtifact(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockSessionAPI) RedeemSignInArtifact(ctx context.Context, artifact string) (*bridge.SessionTokens, error) {
	args := m.Called(ctx, artifact)
	tokens, _ := args.Get(0).(*bridge.SessionTokens)
	return tokens, args.Error(1)
}

func (m *MockSessionAPI) PasswordLogin(ctx context.Context, email, password string) (*bridge.SessionTokens, error) {
	args := m.Called(ctx, email, password)
	tokens, _ := args.Get(0).(*bridge.SessionTokens)
	return tokens, args.Error(1)
}

// captureLogger records formatted log lines so tests can assert on what
// was, and was not, logged.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := level + " " + format
	if len(args) > 0 {
		line += " " + fmt.Sprint(args...)
	}
	l.lines = append(l.lines, line)
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("DBG", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("INF", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("WRN", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("ERR", format, args...) }

func (l *captureLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
