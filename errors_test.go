package bridge_test

import (
	"testing"

	"github.com/goliatone/go-errors"
	bridge "github.com/goliatone/go-identity-bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCatalog(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.Error
		code     int
		textCode string
	}{
		{"token expired", bridge.ErrTokenExpired, errors.CodeUnauthorized, "token_expired"},
		{"token revoked", bridge.ErrTokenRevoked, errors.CodeUnauthorized, "token_revoked"},
		{"token malformed", bridge.ErrTokenMalformed, errors.CodeUnauthorized, "token_malformed"},
		{"user not found", bridge.ErrUserNotFound, errors.CodeNotFound, "user_not_found"},
		{"credential mismatch", bridge.ErrCredentialMismatch, errors.CodeUnauthorized, "credential_mismatch"},
		{"no source password", bridge.ErrNoSourcePassword, errors.CodeUnauthorized, "no_source_password"},
		{"service unavailable", bridge.ErrServiceUnavailable, errors.CodeInternal, "service_unavailable"},
		{"session issue", bridge.ErrSessionIssue, errors.CodeInternal, "session_issue_failed"},
		{"persistence", bridge.ErrPersistence, errors.CodeInternal, "persistence_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
		})
	}
}

func TestHasTextCode(t *testing.T) {
	t.Run("matches catalog errors", func(t *testing.T) {
		assert.True(t, bridge.HasTextCode(bridge.ErrTokenExpired, bridge.TextCodeTokenExpired))
		assert.False(t, bridge.HasTextCode(bridge.ErrTokenExpired, bridge.TextCodeTokenRevoked))
	})

	t.Run("matches clones with metadata", func(t *testing.T) {
		err := bridge.ErrUserNotFound.Clone().WithMetadata(map[string]any{
			"searched_email": "test@example.com",
		})
		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeUserNotFound))
	})

	t.Run("false for plain errors", func(t *testing.T) {
		assert.False(t, bridge.HasTextCode(assert.AnError, bridge.TextCodeUserNotFound))
	})
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, bridge.IsUserNotFound(bridge.ErrUserNotFound.Clone()))
	assert.False(t, bridge.IsUserNotFound(bridge.ErrTokenExpired))

	assert.True(t, bridge.IsServiceUnavailable(bridge.ErrServiceUnavailable.Clone()))
	assert.False(t, bridge.IsServiceUnavailable(bridge.ErrCredentialMismatch))
}

func TestClone_DoesNotMutateCatalog(t *testing.T) {
	clone := bridge.ErrUserNotFound.Clone().WithMetadata(map[string]any{
		"searched_email": "test@example.com",
	})

	require.NotNil(t, clone.Metadata)
	assert.Nil(t, bridge.ErrUserNotFound.Metadata, "catalog entry must stay pristine")
}
