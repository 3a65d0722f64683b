package bridge_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	bridge "github.com/goliatone/go-identity-bridge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func migratableUser() *bridge.User {
	user := &bridge.User{ID: uuid.New(), Email: "test@example.com"}
	return user.SetSourceIdentity(&bridge.SourceIdentity{
		SubjectID:    "sub-1",
		Email:        "test@example.com",
		PasswordHash: "imported-hash",
		PasswordSalt: "imported-salt",
		Providers:    []string{"password"},
	})
}

func TestMigrator_MigrateAndLogin(t *testing.T) {
	ctx := context.Background()
	nativeTokens := &bridge.SessionTokens{AccessToken: "access", RefreshToken: "refresh"}

	t.Run("already migrated users take the fast path", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").Return(nativeTokens, nil)

		migrator := bridge.NewMigrator(store, sessions, creds)

		tokens, migrated, err := migrator.MigrateAndLogin(ctx, "Test@Example.com", "secret")

		require.NoError(t, err)
		assert.Equal(t, nativeTokens, tokens)
		assert.False(t, migrated)
		creds.AssertNotCalled(t, "Verify")
		store.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("first login migrates the source credential", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		user := migratableUser()

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone()).Once()
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil)
		creds.On("Verify", ctx, "secret", bridge.SourceCredential{Hash: "imported-hash", Salt: "imported-salt"}).
			Return(nil)
		store.On("SetNativePassword", ctx, user, "secret").Return(nil)
		store.On("UpdateMetadata", ctx, user).Return(nil)
		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nativeTokens, nil).Once()

		migrator := bridge.NewMigrator(store, sessions, creds).WithLogger(&captureLogger{})

		tokens, migrated, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		require.NoError(t, err)
		assert.Equal(t, nativeTokens, tokens)
		assert.True(t, migrated)

		si := user.SourceIdentity()
		require.NotNil(t, si)
		assert.Empty(t, si.PasswordHash, "imported hash is stripped after migration")
		store.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("wrong password is a mismatch, nothing written", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		sessions.On("PasswordLogin", ctx, "test@example.com", "wrong").
			Return(nil, bridge.ErrCredentialMismatch.Clone())
		store.On("GetByEmail", ctx, "test@example.com").Return(migratableUser(), nil)
		creds.On("Verify", ctx, "wrong", mock.Anything).Return(bridge.ErrCredentialMismatch.Clone())

		migrator := bridge.NewMigrator(store, sessions, creds)

		tokens, migrated, err := migrator.MigrateAndLogin(ctx, "test@example.com", "wrong")

		assert.Nil(t, tokens)
		assert.False(t, migrated)
		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeCredentialMismatch))
		store.AssertNotCalled(t, "SetNativePassword")
	})

	t.Run("migrated user with wrong password is a mismatch, not an oauth hint", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		user := &bridge.User{ID: uuid.New(), Email: "test@example.com", HasPassword: true}

		sessions.On("PasswordLogin", ctx, "test@example.com", "wrong").
			Return(nil, bridge.ErrCredentialMismatch.Clone())
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil)

		migrator := bridge.NewMigrator(store, sessions, creds)

		_, _, err := migrator.MigrateAndLogin(ctx, "test@example.com", "wrong")

		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeCredentialMismatch))
		creds.AssertNotCalled(t, "Verify")
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)

		sessions.On("PasswordLogin", ctx, "ghost@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone())
		store.On("GetByEmail", ctx, "ghost@example.com").Return(nil, bridge.ErrUserNotFound.Clone())

		migrator := bridge.NewMigrator(store, sessions, new(MockCredentialVerifier))

		_, _, err := migrator.MigrateAndLogin(ctx, "ghost@example.com", "secret")

		assert.True(t, bridge.IsUserNotFound(err))
	})

	t.Run("oauth only accounts get a pointed error", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)

		user := (&bridge.User{ID: uuid.New(), Email: "test@example.com"}).
			SetSourceIdentity(&bridge.SourceIdentity{
				SubjectID: "sub-1",
				Providers: []string{"google.com"},
			})

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone())
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil)

		migrator := bridge.NewMigrator(store, sessions, new(MockCredentialVerifier))

		_, _, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		require.Error(t, err)
		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeNoSourcePassword))

		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, []string{"google.com"}, richErr.Metadata["providers"])
	})

	t.Run("verification service outage fails closed", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone())
		store.On("GetByEmail", ctx, "test@example.com").Return(migratableUser(), nil)
		creds.On("Verify", ctx, "secret", mock.Anything).
			Return(bridge.ErrServiceUnavailable.Clone())

		migrator := bridge.NewMigrator(store, sessions, creds)

		_, _, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		assert.True(t, bridge.IsServiceUnavailable(err))
		store.AssertNotCalled(t, "SetNativePassword")
	})

	t.Run("target store outage on fast path propagates", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrServiceUnavailable.Clone())

		migrator := bridge.NewMigrator(store, sessions, new(MockCredentialVerifier))

		_, _, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		assert.True(t, bridge.IsServiceUnavailable(err))
		store.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("password write failure surfaces before any strip", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		user := migratableUser()

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone())
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil)
		creds.On("Verify", ctx, "secret", mock.Anything).Return(nil)
		store.On("SetNativePassword", ctx, user, "secret").Return(bridge.ErrPersistence.Clone())

		migrator := bridge.NewMigrator(store, sessions, creds).WithLogger(&captureLogger{})

		_, migrated, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		assert.False(t, migrated)
		assert.True(t, bridge.HasTextCode(err, bridge.TextCodePersistence))
		store.AssertNotCalled(t, "UpdateMetadata")
		assert.NotEmpty(t, user.SourceIdentity().PasswordHash, "source hash stays until the native write lands")
	})

	t.Run("strip failure does not fail the login", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		user := migratableUser()

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone()).Once()
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil)
		creds.On("Verify", ctx, "secret", mock.Anything).Return(nil)
		store.On("SetNativePassword", ctx, user, "secret").Return(nil)
		store.On("UpdateMetadata", ctx, user).Return(bridge.ErrPersistence.Clone())
		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nativeTokens, nil).Once()

		logger := &captureLogger{}
		migrator := bridge.NewMigrator(store, sessions, creds).WithLogger(logger)

		tokens, migrated, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		require.NoError(t, err)
		assert.True(t, migrated)
		assert.Equal(t, nativeTokens, tokens)

		lines := logger.all()
		require.NotEmpty(t, lines)
		assert.Contains(t, lines[0], "source hash strip failed")
	})

	t.Run("post migration login failure is staged", func(t *testing.T) {
		store := new(MockUserStore)
		sessions := new(MockSessionAPI)
		creds := new(MockCredentialVerifier)

		user := migratableUser()

		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrCredentialMismatch.Clone()).Once()
		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil)
		creds.On("Verify", ctx, "secret", mock.Anything).Return(nil)
		store.On("SetNativePassword", ctx, user, "secret").Return(nil)
		store.On("UpdateMetadata", ctx, user).Return(nil)
		sessions.On("PasswordLogin", ctx, "test@example.com", "secret").
			Return(nil, bridge.ErrServiceUnavailable.Clone()).Once()

		migrator := bridge.NewMigrator(store, sessions, creds).WithLogger(&captureLogger{})

		_, migrated, err := migrator.MigrateAndLogin(ctx, "test@example.com", "secret")

		assert.False(t, migrated)
		require.Error(t, err)

		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, "post_migration_login", richErr.Metadata["stage"])
	})
}
