package bridge

import "context"

// Migrator performs lazy password migration: verify the plaintext against
// the imported source hash, rehash it natively in the target store, and
// return a native session.
//
// The whole operation is safe to retry. A repeat after a successful
// migration short-circuits on the native-login fast path, so no step runs
// twice with different effects.
type Migrator struct {
	store    UserStore
	sessions SessionAPI
	creds    CredentialVerifier
	logger   Logger
}

// NewMigrator wires the password-login-with-migration flow.
func NewMigrator(store UserStore, sessions SessionAPI, creds CredentialVerifier) *Migrator {
	return &Migrator{
		store:    store,
		sessions: sessions,
		creds:    creds,
		logger:   defLogger{},
	}
}

func (m *Migrator) WithLogger(logger Logger) *Migrator {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// MigrateAndLogin authenticates (email, password) against the target store,
// migrating the source credential on first use. The returned bool reports
// whether a migration happened on this call.
func (m *Migrator) MigrateAndLogin(ctx context.Context, email, password string) (*SessionTokens, bool, error) {
	email = NormalizeEmail(email)

	// Fast path: already-migrated users log in natively, no verification
	// service involved.
	tokens, err := m.sessions.PasswordLogin(ctx, email, password)
	if err == nil {
		return tokens, false, nil
	}
	if IsServiceUnavailable(err) {
		return nil, false, err
	}

	user, err := m.store.GetByEmail(ctx, email)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, false, ErrUserNotFound.Clone().WithMetadata(map[string]any{
				"searched_email": email,
			})
		}
		return nil, false, err
	}

	// A record with a native password already went through migration (or
	// never needed one). The failed fast-path login is the verdict.
	if user.HasNativePassword() {
		return nil, false, ErrCredentialMismatch.Clone()
	}

	si := user.SourceIdentity()
	if !si.HasPasswordCredential() {
		meta := map[string]any{
			"hint": "account uses an external sign-in provider; use the provider login instead",
		}
		if si != nil && len(si.Providers) > 0 {
			meta["providers"] = si.Providers
		}
		return nil, false, ErrNoSourcePassword.Clone().WithMetadata(meta)
	}

	if err := m.creds.Verify(ctx, password, si.Credential()); err != nil {
		return nil, false, err
	}

	// The native password must be durably written before the post-migration
	// login, otherwise that login fails too.
	if err := m.store.SetNativePassword(ctx, user, password); err != nil {
		m.logger.Error("native password write failed", "user_id", user.ID.String(), "error", err)
		clone := ErrPersistence.Clone()
		clone.Source = err
		return nil, false, clone
	}

	// The imported hash has served its purpose. A failed strip is retried
	// implicitly: the record converges next time metadata is written, and
	// the native fast path already wins every future login.
	user.StripSourcePassword()
	if err := m.store.UpdateMetadata(ctx, user); err != nil {
		m.logger.Warn("source hash strip failed", "user_id", user.ID.String(), "error", err)
	}

	tokens, err = m.sessions.PasswordLogin(ctx, email, password)
	if err != nil {
		return nil, false, sessionIssueError("post_migration_login", err)
	}

	m.logger.Info("password migrated", "user_id", user.ID.String())

	return tokens, true, nil
}
