package bridge

import "context"

// Minter produces a target-provider session for an already-resolved user
// without a password: it requests a single-use sign-in artifact scoped to
// the user's email and immediately redeems it for tokens.
//
// The artifact is never persisted and never appears in logs or error
// payloads in redeemable form. Issue and redeem failures are
// distinguishable through error metadata but share one external contract.
type Minter struct {
	sessions SessionAPI
	logger   Logger
}

// NewMinter creates a session minter over the target store's session API.
func NewMinter(sessions SessionAPI) *Minter {
	return &Minter{
		sessions: sessions,
		logger:   defLogger{},
	}
}

func (m *Minter) WithLogger(logger Logger) *Minter {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Mint issues a fresh session for the user. Each call produces independent
// token values; nothing prevents repeated calls.
func (m *Minter) Mint(ctx context.Context, user *User) (*SessionTokens, error) {
	if user == nil || user.Email == "" {
		return nil, ErrSessionIssue.Clone().WithMetadata(map[string]any{
			"stage": "issue",
		})
	}

	email := NormalizeEmail(user.Email)

	artifact, err := m.sessions.GenerateSignInArtifact(ctx, email)
	if err != nil {
		m.logger.Error("sign-in artifact issuance failed", "email", email, "error", err)
		return nil, sessionIssueError("issue", err)
	}

	tokens, err := m.sessions.RedeemSignInArtifact(ctx, artifact)
	if err != nil {
		m.logger.Error("sign-in artifact redemption failed", "email", email, "error", err)
		return nil, sessionIssueError("redeem", err)
	}

	return tokens, nil
}

func sessionIssueError(stage string, cause error) error {
	clone := ErrSessionIssue.Clone()
	clone.Source = cause
	return clone.WithMetadata(map[string]any{
		"stage": stage,
	})
}
