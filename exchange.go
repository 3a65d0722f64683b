package bridge

import (
	"context"
	"time"
)

// Exchanger turns a valid source-provider token into a target-provider
// session: verify claims, resolve the identity, mint a session, then record
// the exchange for migration bookkeeping.
type Exchanger struct {
	verifier ClaimsVerifier
	matcher  *Matcher
	minter   *Minter
	tracker  ExchangeTracker
	logger   Logger
	now      func() time.Time
}

// NewExchanger wires the session-exchange flow.
func NewExchanger(verifier ClaimsVerifier, matcher *Matcher, minter *Minter) *Exchanger {
	return &Exchanger{
		verifier: verifier,
		matcher:  matcher,
		minter:   minter,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (e *Exchanger) WithLogger(logger Logger) *Exchanger {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithTracker attaches the best-effort exchange bookkeeping. Without one,
// exchanges still work; they just go unrecorded.
func (e *Exchanger) WithTracker(tracker ExchangeTracker) *Exchanger {
	e.tracker = tracker
	return e
}

// Exchange verifies the source token and mints a target session for the
// matching user. Repeated calls with the same token resolve to the same
// user but always produce fresh token values.
func (e *Exchanger) Exchange(ctx context.Context, sourceToken string) (*SessionTokens, *User, error) {
	claims, err := e.verifier.Verify(ctx, sourceToken)
	if err != nil {
		e.logger.Info("source token rejected", "error", err)
		return nil, nil, err
	}

	// The verifier already enforces expiry, but claims cross a trust
	// boundary here.
	if claims.Expired(e.now()) {
		return nil, nil, ErrTokenExpired.Clone()
	}

	user, err := e.matcher.Resolve(ctx, claims)
	if err != nil {
		if IsUserNotFound(err) {
			e.logger.Info(
				"no target record for source identity",
				"subject_id", claims.SubjectID,
				"email", claims.NormalizedEmail(),
			)
		}
		return nil, nil, err
	}

	tokens, err := e.minter.Mint(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if e.tracker != nil {
		e.tracker.RecordExchange(user)
	}

	e.logger.Debug("session exchanged", "user_id", user.ID.String())

	return tokens, user, nil
}
