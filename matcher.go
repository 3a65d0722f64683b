package bridge

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Matcher resolves verified source claims to a target user record.
//
// The source behavior accepted an id match OR an email match with no
// precedence, which can silently bind the wrong account when an email is
// reused across providers. Here precedence is explicit: external id first,
// email only as a fallback, and an email match whose stored subject id
// disagrees with the claims is logged as an anomaly.
type Matcher struct {
	store  UserStore
	logger Logger
}

// NewMatcher creates an identity matcher over the given store.
func NewMatcher(store UserStore) *Matcher {
	return &Matcher{
		store:  store,
		logger: defLogger{},
	}
}

func (m *Matcher) WithLogger(logger Logger) *Matcher {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Resolve finds the record for the given claims or fails with
// ErrUserNotFound carrying search diagnostics.
func (m *Matcher) Resolve(ctx context.Context, claims *Claims) (*User, error) {
	if claims == nil {
		return nil, ErrUserNotFound.Clone()
	}

	scanned := 0

	if claims.SubjectID != "" {
		user, err := m.store.GetByExternalID(ctx, claims.SubjectID)
		if err == nil {
			return user, nil
		}
		if !IsUserNotFound(err) {
			return nil, err
		}
		scanned = scannedFromErr(err)
	}

	email := claims.NormalizedEmail()
	if email != "" {
		user, err := m.store.GetByEmail(ctx, email)
		if err == nil {
			m.warnOnSubjectMismatch(user, claims)
			return user, nil
		}
		if !IsUserNotFound(err) {
			return nil, err
		}
	}

	return nil, ErrUserNotFound.Clone().WithMetadata(map[string]any{
		"searched_email":      email,
		"searched_subject_id": claims.SubjectID,
		"records_scanned":     scanned,
	})
}

func (m *Matcher) warnOnSubjectMismatch(user *User, claims *Claims) {
	si := user.SourceIdentity()

	storedSubject := user.SourceSubjectID
	if storedSubject == "" && si != nil {
		storedSubject = si.SubjectID
	}

	if storedSubject != "" && claims.SubjectID != "" && storedSubject != claims.SubjectID {
		m.logger.Warn(
			"identity matched by email with mismatched subject id",
			"email", NormalizeEmail(user.Email),
			"stored_subject_id", storedSubject,
			"claims_subject_id", claims.SubjectID,
		)
	}
}

// scannedFromErr extracts the records-scanned diagnostic some store
// adapters attach to their not-found errors.
func scannedFromErr(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Metadata == nil {
		return 0
	}

	switch v := richErr.Metadata["records_scanned"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}

	return 0
}
