package bridge

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Metadata keys owned by the migration tooling. The source-identity
// snapshot is written once by the bulk-import job; the gateway only reads
// it, except for the exchange timestamp and the post-migration strip of the
// password material.
const (
	MetaSourceIdentity = "source_identity"
	MetaLastExchangeAt = "last_session_exchange_at"
)

// User is the target-store user record as the gateway sees it.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID    uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email string    `bun:"email,notnull,unique" json:"email,omitempty"`

	// PasswordHash is the native (target) hash. It is only populated by the
	// direct-database adapter and never serialized.
	PasswordHash string `bun:"password_hash" json:"-"`

	// HasPassword mirrors native-password presence for adapters that cannot
	// expose the hash itself.
	HasPassword bool `bun:"-" json:"has_password,omitempty"`

	// SourceSubjectID is the external id column maintained at import time so
	// identity resolution is an indexed lookup, not an application scan.
	SourceSubjectID string `bun:"source_subject_id" json:"source_subject_id,omitempty"`

	EmailValidated bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SourceIdentity is the snapshot of the source-provider account embedded in
// user metadata by the bulk-import job.
type SourceIdentity struct {
	SubjectID    string   `json:"subject_id"`
	Email        string   `json:"email,omitempty"`
	PasswordHash string   `json:"password_hash,omitempty"`
	PasswordSalt string   `json:"password_salt,omitempty"`
	Providers    []string `json:"providers,omitempty"`
}

// HasPasswordCredential reports whether the snapshot carries migratable
// password material.
func (s *SourceIdentity) HasPasswordCredential() bool {
	return s != nil && s.PasswordHash != ""
}

// Credential returns the stored source hash and salt.
func (s *SourceIdentity) Credential() SourceCredential {
	if s == nil {
		return SourceCredential{}
	}
	return SourceCredential{Hash: s.PasswordHash, Salt: s.PasswordSalt}
}

// HasNativePassword reports whether the record already carries a native
// target credential, which is the "fully migrated" signal.
func (u *User) HasNativePassword() bool {
	return u != nil && (u.HasPassword || u.PasswordHash != "")
}

// SourceIdentity decodes the embedded snapshot from metadata. Metadata maps
// round-trip through JSON, so nested values arrive as map[string]any.
func (u *User) SourceIdentity() *SourceIdentity {
	if u == nil || u.Metadata == nil {
		return nil
	}

	raw, ok := u.Metadata[MetaSourceIdentity]
	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case *SourceIdentity:
		return v
	case SourceIdentity:
		return &v
	case map[string]any:
		return sourceIdentityFromMap(v)
	}

	return nil
}

// SetSourceIdentity replaces the embedded snapshot. Only the import job and
// the post-migration strip write through this.
func (u *User) SetSourceIdentity(si *SourceIdentity) *User {
	if u.Metadata == nil {
		u.Metadata = map[string]any{}
	}
	if si == nil {
		delete(u.Metadata, MetaSourceIdentity)
		return u
	}
	u.Metadata[MetaSourceIdentity] = si
	return u
}

// StripSourcePassword removes the migrated hash and salt from the snapshot
// while keeping the rest of the imported identity.
func (u *User) StripSourcePassword() *User {
	si := u.SourceIdentity()
	if si == nil {
		return u
	}
	si.PasswordHash = ""
	si.PasswordSalt = ""
	return u.SetSourceIdentity(si)
}

// LastExchangeAt returns the last-session-exchange timestamp, if any.
func (u *User) LastExchangeAt() *time.Time {
	if u == nil || u.Metadata == nil {
		return nil
	}

	switch v := u.Metadata[MetaLastExchangeAt].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}

	return nil
}

// SetLastExchangeAt stamps the exchange timestamp. Stored as RFC3339 so the
// metadata map stays JSON round-trippable.
func (u *User) SetLastExchangeAt(t time.Time) *User {
	if u.Metadata == nil {
		u.Metadata = map[string]any{}
	}
	u.Metadata[MetaLastExchangeAt] = t.UTC().Format(time.RFC3339)
	return u
}

// MigrationState is the derived, read-side view of how far along a record
// is. It is never stored; every report recomputes it from the same fields.
type MigrationState string

const (
	// StateMigrated means the record carries a native password.
	StateMigrated MigrationState = "migrated"
	// StateExchangedOnly means the user has had sessions via exchange but
	// still signs in with the source credential. At risk if the source
	// provider is decommissioned.
	StateExchangedOnly MigrationState = "session-exchanged"
	// StateNotMigrated means the imported password has never been used
	// against the gateway.
	StateNotMigrated MigrationState = "not-migrated"
	// StateOAuthOnly means there is no password credential to migrate.
	StateOAuthOnly MigrationState = "oauth-only"
)

// DeriveMigrationState computes migration state from raw record fields.
// This is the single shared predicate; do not reimplement it at call sites.
func DeriveMigrationState(u *User) MigrationState {
	if u.HasNativePassword() {
		return StateMigrated
	}

	si := u.SourceIdentity()
	if !si.HasPasswordCredential() {
		return StateOAuthOnly
	}

	if u.LastExchangeAt() != nil {
		return StateExchangedOnly
	}

	return StateNotMigrated
}

func sourceIdentityFromMap(m map[string]any) *SourceIdentity {
	si := &SourceIdentity{}

	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}

	si.SubjectID = str("subject_id")
	si.Email = str("email")
	si.PasswordHash = str("password_hash")
	si.PasswordSalt = str("password_salt")

	switch providers := m["providers"].(type) {
	case []string:
		si.Providers = append([]string(nil), providers...)
	case []any:
		for _, p := range providers {
			if s, ok := p.(string); ok {
				si.Providers = append(si.Providers, s)
			}
		}
	}

	return si
}
