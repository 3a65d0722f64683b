// Package dbstore is the direct-database user store adapter. It talks to
// the target store's users table through bun, for deployments where the
// gateway runs next to the database instead of behind the admin API.
//
// Sessions are still minted through the admin API; this adapter only covers
// reads and the two writes the gateway performs (native password, metadata).
package dbstore

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	bridge "github.com/goliatone/go-identity-bridge"
)

// bcrypt cost for native hashes written during migration.
const HashCost = 14

var setNativePasswordSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."id" = ?
RETURNING *;`

type Store struct {
	db     *bun.DB
	repo   repository.Repository[*bridge.User]
	logger bridge.Logger
}

var _ bridge.UserStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger bridge.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to the target database. The sqlite shim resolves to
// whichever sqlite driver is available at build time.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "open database").
			WithTextCode(bridge.TextCodePersistence)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func NewStore(db *bun.DB, opts ...Option) *Store {
	repo := repository.NewRepository[*bridge.User](db, repository.ModelHandlers[*bridge.User]{
		NewRecord: func() *bridge.User { return &bridge.User{} },
		GetID: func(u *bridge.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *bridge.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	store := &Store{
		db:     db,
		repo:   repo,
		logger: bridge.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*bridge.User, error) {
	email = bridge.NormalizeEmail(email)

	record := &bridge.User{}
	err := s.db.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, bridge.ErrUserNotFound.Clone().
				WithMetadata(map[string]any{
					"searched_email": email,
				})
		}
		return nil, s.persistence("select user by email", err)
	}

	return hydrate(record), nil
}

// GetByExternalID resolves by the indexed source_subject_id column, so the
// lookup stays O(1) no matter how large the imported population is.
func (s *Store) GetByExternalID(ctx context.Context, subjectID string) (*bridge.User, error) {
	record := &bridge.User{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.source_subject_id = ?", subjectID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, bridge.ErrUserNotFound.Clone().
				WithMetadata(map[string]any{
					"searched_subject_id": subjectID,
				})
		}
		return nil, s.persistence("select user by subject id", err)
	}

	return hydrate(record), nil
}

func (s *Store) SetNativePassword(ctx context.Context, user *bridge.User, plaintext string) error {
	if user == nil || user.ID == uuid.Nil {
		return bridge.ErrUserNotFound.Clone()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), HashCost)
	if err != nil {
		return s.persistence("hash native password", err)
	}

	res, err := s.repo.RawTx(ctx, s.db, setNativePasswordSQL, string(hash), user.ID.String())
	if err != nil {
		return s.persistence("set native password", err)
	}

	if len(res) == 0 {
		return bridge.ErrUserNotFound.Clone().
			WithMetadata(map[string]any{
				"id": user.ID.String(),
			})
	}

	user.PasswordHash = string(hash)
	user.HasPassword = true
	user.EmailValidated = true

	return nil
}

func (s *Store) UpdateMetadata(ctx context.Context, user *bridge.User) error {
	if user == nil || user.ID == uuid.Nil {
		return bridge.ErrUserNotFound.Clone()
	}

	_, err := s.db.NewUpdate().
		Model(user).
		Column("metadata").
		WherePK().
		Exec(ctx)
	if err != nil {
		return s.persistence("update user metadata", err)
	}

	return nil
}

func (s *Store) persistence(op string, cause error) error {
	s.logger.Error("dbstore: %s: %v", op, cause)
	err := bridge.ErrPersistence.Clone().
		WithMetadata(map[string]any{
			"operation": op,
		})
	err.Source = cause
	return err
}

// hydrate backfills the derived fields the column set can't express.
func hydrate(u *bridge.User) *bridge.User {
	u.HasPassword = u.PasswordHash != ""

	if u.SourceSubjectID == "" {
		if si := u.SourceIdentity(); si != nil {
			u.SourceSubjectID = si.SubjectID
		}
	}

	return u
}
