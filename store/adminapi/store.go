package adminapi

import (
	"context"

	"github.com/google/uuid"
	bridge "github.com/goliatone/go-identity-bridge"
)

// Store implements bridge.UserStore and bridge.SessionAPI over the target
// store's admin API.
type Store struct {
	client *Client
	logger bridge.Logger
}

var (
	_ bridge.UserStore  = (*Store)(nil)
	_ bridge.SessionAPI = (*Store)(nil)
)

// NewStore creates the admin API backed store.
func NewStore(client *Client) *Store {
	return &Store{
		client: client,
		logger: bridge.NopLogger{},
	}
}

func (s *Store) WithLogger(logger bridge.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// GetByEmail implements bridge.UserStore.
func (s *Store) GetByEmail(ctx context.Context, email string) (*bridge.User, error) {
	envelope, err := s.client.GetUserByEmail(ctx, bridge.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return mapUser(envelope), nil
}

// GetByExternalID implements bridge.UserStore.
//
// The admin API indexes users by email only, so the external-id lookup is a
// paginated scan bounded by the configured page limit. The bound and the
// number of records scanned surface in the not-found diagnostics.
func (s *Store) GetByExternalID(ctx context.Context, subjectID string) (*bridge.User, error) {
	scanned := 0

	for page := 1; page <= s.client.config.MaxPages; page++ {
		users, err := s.client.ListUsers(ctx, page)
		if err != nil {
			return nil, err
		}

		for i := range users {
			scanned++
			user := mapUser(&users[i])
			if user.SourceSubjectID == subjectID && subjectID != "" {
				return user, nil
			}
		}

		if len(users) < s.client.config.PageSize {
			break
		}
	}

	return nil, bridge.ErrUserNotFound.Clone().WithMetadata(map[string]any{
		"searched_subject_id": subjectID,
		"records_scanned":     scanned,
	})
}

// SetNativePassword implements bridge.UserStore. The target store performs
// its own native hashing of the plaintext.
func (s *Store) SetNativePassword(ctx context.Context, user *bridge.User, plaintext string) error {
	if err := s.client.UpdateUser(ctx, user.ID.String(), updateUserPayload{
		Password: &plaintext,
	}); err != nil {
		return err
	}

	user.HasPassword = true
	return nil
}

// UpdateMetadata implements bridge.UserStore.
func (s *Store) UpdateMetadata(ctx context.Context, user *bridge.User) error {
	return s.client.UpdateUser(ctx, user.ID.String(), updateUserPayload{
		Metadata: user.Metadata,
	})
}

// GenerateSignInArtifact implements bridge.SessionAPI.
func (s *Store) GenerateSignInArtifact(ctx context.Context, email string) (string, error) {
	return s.client.GenerateLink(ctx, email)
}

// RedeemSignInArtifact implements bridge.SessionAPI.
func (s *Store) RedeemSignInArtifact(ctx context.Context, artifact string) (*bridge.SessionTokens, error) {
	tokens, err := s.client.RedeemLink(ctx, artifact)
	if err != nil {
		return nil, err
	}
	return mapTokens(tokens), nil
}

// PasswordLogin implements bridge.SessionAPI.
func (s *Store) PasswordLogin(ctx context.Context, email, password string) (*bridge.SessionTokens, error) {
	tokens, err := s.client.PasswordLogin(ctx, bridge.NormalizeEmail(email), password)
	if err != nil {
		return nil, err
	}
	return mapTokens(tokens), nil
}

func mapUser(envelope *userEnvelope) *bridge.User {
	user := &bridge.User{
		Email:          envelope.Email,
		EmailValidated: envelope.EmailVerified,
		HasPassword:    envelope.HasPassword,
		Metadata:       envelope.Metadata,
	}

	if id, err := uuid.Parse(envelope.ID); err == nil {
		user.ID = id
	}

	if si := user.SourceIdentity(); si != nil {
		user.SourceSubjectID = si.SubjectID
	}

	return user
}

func mapTokens(t *tokenResponse) *bridge.SessionTokens {
	return &bridge.SessionTokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
	}
}
