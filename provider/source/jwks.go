package source

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	bridge "github.com/goliatone/go-identity-bridge"
)

// JWKSConfig configures the in-process claims verifier.
type JWKSConfig struct {
	// JWKSetURL is the source provider's JWK Set endpoint.
	JWKSetURL string
	// Issuer, when set, is enforced on every token.
	Issuer string

	// KeyFunc overrides JWKS fetching, mainly for tests with given keys.
	KeyFunc jwt.Keyfunc

	RefreshInterval time.Duration
}

// JWKSVerifier implements bridge.ClaimsVerifier by validating source tokens
// in process against the provider's published JWK Set.
//
// It cannot see revocations; deployments that need revocation checking use
// the claims-verification service instead.
type JWKSVerifier struct {
	config  JWKSConfig
	keyFunc jwt.Keyfunc
	now     func() time.Time
}

// NewJWKSVerifier creates the verifier, fetching the JWK Set eagerly so a
// bad URL fails at startup, not on the first login.
func NewJWKSVerifier(cfg JWKSConfig) (*JWKSVerifier, error) {
	keyFunc := cfg.KeyFunc

	if keyFunc == nil {
		if cfg.JWKSetURL == "" {
			return nil, goerrors.New("jwk set url is required", goerrors.CategoryBadInput)
		}

		refresh := cfg.RefreshInterval
		if refresh == 0 {
			refresh = time.Hour
		}

		jwks, err := keyfunc.Get(cfg.JWKSetURL, keyfunc.Options{
			RefreshInterval:   refresh,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to fetch source JWK set")
		}
		keyFunc = jwks.Keyfunc
	}

	return &JWKSVerifier{
		config:  cfg,
		keyFunc: keyFunc,
		now:     time.Now,
	}, nil
}

type sourceTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	SignInMethod  string `json:"sign_in_method,omitempty"`
}

// Verify implements bridge.ClaimsVerifier.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*bridge.Claims, error) {
	if token == "" {
		return nil, bridge.ErrTokenMalformed.Clone()
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.config.Issuer))
	}

	decoded := &sourceTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, decoded, v.keyFunc, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, bridge.ErrTokenExpired.Clone()
		}
		clone := bridge.ErrTokenMalformed.Clone()
		clone.Source = err
		return nil, clone
	}

	if !parsed.Valid {
		return nil, bridge.ErrTokenMalformed.Clone()
	}

	claims := &bridge.Claims{
		SubjectID:     decoded.Subject,
		Email:         decoded.Email,
		EmailVerified: decoded.EmailVerified,
		SignInMethod:  decoded.SignInMethod,
	}
	if decoded.IssuedAt != nil {
		claims.IssuedAt = decoded.IssuedAt.Time
	}
	if decoded.ExpiresAt != nil {
		claims.ExpiresAt = decoded.ExpiresAt.Time
	}

	if claims.Expired(v.now()) {
		return nil, bridge.ErrTokenExpired.Clone()
	}

	return claims, nil
}
