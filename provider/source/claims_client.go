package source

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	bridge "github.com/goliatone/go-identity-bridge"
)

// ClaimsConfig configures the claims-verification collaborator client.
type ClaimsConfig struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// ClaimsClient implements bridge.ClaimsVerifier against the claims
// verification service, which owns the source provider's signature and
// revocation checking.
type ClaimsClient struct {
	config     ClaimsConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewClaimsClient creates a claims-verification client.
func NewClaimsClient(cfg ClaimsConfig) *ClaimsClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &ClaimsClient{
		config:     cfg,
		httpClient: client,
		now:        time.Now,
	}
}

type claimsRequest struct {
	Token string `json:"token"`
}

type claimsResponse struct {
	SubjectID     string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	SignInMethod  string `json:"sign_in_method"`
	IssuedAt      int64  `json:"iat"`
	ExpiresAt     int64  `json:"exp"`

	Error string `json:"error"`
}

// Verify implements bridge.ClaimsVerifier. The token never appears in any
// returned error or log line.
func (c *ClaimsClient) Verify(ctx context.Context, token string) (*bridge.Claims, error) {
	if token == "" {
		return nil, bridge.ErrTokenMalformed.Clone()
	}

	body, err := json.Marshal(claimsRequest{Token: token})
	if err != nil {
		return nil, unavailable("claims_verifier", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, unavailable("claims_verifier", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable("claims_verifier", 0, err)
	}
	defer resp.Body.Close()

	var decoded claimsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, unavailable("claims_verifier", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, unavailable("claims_verifier", resp.StatusCode, nil)
	}

	if resp.StatusCode != http.StatusOK {
		// A rejection without an error code is not a token verdict.
		if decoded.Error == "" {
			return nil, unavailable("claims_verifier", resp.StatusCode, nil)
		}
		return nil, mapVerificationError(decoded.Error)
	}

	claims := &bridge.Claims{
		SubjectID:     decoded.SubjectID,
		Email:         decoded.Email,
		EmailVerified: decoded.EmailVerified,
		SignInMethod:  decoded.SignInMethod,
	}
	if decoded.IssuedAt > 0 {
		claims.IssuedAt = time.Unix(decoded.IssuedAt, 0)
	}
	if decoded.ExpiresAt > 0 {
		claims.ExpiresAt = time.Unix(decoded.ExpiresAt, 0)
	}

	if claims.Expired(c.now()) {
		return nil, bridge.ErrTokenExpired.Clone()
	}

	return claims, nil
}

func mapVerificationError(code string) error {
	switch code {
	case "TOKEN_EXPIRED":
		return bridge.ErrTokenExpired.Clone()
	case "TOKEN_REVOKED":
		return bridge.ErrTokenRevoked.Clone()
	default:
		return bridge.ErrTokenMalformed.Clone().WithMetadata(map[string]any{"cause": code})
	}
}
