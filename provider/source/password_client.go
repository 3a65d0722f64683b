package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	bridge "github.com/goliatone/go-identity-bridge"
)

// PasswordConfig configures the credential-verification collaborator
// client. The algorithm parameters are fixed per deployment and belong to
// the source provider's hashing scheme, not to individual records.
type PasswordConfig struct {
	BaseURL string

	MemoryCost    int
	Rounds        int
	SaltSeparator string
	SignerKey     string

	HTTPClient *http.Client
}

// PasswordClient implements bridge.CredentialVerifier against the
// credential-verification service.
//
// It fails closed: a negative or unparseable verdict is a credential
// mismatch, and an unreachable service is a hard availability failure.
// Neither ever grants a session.
type PasswordClient struct {
	config     PasswordConfig
	httpClient *http.Client
}

// NewPasswordClient creates a credential-verification client.
func NewPasswordClient(cfg PasswordConfig) *PasswordClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &PasswordClient{
		config:     cfg,
		httpClient: client,
	}
}

type verifyRequest struct {
	Salt          string `json:"salt"`
	Hash          string `json:"hash"`
	Password      string `json:"password"`
	MemoryCost    int    `json:"memory_cost"`
	Rounds        int    `json:"rounds"`
	SaltSeparator string `json:"salt_separator"`
	SignerKey     string `json:"signer_key"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Verify implements bridge.CredentialVerifier.
func (c *PasswordClient) Verify(ctx context.Context, password string, cred bridge.SourceCredential) error {
	if cred.Hash == "" {
		return bridge.ErrCredentialMismatch.Clone()
	}

	body, err := json.Marshal(verifyRequest{
		Salt:          cred.Salt,
		Hash:          cred.Hash,
		Password:      password,
		MemoryCost:    c.config.MemoryCost,
		Rounds:        c.config.Rounds,
		SaltSeparator: c.config.SaltSeparator,
		SignerKey:     c.config.SignerKey,
	})
	if err != nil {
		return unavailable("credential_verifier", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return unavailable("credential_verifier", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unavailable("credential_verifier", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable("credential_verifier", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return unavailable("credential_verifier", resp.StatusCode, nil)
	}

	var decoded verifyResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// A response we cannot parse is a failed verification, never a pass.
		return bridge.ErrCredentialMismatch.Clone()
	}

	if resp.StatusCode != http.StatusOK || !decoded.Valid {
		return bridge.ErrCredentialMismatch.Clone()
	}

	return nil
}
