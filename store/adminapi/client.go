package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	bridge "github.com/goliatone/go-identity-bridge"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 50
)

// Config configures the target user store admin API client.
type Config struct {
	BaseURL    string
	ServiceKey string

	// PageSize and MaxPages bound the list-users scan used for external-id
	// lookups when the wire protocol has no such index.
	PageSize int
	MaxPages int

	HTTPClient *http.Client
}

// Client is the low-level HTTP client for the admin API. Store wraps it
// with the bridge interfaces.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates an admin API client.
func NewClient(cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
	}
}

// userEnvelope is the admin API's user representation. The native password
// itself never crosses the wire, only its presence.
type userEnvelope struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	HasPassword   bool           `json:"has_password"`
	Metadata      map[string]any `json:"metadata"`
}

type userListEnvelope struct {
	Users []userEnvelope `json:"users"`
}

type updateUserPayload struct {
	Password *string        `json:"password,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type generateLinkPayload struct {
	Email string `json:"email"`
}

type generateLinkResponse struct {
	Artifact string `json:"artifact"`
}

type redeemPayload struct {
	Artifact string `json:"artifact"`
}

type passwordLoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// GetUserByEmail fetches a user record by its unique case-insensitive
// email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*userEnvelope, error) {
	endpoint := c.endpoint("/admin/users") + "?email=" + url.QueryEscape(email)

	var envelope userEnvelope
	status, err := c.do(ctx, http.MethodGet, endpoint, nil, &envelope)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, bridge.ErrUserNotFound.Clone().WithMetadata(map[string]any{
			"searched_email": email,
		})
	}
	if status != http.StatusOK {
		return nil, c.unavailable(status, nil)
	}

	return &envelope, nil
}

// ListUsers fetches one page of user records. Pages are 1-based.
func (c *Client) ListUsers(ctx context.Context, page int) ([]userEnvelope, error) {
	endpoint := fmt.Sprintf(
		"%s?page=%d&per_page=%d",
		c.endpoint("/admin/users"),
		page,
		c.config.PageSize,
	)

	var envelope userListEnvelope
	status, err := c.do(ctx, http.MethodGet, endpoint, nil, &envelope)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.unavailable(status, nil)
	}

	return envelope.Users, nil
}

// UpdateUser applies a partial update (metadata, native password) to a
// record.
func (c *Client) UpdateUser(ctx context.Context, id string, payload updateUserPayload) error {
	endpoint := c.endpoint("/admin/users/" + url.PathEscape(id))

	status, err := c.do(ctx, http.MethodPut, endpoint, payload, nil)
	if err != nil {
		return err
	}

	if status == http.StatusNotFound {
		return bridge.ErrUserNotFound.Clone().WithMetadata(map[string]any{
			"user_id": id,
		})
	}
	if status != http.StatusOK {
		clone := bridge.ErrPersistence.Clone()
		return clone.WithMetadata(map[string]any{"status": status})
	}

	return nil
}

// GenerateLink requests a single-use sign-in artifact for the email.
func (c *Client) GenerateLink(ctx context.Context, email string) (string, error) {
	var resp generateLinkResponse
	status, err := c.do(ctx, http.MethodPost, c.endpoint("/admin/generate-link"), generateLinkPayload{Email: email}, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || resp.Artifact == "" {
		return "", c.unavailable(status, nil)
	}

	return resp.Artifact, nil
}

// RedeemLink exchanges a sign-in artifact for a session.
func (c *Client) RedeemLink(ctx context.Context, artifact string) (*tokenResponse, error) {
	var resp tokenResponse
	status, err := c.do(ctx, http.MethodPost, c.endpoint("/auth/verify"), redeemPayload{Artifact: artifact}, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || resp.AccessToken == "" {
		return nil, c.unavailable(status, nil)
	}

	return &resp, nil
}

// PasswordLogin performs a native password grant. Invalid credentials are
// distinguishable from availability failures.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (*tokenResponse, error) {
	var resp tokenResponse
	status, err := c.do(ctx, http.MethodPost, c.endpoint("/auth/token"), passwordLoginPayload{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK && resp.AccessToken != "":
		return &resp, nil
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, bridge.ErrCredentialMismatch.Clone()
	default:
		return nil, c.unavailable(status, nil)
	}
}

// do executes one request. Transport failures come back as availability
// errors; HTTP status handling is left to the caller.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, c.unavailable(0, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, c.unavailable(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.unavailable(0, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusInternalServerError {
		// Tolerate error bodies that don't match the success shape.
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && resp.StatusCode == http.StatusOK {
			return resp.StatusCode, c.unavailable(resp.StatusCode, err)
		}
	}

	return resp.StatusCode, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimSuffix(c.config.BaseURL, "/") + path
}

func (c *Client) unavailable(status int, cause error) error {
	clone := bridge.ErrServiceUnavailable.Clone()
	clone.Source = cause

	meta := map[string]any{"service": "user_store"}
	if status > 0 {
		meta["status"] = status
	}

	return clone.WithMetadata(meta)
}
