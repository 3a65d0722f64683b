package source_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	bridge "github.com/goliatone/go-identity-bridge"
	"github.com/goliatone/go-identity-bridge/provider/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifierConfig(baseURL string) source.PasswordConfig {
	return source.PasswordConfig{
		BaseURL:       baseURL,
		MemoryCost:    14,
		Rounds:        8,
		SaltSeparator: "Bw==",
		SignerKey:     "signer-key-base64",
	}
}

func TestPasswordClient_Verify(t *testing.T) {
	ctx := context.Background()
	cred := bridge.SourceCredential{Hash: "stored-hash", Salt: "stored-salt"}

	t.Run("sends the full verification request", func(t *testing.T) {
		var received map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			json.Unmarshal(raw, &received)
			json.NewEncoder(w).Encode(map[string]any{"valid": true})
		}))
		defer server.Close()

		client := source.NewPasswordClient(verifierConfig(server.URL))

		err := client.Verify(ctx, "secret", cred)

		require.NoError(t, err)
		assert.Equal(t, "secret", received["password"])
		assert.Equal(t, "stored-hash", received["hash"])
		assert.Equal(t, "stored-salt", received["salt"])
		assert.Equal(t, float64(14), received["memory_cost"])
		assert.Equal(t, float64(8), received["rounds"])
		assert.Equal(t, "Bw==", received["salt_separator"])
		assert.Equal(t, "signer-key-base64", received["signer_key"])
	})

	t.Run("negative verdict is a mismatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"valid": false})
		}))
		defer server.Close()

		client := source.NewPasswordClient(verifierConfig(server.URL))

		err := client.Verify(ctx, "wrong", cred)

		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeCredentialMismatch))
	})

	t.Run("unparseable verdict is a mismatch, not a pass", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := source.NewPasswordClient(verifierConfig(server.URL))

		err := client.Verify(ctx, "secret", cred)

		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeCredentialMismatch))
	})

	t.Run("4xx verdict is a mismatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"valid": false})
		}))
		defer server.Close()

		client := source.NewPasswordClient(verifierConfig(server.URL))

		err := client.Verify(ctx, "secret", cred)

		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeCredentialMismatch))
	})

	t.Run("5xx is an availability failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := source.NewPasswordClient(verifierConfig(server.URL))

		err := client.Verify(ctx, "secret", cred)

		assert.True(t, bridge.IsServiceUnavailable(err))
	})

	t.Run("unreachable service is an availability failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := source.NewPasswordClient(verifierConfig(server.URL))

		err := client.Verify(ctx, "secret", cred)

		assert.True(t, bridge.IsServiceUnavailable(err))
	})

	t.Run("empty stored hash is a mismatch without a network call", func(t *testing.T) {
		client := source.NewPasswordClient(verifierConfig("http://127.0.0.1:1"))

		err := client.Verify(ctx, "secret", bridge.SourceCredential{})

		assert.True(t, bridge.HasTextCode(err, bridge.TextCodeCredentialMismatch))
	})
}
