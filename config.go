package bridge

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// Config is the process-wide configuration, loaded once at startup and
// injected into components at construction. Business logic never reads the
// environment directly.
type Config struct {
	Addr string

	// Claims-verification collaborator. When SourceJWKSURL is set the
	// in-process JWKS verifier is used instead, trading revocation checks
	// for one less network hop.
	ClaimsVerifierURL string
	ClaimsVerifierKey string
	SourceJWKSURL     string
	SourceIssuer      string

	// Credential-verification collaborator plus the source hashing
	// scheme's fixed parameters.
	CredentialVerifierURL string
	HashMemoryCost        int
	HashRounds            int
	HashSaltSeparator     string
	HashSignerKey         string

	// Target user store admin API.
	StoreBaseURL    string
	StoreServiceKey string

	// Optional direct-database mode: when set, user lookups and writes go
	// straight to the target store's database while sessions still go
	// through the admin API.
	StoreDSN string

	RequestTimeout time.Duration
}

// LoadConfig reads configuration from the environment. Missing required
// values fail closed with a configuration error.
func LoadConfig() (*Config, error) {
	memoryCost, err := envInt("SOURCE_HASH_MEMORY_COST", 14)
	if err != nil {
		return nil, err
	}

	rounds, err := envInt("SOURCE_HASH_ROUNDS", 8)
	if err != nil {
		return nil, err
	}

	timeout, err := envDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:                  envOr("BRIDGE_ADDR", ":8080"),
		ClaimsVerifierURL:     os.Getenv("CLAIMS_VERIFIER_URL"),
		ClaimsVerifierKey:     os.Getenv("CLAIMS_VERIFIER_KEY"),
		SourceJWKSURL:         os.Getenv("SOURCE_JWKS_URL"),
		SourceIssuer:          os.Getenv("SOURCE_ISSUER"),
		CredentialVerifierURL: os.Getenv("CREDENTIAL_VERIFIER_URL"),
		HashMemoryCost:        memoryCost,
		HashRounds:            rounds,
		HashSaltSeparator:     os.Getenv("SOURCE_HASH_SALT_SEPARATOR"),
		HashSignerKey:         os.Getenv("SOURCE_HASH_SIGNER_KEY"),
		StoreBaseURL:          os.Getenv("STORE_BASE_URL"),
		StoreServiceKey:       os.Getenv("STORE_SERVICE_KEY"),
		StoreDSN:              os.Getenv("STORE_DSN"),
		RequestTimeout:        timeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid gateway configuration")
	}

	return cfg, nil
}

// Validate enforces the fail-closed configuration contract.
func (c Config) Validate() error {
	if c.ClaimsVerifierURL == "" && c.SourceJWKSURL == "" {
		return errors.New("either CLAIMS_VERIFIER_URL or SOURCE_JWKS_URL is required", errors.CategoryValidation)
	}

	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.ClaimsVerifierURL, is.URL),
		validation.Field(&c.SourceJWKSURL, is.URL),
		validation.Field(&c.CredentialVerifierURL, validation.Required, is.URL),
		validation.Field(&c.HashSignerKey, validation.Required),
		validation.Field(&c.HashMemoryCost, validation.Required, validation.Min(1)),
		validation.Field(&c.HashRounds, validation.Required, validation.Min(1)),
		validation.Field(&c.StoreBaseURL, validation.Required, is.URL),
		validation.Field(&c.StoreServiceKey, validation.Required),
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryValidation, key+" must be an integer")
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryValidation, key+" must be a duration")
	}
	return d, nil
}
