package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// DefaultAPIKeyHeader is the header consulted for API keys when the
// authenticator is constructed without an explicit header name.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is one configured key. Only the SHA-256 hash of the key
// material is held; the plaintext never appears in configuration.
type APIKey struct {
	// Hash is the hex-encoded SHA-256 of the key.
	Hash string

	// Principal identifies the caller the key belongs to.
	Principal string

	// Roles granted to requests presenting this key.
	Roles []string
}

// HashAPIKey returns the hex-encoded SHA-256 of a plaintext key, the
// form stored in configuration.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator validates requests against a static key table.
type APIKeyAuthenticator struct {
	header string
	keys   map[string]APIKey
}

// NewAPIKeyAuthenticator creates an authenticator over the given keys.
// An empty header selects DefaultAPIKeyHeader.
func NewAPIKeyAuthenticator(header string, keys []APIKey) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	table := make(map[string]APIKey, len(keys))
	for _, k := range keys {
		table[k.Hash] = k
	}
	return &APIKeyAuthenticator{header: header, keys: table}
}

// Name returns "apikey".
func (a *APIKeyAuthenticator) Name() string {
	return "apikey"
}

// Supports reports whether the request carries the API key header.
func (a *APIKeyAuthenticator) Supports(r *http.Request) bool {
	return r.Header.Get(a.header) != ""
}

// Authenticate hashes the presented key and looks it up in the table.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Result, error) {
	presented := r.Header.Get(a.header)
	if presented == "" {
		return Failure(ErrMissingCredentials, MethodAPIKey), nil
	}

	hash := HashAPIKey(presented)
	key, ok := a.keys[hash]
	if !ok || subtle.ConstantTimeCompare([]byte(hash), []byte(key.Hash)) != 1 {
		return Failure(ErrInvalidCredentials, MethodAPIKey), nil
	}

	return Success(&Identity{
		Principal: key.Principal,
		Roles:     append([]string(nil), key.Roles...),
		Method:    MethodAPIKey,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
