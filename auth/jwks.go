package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultJWKSCacheTTL bounds how long a fetched key set is reused before
// the endpoint is consulted again.
const DefaultJWKSCacheTTL = time.Hour

// jwks is the wire shape of an RFC 7517 key set. Only RSA signing keys
// are consumed; other key types are skipped.
type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	KeyType   string `json:"kty"`
	KeyID     string `json:"kid"`
	Use       string `json:"use"`
	Algorithm string `json:"alg"`
	N         string `json:"n"`
	E         string `json:"e"`
}

// JWKSKeyProvider resolves RSA verification keys from a JWKS endpoint.
// Fetched key sets are cached for a TTL, and refreshes are collapsed so
// a burst of requests after expiry triggers a single fetch. When a
// refresh fails the previous key set keeps serving.
type JWKSKeyProvider struct {
	url    string
	ttl    time.Duration
	client *http.Client

	group singleflight.Group

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSKeyProvider creates a provider for the given JWKS URL. A ttl
// of zero selects DefaultJWKSCacheTTL.
func NewJWKSKeyProvider(url string, ttl time.Duration) *JWKSKeyProvider {
	if ttl <= 0 {
		ttl = DefaultJWKSCacheTTL
	}
	return &JWKSKeyProvider{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the RSA public key for the given key id. An empty key
// id selects the sole key when the set has exactly one entry.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	if key := p.lookup(keyID); key != nil {
		return key, nil
	}

	// Miss or stale. One refresh per URL regardless of caller count.
	_, err, _ := p.group.Do(p.url, func() (any, error) {
		return nil, p.refresh(ctx)
	})
	if err != nil {
		p.mu.RLock()
		stale := len(p.keys) > 0
		p.mu.RUnlock()
		if !stale {
			return nil, fmt.Errorf("auth: jwks fetch %s: %w", p.url, err)
		}
		// Serve the stale set rather than failing every token.
	}

	if key := p.lookup(keyID); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
}

// lookup returns the cached key when present and fresh, nil otherwise.
func (p *JWKSKeyProvider) lookup(keyID string) *rsa.PublicKey {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if time.Since(p.fetched) > p.ttl {
		return nil
	}
	return p.keyLocked(keyID)
}

func (p *JWKSKeyProvider) keyLocked(keyID string) *rsa.PublicKey {
	if keyID == "" && len(p.keys) == 1 {
		for _, key := range p.keys {
			return key
		}
	}
	return p.keys[keyID]
}

func (p *JWKSKeyProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.KeyType != "RSA" {
			continue
		}
		key, err := parseRSAKey(k)
		if err != nil {
			continue
		}
		keys[k.KeyID] = key
	}
	if len(keys) == 0 {
		return fmt.Errorf("key set %s holds no usable RSA keys", p.url)
	}

	p.mu.Lock()
	p.keys = keys
	p.fetched = time.Now()
	p.mu.Unlock()
	return nil
}

// parseRSAKey decodes the base64url modulus and exponent of an RSA JWK.
func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	if len(nb) == 0 {
		return nil, fmt.Errorf("missing modulus")
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("exponent %d out of range", e)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: e,
	}, nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)
