package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// PrincipalClaim is the claim carrying the principal. Default: "sub".
	PrincipalClaim string

	// RolesClaim is the claim carrying the role list. Default: "roles".
	RolesClaim string

	// Methods are the accepted signing algorithms.
	// Default: HS256 and RS256.
	Methods []string
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the verification key for the given key id. An empty
	// key id selects the provider's default key.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider serves a single HMAC secret regardless of key id.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a provider around an HMAC secret.
func NewStaticKeyProvider(secret []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: secret}
}

// GetKey returns the static secret.
func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens from the Authorization header.
type JWTAuthenticator struct {
	config JWTConfig
	keys   KeyProvider
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a JWT authenticator. Issuer and audience
// checks are enforced by the parser when configured.
func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	if len(config.Methods) == 0 {
		config.Methods = []string{"HS256", "RS256"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(config.Methods)}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config: config,
		keys:   keys,
		parser: jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports reports whether the request carries a bearer token.
func (a *JWTAuthenticator) Supports(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), bearerPrefix)
}

// Authenticate parses and validates the bearer token.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Result, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), bearerPrefix))
	if raw == "" {
		return Failure(ErrMissingCredentials, MethodJWT), nil
	}

	token, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Failure(ErrTokenExpired, MethodJWT), nil
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Failure(ErrTokenMalformed, MethodJWT), nil
		default:
			// Unknown kid, bad signature, wrong issuer or audience.
			return Failure(ErrInvalidCredentials, MethodJWT), nil
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Failure(ErrTokenMalformed, MethodJWT), nil
	}
	return Success(a.buildIdentity(claims)), nil
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Method: MethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		identity.Claims[k] = v
	}

	if principal, ok := claims[a.config.PrincipalClaim].(string); ok {
		identity.Principal = principal
	}
	identity.Roles = claimRoles(claims[a.config.RolesClaim])

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity
}

// claimRoles normalizes a roles claim that may be a single string or a
// list of strings.
func claimRoles(v any) []string {
	switch roles := v.(type) {
	case string:
		return []string{roles}
	case []any:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

var _ Authenticator = (*JWTAuthenticator)(nil)
var _ KeyProvider = (*StaticKeyProvider)(nil)
