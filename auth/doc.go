// Package auth authenticates HTTP requests and authorizes them against
// endpoint role requirements.
//
// Authentication and authorization are split: Middleware extracts an
// Identity from request credentials and stores it on the context without
// rejecting anything, because anonymous endpoints must keep working when
// credentials are absent or bad. Authorize is then applied per endpoint
// with that endpoint's requirements, and the caller maps its errors onto
// HTTP problem responses.
//
// Two authenticators ship here: JWT bearer tokens (HMAC secret or RSA
// keys fetched from a JWKS endpoint) and static API keys configured as
// SHA-256 hashes. CompositeAuthenticator chains them, first match wins.
//
// # Usage
//
//	authn := auth.NewCompositeAuthenticator(
//		auth.NewAPIKeyAuthenticator("", keys),
//		auth.NewJWTAuthenticator(jwtCfg, auth.NewStaticKeyProvider(secret)),
//	)
//	r.Use(auth.Middleware(authn))
//
//	// per endpoint:
//	if err := auth.Authorize(auth.IdentityFromContext(ctx), ep.RequiresAuth, ep.Roles); err != nil {
//		// map to 401/403
//	}
package auth
