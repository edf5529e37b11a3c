package auth

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware extracts an identity from the request and stores it in the
// context. It never rejects: endpoints that allow anonymous access must
// keep working, so enforcement happens per endpoint via Authorize. A
// request with failed or missing credentials proceeds with the
// anonymous identity and the failure is logged.
func Middleware(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := AnonymousIdentity()

			if authenticator != nil && authenticator.Supports(r) {
				result, err := authenticator.Authenticate(ctx, r)
				switch {
				case err != nil:
					// Internal failure (key endpoint down, etc).
					// Proceed unauthenticated; Authorize decides
					// whether this endpoint tolerates that.
					zerolog.Ctx(ctx).Error().Err(err).
						Str("authenticator", authenticator.Name()).
						Msg("authentication error")
				case result.Authenticated:
					identity = result.Identity
					zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
						return c.Str("principal", identity.Principal)
					})
				default:
					zerolog.Ctx(ctx).Debug().Err(result.Err).
						Str("method", string(result.Method)).
						Msg("credentials rejected")
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// Authorize checks an identity against an endpoint's requirements. It
// returns nil when access is allowed, ErrMissingCredentials when the
// endpoint requires authentication and the caller has none,
// ErrTokenExpired when the presented identity has lapsed, and
// ErrForbidden when the caller lacks every required role.
func Authorize(identity *Identity, requiresAuth bool, roles []string) error {
	if !requiresAuth && len(roles) == 0 {
		return nil
	}
	if identity == nil || identity.IsAnonymous() {
		return ErrMissingCredentials
	}
	if identity.IsExpired() {
		return ErrTokenExpired
	}
	if !identity.HasAnyRole(roles) {
		return ErrForbidden
	}
	return nil
}
