package routine

import (
	"net/http"
	"time"
)

// Endpoint is the HTTP projection of a routine: how it is reached and which
// cache, retry, error and auth settings govern its execution. Zero values
// mean "use the configured default" wherever a default exists.
type Endpoint struct {
	Method  string
	Path    string
	Enabled bool

	// RequiresAuth demands an authenticated caller; Roles further narrows
	// to membership in any listed role. Anonymous wins over both.
	RequiresAuth bool
	Roles        []string
	Anonymous    bool

	Cached       bool
	CacheTTL     time.Duration
	CacheMaxRows *int64

	RetryStrategy string
	ErrorPolicy   string
	Timeout       time.Duration
}

// DefaultEndpoint derives the endpoint a routine gets with no annotations:
// enabled, at the prefixed kebab-case path, GET for stable and immutable
// routines and POST for everything else.
func DefaultEndpoint(r *Routine, prefix string) Endpoint {
	method := http.MethodPost
	if r.Kind == KindFunction &&
		(r.Volatility == VolatilityStable || r.Volatility == VolatilityImmutable) {
		method = http.MethodGet
	}
	return Endpoint{
		Method:  method,
		Path:    DefaultPath(prefix, r.Identity),
		Enabled: true,
	}
}
