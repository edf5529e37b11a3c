package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

const (
	// fieldSep joins fingerprint components. The unit separator cannot occur
	// in rendered parameter text, so "ab"+"c" and "a"+"bc" never collide.
	fieldSep = "\x1f"

	// nullMarker stands in for a SQL NULL value. Distinct from the empty
	// string, which is a real value.
	nullMarker = "\x00"

	// DefaultHashThreshold is the fingerprint length above which hashing
	// applies when enabled. Keys at or below the threshold stay readable.
	DefaultHashThreshold = 128

	// hashedKeyLength is the length of every hashed key: SHA-256, hex.
	hashedKeyLength = 64
)

// Parameter is one bound routine argument as it contributes to a
// fingerprint: the parameter name and the canonical text rendering of its
// value. Null marks SQL NULL; Text is ignored when Null is set.
type Parameter struct {
	Name string
	Text string
	Null bool
}

// KeyerConfig controls fingerprint hashing.
type KeyerConfig struct {
	// HashLongKeys replaces fingerprints longer than Threshold with a
	// SHA-256 digest.
	HashLongKeys bool

	// Threshold is the maximum fingerprint length kept verbatim.
	// Defaults to DefaultHashThreshold.
	Threshold int
}

// Keyer derives cache keys from routine identity and bound parameters.
// Stateless and safe for concurrent use.
type Keyer struct {
	hashLongKeys bool
	threshold    int
}

// NewKeyer creates a Keyer, applying defaults for zero config values.
func NewKeyer(cfg KeyerConfig) *Keyer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultHashThreshold
	}
	return &Keyer{hashLongKeys: cfg.HashLongKeys, threshold: cfg.Threshold}
}

// Fingerprint builds the raw fingerprint for a routine invocation: the
// routine identity followed by each parameter's name and rendered value, all
// joined with the separator byte. Pure and deterministic; equal inputs yield
// equal fingerprints.
func (k *Keyer) Fingerprint(identity string, params []Parameter) string {
	var b strings.Builder
	b.Grow(len(identity) + 16*len(params))
	b.WriteString(identity)
	for _, p := range params {
		b.WriteString(fieldSep)
		b.WriteString(p.Name)
		b.WriteString(fieldSep)
		if p.Null {
			b.WriteString(nullMarker)
		} else {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// DeriveKey builds the effective cache key for a routine invocation:
// Fingerprint followed by the configured hashing rule.
func (k *Keyer) DeriveKey(identity string, params []Parameter) string {
	return EffectiveKey(k.Fingerprint(identity, params), k.threshold, k.hashLongKeys)
}

// EffectiveKey applies the hashing rule to a raw fingerprint. The key is
// returned unchanged when hashing is disabled or the length is at or below
// threshold; otherwise it is replaced by the uppercase hex SHA-256 digest,
// always 64 characters. Deterministic in all cases.
func EffectiveKey(raw string, threshold int, hashing bool) string {
	if !hashing || len(raw) <= threshold {
		return raw
	}
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%X", sum)
}
