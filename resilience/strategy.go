package resilience

import (
	"fmt"
	"sort"
	"time"
)

// DefaultStrategyName is the strategy resolved when an endpoint names none.
const DefaultStrategyName = "default"

// CodeSet is a set of five-character error codes eligible for retry.
type CodeSet map[string]struct{}

// NewCodeSet builds a CodeSet from the given codes.
func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports whether code is a member of the set.
func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Codes returns the members in sorted order.
func (s CodeSet) Codes() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Strategy pairs a literal delay sequence with the error codes it retries.
//
// Delays[i] is the wait before retry attempt i+1; the sequence length is the
// retry budget after the initial attempt. The sequence is followed exactly:
// no jitter, no multiplier.
type Strategy struct {
	// Name identifies the strategy in configuration and logs. The dedicated
	// connection strategy is unnamed.
	Name string

	// Delays is the ordered list of inter-attempt waits.
	Delays []time.Duration

	// Codes is the set of error codes eligible for retry under this strategy.
	Codes CodeSet
}

// MaxAttempts returns the total attempt budget, including the initial attempt.
func (s Strategy) MaxAttempts() int {
	return len(s.Delays) + 1
}

// TotalDelay returns the sum of the delay sequence: the worst-case added
// latency a caller can observe from retries alone.
func (s Strategy) TotalDelay() time.Duration {
	var total time.Duration
	for _, d := range s.Delays {
		total += d
	}
	return total
}

// Strategies is an immutable name-to-Strategy registry resolved once at
// startup. Resolution never fails: unknown or empty names fall back to the
// validated default.
type Strategies struct {
	byName map[string]Strategy
	def    Strategy
}

// NewStrategies builds a registry from the given strategies and validates
// that defaultName is among them.
func NewStrategies(defaultName string, all ...Strategy) (*Strategies, error) {
	byName := make(map[string]Strategy, len(all))
	for _, s := range all {
		if s.Name == "" {
			return nil, fmt.Errorf("resilience: strategy with empty name")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("resilience: duplicate strategy %q", s.Name)
		}
		byName[s.Name] = s
	}
	def, ok := byName[defaultName]
	if !ok {
		return nil, fmt.Errorf("resilience: default strategy %q is not defined", defaultName)
	}
	return &Strategies{byName: byName, def: def}, nil
}

// Resolve returns the named strategy, or the default for empty and unknown
// names.
func (s *Strategies) Resolve(name string) Strategy {
	if name == "" {
		return s.def
	}
	if st, ok := s.byName[name]; ok {
		return st
	}
	return s.def
}

// Default returns the default strategy.
func (s *Strategies) Default() Strategy {
	return s.def
}

// Names returns the registered strategy names in sorted order.
func (s *Strategies) Names() []string {
	out := make([]string, 0, len(s.byName))
	for name := range s.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
