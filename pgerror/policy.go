package pgerror

import (
	"fmt"
	"sort"
)

// DefaultPolicyName is the policy applied when an endpoint selects none, and
// the fallback for selections naming no registered policy.
const DefaultPolicyName = "default"

// Mapping is the HTTP shape of one classified failure.
type Mapping struct {
	Status int
	Title  string
}

func (m Mapping) validate() error {
	if m.Status < 100 || m.Status > 599 {
		return fmt.Errorf("pgerror: status %d out of range", m.Status)
	}
	if m.Title == "" {
		return fmt.Errorf("pgerror: mapping with status %d has no title", m.Status)
	}
	return nil
}

// Policy maps SQLSTATE codes to response mappings. A policy is complete by
// itself: codes it does not name fall through to the generic mapping, never
// to another policy. Builders that want the built-in table as a base overlay
// their entries onto a DefaultPolicy copy before registration.
type Policy map[string]Mapping

// DefaultPolicy returns the built-in mapping table. Each call returns a fresh
// copy safe for the caller to extend.
func DefaultPolicy() Policy {
	return Policy{
		CodeInsufficientPrivilege:     {Status: 403, Title: "Insufficient Privilege"},
		CodeInvalidAuthorization:      {Status: 401, Title: "Invalid Authorization"},
		CodeInvalidPassword:           {Status: 401, Title: "Invalid Password"},
		CodeUndefinedTable:            {Status: 404, Title: "Not Found"},
		CodeUndefinedFunction:         {Status: 404, Title: "Not Found"},
		CodeNoData:                    {Status: 404, Title: "Not Found"},
		CodeNoDataFound:               {Status: 404, Title: "Not Found"},
		CodeUniqueViolation:           {Status: 409, Title: "Conflict"},
		CodeForeignKeyViolation:       {Status: 409, Title: "Conflict"},
		CodeSerializationFailure:      {Status: 409, Title: "Conflict"},
		CodeDeadlockDetected:          {Status: 409, Title: "Conflict"},
		CodeNotNullViolation:          {Status: 400, Title: "Bad Request"},
		CodeCheckViolation:            {Status: 400, Title: "Bad Request"},
		CodeInvalidTextRepresentation: {Status: 400, Title: "Bad Request"},
		CodeRaiseException:            {Status: 400, Title: "Bad Request"},
		CodeTooManyConnections:        {Status: 503, Title: "Service Unavailable"},
		CodeLockNotAvailable:          {Status: 503, Title: "Service Unavailable"},
		CodeAdminShutdown:             {Status: 503, Title: "Service Unavailable"},
		CodeQueryCanceled:             {Status: 504, Title: "Gateway Timeout"},
	}
}

// DefaultTimeoutMapping returns the mapping applied to elapsed deadlines.
func DefaultTimeoutMapping() Mapping {
	return Mapping{Status: 504, Title: "Gateway Timeout"}
}

// GenericMapping returns the fallback for failures no policy entry covers.
func GenericMapping() Mapping {
	return Mapping{Status: 500, Title: "Internal Server Error"}
}

// Policies is an immutable registry of named policies plus the distinguished
// timeout mapping. Safe for concurrent use once constructed.
type Policies struct {
	byName  map[string]Policy
	def     Policy
	timeout Mapping
}

// NewPolicies builds a registry. defaultName selects the fallback policy and
// must name an entry in all. Every mapping, including timeout, is validated
// up front so a bad table fails at startup rather than on the first error.
func NewPolicies(defaultName string, timeout Mapping, all map[string]Policy) (*Policies, error) {
	if defaultName == "" {
		defaultName = DefaultPolicyName
	}
	if err := timeout.validate(); err != nil {
		return nil, fmt.Errorf("pgerror: timeout mapping: %w", err)
	}
	byName := make(map[string]Policy, len(all))
	for name, policy := range all {
		if name == "" {
			return nil, fmt.Errorf("pgerror: policy with empty name")
		}
		for code, m := range policy {
			if err := m.validate(); err != nil {
				return nil, fmt.Errorf("pgerror: policy %q code %s: %w", name, code, err)
			}
		}
		byName[name] = policy
	}
	def, ok := byName[defaultName]
	if !ok {
		return nil, fmt.Errorf("pgerror: default policy %q not registered", defaultName)
	}
	return &Policies{byName: byName, def: def, timeout: timeout}, nil
}

// DefaultPolicies returns a registry holding only the built-in table under
// DefaultPolicyName, with the default timeout mapping.
func DefaultPolicies() *Policies {
	p, err := NewPolicies(DefaultPolicyName, DefaultTimeoutMapping(), map[string]Policy{
		DefaultPolicyName: DefaultPolicy(),
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve returns the policy registered under name, or the default policy
// when name is empty or unknown.
func (p *Policies) Resolve(name string) Policy {
	if name == "" {
		return p.def
	}
	if policy, ok := p.byName[name]; ok {
		return policy
	}
	return p.def
}

// Names returns the registered policy names in sorted order.
func (p *Policies) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Timeout returns the distinguished timeout mapping.
func (p *Policies) Timeout() Mapping {
	return p.timeout
}

// Map resolves one classified failure to its response mapping.
//
// Contract:
//   - isTimeout wins over everything: the timeout mapping applies no matter
//     which policy is selected or what code the error carries.
//   - policyName is resolved leniently; empty and unknown names use the
//     default policy.
//   - An empty code, or a code the resolved policy does not name, yields the
//     generic mapping.
func (p *Policies) Map(code string, isTimeout bool, policyName string) Mapping {
	if isTimeout {
		return p.timeout
	}
	if code == "" {
		return GenericMapping()
	}
	if m, ok := p.Resolve(policyName)[code]; ok {
		return m
	}
	return GenericMapping()
}

// MapError classifies err and resolves its mapping in one step.
func (p *Policies) MapError(policyName string, err error) Mapping {
	return p.Map(Code(err), IsTimeout(err), policyName)
}
