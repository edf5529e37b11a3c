package pgerror

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestPolicies_Map(t *testing.T) {
	strict := Policy{
		CodeUniqueViolation: {Status: 422, Title: "Duplicate"},
	}
	policies, err := NewPolicies(DefaultPolicyName, DefaultTimeoutMapping(), map[string]Policy{
		DefaultPolicyName: DefaultPolicy(),
		"strict":          strict,
	})
	if err != nil {
		t.Fatalf("NewPolicies() error = %v", err)
	}

	tests := []struct {
		name       string
		code       string
		isTimeout  bool
		policyName string
		want       Mapping
	}{
		{"privilege denied", "42501", false, "", Mapping{403, "Insufficient Privilege"}},
		{"privilege denied, explicit default", "42501", false, "default", Mapping{403, "Insufficient Privilege"}},
		{"bad password", "28P01", false, "", Mapping{401, "Invalid Password"}},
		{"missing routine", "42883", false, "", Mapping{404, "Not Found"}},
		{"duplicate key, default policy", "23505", false, "", Mapping{409, "Conflict"}},
		{"duplicate key, strict policy", "23505", false, "strict", Mapping{422, "Duplicate"}},
		{"strict policy does not cascade", "42501", false, "strict", Mapping{500, "Internal Server Error"}},
		{"unknown policy falls back", "42501", false, "no-such-policy", Mapping{403, "Insufficient Privilege"}},
		{"timeout ignores policy", "", true, "strict", Mapping{504, "Gateway Timeout"}},
		{"timeout ignores code", "42501", true, "", Mapping{504, "Gateway Timeout"}},
		{"no code", "", false, "", Mapping{500, "Internal Server Error"}},
		{"unmapped code", "XX000", false, "", Mapping{500, "Internal Server Error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policies.Map(tt.code, tt.isTimeout, tt.policyName)
			if got != tt.want {
				t.Errorf("Map(%q, %v, %q) = %+v, want %+v", tt.code, tt.isTimeout, tt.policyName, got, tt.want)
			}
		})
	}
}

func TestNewPolicies_Validation(t *testing.T) {
	valid := map[string]Policy{DefaultPolicyName: DefaultPolicy()}

	t.Run("default must be registered", func(t *testing.T) {
		_, err := NewPolicies("default", DefaultTimeoutMapping(), map[string]Policy{
			"other": DefaultPolicy(),
		})
		if err == nil {
			t.Fatal("NewPolicies() error = nil, want missing default error")
		}
	})

	t.Run("empty policy name rejected", func(t *testing.T) {
		_, err := NewPolicies("default", DefaultTimeoutMapping(), map[string]Policy{
			DefaultPolicyName: DefaultPolicy(),
			"":                {},
		})
		if err == nil {
			t.Fatal("NewPolicies() error = nil, want empty name error")
		}
	})

	t.Run("status out of range rejected", func(t *testing.T) {
		_, err := NewPolicies("default", DefaultTimeoutMapping(), map[string]Policy{
			DefaultPolicyName: {CodeRaiseException: {Status: 9000, Title: "Nope"}},
		})
		if err == nil {
			t.Fatal("NewPolicies() error = nil, want status range error")
		}
	})

	t.Run("missing title rejected", func(t *testing.T) {
		_, err := NewPolicies("default", DefaultTimeoutMapping(), map[string]Policy{
			DefaultPolicyName: {CodeRaiseException: {Status: 400}},
		})
		if err == nil {
			t.Fatal("NewPolicies() error = nil, want missing title error")
		}
	})

	t.Run("bad timeout mapping rejected", func(t *testing.T) {
		_, err := NewPolicies("default", Mapping{Status: 42, Title: "Timeout"}, valid)
		if err == nil {
			t.Fatal("NewPolicies() error = nil, want timeout mapping error")
		}
	})

	t.Run("empty default name uses built-in", func(t *testing.T) {
		p, err := NewPolicies("", DefaultTimeoutMapping(), valid)
		if err != nil {
			t.Fatalf("NewPolicies() error = %v", err)
		}
		if got := p.Map("42501", false, ""); got.Status != 403 {
			t.Errorf("Map() status = %d, want 403", got.Status)
		}
	})
}

func TestPolicies_Names(t *testing.T) {
	policies, err := NewPolicies(DefaultPolicyName, DefaultTimeoutMapping(), map[string]Policy{
		"zeta":            DefaultPolicy(),
		DefaultPolicyName: DefaultPolicy(),
		"alpha":           DefaultPolicy(),
	})
	if err != nil {
		t.Fatalf("NewPolicies() error = %v", err)
	}
	got := policies.Names()
	want := []string{"alpha", "default", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaultPolicies(t *testing.T) {
	p := DefaultPolicies()
	if got := p.Map(CodeInsufficientPrivilege, false, ""); got.Status != 403 || got.Title != "Insufficient Privilege" {
		t.Errorf("Map(42501) = %+v, want 403 Insufficient Privilege", got)
	}
	if got := p.Timeout(); got.Status != 504 {
		t.Errorf("Timeout() status = %d, want 504", got.Status)
	}
}

func TestMapError(t *testing.T) {
	p := DefaultPolicies()

	if got := p.MapError("", fmt.Errorf("exec: %w", pgErr("42501"))); got.Status != 403 {
		t.Errorf("MapError(42501) status = %d, want 403", got.Status)
	}
	if got := p.MapError("", fmt.Errorf("exec: %w", context.DeadlineExceeded)); got.Status != 504 {
		t.Errorf("MapError(deadline) status = %d, want 504", got.Status)
	}
	if got := p.MapError("", fmt.Errorf("plain failure")); got.Status != 500 {
		t.Errorf("MapError(plain) status = %d, want 500", got.Status)
	}
}

func TestNewProblem(t *testing.T) {
	t.Run("client fault carries detail", func(t *testing.T) {
		p := NewProblem(Mapping{Status: 400, Title: "Bad Request"}, "23514", "value out of range")
		if p.Detail != "value out of range" {
			t.Errorf("Detail = %q, want server message", p.Detail)
		}
	})

	t.Run("server fault omits detail", func(t *testing.T) {
		p := NewProblem(Mapping{Status: 500, Title: "Internal Server Error"}, "XX000", "index corrupted")
		if p.Detail != "" {
			t.Errorf("Detail = %q, want empty", p.Detail)
		}
	})

	t.Run("JSON shape", func(t *testing.T) {
		raw := NewProblem(Mapping{Status: 403, Title: "Insufficient Privilege"}, "42501", "permission denied for function").JSON()
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if decoded["status"] != float64(403) {
			t.Errorf("status = %v, want 403", decoded["status"])
		}
		if decoded["title"] != "Insufficient Privilege" {
			t.Errorf("title = %v, want Insufficient Privilege", decoded["title"])
		}
		if decoded["code"] != "42501" {
			t.Errorf("code = %v, want 42501", decoded["code"])
		}
		if !strings.Contains(string(raw), "permission denied") {
			t.Errorf("body %s missing detail", raw)
		}
	})
}
