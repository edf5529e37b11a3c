package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

func bindRoutine() *routine.Routine {
	return &routine.Routine{
		Identity:   routine.Identity{Schema: "api", Name: "search_orders"},
		Kind:       routine.KindFunction,
		ReturnsSet: true,
		Params: []routine.Param{
			{Name: "customer_id", Position: 1, TypeName: "bigint"},
			{Name: "statuses", Position: 2, TypeName: "text[]", HasDefault: true},
			{Name: "limit_to", Position: 3, TypeName: "integer", HasDefault: true},
		},
	}
}

func TestBindQuery(t *testing.T) {
	query := url.Values{
		"customer_id": {"42"},
		"statuses":    {"open", "closed"},
		"limit_to":    {"10"},
	}
	args, err := bindQuery(bindRoutine(), query)
	if err != nil {
		t.Fatalf("bindQuery() error = %v", err)
	}
	want := []routine.Argument{
		{Name: "customer_id", Text: "42"},
		{Name: "statuses", Text: "{open,closed}"},
		{Name: "limit_to", Text: "10"},
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("bindQuery() = %v, want %v", args, want)
	}
}

func TestBindQuery_MissingRequired(t *testing.T) {
	_, err := bindQuery(bindRoutine(), url.Values{})
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("bindQuery() error = %v, want ErrMissingParameter", err)
	}
	if !strings.Contains(err.Error(), "customer_id") {
		t.Errorf("error %q does not name the parameter", err)
	}
}

func TestBindBody(t *testing.T) {
	r := &routine.Routine{
		Identity: routine.Identity{Schema: "api", Name: "create_order"},
		Kind:     routine.KindFunction,
		Params: []routine.Param{
			{Name: "amount", Position: 1, TypeName: "numeric"},
			{Name: "note", Position: 2, TypeName: "text"},
			{Name: "tags", Position: 3, TypeName: "text[]"},
			{Name: "meta", Position: 4, TypeName: "jsonb"},
		},
	}
	body := strings.NewReader(`{"amount": 19.95, "note": null, "tags": ["a b", "c"], "meta": {"k": 1}, "extra": true}`)
	args, err := bindBody(r, body)
	if err != nil {
		t.Fatalf("bindBody() error = %v", err)
	}
	want := []routine.Argument{
		{Name: "amount", Text: "19.95"},
		{Name: "note", Null: true},
		{Name: "tags", Text: `{"a b",c}`},
		{Name: "meta", Text: `{"k":1}`},
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("bindBody() = %v, want %v", args, want)
	}
}

func TestBindBody_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated", `{"customer_id":`},
		{"array not object", `[1, 2]`},
		{"bare scalar", `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bindBody(bindRoutine(), strings.NewReader(tt.body)); !errors.Is(err, ErrMalformedBody) {
				t.Errorf("bindBody() error = %v, want ErrMalformedBody", err)
			}
		})
	}
}

func TestBindBody_EmptyBindsLikeEmptyObject(t *testing.T) {
	if _, err := bindBody(bindRoutine(), strings.NewReader("")); !errors.Is(err, ErrMissingParameter) {
		t.Errorf("bindBody() error = %v, want ErrMissingParameter for the required parameter", err)
	}

	noParams := &routine.Routine{
		Identity: routine.Identity{Schema: "api", Name: "ping"},
		Kind:     routine.KindFunction,
	}
	args, err := bindBody(noParams, strings.NewReader(""))
	if err != nil {
		t.Fatalf("bindBody() error = %v", err)
	}
	if len(args) != 0 {
		t.Errorf("bindBody() = %v, want no arguments", args)
	}
}

func TestBindValues_TrailingDefaultsOmitted(t *testing.T) {
	r := bindRoutine()

	args, err := bindValues(r, map[string]any{"customer_id": "42"})
	if err != nil {
		t.Fatalf("bindValues() error = %v", err)
	}
	if len(args) != 1 || args[0].Name != "customer_id" {
		t.Errorf("bindValues() = %v, want just customer_id", args)
	}

	args, err = bindValues(r, map[string]any{"customer_id": "42", "statuses": []any{"open"}})
	if err != nil {
		t.Fatalf("bindValues() error = %v", err)
	}
	if len(args) != 2 {
		t.Errorf("bindValues() = %v, want two arguments", args)
	}
}

func TestBindValues_MiddleDefaultCannotBeSkipped(t *testing.T) {
	_, err := bindValues(bindRoutine(), map[string]any{"customer_id": "42", "limit_to": "10"})
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("bindValues() error = %v, want ErrMissingParameter", err)
	}
	if !strings.Contains(err.Error(), "statuses") {
		t.Errorf("error %q does not name the skipped parameter", err)
	}
}

func TestBindArguments_MethodSelectsSource(t *testing.T) {
	r := bindRoutine()

	req := httptest.NewRequest(http.MethodGet, "/x?customer_id=7", nil)
	args, err := bindArguments(r, req)
	if err != nil {
		t.Fatalf("GET bind error = %v", err)
	}
	if args[0].Text != "7" {
		t.Errorf("GET bind = %v, want query-bound 7", args)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"customer_id": 7}`))
	args, err = bindArguments(r, req)
	if err != nil {
		t.Fatalf("POST bind error = %v", err)
	}
	if args[0].Text != "7" {
		t.Errorf("POST bind = %v, want body-bound 7", args)
	}

	req = httptest.NewRequest(http.MethodDelete, "/x?customer_id=9", nil)
	args, err = bindArguments(r, req)
	if err != nil {
		t.Fatalf("DELETE bind error = %v", err)
	}
	if args[0].Text != "9" {
		t.Errorf("DELETE bind = %v, want query-bound 9", args)
	}
}
