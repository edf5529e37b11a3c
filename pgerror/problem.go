package pgerror

import "encoding/json"

// ProblemContentType is the media type for Problem bodies.
const ProblemContentType = "application/problem+json"

// Problem is the error body rendered to HTTP callers, after RFC 7807.
// Code carries the SQLSTATE when the failure originated in the server;
// Detail carries the primary server message for client-fault responses and
// stays empty for server faults so internals are not echoed to callers.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NewProblem builds the Problem for a resolved mapping. The server message
// is included as Detail only for 4xx statuses.
func NewProblem(m Mapping, code, message string) Problem {
	p := Problem{Status: m.Status, Title: m.Title, Code: code}
	if m.Status >= 400 && m.Status < 500 {
		p.Detail = message
	}
	return p
}

// JSON renders the problem body. Marshalling a Problem cannot fail, so the
// result is always a complete document.
func (p Problem) JSON() []byte {
	b, err := json.Marshal(p)
	if err != nil {
		return []byte(`{"status":500,"title":"Internal Server Error"}`)
	}
	return b
}
