package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC7807 error body. Every API error response carries one,
// with Content-Type application/problem+json. TraceID ties the body back to
// the X-Request-Id header for support correlation.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points a validation failure at one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs. The pages do not resolve; the URIs are stable
// identifiers clients can switch on.
const (
	ProblemTypeValidation      = "https://api.saferoute.edu/problems/validation-error"
	ProblemTypeNotFound        = "https://api.saferoute.edu/problems/not-found"
	ProblemTypeTooManyRequests = "https://api.saferoute.edu/problems/too-many-requests"
	ProblemTypeInternal        = "https://api.saferoute.edu/problems/internal-error"
	ProblemTypeBadGateway      = "https://api.saferoute.edu/problems/upstream-unavailable"
	ProblemTypeUnavailable     = "https://api.saferoute.edu/problems/service-unavailable"
)

// NewProblem creates a problem of the given type.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{Type: problemType, Title: title, Status: status, TraceID: traceID}
}

// WithDetail sets the occurrence-specific detail message.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field-level validation errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write serializes the problem to w under its own status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return &Problem{
		Type:    ProblemTypeValidation,
		Title:   "Validation error",
		Status:  http.StatusBadRequest,
		Detail:  detail,
		TraceID: traceID,
		Errors:  errors,
	}
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return &Problem{
		Type:    ProblemTypeNotFound,
		Title:   "Not found",
		Status:  http.StatusNotFound,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return &Problem{
		Type:    ProblemTypeTooManyRequests,
		Title:   "Too many requests",
		Status:  http.StatusTooManyRequests,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return &Problem{
		Type:    ProblemTypeInternal,
		Title:   "Internal server error",
		Status:  http.StatusInternalServerError,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewBadGateway creates a 502 problem for routing or geocoding provider failures.
func NewBadGateway(traceID, detail string) *Problem {
	return &Problem{
		Type:    ProblemTypeBadGateway,
		Title:   "Upstream unavailable",
		Status:  http.StatusBadGateway,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return &Problem{
		Type:    ProblemTypeUnavailable,
		Title:   "Service unavailable",
		Status:  http.StatusServiceUnavailable,
		Detail:  detail,
		TraceID: traceID,
	}
}
