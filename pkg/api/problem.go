// Package api holds the wire shapes of the ops/admin HTTP surface.
// Errors follow RFC 9457 problem details.
package api

import (
	"errors"
	"net/http"

	"github.com/nulzo/concierge-bot/internal/core/domain"
)

// Problem is the error body returned by every failing endpoint. Log is
// never serialized; it carries the internal cause for the error
// middleware to record.
type Problem struct {
	Type   string            `json:"type,omitempty"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// NewError builds a bare problem.
func NewError(status int, title, detail string) *Problem {
	return &Problem{Status: status, Title: title, Detail: detail}
}

// ValidationError reports per-field binding failures.
func ValidationError(fields map[string]string) *Problem {
	return &Problem{
		Status: http.StatusBadRequest,
		Title:  "Validation Failed",
		Errors: fields,
	}
}

// InternalError hides the cause from the client but keeps it for logs.
func InternalError(detail string, cause error) *Problem {
	return &Problem{
		Status: http.StatusInternalServerError,
		Title:  "Internal Server Error",
		Detail: detail,
		Log:    cause,
	}
}

// FromDomain maps the domain error taxonomy onto HTTP statuses. Bad
// input surfaces with its message; upstream failures collapse to 502
// with the cause attached for logging only.
func FromDomain(err error) *Problem {
	var de *domain.Error
	if !errors.As(err, &de) {
		return InternalError("An unexpected error occurred.", err)
	}

	switch de.Kind {
	case domain.KindValidation, domain.KindInvalidChannel, domain.KindUserVisible:
		return &Problem{
			Status: http.StatusBadRequest,
			Title:  "Invalid Request",
			Detail: de.Message,
		}
	case domain.KindAPI, domain.KindNetwork:
		return &Problem{
			Status: http.StatusBadGateway,
			Title:  "Upstream Failure",
			Detail: "The model provider could not be reached.",
			Log:    err,
		}
	default:
		return InternalError("An unexpected error occurred.", err)
	}
}
