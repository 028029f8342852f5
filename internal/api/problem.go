package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ProblemKind names one member of the closed failure taxonomy returned by
// every endpoint wrapper.
type ProblemKind string

const (
	KindTimeout       ProblemKind = "timeout"
	KindCannotConnect ProblemKind = "cannot-connect"
	KindServer        ProblemKind = "server"
	KindUnauthorized  ProblemKind = "unauthorized"
	KindNotAllowed    ProblemKind = "notallowed"
	KindForbidden     ProblemKind = "forbidden"
	KindNotFound      ProblemKind = "not-found"
	KindConflict      ProblemKind = "conflict"
	KindRejected      ProblemKind = "rejected"
	KindUnknown       ProblemKind = "unknown"
	KindBadData       ProblemKind = "bad-data"
)

// Kinds lists every problem kind in a stable order.
func Kinds() []ProblemKind {
	return []ProblemKind{
		KindTimeout,
		KindCannotConnect,
		KindServer,
		KindUnauthorized,
		KindNotAllowed,
		KindForbidden,
		KindNotFound,
		KindConflict,
		KindRejected,
		KindUnknown,
		KindBadData,
	}
}

// notAllowedDetail is the ProblemDetails detail the API returns on 401 when
// the credentials are valid but the account has not confirmed its email.
const notAllowedDetail = "notallowed"

// Problem is a classified request failure. Problems are returned as data and
// also satisfy error so they compose with errors.As.
type Problem struct {
	Kind ProblemKind

	// Temporary is set for kinds where retrying later may succeed.
	Temporary bool

	// Detail carries the server's ProblemDetails detail for conflicts.
	Detail string

	// StatusCode is the HTTP status (0 when no response was obtained).
	StatusCode int

	// Err is the underlying transport or decode error, if any.
	Err error
}

// Error implements the error interface.
func (p *Problem) Error() string {
	switch {
	case p.StatusCode > 0 && p.Detail != "":
		return fmt.Sprintf("%s (status %d): %s", p.Kind, p.StatusCode, p.Detail)
	case p.StatusCode > 0:
		return fmt.Sprintf("%s (status %d)", p.Kind, p.StatusCode)
	case p.Err != nil:
		return fmt.Sprintf("%s: %v", p.Kind, p.Err)
	default:
		return string(p.Kind)
	}
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (p *Problem) Unwrap() error {
	return p.Err
}

// ErrorBody is the subset of an RFC 7807 ProblemDetails body the classifier
// inspects.
type ErrorBody struct {
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status,omitempty"`
}

// ClassifyStatus maps an HTTP status and optional decoded error body to a
// Problem.
//
// Rules, in order:
//   - >= 500: server
//   - 401 with detail "NotAllowed" (any casing): notallowed
//   - 401 otherwise: unauthorized
//   - 403: forbidden
//   - 404: not-found
//   - 409: conflict, carrying the body's detail
//   - other 4xx: rejected
//   - anything else: unknown
func ClassifyStatus(status int, body *ErrorBody) *Problem {
	detail := ""
	if body != nil {
		detail = strings.TrimSpace(body.Detail)
	}

	switch {
	case status >= 500:
		return &Problem{Kind: KindServer, StatusCode: status}
	case status == http.StatusUnauthorized:
		if strings.EqualFold(detail, notAllowedDetail) {
			return &Problem{Kind: KindNotAllowed, StatusCode: status}
		}
		return &Problem{Kind: KindUnauthorized, StatusCode: status}
	case status == http.StatusForbidden:
		return &Problem{Kind: KindForbidden, StatusCode: status}
	case status == http.StatusNotFound:
		return &Problem{Kind: KindNotFound, StatusCode: status}
	case status == http.StatusConflict:
		return &Problem{Kind: KindConflict, StatusCode: status, Detail: detail}
	case status >= 400:
		return &Problem{Kind: KindRejected, StatusCode: status}
	default:
		return &Problem{Kind: KindUnknown, StatusCode: status}
	}
}

// ClassifyError maps an error raised before any response was obtained.
// The second return value is false when the error is a caller-initiated
// cancellation, which must not be surfaced as a problem.
func ClassifyError(err error) (*Problem, bool) {
	if err == nil {
		return &Problem{Kind: KindUnknown, Temporary: true}, true
	}

	// ErrTimeout is checked first: a timed-out transport call also reports
	// context.Canceled from the aborted request context.
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &Problem{Kind: KindTimeout, Temporary: true, Err: err}, true
	}
	if errors.Is(err, context.Canceled) {
		return nil, false
	}

	type timeoutError interface {
		Timeout() bool
	}
	var te timeoutError
	if errors.As(err, &te) && te.Timeout() {
		return &Problem{Kind: KindTimeout, Temporary: true, Err: err}, true
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return &Problem{Kind: KindCannotConnect, Temporary: true, Err: err}, true
	}

	return &Problem{Kind: KindUnknown, Temporary: true, Err: err}, true
}
