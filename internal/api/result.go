package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// KindOK tags a successful Result.
const KindOK ProblemKind = "ok"

// kindCanceled tags a Result abandoned by caller cancellation. It is not part
// of the problem taxonomy.
const kindCanceled ProblemKind = "canceled"

// Result is the uniform outcome of an endpoint wrapper: either Kind is KindOK
// and Value holds the payload, or Problem describes the failure and Kind
// mirrors Problem.Kind.
type Result[T any] struct {
	Kind    ProblemKind
	Value   T
	Problem *Problem
}

// OK wraps a decoded payload as a successful Result.
func OK[T any](value T) Result[T] {
	return Result[T]{Kind: KindOK, Value: value}
}

// Fail wraps a problem as a failed Result.
func Fail[T any](p *Problem) Result[T] {
	if p == nil {
		p = &Problem{Kind: KindUnknown, Temporary: true}
	}
	return Result[T]{Kind: p.Kind, Problem: p}
}

func canceled[T any]() Result[T] {
	return Result[T]{Kind: kindCanceled}
}

// IsOK reports whether the call succeeded.
func (r Result[T]) IsOK() bool {
	return r.Kind == KindOK
}

// Canceled reports whether the caller cancelled the call. Such results carry
// neither a value nor a problem and should be discarded.
func (r Result[T]) Canceled() bool {
	return r.Kind == kindCanceled
}

// Unwrap returns the value and, for failures, the problem as an error.
// Cancelled results return context.Canceled.
func (r Result[T]) Unwrap() (T, error) {
	switch {
	case r.IsOK():
		return r.Value, nil
	case r.Canceled():
		var zero T
		return zero, context.Canceled
	default:
		var zero T
		return zero, r.Problem
	}
}

// ProblemFromResponse classifies a non-success response, reading its
// ProblemDetails body when present. Statuses the classifier cannot place
// become rejected. The body is consumed and closed.
func ProblemFromResponse(resp *http.Response) *Problem {
	if resp == nil {
		return &Problem{Kind: KindUnknown, Temporary: true}
	}
	body := readErrorBody(resp)
	p := ClassifyStatus(resp.StatusCode, body)
	if p.Kind == KindUnknown {
		p.Kind = KindRejected
	}
	return p
}

// ProblemFromError classifies an error raised before a response arrived. The
// second return value is false for caller cancellation.
func ProblemFromError(err error) (*Problem, bool) {
	return ClassifyError(err)
}

func readErrorBody(resp *http.Response) *ErrorBody {
	if resp.Body == nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return &body
}

// errNoBody is returned by decoders when a payload was expected but absent.
var errNoBody = errors.New("empty response body")

// call sends req and, on a 2xx response, hands it to decode. Every outcome is
// folded into a Result; nothing escapes as a Go error.
func call[T any](ctx context.Context, c *Client, req Request, decode func(*http.Response) (T, error)) Result[T] {
	if c == nil {
		return Fail[T](&Problem{Kind: KindUnknown, Err: fmt.Errorf("client is nil")})
	}
	resp, err := c.Send(ctx, req)
	if err != nil {
		p, ok := ProblemFromError(err)
		if !ok {
			return canceled[T]()
		}
		return Fail[T](p)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Fail[T](ProblemFromResponse(resp))
	}
	defer drain(resp)

	value, err := decode(resp)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return Fail[T](&Problem{Kind: KindTimeout, Temporary: true, Err: err})
		}
		// The caller's ctx, not the read error, tells cancellation apart from
		// a deadline.
		if ctxErr := ctx.Err(); ctxErr != nil {
			p, ok := ProblemFromError(ctxErr)
			if !ok {
				return canceled[T]()
			}
			return Fail[T](p)
		}
		return Fail[T](&Problem{Kind: KindBadData, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)})
	}
	return OK(value)
}

// decodeJSON decodes the body into a T.
func decodeJSON[T any](resp *http.Response) (T, error) {
	var out T
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, errNoBody
		}
		return out, err
	}
	return out, nil
}

// decodeNothing ignores the body of a successful response.
func decodeNothing(*http.Response) (struct{}, error) {
	return struct{}{}, nil
}

// decodeID decodes a bare JSON integer such as the body of a 201 Created.
func decodeID(resp *http.Response) (int, error) {
	return decodeJSON[int](resp)
}
