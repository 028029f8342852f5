package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds each network call made by the client.
const DefaultTimeout = 10 * time.Second

// ErrTimeout reports that a request was aborted because its deadline elapsed
// before the response headers or body arrived.
var ErrTimeout = errors.New("request timed out")

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchWithTimeout issues req through doer and aborts it when no response
// arrives within timeout. Once the response headers arrive the body gets a
// fresh deadline of the same length; a read that outlives it fails with an
// error matching ErrTimeout.
//
// A timeout is reported as an error matching ErrTimeout. Cancellation of ctx
// by the caller is reported unchanged (context.Canceled), so callers can tell
// the two apart.
func FetchWithTimeout(ctx context.Context, doer Doer, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(timeout, func() { cancel(ErrTimeout) })

	resp, err := doer.Do(req.WithContext(reqCtx))
	fired := !timer.Stop()
	if err != nil {
		cause := context.Cause(reqCtx)
		cancel(nil)
		if errors.Is(cause, ErrTimeout) {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		return nil, err
	}
	if fired && errors.Is(context.Cause(reqCtx), ErrTimeout) {
		// The deadline elapsed while the response was being handed back.
		_ = resp.Body.Close()
		cancel(nil)
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}

	timer.Reset(timeout)
	resp.Body = &timedBody{ReadCloser: resp.Body, ctx: reqCtx, cancel: cancel, timer: timer, timeout: timeout}
	return resp, nil
}

// timedBody reports reads cut short by the body deadline as ErrTimeout and
// releases the request context once the body is closed.
type timedBody struct {
	io.ReadCloser
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func (b *timedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF && errors.Is(context.Cause(b.ctx), ErrTimeout) {
		return n, fmt.Errorf("%w after %s reading body: %w", ErrTimeout, b.timeout, err)
	}
	return n, err
}

func (b *timedBody) Close() error {
	b.timer.Stop()
	err := b.ReadCloser.Close()
	b.cancel(nil)
	return err
}
