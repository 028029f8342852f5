package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/credentials"
)

const (
	defaultAPIURL    = "http://127.0.0.1:8080/api"
	defaultUserAgent = "cookbook/0.1"

	// DefaultRefreshPath is resolved against the host URL, not the API URL.
	DefaultRefreshPath = "/Users/refresh"

	maxErrorBodySize = 64 * 1024
)

// DefaultUnprotectedPaths are reachable before any credential exists and
// never carry a bearer token.
func DefaultUnprotectedPaths() []string {
	return []string{
		"/Users/login",
		"/Users/register",
		"/Users/resendConfirmationEmail",
		"/Users/forgotPassword",
		"/Users/resetPassword",
		"/Users/confirmEmail",
	}
}

// Request describes one API call. The zero value of SkipAuth means the call
// is authenticated.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is encoded as JSON when non-nil, unless RawBody is set.
	Body any

	// RawBody and ContentType send a pre-encoded payload (multipart uploads).
	RawBody     []byte
	ContentType string

	SkipAuth bool

	// Timeout overrides the client timeout for this call.
	Timeout time.Duration
}

// Options configure a Client.
type Options struct {
	// APIURL is the versioned API root, e.g. https://host/api.
	APIURL string

	HTTPClient Doer
	Tokens     credentials.Store
	Timeout    time.Duration
	UserAgent  string
	Logger     *slog.Logger

	// UnprotectedPaths replaces DefaultUnprotectedPaths when non-empty.
	UnprotectedPaths []string

	// RefreshPath replaces DefaultRefreshPath when non-empty.
	RefreshPath string

	// CoalesceRefresh shares one in-flight refresh call between concurrent
	// requests that hit 401 at the same time.
	CoalesceRefresh bool
}

// Client sends requests to the cookbook API, attaching bearer credentials and
// renewing them once when the server answers 401.
type Client struct {
	apiURL      *url.URL
	hostURL     *url.URL
	http        Doer
	tokens      credentials.Store
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
	unprotected map[string]struct{}
	refreshPath string
	refreshes   *singleflight.Group

	expiredMu sync.RWMutex
	onExpired func()
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	apiURL, err := parseAPIURL(opts.APIURL)
	if err != nil {
		return nil, err
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	paths := opts.UnprotectedPaths
	if len(paths) == 0 {
		paths = DefaultUnprotectedPaths()
	}
	unprotected := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		unprotected[normalizePath(p)] = struct{}{}
	}

	refreshPath := strings.TrimSpace(opts.RefreshPath)
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	c := &Client{
		apiURL:      apiURL,
		hostURL:     hostURL(apiURL),
		http:        httpClient,
		tokens:      opts.Tokens,
		timeout:     timeout,
		userAgent:   userAgent,
		logger:      logger,
		unprotected: unprotected,
		refreshPath: "/" + strings.TrimLeft(refreshPath, "/"),
	}
	if opts.CoalesceRefresh {
		c.refreshes = &singleflight.Group{}
	}
	return c, nil
}

// OnSessionExpired registers fn to run when a 401 cannot be recovered by a
// refresh. Only the first registration takes effect; it reports whether fn
// was installed. fn may be called concurrently and more than once.
func (c *Client) OnSessionExpired(fn func()) bool {
	c.expiredMu.Lock()
	defer c.expiredMu.Unlock()
	if c.onExpired != nil || fn == nil {
		return false
	}
	c.onExpired = fn
	return true
}

// Tokens returns the credential store the client reads from.
func (c *Client) Tokens() credentials.Store {
	return c.tokens
}

// Send issues req and returns the raw response. A 401 on an authenticated
// request triggers at most one refresh followed by one retry; when the session
// cannot be renewed the original 401 response is returned and the
// session-expired handler runs.
//
// Errors are transport failures (including ErrTimeout and caller
// cancellation) or malformed requests. HTTP error statuses are not errors.
func (c *Client) Send(ctx context.Context, req Request) (*http.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		return nil, fmt.Errorf("request method is required")
	}
	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("request path is required")
	}
	req.Method = method

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	authed := c.requiresAuth(req)
	token := ""
	if authed {
		pair, err := c.tokens.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
		token = pair.AccessToken
	}

	resp, err := c.attempt(ctx, c.apiURL, req, body, contentType, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !authed || c.isRefreshPath(req.Path) {
		return resp, nil
	}

	c.logger.Debug("access token rejected, refreshing",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
	)

	pair, ok := c.refresh(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			drain(resp)
			return nil, fmt.Errorf("refresh credentials: %w", err)
		}
		c.sessionExpired()
		return resp, nil
	}
	drain(resp)

	return c.attempt(ctx, c.apiURL, req, body, contentType, pair.AccessToken)
}

// attempt builds a fresh request with its own header set and deadline.
func (c *Client) attempt(ctx context.Context, base *url.URL, req Request, body []byte, contentType, token string) (*http.Response, error) {
	rel := &url.URL{Path: joinPath(base.Path, req.Path)}
	if len(req.Query) > 0 {
		rel.RawQuery = req.Query.Encode()
	}
	reqURL := base.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	resp, err := FetchWithTimeout(ctx, c.http, httpReq, timeout)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refresh exchanges the stored refresh token for a new pair and persists it.
//
// A coalesced refresh is shared by every waiting caller, so it runs detached
// from the cancellation of whichever caller started it; the fetch deadline
// still bounds it. Each caller stops waiting when its own ctx is done.
func (c *Client) refresh(ctx context.Context) (credentials.Pair, bool) {
	if c.refreshes == nil {
		return c.doRefresh(ctx)
	}
	shared := context.WithoutCancel(ctx)
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		pair, ok := c.doRefresh(shared)
		return refreshOutcome{pair: pair, ok: ok}, nil
	})
	select {
	case <-ctx.Done():
		return credentials.Pair{}, false
	case res := <-ch:
		out := res.Val.(refreshOutcome)
		return out.pair, out.ok
	}
}

type refreshOutcome struct {
	pair credentials.Pair
	ok   bool
}

func (c *Client) doRefresh(ctx context.Context) (credentials.Pair, bool) {
	current, err := c.tokens.Load(ctx)
	if err != nil {
		c.logger.Warn("load credentials for refresh failed", slog.String("error", err.Error()))
		return credentials.Pair{}, false
	}
	if current.RefreshToken == "" {
		c.logger.Debug("no refresh token stored")
		return credentials.Pair{}, false
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return credentials.Pair{}, false
	}
	req := Request{Method: http.MethodPost, Path: c.refreshPath, SkipAuth: true}
	resp, err := c.attempt(ctx, c.hostURL, req, payload, "application/json", "")
	if err != nil {
		c.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return credentials.Pair{}, false
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("token refresh rejected", slog.Int("status", resp.StatusCode))
		return credentials.Pair{}, false
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("decode refresh response failed", slog.String("error", err.Error()))
		return credentials.Pair{}, false
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		c.logger.Warn("refresh response carried no access token")
		return credentials.Pair{}, false
	}

	next := credentials.Pair{AccessToken: out.AccessToken, RefreshToken: current.RefreshToken}
	if out.RefreshToken != "" {
		next.RefreshToken = out.RefreshToken
	}
	if err := c.tokens.Save(ctx, next); err != nil {
		c.logger.Warn("persist refreshed credentials failed", slog.String("error", err.Error()))
		return credentials.Pair{}, false
	}
	c.logger.Debug("access token refreshed", slog.Bool("rotated", out.RefreshToken != ""))
	return next, true
}

func (c *Client) sessionExpired() {
	c.expiredMu.RLock()
	fn := c.onExpired
	c.expiredMu.RUnlock()

	c.logger.Info("session expired")
	if fn != nil {
		fn()
	}
}

func (c *Client) requiresAuth(req Request) bool {
	if req.SkipAuth {
		return false
	}
	_, open := c.unprotected[normalizePath(req.Path)]
	return !open
}

func (c *Client) isRefreshPath(p string) bool {
	return normalizePath(p) == normalizePath(c.refreshPath)
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return payload, "application/json", nil
}

// drain discards what is left of a body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	_ = resp.Body.Close()
}

// normalizePath cleans p for exact, case-insensitive allow-list matching.
func normalizePath(p string) string {
	trimmed := strings.TrimSpace(p)
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.ToLower(path.Clean(trimmed))
}

func joinPath(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

func parseAPIURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// hostURL strips a trailing /api segment from the API URL.
func hostURL(apiURL *url.URL) *url.URL {
	host := *apiURL
	p := strings.TrimRight(host.Path, "/")
	if strings.EqualFold(path.Base(p), "api") {
		p = p[:len(p)-len("api")]
	}
	host.Path = strings.TrimRight(p, "/")
	return &host
}
