package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/config"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/credentials"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/logging"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/state"
)

// Session bundles the API client with the stores it feeds.
type Session struct {
	Client *api.Client
	Tokens credentials.Store
	Store  *state.Store
	Logger *slog.Logger
}

// SessionOptions override parts of a Session built from config.
type SessionOptions struct {
	Logger     *slog.Logger
	Tokens     credentials.Store // nil uses a FileStore at cfg.CredentialsPath
	HTTPClient api.Doer
	Version    string
}

// NewSession builds the API client from cfg and registers the
// session-expired handler, which clears the stored credentials and marks the
// shared state store.
func NewSession(cfg config.Config, opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	tokens := opts.Tokens
	if tokens == nil {
		fs, err := credentials.NewFileStore(cfg.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("init credential store: %w", err)
		}
		tokens = fs
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	userAgent := ""
	if opts.Version != "" {
		userAgent = "cookbook/" + opts.Version
	}

	client, err := api.NewClient(api.Options{
		APIURL:           cfg.APIURL,
		HTTPClient:       httpClient,
		Tokens:           tokens,
		Timeout:          cfg.Timeout,
		UserAgent:        userAgent,
		Logger:           logger.With(slog.String("component", "api")),
		UnprotectedPaths: cfg.UnprotectedPaths,
		RefreshPath:      cfg.RefreshPath,
		CoalesceRefresh:  cfg.CoalesceRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	store := &state.Store{}
	client.OnSessionExpired(func() {
		// Drop the pair so the next start begins signed out.
		if err := tokens.Clear(context.Background()); err != nil {
			logger.Warn("clear credentials failed", slog.String("error", err.Error()))
		}
		if store.MarkSessionExpired() {
			logger.Warn("session expired; sign in again")
		}
	})

	return &Session{Client: client, Tokens: tokens, Store: store, Logger: logger}, nil
}

// SignedIn reports whether a credential pair is stored.
func (s *Session) SignedIn(ctx context.Context) bool {
	pair, err := s.Tokens.Load(ctx)
	return err == nil && pair.AccessToken != ""
}

// Restore reports whether a stored session exists and, if so, seeds the
// state store with the email carried in the access token.
func (s *Session) Restore(ctx context.Context) bool {
	pair, err := s.Tokens.Load(ctx)
	if err != nil {
		s.Logger.Warn("load credentials failed", slog.String("error", err.Error()))
		return false
	}
	if pair.AccessToken == "" {
		return false
	}
	email := ""
	if claims, err := api.InspectToken(pair.AccessToken); err == nil {
		email = claims.Email
	}
	s.Store.SignedIn(email)
	return true
}

// Login signs in and resets session state.
func (s *Session) Login(ctx context.Context, email, password string) api.Result[api.TokenResponse] {
	res := s.Client.Login(ctx, email, password)
	if res.IsOK() {
		s.Store.SignedIn(email)
		s.Logger.Info("signed in", slog.String("email", email))
	}
	return res
}

// Logout clears credentials and session state.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.Client.Logout(ctx); err != nil {
		return err
	}
	s.Store.SignedOut()
	return nil
}
