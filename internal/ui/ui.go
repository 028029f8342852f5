package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/prefs"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/state"
)

// Backend is the part of the API client the UI drives.
type Backend interface {
	Login(ctx context.Context, email, password string) api.Result[api.TokenResponse]
	Logout(ctx context.Context) error
	GetCookbooks(ctx context.Context, page, size int) api.Result[api.PaginatedList[api.Cookbook]]
	GetRecipes(ctx context.Context, cookbookID int, search string, page, size int) api.Result[api.PaginatedList[api.RecipeBrief]]
	CreateCookbook(ctx context.Context, in api.CreateCookbookInput) api.Result[api.CookbookCreated]
	DeleteCookbook(ctx context.Context, id int) api.Result[struct{}]
}

// Options configure the UI runtime.
type Options struct {
	Context   context.Context
	Backend   Backend
	Store     *state.Store
	Prefs     prefs.Prefs
	PrefsPath string // empty uses default ~/.config/cookbook/prefs.toml
	SignedIn  bool   // start on the cookbook list instead of the login form
	Logger    *slog.Logger

	// RefreshEvery is how often the UI re-reads the store.
	RefreshEvery time.Duration
}

const defaultUIInterval = time.Second

// Run starts the TUI and blocks until ctx is cancelled or the user quits.
func Run(opts Options) error {
	if opts.Store == nil {
		return fmt.Errorf("ui requires a data store")
	}
	if opts.Backend == nil {
		return fmt.Errorf("ui requires an api backend")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	program := tea.NewProgram(
		newModel(opts),
		tea.WithAltScreen(),
		tea.WithContext(opts.Context),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
