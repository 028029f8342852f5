package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/state"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// CookbookSource is the part of the API client the poller needs.
type CookbookSource interface {
	GetCookbooks(ctx context.Context, page, size int) api.Result[api.PaginatedList[api.Cookbook]]
	GetRecipes(ctx context.Context, cookbookID int, search string, page, size int) api.Result[api.PaginatedList[api.RecipeBrief]]
}

// PollerOptions configure StartPoller.
type PollerOptions struct {
	Interval time.Duration
	PageSize int
	Logger   *slog.Logger
}

// StartPoller launches a background goroutine that refreshes the store. It
// backs off while the API is unreachable and pauses while the session is
// expired. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, source CookbookSource, opts PollerOptions) {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			wait := interval
			if !store.Snapshot().SessionExpired {
				refresh(ctx, store, source, opts.PageSize, logger)
				snap := store.Snapshot()
				if snap.LastProblem != nil && snap.LastProblem.Temporary {
					wait = calculateBackoff(snap.ConsecutiveFailures, interval)
				}
			}
			timer.Reset(wait)
		}
	}()
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// refresh loads the first cookbook page and, when a cookbook's recipes are
// on screen, that cookbook's recipes.
func refresh(ctx context.Context, store *state.Store, source CookbookSource, pageSize int, logger *slog.Logger) {
	page := 1
	if snap := store.Snapshot(); snap.CookbookPage > 0 {
		page = snap.CookbookPage
	}
	books := source.GetCookbooks(ctx, page, pageSize)
	if books.Canceled() {
		return
	}
	if !books.IsOK() {
		store.UpdateCookbooks(nil, books.Problem)
		logger.Warn("cookbook poll failed", slog.String("kind", string(books.Kind)))
		return
	}
	store.UpdateCookbooks(&books.Value, nil)

	cookbookID := store.Snapshot().RecipesFor
	if cookbookID == 0 {
		return
	}
	recipes := source.GetRecipes(ctx, cookbookID, "", 1, pageSize)
	if recipes.Canceled() {
		return
	}
	if !recipes.IsOK() {
		store.UpdateRecipes(cookbookID, nil, recipes.Problem)
		logger.Warn("recipe poll failed", slog.Int("cookbook_id", cookbookID), slog.String("kind", string(recipes.Kind)))
		return
	}
	store.UpdateRecipes(cookbookID, &recipes.Value, nil)
}
