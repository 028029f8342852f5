package state

import (
	"sync"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Cookbooks      []api.Cookbook
	CookbookPage   int
	CookbookPages  int
	TotalCookbooks int
	HasCookbooks   bool

	RecipesFor int // cookbook id the recipes belong to; 0 when none loaded
	Recipes    []api.RecipeBrief

	UserEmail string

	LastUpdated         time.Time
	LastProblem         *api.Problem
	ConsecutiveFailures int // Number of consecutive failed refreshes

	// SessionExpired stays set until the user signs in again.
	SessionExpired bool
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// UpdateCookbooks records the outcome of a cookbook listing. On failure the
// previous page is kept and the problem is recorded for visibility.
func (s *Store) UpdateCookbooks(page *api.PaginatedList[api.Cookbook], problem *api.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if problem != nil || page == nil {
		s.recordProblem(problem)
		return
	}

	s.snapshot.Cookbooks = clone(page.Items)
	s.snapshot.CookbookPage = page.PageNumber
	s.snapshot.CookbookPages = page.TotalPages
	s.snapshot.TotalCookbooks = page.TotalCount
	s.snapshot.HasCookbooks = true
	s.snapshot.LastProblem = nil
	s.snapshot.ConsecutiveFailures = 0
}

// UpdateRecipes records the outcome of a recipe listing for one cookbook.
func (s *Store) UpdateRecipes(cookbookID int, page *api.PaginatedList[api.RecipeBrief], problem *api.Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if problem != nil || page == nil {
		s.recordProblem(problem)
		return
	}

	s.snapshot.RecipesFor = cookbookID
	s.snapshot.Recipes = clone(page.Items)
	s.snapshot.LastProblem = nil
	s.snapshot.ConsecutiveFailures = 0
}

// RecordProblem stores a problem raised outside the polling loop, such as a
// failed create or delete. It does not count as a poll failure.
func (s *Store) RecordProblem(problem *api.Problem) {
	if problem == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *problem
	s.snapshot.LastProblem = &p
}

// ClearProblem dismisses the current problem.
func (s *Store) ClearProblem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastProblem = nil
}

func (s *Store) recordProblem(problem *api.Problem) {
	if problem == nil {
		problem = &api.Problem{Kind: api.KindUnknown, Temporary: true}
	}
	p := *problem
	s.snapshot.LastProblem = &p
	s.snapshot.ConsecutiveFailures++
}

// MarkSessionExpired flags the session as unrecoverable. It is safe to call
// concurrently and repeatedly; only the first call after a sign-in changes
// state, and it reports whether it did.
func (s *Store) MarkSessionExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.SessionExpired {
		return false
	}
	s.snapshot.SessionExpired = true
	return true
}

// SignedIn resets session state after a successful login.
func (s *Store) SignedIn(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{UserEmail: email, LastUpdated: time.Now()}
}

// SignedOut drops all user data.
func (s *Store) SignedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{LastUpdated: time.Now()}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Cookbooks = clone(s.snapshot.Cookbooks)
	snap.Recipes = clone(s.snapshot.Recipes)
	if s.snapshot.LastProblem != nil {
		p := *s.snapshot.LastProblem
		snap.LastProblem = &p
	}
	return snap
}

func clone[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
