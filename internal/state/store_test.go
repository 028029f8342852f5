package state

import (
	"sync"
	"testing"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

func cookbookPage(ids ...int) *api.PaginatedList[api.Cookbook] {
	items := make([]api.Cookbook, 0, len(ids))
	for _, id := range ids {
		items = append(items, api.Cookbook{ID: id, Title: "Book"})
	}
	return &api.PaginatedList[api.Cookbook]{Items: items, PageNumber: 1, TotalPages: 1, TotalCount: len(ids)}
}

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.UpdateCookbooks(cookbookPage(1, 2), nil)

	snap := s.Snapshot()
	if !snap.HasCookbooks || snap.TotalCookbooks != 2 {
		t.Fatalf("snapshot = %#v, want 2 cookbooks", snap)
	}
	if len(snap.Cookbooks) != 2 || snap.Cookbooks[0].ID != 1 {
		t.Fatalf("snapshot cookbooks = %#v, want 2 items", snap.Cookbooks)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastProblem != nil {
		t.Fatalf("LastProblem = %v, want nil", snap.LastProblem)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Cookbooks[0].ID = 999
	snap2 := s.Snapshot()
	if snap2.Cookbooks[0].ID != 1 {
		t.Fatalf("Snapshot should clone cookbooks; got id %d want 1", snap2.Cookbooks[0].ID)
	}
}

func TestStore_UpdateProblemKeepsPreviousData(t *testing.T) {
	var s Store

	s.UpdateCookbooks(cookbookPage(1), nil)
	s.UpdateRecipes(1, &api.PaginatedList[api.RecipeBrief]{Items: []api.RecipeBrief{{ID: 5, Title: "Soup"}}}, nil)

	problem := &api.Problem{Kind: api.KindServer, StatusCode: 503}
	s.UpdateCookbooks(nil, problem)

	snap := s.Snapshot()
	if len(snap.Cookbooks) != 1 || snap.Cookbooks[0].ID != 1 {
		t.Fatalf("cookbooks changed on problem: %#v", snap.Cookbooks)
	}
	if snap.RecipesFor != 1 || len(snap.Recipes) != 1 {
		t.Fatalf("recipes changed on problem: %d %#v", snap.RecipesFor, snap.Recipes)
	}
	if snap.LastProblem == nil || snap.LastProblem.Kind != api.KindServer {
		t.Fatalf("LastProblem = %v, want server", snap.LastProblem)
	}
	if snap.LastProblem == problem {
		t.Fatalf("Snapshot should copy the problem")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store = %#v, want online", snap)
	}

	s.UpdateCookbooks(nil, &api.Problem{Kind: api.KindCannotConnect, Temporary: true})
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.UpdateCookbooks(nil, nil)
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if snap.LastProblem == nil || snap.LastProblem.Kind != api.KindUnknown {
		t.Fatalf("nil problem recorded as %v, want unknown", snap.LastProblem)
	}

	// Out-of-band problems don't count against the poll.
	s.RecordProblem(&api.Problem{Kind: api.KindConflict, Detail: "dup"})
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 2 || snap.LastProblem.Kind != api.KindConflict {
		t.Fatalf("RecordProblem changed failures to %d / problem %v", snap.ConsecutiveFailures, snap.LastProblem)
	}

	s.UpdateCookbooks(cookbookPage(), nil)
	if snap = s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() || snap.LastProblem != nil {
		t.Fatalf("success did not reset: %#v", snap)
	}
}

func TestStore_MarkSessionExpiredIsIdempotent(t *testing.T) {
	var s Store
	s.SignedIn("cook@example.com")

	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkSessionExpired() {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if changed != 1 {
		t.Fatalf("MarkSessionExpired changed state %d times, want 1", changed)
	}
	if !s.Snapshot().SessionExpired {
		t.Fatalf("SessionExpired = false, want true")
	}

	s.SignedIn("cook@example.com")
	snap := s.Snapshot()
	if snap.SessionExpired || snap.UserEmail != "cook@example.com" {
		t.Fatalf("SignedIn did not reset session: %#v", snap)
	}

	s.SignedOut()
	if snap = s.Snapshot(); snap.UserEmail != "" {
		t.Fatalf("SignedOut kept user %q", snap.UserEmail)
	}
}
