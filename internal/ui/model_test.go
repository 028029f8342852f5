package ui

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/prefs"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/state"
)

type fakeBackend struct {
	mu        sync.Mutex
	logins    []string
	loginRes  api.Result[api.TokenResponse]
	books     api.Result[api.PaginatedList[api.Cookbook]]
	recipes   api.Result[api.PaginatedList[api.RecipeBrief]]
	created   []string
	deleted   []int
	logoutErr error
}

func (f *fakeBackend) Login(_ context.Context, email, _ string) api.Result[api.TokenResponse] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, email)
	return f.loginRes
}

func (f *fakeBackend) Logout(context.Context) error { return f.logoutErr }

func (f *fakeBackend) GetCookbooks(context.Context, int, int) api.Result[api.PaginatedList[api.Cookbook]] {
	return f.books
}

func (f *fakeBackend) GetRecipes(context.Context, int, string, int, int) api.Result[api.PaginatedList[api.RecipeBrief]] {
	return f.recipes
}

func (f *fakeBackend) CreateCookbook(_ context.Context, in api.CreateCookbookInput) api.Result[api.CookbookCreated] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in.Title)
	return api.OK(api.CookbookCreated{CookbookID: len(f.created)})
}

func (f *fakeBackend) DeleteCookbook(_ context.Context, id int) api.Result[struct{}] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return api.OK(struct{}{})
}

func newTestModel(t *testing.T, backend *fakeBackend, signedIn bool) (Model, *state.Store, string) {
	t.Helper()
	store := &state.Store{}
	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := newModel(Options{
		Context:   context.Background(),
		Backend:   backend,
		Store:     store,
		Prefs:     prefs.Prefs{Theme: "Paprika", PageSize: 10},
		PrefsPath: path,
		SignedIn:  signedIn,
	})
	return m, store, path
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func twoBooks() api.PaginatedList[api.Cookbook] {
	return api.PaginatedList[api.Cookbook]{
		Items: []api.Cookbook{
			{ID: 3, Title: "Soups", RecipeCount: 4, MembersCount: 2},
			{ID: 9, Title: "Bread"},
		},
		PageNumber: 1,
		TotalPages: 1,
		TotalCount: 2,
	}
}

func TestLoginSubmitRunsBackendLogin(t *testing.T) {
	backend := &fakeBackend{loginRes: api.OK(api.TokenResponse{AccessToken: "a"})}
	m, _, _ := newTestModel(t, backend, false)

	m.inputs[fieldEmail].SetValue(" cook@example.com ")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.focus != fieldPassword {
		t.Fatalf("enter on email moved focus to %d, want password", m.focus)
	}

	m.inputs[fieldPassword].SetValue("secret")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.busy || cmd == nil {
		t.Fatalf("submit did not start login (busy=%v)", m.busy)
	}
	msg, ok := cmd().(loginDoneMsg)
	if !ok {
		t.Fatalf("login command produced %T", cmd())
	}
	if msg.email != "cook@example.com" {
		t.Fatalf("login email = %q, want trimmed", msg.email)
	}
	if len(backend.logins) != 1 {
		t.Fatalf("backend logins = %d, want 1", len(backend.logins))
	}
}

func TestLoginSubmitRequiresBothFields(t *testing.T) {
	backend := &fakeBackend{}
	m, _, _ := newTestModel(t, backend, false)
	m.inputs[fieldEmail].SetValue("cook@example.com")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.busy {
		t.Fatal("empty password should not submit")
	}
	if m.flash == "" {
		t.Fatal("expected a validation message")
	}
}

func TestLoginSuccessShowsCookbooksAndSavesEmail(t *testing.T) {
	backend := &fakeBackend{}
	m, store, path := newTestModel(t, backend, false)

	m, cmd := update(t, m, loginDoneMsg{email: "cook@example.com", res: api.OK(api.TokenResponse{AccessToken: "a"})})
	if m.screen != screenCookbooks {
		t.Fatalf("screen = %v, want cookbooks", m.screen)
	}
	if cmd == nil {
		t.Fatal("expected cookbook load after login")
	}
	if got := store.Snapshot().UserEmail; got != "cook@example.com" {
		t.Fatalf("store email = %q", got)
	}
	saved, err := prefs.Load(path)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if saved.LastEmail != "cook@example.com" {
		t.Fatalf("saved LastEmail = %q", saved.LastEmail)
	}
}

func TestLoginFailureShowsProblemMessage(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{}, false)
	m.inputs[fieldPassword].SetValue("secret")

	res := api.Fail[api.TokenResponse](&api.Problem{Kind: api.KindNotAllowed, StatusCode: 401})
	m, _ = update(t, m, loginDoneMsg{email: "cook@example.com", res: res})
	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}
	if want := ProblemMessage(api.KindNotAllowed, ""); m.flash != want {
		t.Fatalf("flash = %q, want %q", m.flash, want)
	}
	if m.inputs[fieldPassword].Value() != "" {
		t.Fatal("password should be cleared after a failed login")
	}
}

func TestCookbooksResultFillsTable(t *testing.T) {
	m, store, _ := newTestModel(t, &fakeBackend{}, true)

	m, _ = update(t, m, cookbooksMsg{res: api.OK(twoBooks())})
	if rows := m.books.Rows(); len(rows) != 2 || rows[0][1] != "Soups" {
		t.Fatalf("rows = %v, want Soups and Bread", rows)
	}
	if m.busy {
		t.Fatal("busy should clear after load")
	}
	if got := store.Snapshot().TotalCookbooks; got != 2 {
		t.Fatalf("store TotalCookbooks = %d, want 2", got)
	}
}

func TestCookbooksProblemShowsBanner(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{}, true)

	res := api.Fail[api.PaginatedList[api.Cookbook]](&api.Problem{Kind: api.KindCannotConnect, Temporary: true})
	m, _ = update(t, m, cookbooksMsg{res: res})
	if got, want := m.bannerText(), ProblemMessage(api.KindCannotConnect, ""); got != want {
		t.Fatalf("banner = %q, want %q", got, want)
	}
}

func TestCanceledResultIsIgnored(t *testing.T) {
	m, store, _ := newTestModel(t, &fakeBackend{}, true)
	res := api.Result[api.PaginatedList[api.Cookbook]]{Kind: "canceled"}
	if !res.Canceled() {
		t.Fatal("fixture is not a canceled result")
	}
	m, _ = update(t, m, cookbooksMsg{res: res})
	if store.Snapshot().LastProblem != nil {
		t.Fatal("canceled call recorded a problem")
	}
}

func TestSessionExpiredReturnsToLogin(t *testing.T) {
	m, store, _ := newTestModel(t, &fakeBackend{}, true)
	m.inputs[fieldEmail].SetValue("cook@example.com")

	store.MarkSessionExpired()
	m, _ = update(t, m, snapshotMsg(store.Snapshot()))
	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}
	if m.focus != fieldPassword {
		t.Fatalf("focus = %d, want password when email is known", m.focus)
	}
	if want := ProblemMessage(api.KindUnauthorized, ""); m.flash != want {
		t.Fatalf("flash = %q, want %q", m.flash, want)
	}
}

func TestOpenCookbookLoadsRecipes(t *testing.T) {
	backend := &fakeBackend{recipes: api.OK(api.PaginatedList[api.RecipeBrief]{
		Items: []api.RecipeBrief{{ID: 1, Title: "Minestrone"}},
	})}
	m, _, _ := newTestModel(t, backend, true)
	m, _ = update(t, m, cookbooksMsg{res: api.OK(twoBooks())})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenRecipes || m.selected.ID != 3 {
		t.Fatalf("screen = %v selected = %d, want recipes of 3", m.screen, m.selected.ID)
	}
	msg, ok := cmd().(recipesMsg)
	if !ok || msg.cookbookID != 3 {
		t.Fatalf("recipes command produced %#v", msg)
	}
	m, _ = update(t, m, msg)
	if rows := m.recipes.Rows(); len(rows) != 1 || rows[0][1] != "Minestrone" {
		t.Fatalf("recipe rows = %v", rows)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenCookbooks {
		t.Fatalf("esc left screen %v, want cookbooks", m.screen)
	}
}

func TestCreateCookbookFlow(t *testing.T) {
	backend := &fakeBackend{books: api.OK(twoBooks())}
	m, _, _ := newTestModel(t, backend, true)

	m, _ = update(t, m, runes("c"))
	if m.screen != screenCreate {
		t.Fatalf("screen = %v, want create", m.screen)
	}
	m.title.SetValue("Desserts")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected create command")
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok || done.problem != nil {
		t.Fatalf("create produced %#v", done)
	}
	if len(backend.created) != 1 || backend.created[0] != "Desserts" {
		t.Fatalf("created = %v", backend.created)
	}

	m, cmd = update(t, m, done)
	if m.flash == "" || cmd == nil {
		t.Fatal("success should flash and reload cookbooks")
	}
}

func TestDeleteProblemIsRecorded(t *testing.T) {
	m, store, _ := newTestModel(t, &fakeBackend{}, true)
	problem := &api.Problem{Kind: api.KindForbidden, StatusCode: 403}

	m, _ = update(t, m, actionDoneMsg{problem: problem})
	got := store.Snapshot().LastProblem
	if got == nil || got.Kind != api.KindForbidden {
		t.Fatalf("LastProblem = %v, want forbidden", got)
	}
	if m.bannerText() != ProblemMessage(api.KindForbidden, "") {
		t.Fatalf("banner = %q", m.bannerText())
	}
}

func TestCycleThemePersists(t *testing.T) {
	m, _, path := newTestModel(t, &fakeBackend{}, true)

	m, _ = update(t, m, runes("T"))
	if m.theme.Name != "Basil" {
		t.Fatalf("theme = %q, want Basil", m.theme.Name)
	}
	saved, err := prefs.Load(path)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if saved.Theme != "Basil" {
		t.Fatalf("saved theme = %q, want Basil", saved.Theme)
	}
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{}, true)

	m, _ = update(t, m, loggedOutMsg{err: errors.New("disk full")})
	if m.screen != screenCookbooks {
		t.Fatalf("screen = %v, want cookbooks", m.screen)
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	backend := &fakeBackend{}
	m, store, _ := newTestModel(t, backend, true)
	store.SignedIn("cook@example.com")

	m, cmd := update(t, m, runes("L"))
	m, _ = update(t, m, cmd())
	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}
	if store.Snapshot().UserEmail != "" {
		t.Fatal("store still holds user after logout")
	}
}

func TestViewRendersEachScreen(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{}, false)
	if m.View() == "" {
		t.Fatal("login view empty")
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, loginDoneMsg{email: "a@b.c", res: api.OK(api.TokenResponse{AccessToken: "a"})})
	m, _ = update(t, m, cookbooksMsg{res: api.OK(twoBooks())})
	if m.View() == "" {
		t.Fatal("cookbooks view empty")
	}
}
