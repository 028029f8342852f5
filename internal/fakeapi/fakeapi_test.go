package fakeapi_test

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/credentials"
	"github.com/bretthoes/cookbook-mobile-sub001/internal/fakeapi"
)

type env struct {
	server *fakeapi.Server
	http   *httptest.Server
}

func newEnv(t *testing.T, opts fakeapi.Options) *env {
	t.Helper()
	server := fakeapi.New(opts)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &env{server: server, http: ts}
}

func (e *env) client(t *testing.T, tokens credentials.Store) *api.Client {
	t.Helper()
	client, err := api.NewClient(api.Options{
		APIURL:     e.http.URL + "/api",
		HTTPClient: e.http.Client(),
		Tokens:     tokens,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

// signUp registers and logs in a confirmed account.
func (e *env) signUp(t *testing.T, email string) (*api.Client, *credentials.MemoryStore) {
	t.Helper()
	tokens := credentials.NewMemoryStore(credentials.Pair{})
	client := e.client(t, tokens)
	ctx := context.Background()
	if res := client.Register(ctx, email, "password1"); !res.IsOK() {
		t.Fatalf("Register(%s) kind = %s", email, res.Kind)
	}
	e.server.ConfirmUser(email)
	if res := client.Login(ctx, email, "password1"); !res.IsOK() {
		t.Fatalf("Login(%s) kind = %s", email, res.Kind)
	}
	return client, tokens
}

func mustOK[T any](t *testing.T, what string, res api.Result[T]) T {
	t.Helper()
	v, err := res.Unwrap()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
	return v
}

func wantKind[T any](t *testing.T, what string, res api.Result[T], kind api.ProblemKind) *api.Problem {
	t.Helper()
	if res.Kind != kind {
		t.Fatalf("%s kind = %s, want %s (problem %v)", what, res.Kind, kind, res.Problem)
	}
	return res.Problem
}

func TestUnconfirmedLoginIsNotAllowed(t *testing.T) {
	e := newEnv(t, fakeapi.Options{})
	tokens := credentials.NewMemoryStore(credentials.Pair{})
	client := e.client(t, tokens)
	ctx := context.Background()

	mustOK(t, "register", client.Register(ctx, "cook@example.com", "password1"))
	wantKind(t, "login", client.Login(ctx, "cook@example.com", "password1"), api.KindNotAllowed)

	userID, code, ok := e.server.ConfirmationCode("cook@example.com")
	if !ok {
		t.Fatal("no confirmation code issued")
	}
	mustOK(t, "confirm", client.ConfirmEmail(ctx, userID, code))

	tok := mustOK(t, "login", client.Login(ctx, "cook@example.com", "password1"))
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Fatalf("token response = %+v", tok)
	}
	info := mustOK(t, "user info", client.GetUserInfo(ctx))
	if info.Email != "cook@example.com" || !info.IsEmailConfirmed {
		t.Fatalf("user info = %+v", info)
	}
}

func TestWrongPasswordIsUnauthorized(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, _ := e.signUp(t, "cook@example.com")
	wantKind(t, "login", client.Login(context.Background(), "cook@example.com", "nope-nope"), api.KindUnauthorized)
}

func TestDuplicateRegistrationIsRejected(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, _ := e.signUp(t, "cook@example.com")
	p := wantKind(t, "register", client.Register(context.Background(), "Cook@Example.com", "password2"), api.KindRejected)
	if p.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", p.StatusCode)
	}
}

func TestExpiredAccessTokenRefreshesTransparently(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, tokens := e.signUp(t, "cook@example.com")
	ctx := context.Background()

	var expired atomic.Int32
	client.OnSessionExpired(func() { expired.Add(1) })

	mustOK(t, "create", client.CreateCookbook(ctx, api.CreateCookbookInput{Title: "Soups"}))
	before, _ := tokens.Load(ctx)

	e.server.ExpireAccessTokens()

	page := mustOK(t, "list after expiry", client.GetCookbooks(ctx, 1, 10))
	if page.TotalCount != 1 || page.Items[0].Title != "Soups" {
		t.Fatalf("page = %+v", page)
	}
	after, _ := tokens.Load(ctx)
	if after.AccessToken == before.AccessToken {
		t.Fatal("access token was not replaced")
	}
	if after.RefreshToken == before.RefreshToken {
		t.Fatal("rotated refresh token was not stored")
	}
	if expired.Load() != 0 {
		t.Fatal("session-expired handler ran on a successful refresh")
	}
}

func TestRevokedRefreshEndsSession(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, _ := e.signUp(t, "cook@example.com")
	ctx := context.Background()

	var expired atomic.Int32
	client.OnSessionExpired(func() { expired.Add(1) })

	e.server.ExpireAccessTokens()
	e.server.RevokeRefreshTokens()

	wantKind(t, "list", client.GetCookbooks(ctx, 1, 10), api.KindUnauthorized)
	if got := expired.Load(); got != 1 {
		t.Fatalf("session-expired calls = %d, want 1", got)
	}
}

func TestCookbookAndRecipeLifecycle(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, _ := e.signUp(t, "cook@example.com")
	ctx := context.Background()

	created := mustOK(t, "create cookbook", client.CreateCookbook(ctx, api.CreateCookbookInput{Title: "Soups"}))
	id := created.CookbookID

	book := mustOK(t, "get cookbook", client.GetCookbook(ctx, id))
	if !book.IsCreator || book.MembersCount != 1 || book.AuthorEmail != "cook@example.com" {
		t.Fatalf("cookbook = %+v", book)
	}

	mustOK(t, "rename", client.UpdateCookbook(ctx, api.UpdateCookbookInput{ID: id, Title: "Stews"}))
	if got := mustOK(t, "get", client.GetCookbook(ctx, id)).Title; got != "Stews" {
		t.Fatalf("title = %q, want Stews", got)
	}
	wantKind(t, "empty title", client.CreateCookbook(ctx, api.CreateCookbookInput{Title: " "}), api.KindRejected)

	for _, title := range []string{"Minestrone", "Chili", "Borscht"} {
		mustOK(t, "create recipe", client.CreateRecipe(ctx, id, api.RecipeInput{
			Title:      title,
			Directions: []api.RecipeDirection{{Text: "Simmer."}},
		}))
	}
	all := mustOK(t, "list recipes", client.GetRecipes(ctx, id, "", 1, 2))
	if all.TotalCount != 3 || all.TotalPages != 2 || !all.HasNextPage || all.Items[0].Title != "Borscht" {
		t.Fatalf("recipes page = %+v", all)
	}
	found := mustOK(t, "search", client.GetRecipes(ctx, id, "chi", 1, 10))
	if len(found.Items) != 1 || found.Items[0].Title != "Chili" {
		t.Fatalf("search = %+v", found.Items)
	}

	recipeID := found.Items[0].ID
	mustOK(t, "update recipe", client.UpdateRecipe(ctx, recipeID, api.RecipeInput{Title: "White Chili"}))
	detail := mustOK(t, "get recipe", client.GetRecipe(ctx, recipeID))
	if detail.Title != "White Chili" || detail.CookbookID != id {
		t.Fatalf("recipe = %+v", detail)
	}

	mustOK(t, "delete recipe", client.DeleteRecipe(ctx, recipeID))
	wantKind(t, "get deleted recipe", client.GetRecipe(ctx, recipeID), api.KindNotFound)

	mustOK(t, "delete cookbook", client.DeleteCookbook(ctx, id))
	wantKind(t, "get deleted cookbook", client.GetCookbook(ctx, id), api.KindNotFound)
}

func TestInvitationFlow(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	owner, _ := e.signUp(t, "owner@example.com")
	guest, _ := e.signUp(t, "guest@example.com")
	ctx := context.Background()

	id := mustOK(t, "create", owner.CreateCookbook(ctx, api.CreateCookbookInput{Title: "Soups"})).CookbookID
	wantKind(t, "guest reads", guest.GetCookbook(ctx, id), api.KindForbidden)

	mustOK(t, "invite", owner.CreateInvitation(ctx, id, "guest@example.com"))
	p := wantKind(t, "duplicate invite", owner.CreateInvitation(ctx, id, "guest@example.com"), api.KindConflict)
	if p.Detail != "An invitation has already been sent to this email." {
		t.Fatalf("conflict detail = %q", p.Detail)
	}

	pending := mustOK(t, "list invitations", guest.GetInvitations(ctx, "", 1, 10))
	if len(pending.Items) != 1 || pending.Items[0].CookbookTitle != "Soups" || pending.Items[0].SenderEmail != "owner@example.com" {
		t.Fatalf("invitations = %+v", pending.Items)
	}
	mustOK(t, "accept", guest.RespondToInvitation(ctx, pending.Items[0].ID, true))
	wantKind(t, "accept twice", guest.RespondToInvitation(ctx, pending.Items[0].ID, true), api.KindConflict)

	accepted := mustOK(t, "accepted", guest.GetInvitations(ctx, api.InvitationAccepted, 1, 10))
	if accepted.TotalCount != 1 {
		t.Fatalf("accepted count = %d, want 1", accepted.TotalCount)
	}

	books := mustOK(t, "guest cookbooks", guest.GetCookbooks(ctx, 1, 10))
	if books.TotalCount != 1 || books.Items[0].IsCreator {
		t.Fatalf("guest cookbooks = %+v", books.Items)
	}
	wantKind(t, "guest deletes", guest.DeleteCookbook(ctx, id), api.KindForbidden)
	p = wantKind(t, "invite member", owner.CreateInvitation(ctx, id, "guest@example.com"), api.KindConflict)
	if p.Detail == "" {
		t.Fatal("conflict without detail")
	}
}

func TestInvitationLink(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	owner, _ := e.signUp(t, "owner@example.com")
	guest, _ := e.signUp(t, "guest@example.com")
	ctx := context.Background()

	id := mustOK(t, "create", owner.CreateCookbook(ctx, api.CreateCookbookInput{Title: "Breads"})).CookbookID
	link := mustOK(t, "link", owner.CreateInvitationLink(ctx, id))

	wantKind(t, "unknown link", guest.RespondToInvitationLink(ctx, "nope", true), api.KindNotFound)
	mustOK(t, "accept link", guest.RespondToInvitationLink(ctx, link.Token, true))
	wantKind(t, "reuse link", guest.RespondToInvitationLink(ctx, link.Token, true), api.KindConflict)

	self := mustOK(t, "own membership", guest.GetOwnMembership(ctx, id))
	if self.IsCreator || !self.CanAddRecipe || self.Email != "guest@example.com" {
		t.Fatalf("membership = %+v", self)
	}
}

func TestMembershipPermissions(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	owner, _ := e.signUp(t, "owner@example.com")
	guest, _ := e.signUp(t, "guest@example.com")
	ctx := context.Background()

	id := mustOK(t, "create", owner.CreateCookbook(ctx, api.CreateCookbookInput{Title: "Soups"})).CookbookID
	link := mustOK(t, "link", owner.CreateInvitationLink(ctx, id))
	mustOK(t, "join", guest.RespondToInvitationLink(ctx, link.Token, true))

	members := mustOK(t, "members", owner.GetMemberships(ctx, id, 1, 10))
	if members.TotalCount != 2 {
		t.Fatalf("member count = %d, want 2", members.TotalCount)
	}
	guestMember := members.Items[1]

	yes := true
	wantKind(t, "guest promotes self", guest.UpdateMembership(ctx, guestMember.ID, api.MembershipPermissions{CanSendInvite: &yes}), api.KindForbidden)
	mustOK(t, "owner promotes", owner.UpdateMembership(ctx, guestMember.ID, api.MembershipPermissions{CanSendInvite: &yes}))
	if !mustOK(t, "get", owner.GetMembership(ctx, guestMember.ID)).CanSendInvite {
		t.Fatal("permission not applied")
	}

	mustOK(t, "guest leaves", guest.DeleteMembership(ctx, guestMember.ID))
	wantKind(t, "guest reads", guest.GetCookbook(ctx, id), api.KindForbidden)
	wantKind(t, "creator leaves", owner.DeleteMembership(ctx, members.Items[0].ID), api.KindRejected)
}

func TestUploadImages(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, _ := e.signUp(t, "cook@example.com")
	ctx := context.Background()

	png := []byte("\x89PNG\r\n\x1a\n0000")
	out := mustOK(t, "upload", client.UploadImages(ctx, []api.ImageFile{
		{Name: "soup.PNG", Data: png},
		{Name: "bread.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
	}))
	if len(out.Names) != 2 {
		t.Fatalf("names = %v, want 2", out.Names)
	}
	data, ok := e.server.Image(out.Names[0])
	if !ok || string(data) != string(png) {
		t.Fatalf("stored image = %q, %v", data, ok)
	}

	wantKind(t, "text upload", client.UploadImages(ctx, []api.ImageFile{
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")},
	}), api.KindRejected)
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t, fakeapi.Options{AutoConfirm: true})
	client, _ := e.signUp(t, "cook@example.com")
	ctx := context.Background()

	mustOK(t, "forgot", client.ForgotPassword(ctx, "cook@example.com"))
	code, ok := e.server.ResetCode("cook@example.com")
	if !ok {
		t.Fatal("no reset code issued")
	}
	wantKind(t, "bad code", client.ResetPassword(ctx, "cook@example.com", "wrong", "password2"), api.KindRejected)
	mustOK(t, "reset", client.ResetPassword(ctx, "cook@example.com", code, "password2"))

	wantKind(t, "old password", client.Login(ctx, "cook@example.com", "password1"), api.KindUnauthorized)
	mustOK(t, "new password", client.Login(ctx, "cook@example.com", "password2"))
}

func TestUnauthenticatedRequestIsUnauthorized(t *testing.T) {
	e := newEnv(t, fakeapi.Options{})
	client := e.client(t, credentials.NewMemoryStore(credentials.Pair{}))

	var expired atomic.Int32
	client.OnSessionExpired(func() { expired.Add(1) })

	wantKind(t, "list", client.GetCookbooks(context.Background(), 1, 10), api.KindUnauthorized)
	if got := expired.Load(); got != 1 {
		t.Fatalf("session-expired calls = %d, want 1", got)
	}
}
