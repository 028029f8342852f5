package api

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/credentials"
)

func TestCreateCookbook_DecodesBareID(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handle: func(call recordedCall, n int) *http.Response {
		return textResponse(http.StatusCreated, `42`)
	}}
	c := newTestClient(t, transport, credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}))

	res := c.CreateCookbook(context.Background(), CreateCookbookInput{Title: "Sunday Roasts"})
	if !res.IsOK() {
		t.Fatalf("kind = %q (%v), want ok", res.Kind, res.Problem)
	}
	if res.Value.CookbookID != 42 {
		t.Fatalf("cookbookId = %d, want 42", res.Value.CookbookID)
	}

	calls := transport.Calls()
	if len(calls) != 1 || calls[0].Method != http.MethodPost || calls[0].Path != "/api/Cookbooks" {
		t.Fatalf("calls = %#v, want one POST /api/Cookbooks", calls)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(calls[0].Body), &body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if body["title"] != "Sunday Roasts" {
		t.Fatalf("title = %v, want Sunday Roasts", body["title"])
	}
	if v, ok := body["image"]; !ok || v != nil {
		t.Fatalf("image = %v (present %v), want explicit null", v, ok)
	}
}

func TestGetRecipes_NotFound(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"title":"Not Found","status":404}`)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{
		APIURL: server.URL + "/api",
		Tokens: credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	res := c.GetRecipes(context.Background(), 7, "", 1, 10)
	if res.Kind != KindNotFound {
		t.Fatalf("kind = %q, want %q", res.Kind, KindNotFound)
	}
	if res.Problem == nil || res.Problem.Temporary {
		t.Fatalf("problem = %#v, want non-temporary not-found", res.Problem)
	}
	for _, want := range []string{"CookbookId=7", "PageNumber=1", "PageSize=10"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query = %q, missing %q", gotQuery, want)
		}
	}
	if strings.Contains(gotQuery, "Search") {
		t.Fatalf("query = %q, want no empty Search", gotQuery)
	}
}

func TestProtectedEndpoint_TimesOut(t *testing.T) {
	t.Parallel()

	aborted := make(chan error, 4)
	calls := 0
	transport := doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return blockingDoer(aborted).Do(req)
	})
	c, err := NewClient(Options{
		APIURL:     "http://cookbook.test/api",
		HTTPClient: transport,
		Tokens:     credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1", RefreshToken: "R1"}),
		Timeout:    25 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	res := c.GetCookbooks(context.Background(), 1, 10)
	if res.Kind != KindTimeout {
		t.Fatalf("kind = %q, want %q", res.Kind, KindTimeout)
	}
	if !res.Problem.Temporary {
		t.Fatalf("temporary = false, want true")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(aborted) != 1 {
		t.Fatalf("aborted calls = %d, want 1", len(aborted))
	}
}

func TestCreateInvitation_ConflictCarriesDetail(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handle: func(recordedCall, int) *http.Response {
		return textResponse(http.StatusConflict, `{"title":"Conflict","status":409,"detail":"Email already invited"}`)
	}}
	c := newTestClient(t, transport, credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}))

	res := c.CreateInvitation(context.Background(), 3, "friend@example.com")
	if res.Kind != KindConflict {
		t.Fatalf("kind = %q, want conflict", res.Kind)
	}
	if res.Problem.Detail != "Email already invited" {
		t.Fatalf("detail = %q, want Email already invited", res.Problem.Detail)
	}
}

func TestWrapper_BadDataOnUndecodableBody(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handle: func(recordedCall, int) *http.Response {
		return textResponse(http.StatusOK, `{"items": "nope"`)
	}}
	c := newTestClient(t, transport, credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}))

	res := c.GetCookbooks(context.Background(), 1, 10)
	if res.Kind != KindBadData {
		t.Fatalf("kind = %q, want bad-data", res.Kind)
	}

	transport.handle = func(recordedCall, int) *http.Response {
		return textResponse(http.StatusCreated, ``)
	}
	created := c.CreateRecipe(context.Background(), 1, RecipeInput{Title: "Soup"})
	if created.Kind != KindBadData {
		t.Fatalf("kind = %q, want bad-data for empty id body", created.Kind)
	}
}

func TestWrapper_CannotConnect(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Options{
		APIURL:  "http://127.0.0.1:1/api",
		Tokens:  credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res := c.GetCookbook(context.Background(), 1)
	if res.Kind != KindCannotConnect {
		t.Fatalf("kind = %q (%v), want cannot-connect", res.Kind, res.Problem)
	}
	if !res.Problem.Temporary {
		t.Fatalf("temporary = false, want true")
	}
}

func TestLogin_PersistsPair(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handle: func(recordedCall, int) *http.Response {
		return textResponse(http.StatusOK, `{"tokenType":"Bearer","accessToken":"A9","expiresIn":3600,"refreshToken":"R9"}`)
	}}
	store := credentials.NewMemoryStore(credentials.Pair{})
	c := newTestClient(t, transport, store)

	res := c.Login(context.Background(), " cook@example.com ", "pw")
	if !res.IsOK() {
		t.Fatalf("kind = %q, want ok", res.Kind)
	}
	pair, _ := store.Load(context.Background())
	if pair.AccessToken != "A9" || pair.RefreshToken != "R9" {
		t.Fatalf("stored pair = %#v, want A9/R9", pair)
	}
	if !strings.Contains(transport.Calls()[0].Body, `"email":"cook@example.com"`) {
		t.Fatalf("login body = %q, want trimmed email", transport.Calls()[0].Body)
	}

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	pair, _ = store.Load(context.Background())
	if !pair.Empty() {
		t.Fatalf("pair after logout = %#v, want empty", pair)
	}
}

func TestUploadImages_SendsMultipart(t *testing.T) {
	t.Parallel()

	var gotNames []string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			gotNames = append(gotNames, part.FileName())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{"stored-1.png", "stored-2.jpg"})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{
		APIURL: server.URL + "/api",
		Tokens: credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	res := c.UploadImages(context.Background(), []ImageFile{
		{Name: "/tmp/roast.png", ContentType: "image/png", Data: []byte("png")},
		{Name: "pie.jpg", Data: []byte("jpg")},
	})
	if !res.IsOK() {
		t.Fatalf("kind = %q (%v), want ok", res.Kind, res.Problem)
	}
	if strings.Join(res.Value.Names, ",") != "stored-1.png,stored-2.jpg" {
		t.Fatalf("names = %v", res.Value.Names)
	}
	if strings.Join(gotNames, ",") != "roast.png,pie.jpg" {
		t.Fatalf("uploaded file names = %v, want roast.png,pie.jpg", gotNames)
	}
	if gotAuth != "Bearer A1" {
		t.Fatalf("Authorization = %q, want Bearer A1", gotAuth)
	}

	empty := c.UploadImages(context.Background(), nil)
	if empty.Kind != KindRejected {
		t.Fatalf("empty upload kind = %q, want rejected", empty.Kind)
	}
}

func TestCreateInvitationLink_DecodesToken(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{handle: func(recordedCall, int) *http.Response {
		return textResponse(http.StatusOK, `"abc-123"`)
	}}
	c := newTestClient(t, transport, credentials.NewMemoryStore(credentials.Pair{AccessToken: "A1"}))

	res := c.CreateInvitationLink(context.Background(), 9)
	if !res.IsOK() || res.Value.Token != "abc-123" {
		t.Fatalf("result = %#v, want token abc-123", res)
	}

	accept := c.RespondToInvitationLink(context.Background(), "abc-123", true)
	if !accept.IsOK() {
		t.Fatalf("kind = %q, want ok", accept.Kind)
	}
	calls := transport.Calls()
	if calls[1].Method != http.MethodPut || calls[1].Path != "/api/Invitations/link/abc-123" {
		t.Fatalf("respond call = %s %s", calls[1].Method, calls[1].Path)
	}
}
