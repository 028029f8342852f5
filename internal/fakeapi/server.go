// Package fakeapi is an in-memory implementation of the cookbook REST API.
// It backs the end-to-end tests of the api package and the fakeapi command
// used for local development.
//
// Accounts, cookbooks, recipes, memberships, invitations and images live in
// process memory guarded by one mutex. Access and refresh tokens are HS256
// JWTs; refresh tokens are single use and rotate on every refresh.
package fakeapi

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Options configure a Server.
type Options struct {
	// Secret signs tokens. Empty generates a random secret.
	Secret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// AutoConfirm marks new accounts as confirmed on registration.
	AutoConfirm bool

	Logger *slog.Logger
	Now    func() time.Time
}

// Server holds the in-memory API state.
type Server struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	autoConfirm bool
	logger      *slog.Logger
	now         func() time.Time
	engine      *gin.Engine

	mu         sync.Mutex
	generation int
	nextID     int
	users      map[string]*user  // by lower-cased email
	refresh    map[string]string // refresh token id -> user id
	cookbooks  map[int]*cookbook
	recipes    map[int]*recipe
	members    map[int]*member
	invites    map[int]*invitation
	links      map[string]*invitation
	images     map[string][]byte
}

var ginMode sync.Once

// New returns a server with empty state.
func New(opts Options) *Server {
	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	s := &Server{
		secret:      opts.Secret,
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		autoConfirm: opts.AutoConfirm,
		logger:      opts.Logger,
		now:         opts.Now,
		users:       make(map[string]*user),
		refresh:     make(map[string]string),
		cookbooks:   make(map[int]*cookbook),
		recipes:     make(map[int]*recipe),
		members:     make(map[int]*member),
		invites:     make(map[int]*invitation),
		links:       make(map[string]*invitation),
		images:      make(map[string][]byte),
	}
	if len(s.secret) == 0 {
		s.secret = []byte(uuid.NewString())
	}
	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = defaultRefreshTTL
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API. Resource routes live
// under /api; token refresh is served at the host root.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.POST("/Users/refresh", s.refreshTokens)

	api := r.Group("/api")

	users := api.Group("/Users")
	{
		users.POST("/register", s.register)
		users.POST("/login", s.login)
		users.POST("/resendConfirmationEmail", s.resendConfirmation)
		users.POST("/forgotPassword", s.forgotPassword)
		users.POST("/resetPassword", s.resetPassword)
		users.GET("/confirmEmail", s.confirmEmail)
		users.GET("/manage/info", s.authRequired(), s.userInfo)
	}

	authed := api.Group("")
	authed.Use(s.authRequired())
	{
		authed.GET("/Cookbooks", s.listCookbooks)
		authed.POST("/Cookbooks", s.createCookbook)
		authed.GET("/Cookbooks/:id", s.getCookbook)
		authed.PUT("/Cookbooks/:id", s.updateCookbook)
		authed.DELETE("/Cookbooks/:id", s.deleteCookbook)

		authed.GET("/Recipes", s.listRecipes)
		authed.POST("/Recipes", s.createRecipe)
		authed.GET("/Recipes/:id", s.getRecipe)
		authed.PUT("/Recipes/:id", s.updateRecipe)
		authed.DELETE("/Recipes/:id", s.deleteRecipe)

		authed.GET("/Memberships", s.listMemberships)
		authed.GET("/Memberships/self/:cookbookId", s.ownMembership)
		authed.GET("/Memberships/:id", s.getMembership)
		authed.PATCH("/Memberships/:id", s.updateMembership)
		authed.DELETE("/Memberships/:id", s.deleteMembership)

		authed.GET("/Invitations", s.listInvitations)
		authed.POST("/Invitations", s.createInvitation)
		authed.POST("/Invitations/link", s.createInvitationLink)
		authed.PUT("/Invitations/link/:token", s.respondToLink)
		authed.PUT("/Invitations/:id", s.respondToInvitation)

		authed.POST("/Images", s.uploadImages)
	}
	return r
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// ConfirmUser marks an account as confirmed. It reports whether the account
// exists.
func (s *Server) ConfirmUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(email)]
	if ok {
		u.confirmed = true
	}
	return ok
}

// ConfirmationCode returns the values a confirmation email would carry.
func (s *Server) ConfirmationCode(email string) (userID, code string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return "", "", false
	}
	return u.id, u.confirmCode, true
}

// ResetCode returns the code issued by the last forgotPassword call.
func (s *Server) ResetCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(email)]
	if !ok || u.resetCode == "" {
		return "", false
	}
	return u.resetCode, true
}

// Image returns a stored upload.
func (s *Server) Image(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.images[name]
	return data, ok
}

func (s *Server) allocID() int {
	s.nextID++
	return s.nextID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
