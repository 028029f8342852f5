package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

const (
	minPasswordLength = 6
	userKey           = "user"
)

type user struct {
	id          string
	email       string
	hash        []byte
	confirmed   bool
	confirmCode string
	resetCode   string
}

// displayName is the local part of the email.
func (u *user) displayName() string {
	name, _, _ := strings.Cut(u.email, "@")
	return name
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailBody struct {
	Email string `json:"email"`
}

type resetPasswordBody struct {
	Email       string `json:"email"`
	ResetCode   string `json:"resetCode"`
	NewPassword string `json:"newPassword"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) register(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	email := normalizeEmail(body.Email)
	if !strings.Contains(email, "@") {
		badRequest(c, "InvalidEmail")
		return
	}
	if len(body.Password) < minPasswordLength {
		badRequest(c, fmt.Sprintf("PasswordTooShort: at least %d characters.", minPasswordLength))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		abortProblem(c, http.StatusInternalServerError, "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		badRequest(c, "DuplicateUserName")
		return
	}
	u := &user{
		id:          uuid.NewString(),
		email:       email,
		hash:        hash,
		confirmed:   s.autoConfirm,
		confirmCode: uuid.NewString(),
	}
	s.users[email] = u
	s.logger.Info("account registered", "email", email, "user_id", u.id, "confirm_code", u.confirmCode)
	c.Status(http.StatusOK)
}

func (s *Server) login(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(body.Email)]
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(body.Password)) != nil {
		abortProblem(c, http.StatusUnauthorized, "Failed")
		return
	}
	if !u.confirmed {
		abortProblem(c, http.StatusUnauthorized, "NotAllowed")
		return
	}
	s.issueTokens(c, u)
}

func (s *Server) refreshTokens(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken == "" {
		abortProblem(c, http.StatusUnauthorized, "")
		return
	}
	claims, err := s.parseToken(body.RefreshToken, "refresh")
	if err != nil {
		abortProblem(c, http.StatusUnauthorized, "")
		return
	}
	tokenID, _ := claims["token_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[tokenID]
	if !ok {
		abortProblem(c, http.StatusUnauthorized, "")
		return
	}
	delete(s.refresh, tokenID)
	u := s.userByID(userID)
	if u == nil {
		abortProblem(c, http.StatusUnauthorized, "")
		return
	}
	s.issueTokens(c, u)
}

// issueTokens writes a fresh token pair. The caller holds s.mu.
func (s *Server) issueTokens(c *gin.Context, u *user) {
	now := s.now()
	access, err := s.sign(jwt.MapClaims{
		"sub":   u.id,
		"email": u.email,
		"typ":   "access",
		"gen":   s.generation,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
	})
	if err != nil {
		abortProblem(c, http.StatusInternalServerError, "")
		return
	}
	tokenID := uuid.NewString()
	refresh, err := s.sign(jwt.MapClaims{
		"sub":      u.id,
		"token_id": tokenID,
		"typ":      "refresh",
		"iat":      now.Unix(),
		"exp":      now.Add(s.refreshTTL).Unix(),
	})
	if err != nil {
		abortProblem(c, http.StatusInternalServerError, "")
		return
	}
	s.refresh[tokenID] = u.id

	c.JSON(http.StatusOK, api.TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  access,
		ExpiresIn:    int(s.accessTTL / time.Second),
		RefreshToken: refresh,
	})
}

func (s *Server) sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

var errWrongTokenType = errors.New("wrong token type")

func (s *Server) parseToken(raw, typ string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if got, _ := claims["typ"].(string); got != typ {
		return nil, errWrongTokenType
	}
	return claims, nil
}

// authRequired validates the bearer token and stores the caller under
// userKey.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || raw == "" {
			abortProblem(c, http.StatusUnauthorized, "")
			return
		}
		claims, err := s.parseToken(raw, "access")
		if err != nil {
			abortProblem(c, http.StatusUnauthorized, "")
			return
		}
		gen, _ := claims["gen"].(float64)
		userID, _ := claims["sub"].(string)

		s.mu.Lock()
		stale := int(gen) < s.generation
		u := s.userByID(userID)
		s.mu.Unlock()

		if stale || u == nil {
			abortProblem(c, http.StatusUnauthorized, "")
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *user {
	u, _ := c.MustGet(userKey).(*user)
	return u
}

// userByID scans the user table. The caller holds s.mu.
func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func (s *Server) resendConfirmation(c *gin.Context) {
	var body emailBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Unknown addresses get the same response.
	if u, ok := s.users[normalizeEmail(body.Email)]; ok && !u.confirmed {
		s.logger.Info("confirmation email", "email", u.email, "user_id", u.id, "confirm_code", u.confirmCode)
	}
	c.Status(http.StatusOK)
}

func (s *Server) confirmEmail(c *gin.Context) {
	userID, code := c.Query("userId"), c.Query("code")
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByID(userID)
	if u == nil || code == "" || code != u.confirmCode {
		abortProblem(c, http.StatusUnauthorized, "")
		return
	}
	u.confirmed = true
	c.Status(http.StatusOK)
}

func (s *Server) forgotPassword(c *gin.Context) {
	var body emailBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[normalizeEmail(body.Email)]; ok && u.confirmed {
		u.resetCode = uuid.NewString()
		s.logger.Info("password reset email", "email", u.email, "reset_code", u.resetCode)
	}
	c.Status(http.StatusOK)
}

func (s *Server) resetPassword(c *gin.Context) {
	var body resetPasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	if len(body.NewPassword) < minPasswordLength {
		badRequest(c, fmt.Sprintf("PasswordTooShort: at least %d characters.", minPasswordLength))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		abortProblem(c, http.StatusInternalServerError, "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(body.Email)]
	if !ok || u.resetCode == "" || body.ResetCode != u.resetCode {
		badRequest(c, "InvalidToken")
		return
	}
	u.hash = hash
	u.resetCode = ""
	c.Status(http.StatusOK)
}

func (s *Server) userInfo(c *gin.Context) {
	u := currentUser(c)
	s.mu.Lock()
	info := api.UserInfo{Email: u.email, IsEmailConfirmed: u.confirmed}
	s.mu.Unlock()
	c.JSON(http.StatusOK, info)
}
