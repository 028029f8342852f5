package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/credentials"
)

// Login exchanges email and password for a token pair and persists it.
// Unconfirmed accounts yield KindNotAllowed.
func (c *Client) Login(ctx context.Context, email, password string) Result[TokenResponse] {
	res := call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Users/login",
		Body: map[string]string{
			"email":    strings.TrimSpace(email),
			"password": password,
		},
	}, decodeJSON[TokenResponse])
	if !res.IsOK() {
		return res
	}
	if res.Value.AccessToken == "" {
		return Fail[TokenResponse](&Problem{Kind: KindBadData, StatusCode: http.StatusOK, Err: errNoBody})
	}
	pair := credentials.Pair{AccessToken: res.Value.AccessToken, RefreshToken: res.Value.RefreshToken}
	if err := c.tokens.Save(ctx, pair); err != nil {
		return Fail[TokenResponse](&Problem{Kind: KindUnknown, Temporary: true, Err: err})
	}
	return res
}

// Logout forgets the stored credentials. There is no server call.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Clear(ctx)
}

// Register creates an account. The account must confirm its email before
// Login succeeds.
func (c *Client) Register(ctx context.Context, email, password string) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Users/register",
		Body: map[string]string{
			"email":    strings.TrimSpace(email),
			"password": password,
		},
	}, decodeNothing)
}

// ResendConfirmationEmail asks the server to send the confirmation email again.
func (c *Client) ResendConfirmationEmail(ctx context.Context, email string) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Users/resendConfirmationEmail",
		Body:   map[string]string{"email": strings.TrimSpace(email)},
	}, decodeNothing)
}

// ForgotPassword starts a password reset.
func (c *Client) ForgotPassword(ctx context.Context, email string) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Users/forgotPassword",
		Body:   map[string]string{"email": strings.TrimSpace(email)},
	}, decodeNothing)
}

// ResetPassword completes a password reset with the emailed code.
func (c *Client) ResetPassword(ctx context.Context, email, resetCode, newPassword string) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Users/resetPassword",
		Body: map[string]string{
			"email":       strings.TrimSpace(email),
			"resetCode":   resetCode,
			"newPassword": newPassword,
		},
	}, decodeNothing)
}

// ConfirmEmail confirms an account with the emailed code.
func (c *Client) ConfirmEmail(ctx context.Context, userID, code string) Result[struct{}] {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("code", code)
	return call(ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/Users/confirmEmail",
		Query:  q,
	}, decodeNothing)
}

// GetUserInfo returns the signed-in account.
func (c *Client) GetUserInfo(ctx context.Context) Result[UserInfo] {
	return call(ctx, c, Request{Method: http.MethodGet, Path: "/Users/manage/info"}, decodeJSON[UserInfo])
}
