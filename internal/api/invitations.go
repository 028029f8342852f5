package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

type createInvitationBody struct {
	CookbookID int    `json:"cookbookId"`
	Email      string `json:"email"`
}

type invitationLinkBody struct {
	CookbookID int `json:"cookbookId"`
}

type respondBody struct {
	Accept bool `json:"accept"`
}

// GetInvitations lists invitations addressed to the signed-in user. An empty
// status lists active ones.
func (c *Client) GetInvitations(ctx context.Context, status InvitationStatus, page, size int) Result[PaginatedList[Invitation]] {
	if status == "" {
		status = InvitationActive
	}
	q := pageQuery(page, size)
	q.Set("Status", string(status))
	return call(ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/Invitations",
		Query:  q,
	}, decodeJSON[PaginatedList[Invitation]])
}

// CreateInvitation invites an email address to a cookbook. Inviting someone
// who already has a pending invitation or membership yields KindConflict with
// the server's detail.
func (c *Client) CreateInvitation(ctx context.Context, cookbookID int, email string) Result[InvitationCreated] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Invitations",
		Body:   createInvitationBody{CookbookID: cookbookID, Email: strings.TrimSpace(email)},
	}, func(resp *http.Response) (InvitationCreated, error) {
		id, err := decodeID(resp)
		return InvitationCreated{InvitationID: id}, err
	})
}

// CreateInvitationLink creates a shareable invitation token for a cookbook.
func (c *Client) CreateInvitationLink(ctx context.Context, cookbookID int) Result[InvitationLink] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Invitations/link",
		Body:   invitationLinkBody{CookbookID: cookbookID},
	}, func(resp *http.Response) (InvitationLink, error) {
		token, err := decodeJSON[string](resp)
		if err == nil && strings.TrimSpace(token) == "" {
			err = errNoBody
		}
		return InvitationLink{Token: token}, err
	})
}

// RespondToInvitation accepts or rejects an invitation.
func (c *Client) RespondToInvitation(ctx context.Context, id int, accept bool) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPut,
		Path:   idPath("Invitations", id),
		Body:   respondBody{Accept: accept},
	}, decodeNothing)
}

// RespondToInvitationLink accepts or rejects an invitation by link token.
func (c *Client) RespondToInvitationLink(ctx context.Context, token string, accept bool) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPut,
		Path:   "/Invitations/link/" + url.PathEscape(strings.TrimSpace(token)),
		Body:   respondBody{Accept: accept},
	}, decodeNothing)
}
