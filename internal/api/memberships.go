package api

import (
	"context"
	"net/http"
	"strconv"
)

// MembershipPermissions is the patch body for UpdateMembership. Nil fields are
// left unchanged.
type MembershipPermissions struct {
	IsCreator              *bool `json:"isCreator,omitempty"`
	CanAddRecipe           *bool `json:"canAddRecipe,omitempty"`
	CanUpdateRecipe        *bool `json:"canUpdateRecipe,omitempty"`
	CanDeleteRecipe        *bool `json:"canDeleteRecipe,omitempty"`
	CanSendInvite          *bool `json:"canSendInvite,omitempty"`
	CanRemoveMember        *bool `json:"canRemoveMember,omitempty"`
	CanEditCookbookDetails *bool `json:"canEditCookbookDetails,omitempty"`
}

// GetMemberships lists the members of a cookbook.
func (c *Client) GetMemberships(ctx context.Context, cookbookID, page, size int) Result[PaginatedList[Membership]] {
	q := pageQuery(page, size)
	q.Set("CookbookId", strconv.Itoa(cookbookID))
	return call(ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/Memberships",
		Query:  q,
	}, decodeJSON[PaginatedList[Membership]])
}

// GetMembership fetches one membership.
func (c *Client) GetMembership(ctx context.Context, id int) Result[Membership] {
	return call(ctx, c, Request{Method: http.MethodGet, Path: idPath("Memberships", id)}, decodeJSON[Membership])
}

// GetOwnMembership returns the signed-in user's membership in a cookbook.
func (c *Client) GetOwnMembership(ctx context.Context, cookbookID int) Result[Membership] {
	return call(ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/Memberships/self/" + strconv.Itoa(cookbookID),
	}, decodeJSON[Membership])
}

// UpdateMembership changes a member's permissions.
func (c *Client) UpdateMembership(ctx context.Context, id int, perms MembershipPermissions) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPatch,
		Path:   idPath("Memberships", id),
		Body:   perms,
	}, decodeNothing)
}

// DeleteMembership removes a member. Deleting one's own membership leaves the
// cookbook.
func (c *Client) DeleteMembership(ctx context.Context, id int) Result[struct{}] {
	return call(ctx, c, Request{Method: http.MethodDelete, Path: idPath("Memberships", id)}, decodeNothing)
}
