package fakeapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

type invitation struct {
	id         int
	cookbookID int
	senderID   string
	email      string // empty for link invitations
	status     api.InvitationStatus
	created    time.Time
}

type permissionsBody = api.MembershipPermissions

type createInvitationBody struct {
	CookbookID int    `json:"cookbookId"`
	Email      string `json:"email"`
}

type invitationLinkBody struct {
	CookbookID int `json:"cookbookId"`
}

type respondBody struct {
	Accept *bool `json:"accept"`
}

func (s *Server) membershipView(m *member) api.Membership {
	view := api.Membership{
		ID:                     m.id,
		CookbookID:             m.cookbookID,
		IsCreator:              m.perms.isCreator,
		CanAddRecipe:           m.perms.canAddRecipe,
		CanUpdateRecipe:        m.perms.canUpdateRecipe,
		CanDeleteRecipe:        m.perms.canDeleteRecipe,
		CanSendInvite:          m.perms.canSendInvite,
		CanRemoveMember:        m.perms.canRemoveMember,
		CanEditCookbookDetails: m.perms.canEditCookbookDetails,
	}
	if u := s.userByID(m.userID); u != nil {
		view.Name = u.displayName()
		view.Email = u.email
	}
	return view
}

func (s *Server) listMemberships(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	cookbookID, ok := intQuery(c, "CookbookId", 0)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.lookupCookbook(c, cookbookID, u); !ok {
		return
	}
	var views []api.Membership
	for _, m := range s.members {
		if m.cookbookID == cookbookID {
			views = append(views, s.membershipView(m))
		}
	}
	slices.SortFunc(views, func(a, b api.Membership) int { return a.ID - b.ID })
	c.JSON(http.StatusOK, paginate(views, page, size))
}

// lookupMembership resolves the membership named by the route and the
// caller's own membership in the same cookbook. The caller holds s.mu.
func (s *Server) lookupMembership(c *gin.Context, u *user) (target, self *member, ok bool) {
	id, ok := intParam(c, "id")
	if !ok {
		return nil, nil, false
	}
	target, ok = s.members[id]
	if !ok {
		notFound(c, "Membership")
		return nil, nil, false
	}
	self = s.membership(target.cookbookID, u.id)
	if self == nil {
		forbidden(c)
		return nil, nil, false
	}
	return target, self, true
}

func (s *Server) getMembership(c *gin.Context) {
	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	target, _, ok := s.lookupMembership(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.membershipView(target))
}

func (s *Server) ownMembership(c *gin.Context) {
	cookbookID, ok := intParam(c, "cookbookId")
	if !ok {
		return
	}
	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, m, ok := s.lookupCookbook(c, cookbookID, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.membershipView(m))
}

func (s *Server) updateMembership(c *gin.Context) {
	var body permissionsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	target, self, ok := s.lookupMembership(c, u)
	if !ok {
		return
	}
	if !self.perms.isCreator {
		forbidden(c)
		return
	}
	if body.IsCreator != nil && *body.IsCreator != target.perms.isCreator {
		badRequest(c, "Ownership cannot be transferred.")
		return
	}
	apply := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&target.perms.canAddRecipe, body.CanAddRecipe)
	apply(&target.perms.canUpdateRecipe, body.CanUpdateRecipe)
	apply(&target.perms.canDeleteRecipe, body.CanDeleteRecipe)
	apply(&target.perms.canSendInvite, body.CanSendInvite)
	apply(&target.perms.canRemoveMember, body.CanRemoveMember)
	apply(&target.perms.canEditCookbookDetails, body.CanEditCookbookDetails)
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteMembership(c *gin.Context) {
	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	target, self, ok := s.lookupMembership(c, u)
	if !ok {
		return
	}
	if target.perms.isCreator {
		badRequest(c, "The creator cannot leave their cookbook.")
		return
	}
	if target.id != self.id && !self.perms.isCreator && !self.perms.canRemoveMember {
		forbidden(c)
		return
	}
	delete(s.members, target.id)
	c.Status(http.StatusNoContent)
}

func (s *Server) listInvitations(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	status := api.InvitationStatus(c.DefaultQuery("Status", string(api.InvitationActive)))
	switch status {
	case api.InvitationActive, api.InvitationAccepted, api.InvitationRejected:
	default:
		badRequest(c, "Invalid Status.")
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	var views []api.Invitation
	for _, inv := range s.invites {
		if inv.email != u.email || inv.status != status {
			continue
		}
		views = append(views, s.invitationView(inv))
	}
	slices.SortFunc(views, func(a, b api.Invitation) int { return a.ID - b.ID })
	c.JSON(http.StatusOK, paginate(views, page, size))
}

func (s *Server) invitationView(inv *invitation) api.Invitation {
	view := api.Invitation{ID: inv.id, Created: inv.created}
	if book, ok := s.cookbooks[inv.cookbookID]; ok {
		view.CookbookTitle = book.title
		view.CookbookImage = book.image
	}
	if sender := s.userByID(inv.senderID); sender != nil {
		view.SenderName = sender.displayName()
		view.SenderEmail = sender.email
	}
	return view
}

// requireInviter checks the caller may invite to the cookbook. The caller
// holds s.mu.
func (s *Server) requireInviter(c *gin.Context, cookbookID int, u *user) bool {
	_, m, ok := s.lookupCookbook(c, cookbookID, u)
	if !ok {
		return false
	}
	if !m.perms.isCreator && !m.perms.canSendInvite {
		forbidden(c)
		return false
	}
	return true
}

func (s *Server) createInvitation(c *gin.Context) {
	var body createInvitationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	email := normalizeEmail(body.Email)
	if !strings.Contains(email, "@") {
		badRequest(c, "InvalidEmail")
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireInviter(c, body.CookbookID, u) {
		return
	}
	if invitee, ok := s.users[email]; ok && s.membership(body.CookbookID, invitee.id) != nil {
		conflict(c, "That user is already a member of this cookbook.")
		return
	}
	for _, inv := range s.invites {
		if inv.cookbookID == body.CookbookID && inv.email == email && inv.status == api.InvitationActive {
			conflict(c, "An invitation has already been sent to this email.")
			return
		}
	}
	inv := &invitation{
		id:         s.allocID(),
		cookbookID: body.CookbookID,
		senderID:   u.id,
		email:      email,
		status:     api.InvitationActive,
		created:    s.now().UTC(),
	}
	s.invites[inv.id] = inv
	c.JSON(http.StatusCreated, inv.id)
}

func (s *Server) createInvitationLink(c *gin.Context) {
	var body invitationLinkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireInviter(c, body.CookbookID, u) {
		return
	}
	token := uuid.NewString()
	s.links[token] = &invitation{
		id:         s.allocID(),
		cookbookID: body.CookbookID,
		senderID:   u.id,
		status:     api.InvitationActive,
		created:    s.now().UTC(),
	}
	c.JSON(http.StatusOK, token)
}

func bindResponse(c *gin.Context) (bool, bool) {
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Accept == nil {
		badRequest(c, "accept is required.")
		return false, false
	}
	return *body.Accept, true
}

func (s *Server) respondToInvitation(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	accept, ok := bindResponse(c)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok || inv.email != u.email {
		notFound(c, "Invitation")
		return
	}
	s.answer(c, inv, u, accept)
}

func (s *Server) respondToLink(c *gin.Context) {
	token := c.Param("token")
	accept, ok := bindResponse(c)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.links[token]
	if !ok {
		notFound(c, "Invitation")
		return
	}
	s.answer(c, inv, u, accept)
}

// answer records the response and, on accept, adds the membership. The
// caller holds s.mu.
func (s *Server) answer(c *gin.Context, inv *invitation, u *user, accept bool) {
	if inv.status != api.InvitationActive {
		conflict(c, "This invitation has already been answered.")
		return
	}
	if _, ok := s.cookbooks[inv.cookbookID]; !ok {
		notFound(c, "Cookbook")
		return
	}
	if !accept {
		inv.status = api.InvitationRejected
		c.Status(http.StatusNoContent)
		return
	}
	if s.membership(inv.cookbookID, u.id) != nil {
		conflict(c, "You are already a member of this cookbook.")
		return
	}
	inv.status = api.InvitationAccepted
	m := &member{id: s.allocID(), cookbookID: inv.cookbookID, userID: u.id, perms: memberPermissions()}
	s.members[m.id] = m
	c.Status(http.StatusNoContent)
}
