package fakeapi

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

const maxTitleLength = 255

type cookbook struct {
	id        int
	title     string
	image     string
	creatorID string
}

type recipe struct {
	api.Recipe
}

type member struct {
	id         int
	cookbookID int
	userID     string
	perms      permissions
}

type permissions struct {
	isCreator              bool
	canAddRecipe           bool
	canUpdateRecipe        bool
	canDeleteRecipe        bool
	canSendInvite          bool
	canRemoveMember        bool
	canEditCookbookDetails bool
}

func creatorPermissions() permissions {
	return permissions{
		isCreator:              true,
		canAddRecipe:           true,
		canUpdateRecipe:        true,
		canDeleteRecipe:        true,
		canSendInvite:          true,
		canRemoveMember:        true,
		canEditCookbookDetails: true,
	}
}

// memberPermissions are granted on accepting an invitation.
func memberPermissions() permissions {
	return permissions{canAddRecipe: true}
}

type createRecipeBody struct {
	CookbookID int             `json:"cookbookId"`
	Recipe     api.RecipeInput `json:"recipe"`
}

type updateRecipeBody struct {
	ID     int             `json:"id"`
	Recipe api.RecipeInput `json:"recipe"`
}

// membership returns the caller's membership in a cookbook. The caller holds
// s.mu.
func (s *Server) membership(cookbookID int, userID string) *member {
	for _, m := range s.members {
		if m.cookbookID == cookbookID && m.userID == userID {
			return m
		}
	}
	return nil
}

// lookupCookbook aborts with 404 when the cookbook does not exist and 403
// when the caller is not a member. The caller holds s.mu.
func (s *Server) lookupCookbook(c *gin.Context, id int, u *user) (*cookbook, *member, bool) {
	book, ok := s.cookbooks[id]
	if !ok {
		notFound(c, "Cookbook")
		return nil, nil, false
	}
	m := s.membership(id, u.id)
	if m == nil {
		forbidden(c)
		return nil, nil, false
	}
	return book, m, true
}

func (s *Server) cookbookView(book *cookbook, m *member) api.Cookbook {
	view := api.Cookbook{
		ID:              book.id,
		Title:           book.title,
		Image:           book.image,
		IsCreator:       m.perms.isCreator,
		CanAddRecipe:    m.perms.canAddRecipe,
		CanSendInvite:   m.perms.canSendInvite,
		CanUpdateRecipe: m.perms.canUpdateRecipe,
		CanDeleteRecipe: m.perms.canDeleteRecipe,
	}
	for _, other := range s.members {
		if other.cookbookID == book.id {
			view.MembersCount++
		}
	}
	for _, r := range s.recipes {
		if r.CookbookID == book.id {
			view.RecipeCount++
		}
	}
	if author := s.userByID(book.creatorID); author != nil {
		view.AuthorName = author.displayName()
		view.AuthorEmail = author.email
	}
	return view
}

func validTitle(c *gin.Context, title string) (string, bool) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		badRequest(c, "Title is required.")
		return "", false
	case len(title) > maxTitleLength:
		badRequest(c, "Title is too long.")
		return "", false
	}
	return title, true
}

func (s *Server) listCookbooks(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	var views []api.Cookbook
	for _, m := range s.members {
		if m.userID != u.id {
			continue
		}
		if book, ok := s.cookbooks[m.cookbookID]; ok {
			views = append(views, s.cookbookView(book, m))
		}
	}
	slices.SortFunc(views, func(a, b api.Cookbook) int { return a.ID - b.ID })
	c.JSON(http.StatusOK, paginate(views, page, size))
}

func (s *Server) createCookbook(c *gin.Context) {
	var body api.CreateCookbookInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	title, ok := validTitle(c, body.Title)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	book := &cookbook{id: s.allocID(), title: title, creatorID: u.id}
	if body.Image != nil {
		book.image = *body.Image
	}
	s.cookbooks[book.id] = book
	m := &member{id: s.allocID(), cookbookID: book.id, userID: u.id, perms: creatorPermissions()}
	s.members[m.id] = m
	c.JSON(http.StatusCreated, book.id)
}

func (s *Server) getCookbook(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	book, m, ok := s.lookupCookbook(c, id, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.cookbookView(book, m))
}

func (s *Server) updateCookbook(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var body api.UpdateCookbookInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	if body.ID != id {
		badRequest(c, "Route id does not match body id.")
		return
	}
	title, ok := validTitle(c, body.Title)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	book, m, ok := s.lookupCookbook(c, id, u)
	if !ok {
		return
	}
	if !m.perms.isCreator && !m.perms.canEditCookbookDetails {
		forbidden(c)
		return
	}
	book.title = title
	if body.Image != nil {
		book.image = *body.Image
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteCookbook(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, m, ok := s.lookupCookbook(c, id, u)
	if !ok {
		return
	}
	if !m.perms.isCreator {
		forbidden(c)
		return
	}
	delete(s.cookbooks, id)
	for rid, r := range s.recipes {
		if r.CookbookID == id {
			delete(s.recipes, rid)
		}
	}
	for mid, other := range s.members {
		if other.cookbookID == id {
			delete(s.members, mid)
		}
	}
	for iid, inv := range s.invites {
		if inv.cookbookID == id {
			delete(s.invites, iid)
		}
	}
	for token, inv := range s.links {
		if inv.cookbookID == id {
			delete(s.links, token)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listRecipes(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	cookbookID, ok := intQuery(c, "CookbookId", 0)
	if !ok {
		return
	}
	search := strings.ToLower(strings.TrimSpace(c.Query("Search")))
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.lookupCookbook(c, cookbookID, u); !ok {
		return
	}
	var briefs []api.RecipeBrief
	for _, r := range s.recipes {
		if r.CookbookID != cookbookID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Title), search) {
			continue
		}
		briefs = append(briefs, api.RecipeBrief{ID: r.ID, Title: r.Title})
	}
	slices.SortFunc(briefs, func(a, b api.RecipeBrief) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
	c.JSON(http.StatusOK, paginate(briefs, page, size))
}

// lookupRecipe resolves a recipe and the caller's membership in its
// cookbook. The caller holds s.mu.
func (s *Server) lookupRecipe(c *gin.Context, u *user) (*recipe, *member, bool) {
	id, ok := intParam(c, "id")
	if !ok {
		return nil, nil, false
	}
	r, ok := s.recipes[id]
	if !ok {
		notFound(c, "Recipe")
		return nil, nil, false
	}
	m := s.membership(r.CookbookID, u.id)
	if m == nil {
		forbidden(c)
		return nil, nil, false
	}
	return r, m, true
}

func (s *Server) getRecipe(c *gin.Context) {
	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, _, ok := s.lookupRecipe(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Recipe)
}

func (s *Server) createRecipe(c *gin.Context) {
	var body createRecipeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	title, ok := validTitle(c, body.Recipe.Title)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, m, ok := s.lookupCookbook(c, body.CookbookID, u)
	if !ok {
		return
	}
	if !m.perms.canAddRecipe {
		forbidden(c)
		return
	}
	r := &recipe{Recipe: api.Recipe{ID: s.allocID(), CookbookID: body.CookbookID, AuthorID: u.id, Author: u.displayName(), AuthorEmail: u.email}}
	applyRecipeInput(&r.Recipe, title, body.Recipe)
	s.recipes[r.ID] = r
	c.JSON(http.StatusCreated, r.ID)
}

func (s *Server) updateRecipe(c *gin.Context) {
	var body updateRecipeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	title, ok := validTitle(c, body.Recipe.Title)
	if !ok {
		return
	}
	u := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	r, m, ok := s.lookupRecipe(c, u)
	if !ok {
		return
	}
	if body.ID != r.ID {
		badRequest(c, "Route id does not match body id.")
		return
	}
	if !m.perms.canUpdateRecipe && r.AuthorID != u.id {
		forbidden(c)
		return
	}
	applyRecipeInput(&r.Recipe, title, body.Recipe)
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteRecipe(c *gin.Context) {
	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, m, ok := s.lookupRecipe(c, u)
	if !ok {
		return
	}
	if !m.perms.canDeleteRecipe && r.AuthorID != u.id {
		forbidden(c)
		return
	}
	delete(s.recipes, r.ID)
	c.Status(http.StatusNoContent)
}

func applyRecipeInput(dst *api.Recipe, title string, in api.RecipeInput) {
	dst.Title = title
	dst.Summary = in.Summary
	dst.Thumbnail = deref(in.Thumbnail)
	dst.VideoPath = deref(in.VideoPath)
	dst.PreparationTimeInMinutes = in.PreparationTimeInMinutes
	dst.CookingTimeInMinutes = in.CookingTimeInMinutes
	dst.BakingTimeInMinutes = in.BakingTimeInMinutes
	dst.Servings = in.Servings
	dst.Directions = slices.Clone(in.Directions)
	dst.Ingredients = slices.Clone(in.Ingredients)
	dst.Images = slices.Clone(in.Images)
	for i := range dst.Directions {
		dst.Directions[i].Ordinal = i + 1
	}
	for i := range dst.Ingredients {
		dst.Ingredients[i].Ordinal = i + 1
	}
	for i := range dst.Images {
		dst.Images[i].Ordinal = i + 1
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
