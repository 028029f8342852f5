package api

import "time"

// PaginatedList mirrors the paged envelope returned by list endpoints.
type PaginatedList[T any] struct {
	Items           []T  `json:"items"`
	PageNumber      int  `json:"pageNumber"`
	TotalPages      int  `json:"totalPages"`
	TotalCount      int  `json:"totalCount"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

// TokenResponse mirrors /Users/login.
type TokenResponse struct {
	TokenType    string `json:"tokenType"`
	AccessToken  string `json:"accessToken"`
	ExpiresIn    int    `json:"expiresIn"`
	RefreshToken string `json:"refreshToken"`
}

// UserInfo mirrors /Users/manage/info.
type UserInfo struct {
	Email            string `json:"email"`
	IsEmailConfirmed bool   `json:"isEmailConfirmed"`
}

// Cookbook is the detailed cookbook view.
type Cookbook struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Image           string `json:"image,omitempty"`
	MembersCount    int    `json:"membersCount"`
	RecipeCount     int    `json:"recipeCount"`
	AuthorName      string `json:"authorName,omitempty"`
	AuthorEmail     string `json:"authorEmail,omitempty"`
	IsCreator       bool   `json:"isCreator"`
	CanAddRecipe    bool   `json:"canAddRecipe"`
	CanSendInvite   bool   `json:"canSendInvite"`
	CanUpdateRecipe bool   `json:"canUpdateRecipe"`
	CanDeleteRecipe bool   `json:"canDeleteRecipe"`
}

// CreateCookbookInput is the payload for CreateCookbook. Image is the stored
// image name returned by UploadImages, or nil.
type CreateCookbookInput struct {
	Title string  `json:"title"`
	Image *string `json:"image"`
}

// UpdateCookbookInput is the payload for UpdateCookbook.
type UpdateCookbookInput struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Image *string `json:"image"`
}

// CookbookCreated is the result of CreateCookbook.
type CookbookCreated struct {
	CookbookID int `json:"cookbookId"`
}

// RecipeBrief is a recipe list entry.
type RecipeBrief struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// RecipeDirection is one numbered step.
type RecipeDirection struct {
	ID      int    `json:"id,omitempty"`
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"`
	Image   string `json:"image,omitempty"`
}

// RecipeIngredient is one ingredient line.
type RecipeIngredient struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
	Ordinal  int    `json:"ordinal"`
}

// RecipeImage is an image attached to a recipe.
type RecipeImage struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// Recipe is the detailed recipe view.
type Recipe struct {
	ID                       int                `json:"id"`
	CookbookID               int                `json:"cookbookId"`
	Title                    string             `json:"title"`
	Summary                  string             `json:"summary,omitempty"`
	Thumbnail                string             `json:"thumbnail,omitempty"`
	VideoPath                string             `json:"videoPath,omitempty"`
	PreparationTimeInMinutes *int               `json:"preparationTimeInMinutes,omitempty"`
	CookingTimeInMinutes     *int               `json:"cookingTimeInMinutes,omitempty"`
	BakingTimeInMinutes      *int               `json:"bakingTimeInMinutes,omitempty"`
	Servings                 *int               `json:"servings,omitempty"`
	AuthorID                 string             `json:"authorId,omitempty"`
	Author                   string             `json:"author,omitempty"`
	AuthorEmail              string             `json:"authorEmail,omitempty"`
	Directions               []RecipeDirection  `json:"directions"`
	Ingredients              []RecipeIngredient `json:"ingredients"`
	Images                   []RecipeImage      `json:"images"`
}

// RecipeCreated is the result of CreateRecipe.
type RecipeCreated struct {
	RecipeID int `json:"recipeId"`
}

// Membership describes a member of a cookbook and their permissions.
type Membership struct {
	ID                     int    `json:"id"`
	CookbookID             int    `json:"cookbookId,omitempty"`
	Name                   string `json:"name,omitempty"`
	Email                  string `json:"email,omitempty"`
	IsCreator              bool   `json:"isCreator"`
	CanAddRecipe           bool   `json:"canAddRecipe"`
	CanUpdateRecipe        bool   `json:"canUpdateRecipe"`
	CanDeleteRecipe        bool   `json:"canDeleteRecipe"`
	CanSendInvite          bool   `json:"canSendInvite"`
	CanRemoveMember        bool   `json:"canRemoveMember"`
	CanEditCookbookDetails bool   `json:"canEditCookbookDetails"`
}

// InvitationStatus filters invitation listings.
type InvitationStatus string

const (
	InvitationActive   InvitationStatus = "Active"
	InvitationAccepted InvitationStatus = "Accepted"
	InvitationRejected InvitationStatus = "Rejected"
)

// Invitation is a pending or answered invitation to join a cookbook.
type Invitation struct {
	ID            int       `json:"id"`
	CookbookTitle string    `json:"cookbookTitle"`
	CookbookImage string    `json:"cookbookImage,omitempty"`
	SenderName    string    `json:"senderName,omitempty"`
	SenderEmail   string    `json:"senderEmail,omitempty"`
	Created       time.Time `json:"created"`
}

// InvitationCreated is the result of CreateInvitation.
type InvitationCreated struct {
	InvitationID int `json:"invitationId"`
}

// InvitationLink is the result of CreateInvitationLink.
type InvitationLink struct {
	Token string `json:"token"`
}

// ImageFile is one file for UploadImages.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadedImages is the result of UploadImages.
type UploadedImages struct {
	Names []string `json:"names"`
}
