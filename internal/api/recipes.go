package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// RecipeInput is the editable part of a recipe.
type RecipeInput struct {
	Title                    string             `json:"title"`
	Summary                  string             `json:"summary,omitempty"`
	Thumbnail                *string            `json:"thumbnail"`
	VideoPath                *string            `json:"videoPath"`
	PreparationTimeInMinutes *int               `json:"preparationTimeInMinutes"`
	CookingTimeInMinutes     *int               `json:"cookingTimeInMinutes"`
	BakingTimeInMinutes      *int               `json:"bakingTimeInMinutes"`
	Servings                 *int               `json:"servings"`
	Directions               []RecipeDirection  `json:"directions"`
	Ingredients              []RecipeIngredient `json:"ingredients"`
	Images                   []RecipeImage      `json:"images"`
}

type createRecipeBody struct {
	CookbookID int         `json:"cookbookId"`
	Recipe     RecipeInput `json:"recipe"`
}

type updateRecipeBody struct {
	ID     int         `json:"id"`
	Recipe RecipeInput `json:"recipe"`
}

// GetRecipes lists a cookbook's recipes, optionally filtered by a title
// search.
func (c *Client) GetRecipes(ctx context.Context, cookbookID int, search string, page, size int) Result[PaginatedList[RecipeBrief]] {
	q := pageQuery(page, size)
	q.Set("CookbookId", strconv.Itoa(cookbookID))
	if s := strings.TrimSpace(search); s != "" {
		q.Set("Search", s)
	}
	return call(ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/Recipes",
		Query:  q,
	}, decodeJSON[PaginatedList[RecipeBrief]])
}

// GetRecipe fetches one recipe with its directions, ingredients and images.
func (c *Client) GetRecipe(ctx context.Context, id int) Result[Recipe] {
	return call(ctx, c, Request{Method: http.MethodGet, Path: idPath("Recipes", id)}, decodeJSON[Recipe])
}

// CreateRecipe adds a recipe to a cookbook.
func (c *Client) CreateRecipe(ctx context.Context, cookbookID int, in RecipeInput) Result[RecipeCreated] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Recipes",
		Body:   createRecipeBody{CookbookID: cookbookID, Recipe: in},
	}, func(resp *http.Response) (RecipeCreated, error) {
		id, err := decodeID(resp)
		return RecipeCreated{RecipeID: id}, err
	})
}

// UpdateRecipe replaces a recipe.
func (c *Client) UpdateRecipe(ctx context.Context, id int, in RecipeInput) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPut,
		Path:   idPath("Recipes", id),
		Body:   updateRecipeBody{ID: id, Recipe: in},
	}, decodeNothing)
}

// DeleteRecipe removes a recipe.
func (c *Client) DeleteRecipe(ctx context.Context, id int) Result[struct{}] {
	return call(ctx, c, Request{Method: http.MethodDelete, Path: idPath("Recipes", id)}, decodeNothing)
}
