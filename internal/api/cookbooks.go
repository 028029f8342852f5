package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// pageQuery builds the PageNumber/PageSize query shared by list endpoints.
// Non-positive values are omitted so the server default applies.
func pageQuery(page, size int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("PageNumber", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("PageSize", strconv.Itoa(size))
	}
	return q
}

func idPath(resource string, id int) string {
	return "/" + resource + "/" + strconv.Itoa(id)
}

// GetCookbooks lists the cookbooks the signed-in user belongs to.
func (c *Client) GetCookbooks(ctx context.Context, page, size int) Result[PaginatedList[Cookbook]] {
	return call(ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/Cookbooks",
		Query:  pageQuery(page, size),
	}, decodeJSON[PaginatedList[Cookbook]])
}

// GetCookbook fetches one cookbook.
func (c *Client) GetCookbook(ctx context.Context, id int) Result[Cookbook] {
	return call(ctx, c, Request{Method: http.MethodGet, Path: idPath("Cookbooks", id)}, decodeJSON[Cookbook])
}

// CreateCookbook creates a cookbook owned by the signed-in user. The server
// answers 201 with the new id as a bare integer.
func (c *Client) CreateCookbook(ctx context.Context, in CreateCookbookInput) Result[CookbookCreated] {
	return call(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/Cookbooks",
		Body:   in,
	}, func(resp *http.Response) (CookbookCreated, error) {
		id, err := decodeID(resp)
		return CookbookCreated{CookbookID: id}, err
	})
}

// UpdateCookbook replaces a cookbook's title and image.
func (c *Client) UpdateCookbook(ctx context.Context, in UpdateCookbookInput) Result[struct{}] {
	return call(ctx, c, Request{
		Method: http.MethodPut,
		Path:   idPath("Cookbooks", in.ID),
		Body:   in,
	}, decodeNothing)
}

// DeleteCookbook deletes a cookbook. Only its creator may do so.
func (c *Client) DeleteCookbook(ctx context.Context, id int) Result[struct{}] {
	return call(ctx, c, Request{Method: http.MethodDelete, Path: idPath("Cookbooks", id)}, decodeNothing)
}
