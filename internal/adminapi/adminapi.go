// Package adminapi contains typed access to the resources managed from the admin dashboard.
package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
)

type Doer interface {
	Do(ctx context.Context, req authclient.Request) (*authclient.Response, error)
}

type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func (p ListParams) values() url.Values {
	values := url.Values{}
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		values.Set("search", p.Search)
	}
	return values
}

// ParseListParams reads page, limit and search from a query string.
func ParseListParams(query url.Values) (ListParams, error) {
	params := ListParams{Search: query.Get("search")}
	for name, target := range map[string]*int{"page": &params.Page, "limit": &params.Limit} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return ListParams{}, fmt.Errorf("the %s parameter must be a positive integer, got %q", name, raw)
		}
		*target = value
	}
	return params, nil
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Resource is a collection of the shop API at path supporting list/get/create/update/delete.
type Resource[T any] struct {
	client Doer
	path   string
}

func NewResource[T any](client Doer, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List returns one page of the collection. Collections answered as a bare array are returned
// as a single page.
func (r *Resource[T]) List(ctx context.Context, params ListParams) (Page[T], error) {
	res, err := r.client.Do(ctx, authclient.Request{Method: http.MethodGet, Path: r.path, Query: params.values()})
	if err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{}
	if trimmed := bytes.TrimSpace(res.Payload); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Items); err != nil {
			return Page[T]{}, err
		}
		page.Total = len(page.Items)
		page.Page = params.Page
		page.Limit = params.Limit
		return page, nil
	}
	if err := res.Decode(&page); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return r.send(ctx, http.MethodGet, r.itemPath(id), nil)
}

func (r *Resource[T]) Create(ctx context.Context, input any) (T, error) {
	return r.send(ctx, http.MethodPost, r.path, input)
}

func (r *Resource[T]) Update(ctx context.Context, id string, input any) (T, error) {
	return r.send(ctx, http.MethodPatch, r.itemPath(id), input)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, authclient.Request{Method: http.MethodDelete, Path: r.itemPath(id)})
	return err
}

func (r *Resource[T]) send(ctx context.Context, method string, path string, input any) (T, error) {
	var output T
	res, err := r.client.Do(ctx, authclient.Request{Method: method, Path: path, Body: input})
	if err != nil {
		return output, err
	}
	err = res.Decode(&output)
	return output, err
}

type API struct {
	Products   *Resource[Product]
	Brands     *Resource[Brand]
	Categories *Resource[Category]
	Attributes *Resource[Attribute]
	Users      *Resource[models.User]
}

func NewAPI(client Doer) *API {
	return &API{
		Products:   NewResource[Product](client, "/api/products"),
		Brands:     NewResource[Brand](client, "/api/brands"),
		Categories: NewResource[Category](client, "/api/categories"),
		Attributes: NewResource[Attribute](client, "/api/attributes"),
		Users:      NewResource[models.User](client, "/api/users"),
	}
}
