package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"hydromet/internal/domain"
)

const defaultPageLimit = 10

// PageMeta is the pagination block of a list response.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Skip       int `json:"skip"`
	Limit      int `json:"limit"`
}

// Page is one page of a resource listing.
type Page[T any] struct {
	Items []T
	Meta  PageMeta
}

// ListParams is a page-based query. The API itself speaks skip/limit.
type ListParams struct {
	Page    int
	Limit   int
	Search  string
	Filters url.Values
}

// Query converts the params into skip/limit query values.
func (p ListParams) Query() url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	page := p.Page
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	for k, vs := range p.Filters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("skip", strconv.Itoa((page-1)*limit))
	q.Set("limit", strconv.Itoa(limit))
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

// Resource is a CRUD client for one REST collection whose records decode
// into T.
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource binds a Resource to the collection at path, relative to the
// API base.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string { return r.path }

// List fetches one page.
func (r *Resource[T]) List(ctx context.Context, params ListParams) (*Page[T], error) {
	env, err := r.c.do(ctx, http.MethodGet, r.path, params.Query(), nil, "")
	if err != nil {
		return nil, err
	}
	page := &Page[T]{Items: []T{}}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &page.Items); err != nil {
			return nil, fmt.Errorf("decoding %s list: %w", r.path, err)
		}
	}
	if env.Meta != nil {
		page.Meta = *env.Meta
	}
	return page, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	env, err := r.c.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeItem[T](env, r.path)
}

// Create posts a new record.
func (r *Resource[T]) Create(ctx context.Context, in any) (*T, error) {
	raw, err := r.CreateRaw(ctx, in)
	if err != nil {
		return nil, err
	}
	return decodeItem[T](&envelope{Data: raw}, r.path)
}

// CreateRaw posts a new record and returns the response data untouched.
func (r *Resource[T]) CreateRaw(ctx context.Context, in any) (json.RawMessage, error) {
	env, err := r.c.doJSON(ctx, http.MethodPost, r.path, nil, in)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Update replaces the given fields of a record.
func (r *Resource[T]) Update(ctx context.Context, id int64, in any) (*T, error) {
	env, err := r.c.doJSON(ctx, http.MethodPut, r.itemPath(id), nil, in)
	if err != nil {
		return nil, err
	}
	return decodeItem[T](env, r.path)
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.c.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, "")
	return err
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

func decodeItem[T any](env *envelope, path string) (*T, error) {
	var item T
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", path, err)
	}
	return &item, nil
}

// DataFile is a data-file record as served by the API.
type DataFile struct {
	domain.DataFile
	DownloadURL string `json:"download_url,omitempty"`
}

// DataFiles returns the resource client for kind.
func (c *Client) DataFiles(kind domain.FileKind) (*Resource[DataFile], error) {
	path, ok := domain.ResourcePaths[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedDataType, kind)
	}
	return NewResource[DataFile](c, path), nil
}
