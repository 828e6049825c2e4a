package remote

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the single active ordering of a page request.
type Sort struct {
	Field     string
	Direction Direction
}

// Filter is one query constraint. Date bounds arrive here already expanded
// to their suffixed ids (entryDateStart, entryDateEnd).
type Filter struct {
	ID    string
	Value string
}

type PageRequest struct {
	Resource string
	Page     int
	PageSize int
	Sort     *Sort
	Filters  []Filter
}

// Page is the envelope returned by every list endpoint of the API.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalPages int `json:"totalPages"`
}

type param struct{ key, value string }

// params lists the query parameters of the request in the order they are
// sent: pagination, then sort, then filters in filter order. Filters with
// an empty value are left out instead of being sent as empty constraints.
func (r PageRequest) params() []param {
	ps := []param{
		{"page", strconv.Itoa(max(r.Page, 1))},
		{"pageSize", strconv.Itoa(max(r.PageSize, 1))},
	}

	if r.Sort != nil && r.Sort.Field != "" {
		dir := r.Sort.Direction
		if dir != Desc {
			dir = Asc
		}
		ps = append(ps, param{"orderByField", r.Sort.Field}, param{"orderByDirection", string(dir)})
	}

	for _, f := range r.Filters {
		if f.Value == "" {
			continue
		}
		ps = append(ps, param{f.ID, f.Value})
	}
	return ps
}

// Values returns the query parameters of the request.
func (r PageRequest) Values() url.Values {
	v := url.Values{}
	for _, p := range r.params() {
		v.Add(p.key, p.value)
	}
	return v
}

// Encode builds the query string. Unlike url.Values.Encode it keeps the
// parameter order.
func (r PageRequest) Encode() string {
	var b strings.Builder
	for i, p := range r.params() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// Key identifies the data a request selects. Two requests with the same key
// return the same page modulo server-side changes.
func (r PageRequest) Key() string {
	return r.Resource + "?" + r.Encode()
}

func normalizePage[T any](p *Page[T], pageSize int) *Page[T] {
	if p == nil {
		p = &Page[T]{}
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	if pageSize > 0 && len(p.Items) > pageSize {
		p.Items = p.Items[:pageSize]
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}

// FetchPage runs one list query against req.Resource.
func FetchPage[T any](ctx context.Context, c *Client, req PageRequest) (*Page[T], error) {
	var page Page[T]
	if err := c.do(ctx, req.Resource, "GET", req.Resource, req.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return normalizePage(&page, req.PageSize), nil
}

// Resource binds a client to one collection of the API.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

func (r *Resource[T]) Path() string { return r.path }

func (r *Resource[T]) Fetch(ctx context.Context, req PageRequest) (*Page[T], error) {
	req.Resource = r.path
	return FetchPage[T](ctx, r.client, req)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.path, id)
}
