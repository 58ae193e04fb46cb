package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/pkg/errors"
)

// Pagination is the metadata emitted by the server's page-number paginator.
type Pagination struct {
	Count       int     `json:"count"`
	TotalPages  int     `json:"total_pages"`
	CurrentPage int     `json:"current_page"`
	PageSize    int     `json:"page_size"`
	Next        *string `json:"next"`
	Previous    *string `json:"previous"`
}

// Page is the normalized result of every list call. Results is never nil.
type Page[T any] struct {
	Results    []T         `json:"results"`
	Pagination *Pagination `json:"pagination"`
}

// HasNext reports whether the server advertised a following page.
func (p *Page[T]) HasNext() bool {
	return p.Pagination != nil && p.Pagination.Next != nil && *p.Pagination.Next != ""
}

// listShape is the variant of a list payload. Endpoints are not consistent
// about pagination, so all three are accepted.
type listShape int

const (
	listEmpty listShape = iota // Anything else, including no body
	listPaged                  // {results, pagination}
	listBare                   // [...]
)

func classifyList(raw json.RawMessage) listShape {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return listEmpty
	}
	switch t[0] {
	case '[':
		return listBare
	case '{':
		var probe struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(t, &probe); err == nil && !isNull(probe.Results) {
			return listPaged
		}
	}
	return listEmpty
}

func normalizeList[T any](raw json.RawMessage) (*Page[T], error) {
	page := &Page[T]{}
	switch classifyList(raw) {
	case listPaged:
		if err := json.Unmarshal(raw, page); err != nil {
			return nil, errors.Wrap(err, "normalizeList paged")
		}
	case listBare:
		if err := json.Unmarshal(raw, &page.Results); err != nil {
			return nil, errors.Wrap(err, "normalizeList bare")
		}
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page, nil
}

// List issues a GET and normalizes the payload into a Page.
func List[T any](ctx context.Context, c *Client, path string, query url.Values) (*Page[T], error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	page, err := normalizeList[T](raw)
	if err != nil {
		return nil, apierror.New(http.StatusOK, invalidBodyMessage, "", nil, err)
	}
	return page, nil
}
