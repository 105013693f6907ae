// Package pagination implements token-based pagination shared by list endpoints.
package pagination

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Pagination carries the client-supplied paging parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// PageInfo is returned alongside list results.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	Count         int    `json:"count"`
}

// Limit returns the effective page size.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// Offset decodes the page token into a row offset. Invalid tokens start from zero.
func (p Pagination) Offset() int {
	token := strings.TrimSpace(p.PageToken)
	if token == "" {
		return 0
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// NextToken builds the token for the following page. Returns "" when the
// current page was not full, meaning there is nothing more to fetch.
func (p Pagination) NextToken(returned int) string {
	if returned < p.Limit() {
		return ""
	}
	next := p.Offset() + returned
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(next)))
}

// NewPageInfo assembles the page info for a list response.
func NewPageInfo(p Pagination, returned int) PageInfo {
	return PageInfo{
		NextPageToken: p.NextToken(returned),
		Count:         returned,
	}
}
