package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitBounds(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Limit())
}

func TestOffsetRoundTrip(t *testing.T) {
	page := Pagination{PageSize: 50}
	token := page.NextToken(50)
	assert.NotEmpty(t, token)

	next := Pagination{PageToken: token, PageSize: 50}
	assert.Equal(t, 50, next.Offset())

	third := Pagination{PageToken: next.NextToken(50), PageSize: 50}
	assert.Equal(t, 100, third.Offset())
}

func TestNextTokenEmptyOnShortPage(t *testing.T) {
	page := Pagination{PageSize: 50}
	assert.Empty(t, page.NextToken(49))
	assert.Empty(t, page.NextToken(0))
}

func TestInvalidTokensStartFromZero(t *testing.T) {
	assert.Equal(t, 0, Pagination{PageToken: "!!!not-base64!!!"}.Offset())
	assert.Equal(t, 0, Pagination{PageToken: "bm9wZQ"}.Offset()) // decodes to "nope"
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(Pagination{PageSize: 2}, 2)
	assert.Equal(t, 2, info.Count)
	assert.NotEmpty(t, info.NextPageToken)

	info = NewPageInfo(Pagination{PageSize: 2}, 1)
	assert.Empty(t, info.NextPageToken)
}
