package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginated(t *testing.T) {
	page := NewPaginated([]string{"a", "b"}, 21, 2, 10)

	assert.Equal(t, 3, page.TotalPage)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, int64(21), page.TotalItems)
	assert.Len(t, page.Data, 2)
}

func TestNewPaginatedNilData(t *testing.T) {
	page := NewPaginated[string](nil, 0, 1, 10)

	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.TotalPage)
}

func TestPageQueryNormalize(t *testing.T) {
	var q PageQuery
	q.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, 0, q.Offset())

	q = PageQuery{Page: 3, PageSize: 20}
	q.Normalize()
	assert.Equal(t, 40, q.Offset())
}
