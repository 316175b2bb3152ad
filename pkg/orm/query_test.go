package orm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name                string
		page, limit, max    int
		wantPage, wantLimit int
	}{
		{"defaults", 0, 0, 100, 1, 10},
		{"negative", -2, -5, 100, 1, 10},
		{"explicit", 3, 25, 100, 3, 25},
		{"clamped", 1, 5000, 100, 1, 100},
		{"uncapped", 1, 5000, 0, 1, 5000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.limit, tc.max)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantLimit, p.Limit)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 20, Pagination{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, 0, Pagination{Page: 1, Limit: 10}.Offset())
}

func TestHugePageDoesNotOverflowOffset(t *testing.T) {
	p := NewPagination(math.MaxInt, 10, 100)
	assert.Equal(t, math.MaxInt32/10+1, p.Page)
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), math.MaxInt32)

	p = NewPagination(math.MaxInt, 5000, 0)
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), math.MaxInt32)
}
