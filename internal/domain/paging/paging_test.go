package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	assert.Equal(t, Window{Offset: 0, Limit: 10}, Page(1, 0))
	assert.Equal(t, Window{Offset: 20, Limit: 10}, Page(3, 10))
	assert.Equal(t, Window{Offset: 0, Limit: 5}, Page(-2, 5))
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		total int64
		want  int
	}{
		{0, 1},
		{1, 1},
		{10, 1},
		{11, 2},
		{25, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LastPage(tt.total, 10), "total=%d", tt.total)
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(1, 0, 10))
	assert.NoError(t, Check(2, 11, 10))
	assert.ErrorIs(t, Check(3, 11, 10), ErrInvalidPage)
	assert.ErrorIs(t, Check(0, 11, 10), ErrInvalidPage)
}
