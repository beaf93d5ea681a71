package pagination

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p := New()
	assert.Equal(t, int64(100), p.PageSize)
	assert.Equal(t, int64(0), p.RequestedIndex)
	assert.Empty(t, p.KeyWords)
	assert.False(t, p.IncludeAll)
	assert.False(t, p.HasStart())
	assert.False(t, p.HasEnd())
}

func TestNewPageClamps(t *testing.T) {
	tests := []struct {
		name      string
		index     int64
		size      int64
		wantIndex int64
		wantSize  int64
	}{
		{"valid", 3, 25, 3, 25},
		{"negative index", -2, 25, 0, 25},
		{"zero size", 1, 0, 1, 100},
		{"negative size", 1, -5, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.index, tt.size)
			assert.Equal(t, tt.wantIndex, p.RequestedIndex)
			assert.Equal(t, tt.wantSize, p.PageSize)
		})
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		index         int64
		size          int64
		total         int64
		wantIndex     int64
		wantSize      int64
		wantElements  int64
		wantPages     int64
		wantRequested int64
	}{
		{"no rows", 2, 10, 0, 0, 0, 0, 0, 0},
		{"negative total", 2, 10, -4, 0, 0, 0, 0, 0},
		{"single partial page", 3, 10, 7, 0, 7, 7, 1, 0},
		{"exactly one page", 0, 10, 10, 0, 10, 10, 1, 0},
		{"exact multiple", 1, 10, 30, 0, 10, 30, 3, 1},
		{"remainder rounds up", 2, 10, 31, 0, 10, 31, 4, 2},
		{"one over", 0, 100, 101, 0, 100, 101, 2, 0},
		{"large remainder", 0, 7, 50, 0, 7, 50, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.index, tt.size)
			p.Calculate(tt.total)
			assert.Equal(t, tt.wantIndex, p.CurrentIndex, "CurrentIndex")
			assert.Equal(t, tt.wantRequested, p.RequestedIndex, "RequestedIndex")
			assert.Equal(t, tt.wantSize, p.PageSize, "PageSize")
			assert.Equal(t, tt.wantElements, p.TotalElements, "TotalElements")
			assert.Equal(t, tt.wantPages, p.TotalPages, "TotalPages")
		})
	}
}

func TestCalculateKeepsFilters(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	p := &Pagination{PageSize: 5, KeyWords: "ana", IncludeAll: true, Start: start, End: end}

	for _, total := range []int64{0, 3, 12} {
		p.PageSize = 5
		p.Calculate(total)
		assert.Equal(t, "ana", p.KeyWords)
		assert.True(t, p.IncludeAll)
		assert.Equal(t, start, p.Start)
		assert.Equal(t, end, p.End)
	}
}

func TestCalculateWithoutPageSize(t *testing.T) {
	p := &Pagination{}
	p.Calculate(250)
	assert.Equal(t, int64(100), p.PageSize)
	assert.Equal(t, int64(3), p.TotalPages)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, int64(60), NewPage(3, 20).Offset())
	assert.Equal(t, int64(0), New().Offset())
}

func TestCollection(t *testing.T) {
	p := NewPage(1, 2)
	p.Calculate(5)
	items := []string{"a", "b"}

	c := NewCollection(p, items)
	items[0] = "changed"
	p.TotalPages = 99

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a", "b"}, c.Items())
	assert.Equal(t, int64(3), c.Pagination().TotalPages)

	got := c.Items()
	got[1] = "mutated"
	assert.Equal(t, "b", c.Items()[1])

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"collection":["a","b"]`)
	assert.Contains(t, string(raw), `"total_pages":3`)
}

func TestClone(t *testing.T) {
	p := NewPage(2, 10)
	cp := p.Clone()
	cp.RequestedIndex = 5
	assert.Equal(t, int64(2), p.RequestedIndex)

	var nilPage *Pagination
	assert.Nil(t, nilPage.Clone())
}
