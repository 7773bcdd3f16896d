package remotelist

import (
	"testing"
	"time"

	"itsite/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "January 15, 2024", FormatDate("2024-01-15"))
	assert.Equal(t, "February 29, 2024", FormatDate("2024-02-29T08:30:00.123Z"))
	assert.Equal(t, "Date not available", FormatDate(""))
	assert.Equal(t, "Date not available", FormatDate("   "))
	assert.Equal(t, "Invalid Date", FormatDate("yesterday"))
	assert.Equal(t, "Invalid Date", FormatDate("2024-13-45"))
}

func TestSortByDateNewestFirst(t *testing.T) {
	items := []models.Item{
		{ID: "old", PublishedAt: "2022-01-01"},
		{ID: "new", PublishedAt: "2024-06-01T00:00:00Z"},
		{ID: "mid", PublishedAt: "2023-05-05 12:00:00"},
	}
	SortByDate(items)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(items))
}

func TestSortByDateUndatedStable(t *testing.T) {
	items := []models.Item{
		{ID: "u1", PublishedAt: "garbage"},
		{ID: "d1", PublishedAt: "2021-01-01"},
		{ID: "u2"},
		{ID: "d2", PublishedAt: "2023-01-01"},
		{ID: "d3", PublishedAt: "2023-01-01"},
		{ID: "u3", PublishedAt: "not a date"},
	}
	SortByDate(items)

	got := ids(items)
	assert.Equal(t, []string{"d2", "d3", "d1", "u1", "u2", "u3"}, got)

	var prev time.Time
	for i, it := range items {
		ts, ok := ParseDate(it.PublishedAt)
		if !ok {
			continue
		}
		if i > 0 && !prev.IsZero() {
			assert.False(t, ts.After(prev), "dates must be non-increasing at %d", i)
		}
		prev = ts
	}
}

func TestSortByDateEmpty(t *testing.T) {
	var items []models.Item
	require.NotPanics(t, func() { SortByDate(items) })
}

func TestSelectDefault(t *testing.T) {
	items := []models.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, "b", SelectDefault(items, "b"))
	assert.Equal(t, "a", SelectDefault(items, "gone"))
	assert.Equal(t, "a", SelectDefault(items, ""))
	assert.Equal(t, "", SelectDefault(nil, "b"))
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
