package remotelist

import (
	"sort"
	"strings"
	"time"

	"itsite/models"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

// ParseDate accepts the date formats the backend emits.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders raw for display and never fails.
func FormatDate(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Date not available"
	}
	t, ok := ParseDate(raw)
	if !ok {
		return "Invalid Date"
	}
	return t.Format("January 2, 2006")
}

// SortByDate orders items newest first by PublishedAt. Items without a usable
// date keep their relative order and follow the dated ones.
func SortByDate(items []models.Item) {
	type keyed struct {
		t  time.Time
		ok bool
	}
	keys := make([]keyed, len(items))
	idx := make([]int, len(items))
	for i := range items {
		idx[i] = i
		t, ok := ParseDate(items[i].PublishedAt)
		keys[i] = keyed{t, ok}
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		return ka.ok && ka.t.After(kb.t)
	})

	sorted := make([]models.Item, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}
