package remotelist

import (
	"fmt"
	"strings"

	"itsite/models"

	"github.com/tidwall/gjson"
)

const (
	DefaultTitle    = "Untitled"
	DefaultCategory = "Uncategorized"
	DefaultAuthor   = "Unknown Author"
)

// Field aliases seen across the backend's collections, in lookup order.
var (
	idFields          = []string{"_id", "id"}
	titleFields       = []string{"title", "name"}
	descriptionFields = []string{"description", "excerpt", "summary"}
	imageFields       = []string{"imageUrl", "image", "coverImage", "thumbnail", "icon"}
	pathFields        = []string{"path", "slug"}
	dateFields        = []string{"publishedAt", "createdAt", "date"}
	childFields       = []string{"subServices", "subItems", "children"}
)

// Transform turns one raw backend entity into a display-ready Item. It is pure.
func Transform(raw gjson.Result, baseURL string, col Collection) models.Item {
	item := models.Item{
		ID:          first(raw, idFields...),
		Title:       first(raw, titleFields...),
		Description: first(raw, descriptionFields...),
		ImageURL:    ResolveImageURL(baseURL, first(raw, imageFields...)),
		Path:        first(raw, pathFields...),
	}
	if item.ID == "" {
		item.ID = item.Path
	}
	if item.Title == "" {
		item.Title = DefaultTitle
	}

	if col.WithCategory {
		item.Category = nameOf(raw.Get("category"))
		if item.Category == "" {
			item.Category = DefaultCategory
		}
	}
	if col.WithAuthor {
		item.Author = nameOf(raw.Get("author"))
		if item.Author == "" {
			item.Author = DefaultAuthor
		}
	}

	if col.DateField != "" {
		item.PublishedAt = first(raw, append([]string{col.DateField}, dateFields...)...)
		item.DisplayDate = FormatDate(item.PublishedAt)
	}

	for _, field := range childFields {
		children := raw.Get(field)
		if !children.IsArray() {
			continue
		}
		for _, child := range children.Array() {
			item.SubItems = append(item.SubItems, transformSub(child))
		}
		break
	}
	return item
}

// TransformAll maps decoded entities in order. Entities with neither an id nor
// a path are keyed by collection and position so they stay selectable.
func TransformAll(raws []gjson.Result, baseURL string, col Collection) []models.Item {
	items := make([]models.Item, 0, len(raws))
	for i, raw := range raws {
		item := Transform(raw, baseURL, col)
		if item.ID == "" {
			item.ID = fmt.Sprintf("%s-%d", col.Name, i)
		}
		items = append(items, item)
	}
	return items
}

func transformSub(raw gjson.Result) models.SubItem {
	sub := models.SubItem{
		ID:   first(raw, idFields...),
		Name: first(raw, "name", "title"),
		Path: first(raw, pathFields...),
	}
	if sub.Name == "" {
		sub.Name = DefaultTitle
	}
	return sub
}

// ResolveImageURL makes raw usable as an image source. Absolute URLs pass
// through; relative paths get backslashes turned into slashes, lose one
// leading slash, and are prefixed with baseURL.
func ResolveImageURL(baseURL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || isAbsoluteURL(raw) {
		return raw
	}
	rel := strings.ReplaceAll(raw, `\`, "/")
	rel = strings.TrimPrefix(rel, "/")
	return strings.TrimRight(baseURL, "/") + "/" + rel
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(s, "//")
}

// first returns the first non-blank scalar among fields.
func first(raw gjson.Result, fields ...string) string {
	for _, f := range fields {
		v := raw.Get(f)
		switch v.Type {
		case gjson.String, gjson.Number:
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// nameOf reads a field that is either a plain string or an object with a name.
func nameOf(v gjson.Result) string {
	if v.IsObject() {
		return first(v, "name", "title")
	}
	if v.Type == gjson.String {
		return strings.TrimSpace(v.Str)
	}
	return ""
}
