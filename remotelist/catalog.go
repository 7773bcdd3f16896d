package remotelist

import "sort"

// Collection names a backend list and how it is shaped for display.
type Collection struct {
	Name string
	Path string

	// DateField, when set, orders items newest first and fills DisplayDate.
	DateField string
	// Limit truncates the list after ordering. Zero keeps everything.
	Limit int

	WithCategory bool
	WithAuthor   bool
}

var (
	Services = Collection{Name: "services", Path: "/api/services"}
	Projects = Collection{Name: "projects", Path: "/api/projects", WithCategory: true}
	Blogs    = Collection{Name: "blogs", Path: "/api/blogs", DateField: "publishedAt", Limit: 3, WithCategory: true, WithAuthor: true}
	Careers  = Collection{Name: "careers", Path: "/api/careers", DateField: "postedAt"}
)

// Catalog maps collection names to their definitions.
type Catalog map[string]Collection

// DefaultCatalog returns the site's collections, with the blog strip truncated to blogLimit.
func DefaultCatalog(blogLimit int) Catalog {
	blogs := Blogs
	if blogLimit > 0 {
		blogs.Limit = blogLimit
	}
	return Catalog{
		Services.Name: Services,
		Projects.Name: Projects,
		blogs.Name:    blogs,
		Careers.Name:  Careers,
	}
}

func (c Catalog) Lookup(name string) (Collection, bool) {
	col, ok := c[name]
	return col, ok
}

// Names returns the collection names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
