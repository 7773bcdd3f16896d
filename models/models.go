package models

// Session is the persisted login record. A logged-out visitor has no record at all.
type Session struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	IsAdmin    bool   `json:"isAdmin"`
	ID         string `json:"id,omitempty"`
}

// Credential is one entry of the credentials registry. Password holds a bcrypt
// hash; registries written before hashing was introduced may hold cleartext.
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthStatus struct {
	Authenticated bool `json:"isAuthenticated"`
	Admin         bool `json:"isAdmin"`
}

type SubItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// Item is a display-ready entry of a remote collection (service, blog post, project...).
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Author      string    `json:"author,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Path        string    `json:"path,omitempty"`
	PublishedAt string    `json:"publishedAt,omitempty"`
	DisplayDate string    `json:"displayDate,omitempty"`
	SubItems    []SubItem `json:"subItems,omitempty"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
