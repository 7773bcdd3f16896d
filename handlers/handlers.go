package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"itsite/auth"
	"itsite/contact"
	"itsite/remotelist"

	"github.com/dchest/captcha"
	"github.com/gorilla/sessions"
)

type APIResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    any               `json:"data,omitempty"`
}

func sendJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Cookies  sessions.Store
	Registry auth.Registry
	Admin    auth.Credentials
	Lists    *remotelist.Registry
	Contact  *contact.Service
	Logger   *slog.Logger

	// VerifyCaptcha defaults to captcha.VerifyString.
	VerifyCaptcha func(id, digits string) bool
}

type Server struct {
	Deps
	loginLimiter  *rateLimiter
	signupLimiter *rateLimiter
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.VerifyCaptcha == nil {
		d.VerifyCaptcha = captcha.VerifyString
	}
	return &Server{
		Deps:          d,
		loginLimiter:  newRateLimiter(),
		signupLimiter: newRateLimiter(),
	}
}

func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/session", s.SessionHandler)
	mux.HandleFunc("POST /api/login", s.LoginHandler)
	mux.HandleFunc("POST /api/signup", s.SignupHandler)
	mux.HandleFunc("POST /api/logout", s.LogoutHandler)

	mux.HandleFunc("GET /api/collections/{name}", s.CollectionHandler)
	mux.HandleFunc("POST /api/collections/{name}/close", s.CloseCollectionHandler)
	mux.HandleFunc("GET /api/admin/collections", s.AdminCollectionsHandler)

	mux.HandleFunc("GET /api/captcha", s.NewCaptchaHandler)
	mux.Handle("GET /captcha/", captcha.Server(captcha.StdWidth, captcha.StdHeight))
	mux.HandleFunc("POST /api/contact", s.ContactHandler)
}

// Routes returns the API with CORS and security headers applied. wrap is
// applied inside them, first entry outermost.
func (s *Server) Routes(wrap ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	s.RegisterHandlers(mux)

	var h http.Handler = mux
	for i := len(wrap) - 1; i >= 0; i-- {
		h = wrap[i](h)
	}
	return CORSMiddleware(SecurityHeadersMiddleware(h))
}

// sessionFor binds a SessionStore to the visitor's cookie and restores it.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *auth.SessionStore {
	store := auth.New(auth.NewCookieStorage(s.Cookies, w, r), s.Registry, s.Admin, s.Logger)
	store.Restore()
	return store
}
