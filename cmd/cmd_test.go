package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"itsite/auth"
	"itsite/backend"
	"itsite/config"
	"itsite/contact"
	"itsite/crypto"
	"itsite/logger"
	"itsite/models"
	"itsite/remotelist"

	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	crypto.HashCost = bcrypt.MinCost
	log = logger.Discard()
	os.Exit(m.Run())
}

func testConfig(t *testing.T, apiURL string) config.Config {
	t.Helper()
	return config.Config{
		SessionKey:    "cmd-test-session-key",
		APIBaseURL:    apiURL,
		ImageBaseURL:  apiURL,
		DBPath:        filepath.Join(t.TempDir(), "itsite.db"),
		BlogLimit:     3,
		AdminEmail:    "admin@gmail.com",
		AdminPassword: "admin123",
	}
}

func useConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = cfg
	t.Cleanup(func() { config.AppConfig = prev })
}

func contentBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/services", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"_id":"s1","title":"Cloud"},{"_id":"s2","title":"Networks","subServices":[{"_id":"n1","name":"Wi-Fi"}]}]`)
	})
	mux.HandleFunc("GET /api/blogs", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[
			{"_id":"b1","title":"Old","publishedAt":"2023-01-05T00:00:00Z","author":{"name":"Sam"}},
			{"_id":"b2","title":"New","publishedAt":"2024-03-01T00:00:00Z"}
		]}`)
	})
	mux.HandleFunc("GET /api/projects", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("GET /api/careers", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	mux.HandleFunc("POST /api/contact", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"Message received"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSetup(t *testing.T) {
	prev := configPath
	t.Cleanup(func() { configPath = prev })

	t.Setenv("ITSITE_API_BASE_URL", "http://backend.example.com")
	t.Setenv("ITSITE_LOG_LEVEL", "error")

	configPath = filepath.Join(t.TempDir(), "missing.json")
	if err := setup(false); err != nil {
		t.Fatalf("missing default config should be skipped: %v", err)
	}
	if config.AppConfig.APIBaseURL != "http://backend.example.com" {
		t.Errorf("APIBaseURL = %q", config.AppConfig.APIBaseURL)
	}

	if err := setup(true); err == nil {
		t.Error("an explicit config path that does not exist should fail")
	}
}

func TestJSONOutput(t *testing.T) {
	jsonOutput = true
	defer func() { jsonOutput = false }()

	if !IsJSONOutput() {
		t.Error("expected IsJSONOutput to return true")
	}
}

func TestSessionCommands(t *testing.T) {
	useConfig(t, testConfig(t, "http://backend.example.com"))

	var out bytes.Buffer
	err := withSession(&out, func(s *auth.SessionStore) error {
		if !s.Signup("cli@x.com", "secret") {
			t.Error("signup failed")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "Logged in" {
		t.Errorf("after signup: %q", out.String())
	}

	// A later invocation restores the persisted session.
	out.Reset()
	if err := withSession(&out, func(*auth.SessionStore) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "Logged in" {
		t.Errorf("whoami: %q", out.String())
	}

	out.Reset()
	withSession(&out, func(s *auth.SessionStore) error { s.Logout(); return nil })
	if strings.TrimSpace(out.String()) != "Not logged in" {
		t.Errorf("after logout: %q", out.String())
	}

	out.Reset()
	jsonOutput = true
	defer func() { jsonOutput = false }()
	withSession(&out, func(s *auth.SessionStore) error {
		if !s.Login("admin@gmail.com", "admin123") {
			t.Error("admin login failed")
		}
		return nil
	})
	var st models.AuthStatus
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("status json %q: %v", out.String(), err)
	}
	if !st.Authenticated || !st.Admin {
		t.Errorf("admin status = %+v", st)
	}
}

func TestFormatStatusHuman(t *testing.T) {
	cases := map[models.AuthStatus]string{
		{}:                                "Not logged in",
		{Authenticated: true}:             "Logged in",
		{Authenticated: true, Admin: true}: "Logged in as administrator",
	}
	for st, want := range cases {
		if got := formatStatusHuman(st); got != want {
			t.Errorf("formatStatusHuman(%+v) = %q, want %q", st, got, want)
		}
	}
}

func TestRunFetchHuman(t *testing.T) {
	be := contentBackend(t)
	reg := newRegistry(testConfig(t, be.URL), backend.New(be.URL))

	var out bytes.Buffer
	err := runFetch(context.Background(), &out, reg, remotelist.TriggerMount, []string{"services", "blogs"}, "s2")
	if err != nil {
		t.Fatalf("runFetch: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"services: 2 items",
		"* Networks",
		"- Wi-Fi",
		"blogs: 2 items",
		"Sam",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "New") > strings.Index(got, "Old") {
		t.Errorf("blogs not newest first:\n%s", got)
	}
}

func TestRunFetchAllReportsFailures(t *testing.T) {
	be := contentBackend(t)
	reg := newRegistry(testConfig(t, be.URL), backend.New(be.URL))

	jsonOutput = true
	defer func() { jsonOutput = false }()

	var out bytes.Buffer
	err := runFetch(context.Background(), &out, reg, remotelist.TriggerMount, nil, "")
	if err == nil || !strings.Contains(err.Error(), "projects: HTTP error! status: 502") {
		t.Fatalf("expected projects failure, got %v", err)
	}

	var snaps []remotelist.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snaps); err != nil {
		t.Fatalf("fetch json: %v\n%s", err, out.String())
	}
	if len(snaps) != 4 {
		t.Fatalf("expected every collection, got %d", len(snaps))
	}
	for _, s := range snaps {
		want := remotelist.Ready
		if s.Collection == "projects" {
			want = remotelist.Failed
		}
		if s.State != want {
			t.Errorf("%s state = %v, want %v", s.Collection, s.State, want)
		}
	}
}

func TestRunFetchUnknownCollection(t *testing.T) {
	reg := newRegistry(testConfig(t, "http://127.0.0.1:1"), backend.New("http://127.0.0.1:1"))
	var out bytes.Buffer
	if err := runFetch(context.Background(), &out, reg, remotelist.TriggerMount, []string{"nope"}, ""); err == nil {
		t.Error("expected an error for an unknown collection")
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed, got %q", out.String())
	}
}

func TestRunContact(t *testing.T) {
	be := contentBackend(t)
	svc := contact.NewService(backend.New(be.URL), logger.Discard())

	var out bytes.Buffer
	err := runContact(context.Background(), &out, svc, models.ContactRequest{
		Name: "Ada", Email: "ada@example.com", Subject: "Hi", Message: "Hello",
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "Message received" {
		t.Errorf("output = %q", out.String())
	}

	err = runContact(context.Background(), &out, svc, models.ContactRequest{Name: "Ada"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"email: Email is required", "message: Message is required", "subject: Subject is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestServeHandlerCSRF(t *testing.T) {
	be := contentBackend(t)
	handler, _ := newHandler(testConfig(t, be.URL), auth.NewMemoryStorage())
	ts := httptest.NewServer(handler)
	defer ts.Close()

	jar, _ := cookiejar.New(nil)
	c := &http.Client{Jar: jar}

	login := func(token string) int {
		req, _ := http.NewRequest("POST", ts.URL+"/api/login", strings.NewReader(`{"email":"admin@gmail.com","password":"admin123"}`))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		resp, err := c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := login(""); code != http.StatusForbidden {
		t.Errorf("login without CSRF token = %d, want 403", code)
	}

	resp, err := c.Get(ts.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	token := resp.Header.Get("X-CSRF-Token")
	if token == "" {
		t.Fatal("GET /api/session did not hand out a CSRF token")
	}

	if code := login(token); code != http.StatusOK {
		t.Errorf("login with CSRF token = %d, want 200", code)
	}
}
