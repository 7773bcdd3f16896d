// Package auth holds the visitor session: who is using the site right now and
// whether they hold the admin account. State survives restarts through Storage.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"itsite/crypto"
	"itsite/models"

	"github.com/google/uuid"
)

const (
	SessionKey = "session"
	UsersKey   = "users"
)

// Reasons Register refuses an account.
var (
	ErrInvalidSignup = errors.New("email and password are required")
	ErrEmailTaken    = errors.New("email already registered")
	ErrEmailReserved = errors.New("email reserved for the administrator")
)

var errCredentialChanged = errors.New("credential changed since it was read")

// Credentials is an email/password pair. The admin account is configured with one.
type Credentials struct {
	Email    string
	Password string
}

// SessionStore is the single source of truth for the current visitor's login state.
type SessionStore struct {
	records  Storage
	registry Registry
	admin    Credentials
	logger   *slog.Logger

	mu      sync.RWMutex
	session *models.Session

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(models.AuthStatus)
}

// New builds a store. records holds the session record, registry the credentials;
// both may be the same Storage.
func New(records Storage, registry Registry, admin Credentials, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		records:  records,
		registry: registry,
		admin:    Credentials{Email: normalizeEmail(admin.Email), Password: admin.Password},
		logger:   logger,
		subs:     make(map[int]func(models.AuthStatus)),
	}
}

// Restore rehydrates the in-memory session from storage. A missing record means
// logged out; an unreadable or malformed one is discarded.
func (s *SessionStore) Restore() {
	sess, err := s.readSession()
	if err != nil {
		s.logger.Warn("discarding persisted session", "error", err)
		if err := s.records.Remove(SessionKey); err != nil {
			s.logger.Error("removing corrupted session", "error", err)
		}
	}
	s.setSession(sess)
}

func (s *SessionStore) readSession() (*models.Session, error) {
	raw, ok, err := s.records.Get(SessionKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var rec struct {
		IsLoggedIn *bool  `json:"isLoggedIn"`
		IsAdmin    *bool  `json:"isAdmin"`
		ID         string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if rec.IsLoggedIn == nil || rec.IsAdmin == nil {
		return nil, fmt.Errorf("session record missing isLoggedIn/isAdmin")
	}
	if !*rec.IsLoggedIn {
		return nil, fmt.Errorf("session record with isLoggedIn=false")
	}
	return &models.Session{IsLoggedIn: true, IsAdmin: *rec.IsAdmin, ID: rec.ID}, nil
}

// Login checks the admin account first, then the registry. A mismatch returns
// false and leaves the current session untouched.
func (s *SessionStore) Login(email, password string) bool {
	email = normalizeEmail(email)

	if s.isAdminCredential(email, password) {
		s.startSession(true)
		s.logger.Info("admin logged in")
		return true
	}

	users := s.loadUsers()
	idx := indexOf(users, email)

	stored := crypto.DummyHash()
	if idx >= 0 {
		stored = users[idx].Password
	}
	if !crypto.CheckPassword(password, stored) || idx < 0 {
		s.logger.Debug("login rejected", "email", email)
		return false
	}

	if !crypto.IsHash(stored) {
		s.upgradeCredential(email, password, stored)
	}

	s.startSession(false)
	return true
}

// Signup registers email and logs the visitor in. It fails without side effects
// when the email is already registered.
func (s *SessionStore) Signup(email, password string) bool {
	return s.Register(email, password) == nil
}

// Register is Signup reporting why an account was refused: ErrInvalidSignup,
// ErrEmailReserved, ErrEmailTaken, or a storage error.
func (s *SessionStore) Register(email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return ErrInvalidSignup
	}
	if email == s.admin.Email {
		return ErrEmailReserved
	}
	if indexOf(s.loadUsers(), email) >= 0 {
		return ErrEmailTaken
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.logger.Error("signup failed", "error", err)
		return fmt.Errorf("hashing password: %w", err)
	}

	// Checked again under the registry's lock: another session may have
	// registered the same email while the hash was computed.
	err = s.registry.Update(UsersKey, func(current string, found bool) (string, error) {
		users := s.parseUsers(current, found)
		if indexOf(users, email) >= 0 {
			return "", ErrEmailTaken
		}
		return marshalUsers(append(users, models.Credential{Email: email, Password: hash}))
	})
	if err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			s.logger.Error("signup failed", "error", err)
		}
		return err
	}

	s.startSession(false)
	return nil
}

// Logout forgets the session. Calling it while logged out is harmless.
func (s *SessionStore) Logout() {
	if err := s.records.Remove(SessionKey); err != nil {
		s.logger.Error("removing session", "error", err)
	}
	s.setSession(nil)
}

func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.IsLoggedIn
}

func (s *SessionStore) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.IsAdmin
}

func (s *SessionStore) Status() models.AuthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statusOf(s.session)
}

// Session returns a copy of the current record, or nil when logged out.
func (s *SessionStore) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// Subscribe registers fn to be called with the new status after every change.
// The returned function removes the subscription.
func (s *SessionStore) Subscribe(fn func(models.AuthStatus)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *SessionStore) startSession(admin bool) {
	sess := &models.Session{IsLoggedIn: true, IsAdmin: admin, ID: uuid.NewString()}

	data, err := json.Marshal(sess)
	if err == nil {
		err = s.records.Set(SessionKey, string(data))
	}
	if err != nil {
		// The visitor stays logged in for this process; only the next Restore is affected.
		s.logger.Error("persisting session", "error", err)
	}
	s.setSession(sess)
}

func (s *SessionStore) setSession(sess *models.Session) {
	s.mu.Lock()
	before := statusOf(s.session)
	s.session = sess
	after := statusOf(sess)
	s.mu.Unlock()

	if before != after {
		s.notify(after)
	}
}

func (s *SessionStore) notify(status models.AuthStatus) {
	s.subMu.Lock()
	fns := make([]func(models.AuthStatus), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}

func (s *SessionStore) isAdminCredential(email, password string) bool {
	if s.admin.Email == "" || s.admin.Password == "" {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.admin.Email))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password))
	return emailOK&passOK == 1
}

// loadUsers returns the registry, treating unreadable data as empty.
func (s *SessionStore) loadUsers() []models.Credential {
	raw, ok, err := s.registry.Get(UsersKey)
	if err != nil {
		s.logger.Warn("credentials registry unreadable, treating as empty", "error", err)
		return nil
	}
	return s.parseUsers(raw, ok)
}

func (s *SessionStore) parseUsers(raw string, found bool) []models.Credential {
	if !found {
		return nil
	}
	var users []models.Credential
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		s.logger.Warn("credentials registry corrupted, treating as empty", "error", err)
		return nil
	}
	return users
}

func marshalUsers(users []models.Credential) (string, error) {
	data, err := json.Marshal(users)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// upgradeCredential replaces a cleartext entry with its hash, unless the entry
// changed since legacy was read.
func (s *SessionStore) upgradeCredential(email, password, legacy string) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.logger.Warn("rehashing legacy credential", "error", err)
		return
	}
	err = s.registry.Update(UsersKey, func(current string, found bool) (string, error) {
		users := s.parseUsers(current, found)
		idx := indexOf(users, email)
		if idx < 0 || users[idx].Password != legacy {
			return "", errCredentialChanged
		}
		users[idx].Password = hash
		return marshalUsers(users)
	})
	if err != nil && !errors.Is(err, errCredentialChanged) {
		s.logger.Warn("rehashing legacy credential", "error", err)
	}
}

func indexOf(users []models.Credential, email string) int {
	for i, u := range users {
		if normalizeEmail(u.Email) == email {
			return i
		}
	}
	return -1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func statusOf(sess *models.Session) models.AuthStatus {
	if sess == nil {
		return models.AuthStatus{}
	}
	return models.AuthStatus{Authenticated: sess.IsLoggedIn, Admin: sess.IsAdmin}
}
