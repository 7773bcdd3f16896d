package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const CookieName = "itsite-session"

// NewCookieStore derives signing and encryption keys from sessionKey.
func NewCookieStore(sessionKey string, secure bool) *sessions.CookieStore {
	// Auth key for signing (HMAC), encryption key for content (AES)
	authKey := sha256.Sum256([]byte(sessionKey + "auth"))
	encKey := sha256.Sum256([]byte(sessionKey + "encryption"))

	store := sessions.NewCookieStore(authKey[:], encKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// CookieStorage keeps values in the visitor's encrypted session cookie, the
// server-side counterpart of browser local storage. It is bound to one request.
type CookieStorage struct {
	store sessions.Store
	w     http.ResponseWriter
	r     *http.Request
}

func NewCookieStorage(store sessions.Store, w http.ResponseWriter, r *http.Request) *CookieStorage {
	return &CookieStorage{store: store, w: w, r: r}
}

func (c *CookieStorage) session() (*sessions.Session, error) {
	sess, err := c.store.Get(c.r, CookieName)
	if err != nil {
		// A cookie that fails to decode still yields a usable fresh session.
		return sess, fmt.Errorf("decoding session cookie: %w", err)
	}
	return sess, nil
}

func (c *CookieStorage) Get(key string) (string, bool, error) {
	sess, err := c.session()
	if err != nil {
		return "", false, err
	}
	v, ok := sess.Values[key].(string)
	return v, ok, nil
}

func (c *CookieStorage) Set(key, value string) error {
	sess, _ := c.session()
	if sess == nil {
		return fmt.Errorf("session cookie unavailable")
	}
	sess.Values[key] = value
	return sess.Save(c.r, c.w)
}

func (c *CookieStorage) Remove(key string) error {
	sess, err := c.session()
	if sess == nil {
		return nil
	}
	if _, ok := sess.Values[key]; !ok && err == nil {
		return nil
	}
	// Undecodable cookies are expired along with the key.
	delete(sess.Values, key)
	if len(sess.Values) == 0 {
		sess.Options.MaxAge = -1
	}
	return sess.Save(c.r, c.w)
}
