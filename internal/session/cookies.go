package session

import (
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

// CookieName is the name of the browser session cookie.
const CookieName = "mkp-session"

const keySID = "sid"

// Cookies keeps only the sid in a signed cookie; the backend session itself
// lives in the Store.
type Cookies struct {
	store *sessions.CookieStore
}

// NewCookies derives the signing key from secret with SHA-256, so any
// passphrase works. It must be the same on every instance.
func NewCookies(secret string, secure bool, maxAge int) *Cookies {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Cookies{store: store}
}

// SID returns the sid carried by the request's cookie.
func (c *Cookies) SID(r *http.Request) (string, error) {
	sess, err := c.store.Get(r, CookieName)
	if err != nil {
		return "", ErrNoCookie
	}
	sid, _ := sess.Values[keySID].(string)
	if strings.TrimSpace(sid) == "" {
		return "", ErrNoCookie
	}
	return sid, nil
}

func (c *Cookies) SetSID(w http.ResponseWriter, r *http.Request, sid string) error {
	sess, _ := c.store.Get(r, CookieName)
	sess.Values[keySID] = sid
	return sess.Save(r, w)
}

// Clear expires the cookie.
func (c *Cookies) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, CookieName)
	delete(sess.Values, keySID)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
