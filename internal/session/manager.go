package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/remote"
)

// Manager ties the cookie, the session record and the change notifications
// of a browser together. Every change it makes is published.
type Manager struct {
	cookies  *Cookies
	store    *Store
	notifier *Notifier
	auth     remote.Auth
	log      logrus.FieldLogger

	locks sidLocks
}

func NewManager(cookies *Cookies, store *Store, notifier *Notifier, auth remote.Auth, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		cookies:  cookies,
		store:    store,
		notifier: notifier,
		auth:     auth,
		log:      log.WithField("component", "session"),
		locks:    sidLocks{held: make(map[string]*sidLock)},
	}
}

// SID returns the browser's sid, or "" when it has none.
func (m *Manager) SID(r *http.Request) string {
	sid, err := m.cookies.SID(r)
	if err != nil {
		return ""
	}
	return sid
}

// Current returns the session of the requesting browser, refreshing it when
// the access token has expired. A browser without a usable session gets nil.
func (m *Manager) Current(r *http.Request) (*remote.Session, error) {
	sid := m.SID(r)
	if sid == "" {
		return nil, nil
	}
	return m.Load(r.Context(), sid)
}

// Load is Current for a known sid. The record is read under the sid's lock so
// concurrent requests of one browser see a refresh made by either of them.
func (m *Manager) Load(ctx context.Context, sid string) (*remote.Session, error) {
	unlock := m.locks.lock(sid)
	defer unlock()

	sess, err := m.store.Get(ctx, sid)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.refresh(ctx, sid, sess)
}

// Establish binds sess to the browser (reusing its sid when it has one) and
// announces kind, normally SIGNED_IN.
func (m *Manager) Establish(w http.ResponseWriter, r *http.Request, sess *remote.Session, kind remote.AuthEventKind) (string, error) {
	sid := m.SID(r)
	if sid == "" {
		sid = uuid.NewString()
	}
	if err := m.store.Save(r.Context(), sid, sess); err != nil {
		return "", err
	}
	if err := m.cookies.SetSID(w, r, sid); err != nil {
		return "", err
	}
	m.publish(r.Context(), sid, remote.AuthEvent{Kind: kind, Session: sess})
	return sid, nil
}

// Update replaces the stored session without touching the cookie, e.g. after
// the user changed their email.
func (m *Manager) Update(ctx context.Context, sid string, sess *remote.Session, kind remote.AuthEventKind) error {
	if err := m.store.Save(ctx, sid, sess); err != nil {
		return err
	}
	m.publish(ctx, sid, remote.AuthEvent{Kind: kind, Session: sess})
	return nil
}

// Clear forgets the browser's session and announces SIGNED_OUT.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	sid := m.SID(r)
	if err := m.cookies.Clear(w, r); err != nil {
		return err
	}
	if sid == "" {
		return nil
	}
	return m.forget(r.Context(), sid)
}

func (m *Manager) forget(ctx context.Context, sid string) error {
	if err := m.store.Delete(ctx, sid); err != nil {
		return err
	}
	m.publish(ctx, sid, remote.AuthEvent{Kind: remote.EventSignedOut})
	return nil
}

// Refresh returns sess unchanged while its access token is valid. Otherwise it
// exchanges the refresh token, stores the new session and announces
// TOKEN_REFRESHED. A rejected refresh signs the browser out; any other failure
// is returned and the stored session is kept.
func (m *Manager) Refresh(ctx context.Context, sid string, sess *remote.Session) (*remote.Session, error) {
	unlock := m.locks.lock(sid)
	defer unlock()
	return m.refresh(ctx, sid, sess)
}

func (m *Manager) refresh(ctx context.Context, sid string, sess *remote.Session) (*remote.Session, error) {
	var refreshed *remote.Session
	ts := TokenSource(ctx, m.auth, sess, func(next *remote.Session) { refreshed = next })
	if _, err := ts.Token(); err != nil {
		if !refreshRejected(err) {
			m.log.WithFields(logrus.Fields{"sid": sid, "error": err}).Warn("session refresh failed; keeping session")
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		m.log.WithError(err).Info("session refresh rejected; signing out")
		if ferr := m.forget(ctx, sid); ferr != nil {
			return nil, ferr
		}
		return nil, nil
	}
	if refreshed == nil {
		return sess, nil
	}

	if err := m.store.Save(ctx, sid, refreshed); err != nil {
		return nil, err
	}
	m.publish(ctx, sid, remote.AuthEvent{Kind: remote.EventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

// refreshRejected reports whether the auth service refused the refresh token,
// as opposed to being unreachable or failing.
func refreshRejected(err error) bool {
	if errors.Is(err, ErrNoRefreshToken) {
		return true
	}
	var re *remote.Error
	return errors.As(err, &re) && re.Status >= 400 && re.Status < 500
}

// Subscribe returns the change stream of one browser session.
func (m *Manager) Subscribe(ctx context.Context, sid string) (*Subscription, error) {
	return m.notifier.Subscribe(ctx, sid)
}

func (m *Manager) publish(ctx context.Context, sid string, ev remote.AuthEvent) {
	if err := m.notifier.Publish(ctx, sid, ev); err != nil {
		m.log.WithFields(logrus.Fields{"kind": ev.Kind, "error": err}).Warn("failed to publish auth event")
	}
}

type sidLock struct {
	mu   sync.Mutex
	refs int
}

// sidLocks serialises session reads and refreshes per sid.
type sidLocks struct {
	mu   sync.Mutex
	held map[string]*sidLock
}

func (l *sidLocks) lock(sid string) func() {
	l.mu.Lock()
	sl, ok := l.held[sid]
	if !ok {
		sl = &sidLock{}
		l.held[sid] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.held, sid)
		}
		l.mu.Unlock()
	}
}
