// Package memory implements the backend contract in process. It is used for
// local development and by tests that need to observe partial-failure states.
package memory

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkpublisher/showcase/internal/remote"
)

// Operation names accepted by Fail and Calls.
const (
	OpSignUp         = "auth.signup"
	OpSignIn         = "auth.signin"
	OpSignOut        = "auth.signout"
	OpGetUser        = "auth.get_user"
	OpUpdateUser     = "auth.update_user"
	OpRefresh        = "auth.refresh"
	OpListProjects   = "projects.list"
	OpInsertProject  = "projects.insert"
	OpDeleteProjects = "projects.delete_by_user"
	OpGetProfile     = "profiles.get"
	OpInsertProfile  = "profiles.insert"
	OpUpdateProfile  = "profiles.update"
	OpDeleteProfile  = "profiles.delete"
	OpSubscribe      = "channel.subscribe"
)

const tokenTTL = time.Hour

type identity struct {
	user     remote.User
	password string
}

// Backend is an in-memory backend. The zero value is not usable; call New.
type Backend struct {
	mu sync.Mutex

	identities map[string]*identity // by user id
	byEmail    map[string]string    // email -> user id
	access     map[string]string    // access token -> user id
	refresh    map[string]string    // refresh token -> user id
	projects   []remote.Project
	profiles   map[string]remote.Profile

	subs     map[*subscription]struct{}
	failures map[string]error
	calls    map[string]int

	// Now is the clock used for created_at and token expiry.
	Now func() time.Time
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		identities: make(map[string]*identity),
		byEmail:    make(map[string]string),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		profiles:   make(map[string]remote.Profile),
		subs:       make(map[*subscription]struct{}),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
		Now:        time.Now,
	}
}

// Remote exposes b through the remote.Backend bundle.
func (b *Backend) Remote() remote.Backend {
	return remote.Backend{
		Auth:     authAPI{b},
		Projects: projectsAPI{b},
		Profiles: profilesAPI{b},
		Channel:  channelAPI{b},
	}
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// Calls returns how many times op was invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Seed stores a project without broadcasting it.
func (b *Backend) Seed(p remote.Project) remote.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = b.Now()
	}
	b.projects = append(b.projects, p)
	return p
}

// Push delivers p to the insert subscribers without storing it.
func (b *Backend) Push(p remote.Project) {
	b.broadcast(p)
}

// ProjectsOf returns the stored projects owned by userID.
func (b *Backend) ProjectsOf(userID string) []remote.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []remote.Project
	for _, p := range b.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

// HasProfile reports whether a profile row exists for id.
func (b *Backend) HasProfile(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.profiles[id]
	return ok
}

// IdentityEmail returns the auth email of the user, or "" when unknown.
func (b *Backend) IdentityEmail(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.identities[userID]; ok {
		return id.user.Email
	}
	return ""
}

// begin counts the call and returns the injected failure for op, if any.
// The caller must hold b.mu.
func (b *Backend) begin(op string) error {
	b.calls[op]++
	remote.RecordCall(0, b.failures[op])
	return b.failures[op]
}

func (b *Backend) userFor(op, token string) (string, error) {
	id, ok := b.access[token]
	if !ok {
		return "", &remote.Error{Op: op, Status: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	return id, nil
}

func (b *Backend) newSession(u remote.User) *remote.Session {
	at := "mem-at-" + uuid.NewString()
	rt := "mem-rt-" + uuid.NewString()
	b.access[at] = u.ID
	b.refresh[rt] = u.ID
	return &remote.Session{
		AccessToken:  at,
		RefreshToken: rt,
		TokenType:    "bearer",
		ExpiresAt:    b.Now().Add(tokenTTL),
		User:         u,
	}
}

func (b *Backend) broadcast(p remote.Project) {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(p)
	}
}

type authAPI struct{ b *Backend }

func (a authAPI) SignUp(_ context.Context, email, password string) (*remote.SignUpResult, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpSignUp); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, taken := b.byEmail[email]; taken {
		return nil, &remote.Error{Op: OpSignUp, Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}
	if len(password) < 6 {
		return nil, &remote.Error{Op: OpSignUp, Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters."}
	}
	u := remote.User{ID: uuid.NewString(), Email: email}
	b.identities[u.ID] = &identity{user: u, password: password}
	b.byEmail[email] = u.ID
	return &remote.SignUpResult{User: u, Session: b.newSession(u)}, nil
}

func (a authAPI) SignInWithPassword(_ context.Context, email, password string) (*remote.Session, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpSignIn); err != nil {
		return nil, err
	}
	id, ok := b.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok || b.identities[id].password != password {
		return nil, &remote.Error{Op: OpSignIn, Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	return b.newSession(b.identities[id].user), nil
}

func (a authAPI) SignOut(_ context.Context, accessToken string) error {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpSignOut); err != nil {
		return err
	}
	id, ok := b.access[accessToken]
	if !ok {
		return nil
	}
	for t, uid := range b.access {
		if uid == id {
			delete(b.access, t)
		}
	}
	for t, uid := range b.refresh {
		if uid == id {
			delete(b.refresh, t)
		}
	}
	return nil
}

func (a authAPI) GetUser(_ context.Context, accessToken string) (*remote.User, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpGetUser); err != nil {
		return nil, err
	}
	id, err := b.userFor(OpGetUser, accessToken)
	if err != nil {
		return nil, err
	}
	u := b.identities[id].user
	return &u, nil
}

func (a authAPI) UpdateUser(_ context.Context, accessToken string, attrs remote.UserAttributes) (*remote.User, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpUpdateUser); err != nil {
		return nil, err
	}
	id, err := b.userFor(OpUpdateUser, accessToken)
	if err != nil {
		return nil, err
	}
	ident := b.identities[id]
	if attrs.Email != "" {
		email := strings.ToLower(strings.TrimSpace(attrs.Email))
		if other, taken := b.byEmail[email]; taken && other != id {
			return nil, &remote.Error{Op: OpUpdateUser, Status: http.StatusUnprocessableEntity, Code: "email_exists", Message: "A user with this email address has already been registered"}
		}
		delete(b.byEmail, ident.user.Email)
		ident.user.Email = email
		b.byEmail[email] = id
	}
	if attrs.Password != "" {
		ident.password = attrs.Password
	}
	u := ident.user
	return &u, nil
}

func (a authAPI) RefreshSession(_ context.Context, refreshToken string) (*remote.Session, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpRefresh); err != nil {
		return nil, err
	}
	id, ok := b.refresh[refreshToken]
	if !ok {
		return nil, &remote.Error{Op: OpRefresh, Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found"}
	}
	delete(b.refresh, refreshToken)
	return b.newSession(b.identities[id].user), nil
}

type projectsAPI struct{ b *Backend }

func (a projectsAPI) List(_ context.Context, _ string) ([]remote.Project, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpListProjects); err != nil {
		return nil, err
	}
	out := make([]remote.Project, len(b.projects))
	copy(out, b.projects)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (a projectsAPI) Insert(_ context.Context, accessToken string, np remote.NewProject) (*remote.Project, error) {
	b := a.b
	b.mu.Lock()
	if err := b.begin(OpInsertProject); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	uid, err := b.userFor(OpInsertProject, accessToken)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if uid != np.UserID {
		b.mu.Unlock()
		return nil, &remote.Error{Op: OpInsertProject, Status: http.StatusForbidden, Code: "42501", Message: "new row violates row-level security policy for table \"projects\""}
	}
	p := remote.Project{
		ID:        uuid.NewString(),
		Title:     np.Title,
		Link:      np.Link,
		Image:     np.Image,
		Rating:    np.Rating,
		Category:  np.Category,
		CreatedAt: b.Now(),
		UserID:    np.UserID,
	}
	b.projects = append(b.projects, p)
	b.mu.Unlock()

	b.broadcast(p)
	return &p, nil
}

func (a projectsAPI) DeleteByUser(_ context.Context, accessToken, userID string) (int, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpDeleteProjects); err != nil {
		return 0, err
	}
	if _, err := b.userFor(OpDeleteProjects, accessToken); err != nil {
		return 0, err
	}
	kept := b.projects[:0]
	removed := 0
	for _, p := range b.projects {
		if p.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	b.projects = kept
	return removed, nil
}

type profilesAPI struct{ b *Backend }

func (a profilesAPI) Get(_ context.Context, _ string, id string) (*remote.Profile, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpGetProfile); err != nil {
		return nil, err
	}
	p, ok := b.profiles[id]
	if !ok {
		return nil, &remote.Error{Op: OpGetProfile, Status: http.StatusNotFound, Code: "PGRST116", Message: "JSON object requested, multiple (or no) rows returned"}
	}
	return &p, nil
}

func (a profilesAPI) Insert(_ context.Context, _ string, p remote.Profile) error {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpInsertProfile); err != nil {
		return err
	}
	if _, exists := b.profiles[p.ID]; exists {
		return &remote.Error{Op: OpInsertProfile, Status: http.StatusConflict, Code: "23505", Message: "duplicate key value violates unique constraint \"profiles_pkey\""}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = b.Now()
	}
	b.profiles[p.ID] = p
	return nil
}

func (a profilesAPI) Update(_ context.Context, _ string, id string, u remote.ProfileUpdate) error {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpUpdateProfile); err != nil {
		return err
	}
	p, ok := b.profiles[id]
	if !ok {
		// PostgREST reports success for an update that matches no rows.
		return nil
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	b.profiles[id] = p
	return nil
}

func (a profilesAPI) Delete(_ context.Context, _ string, id string) error {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpDeleteProfile); err != nil {
		return err
	}
	delete(b.profiles, id)
	return nil
}

type channelAPI struct{ b *Backend }

func (a channelAPI) SubscribeInserts(_ context.Context, table string) (remote.Subscription, error) {
	b := a.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpSubscribe); err != nil {
		return nil, err
	}
	if table != remote.TableProjects {
		return nil, &remote.Error{Op: OpSubscribe, Status: http.StatusBadRequest, Message: "unknown table " + table}
	}
	remote.RecordChannelJoin()
	s := &subscription{
		backend: b,
		events:  make(chan remote.Project, 256),
		errs:    make(chan error, 1),
	}
	b.subs[s] = struct{}{}
	return s, nil
}

type subscription struct {
	backend *Backend

	mu     sync.Mutex
	closed bool
	events chan remote.Project
	errs   chan error
}

func (s *subscription) Events() <-chan remote.Project { return s.events }
func (s *subscription) Err() <-chan error             { return s.errs }

func (s *subscription) deliver(p remote.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	remote.RecordPushedRow()
	s.events <- p
}

func (s *subscription) Close() error {
	s.backend.mu.Lock()
	delete(s.backend.subs, s)
	s.backend.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}
