package web

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsvc "github.com/mkpublisher/showcase/internal/auth/service"
	"github.com/mkpublisher/showcase/internal/catalog"
	projectsvc "github.com/mkpublisher/showcase/internal/projects/service"
	"github.com/mkpublisher/showcase/internal/realtime"
	"github.com/mkpublisher/showcase/internal/remote"
	"github.com/mkpublisher/showcase/internal/remote/memory"
	"github.com/mkpublisher/showcase/internal/session"
)

type testApp struct {
	router  *gin.Engine
	mem     *memory.Backend
	catalog *catalog.State
}

func newTestApp(t *testing.T, seed ...remote.Project) *testApp {
	t.Helper()
	mem := memory.New()
	for _, p := range seed {
		mem.Seed(p)
	}
	app, err := newTestAppWith(t, mem)
	require.NoError(t, err)
	return app
}

// newTestAppWith wires the pages over mem and returns the mount error, if any.
func newTestAppWith(t *testing.T, mem *memory.Backend) (*testApp, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	b := mem.Remote()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := session.NewManager(
		session.NewCookies("test-secret", false, 3600),
		session.NewStore(rdb, time.Hour),
		session.NewNotifier(rdb, log),
		b.Auth, log,
	)

	cat := catalog.New()
	hub := realtime.NewHub(b, cat, log)
	mountErr := hub.Mount(context.Background())
	t.Cleanup(func() { _ = hub.Unmount() })

	ctl, err := New(Deps{
		Facade:   authsvc.NewFacade(b, log),
		Sessions: sessions,
		Projects: projectsvc.New(b.Projects, hub),
		Catalog:  cat,
		Hub:      hub,
		Log:      log,
		BaseURL:  "https://mkp.example",
	})
	require.NoError(t, err)

	r := gin.New()
	ctl.Register(r)
	return &testApp{router: r, mem: mem, catalog: cat}, mountErr
}

func (a *testApp) do(method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signUp creates an account through the page and returns the browser cookies.
func (a *testApp) signUp(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	w := a.do(http.MethodPost, "/signup", url.Values{
		"email": {email}, "password": {"secret1"}, "full_name": {"Ada"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestHome_RendersCatalogAndFilters(t *testing.T) {
	app := newTestApp(t,
		remote.Project{ID: "1", Title: "Aries App", Link: "https://aries.example"},
		remote.Project{ID: "2", Title: "Consilium", Link: "https://consilium.example"},
	)

	w := app.do(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Aries App")
	assert.Contains(t, w.Body.String(), "Consilium")
	assert.Contains(t, w.Body.String(), "Sign In")

	w = app.do(http.MethodGet, "/?q=aries", nil, nil)
	body := w.Body.String()
	assert.Contains(t, body, `data-title="Aries App"`)
	assert.NotContains(t, body, `data-title="Consilium"`)
}

func TestHome_FetchErrorIsShown(t *testing.T) {
	mem := memory.New()
	mem.Fail(memory.OpListProjects, errors.New("down"))
	app, err := newTestAppWith(t, mem)
	require.Error(t, err)

	w := app.do(http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to fetch projects")
	assert.NotContains(t, w.Body.String(), "Loading projects...")
}

func TestCreateProject_RequiresSignIn(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/projects", url.Values{"title": {"X"}, "link": {"https://x"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/", loc.Query().Get("next"))
	assert.Equal(t, 0, app.mem.Calls(memory.OpInsertProject))

	w = app.do(http.MethodGet, loc.String(), nil, nil)
	assert.Contains(t, w.Body.String(), "You must be logged in to create a project")
}

func TestCreateForm_RedirectsSignedOutVisitor(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/?create=1", nil, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/?create=1", loc.Query().Get("next"))
	assert.Equal(t, "create", loc.Query().Get("notice"))

	cookies := app.signUp(t, "ada@x.io")
	w = app.do(http.MethodGet, "/?create=1", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="link"`)
}

func TestCreateProject_SingleEntry(t *testing.T) {
	app := newTestApp(t, remote.Project{ID: "1", Title: "Aries App"})
	cookies := app.signUp(t, "ada@x.io")

	w := app.do(http.MethodPost, "/projects", url.Values{"title": {"Consilium"}, "link": {"https://consilium.example"}}, cookies)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, 1, app.mem.Calls(memory.OpInsertProject))

	// the pushed copy of the insert must not add a second card
	assert.Eventually(t, func() bool { return app.catalog.Len() == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	snap := app.catalog.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Aries App", snap[0].Title)
	assert.Equal(t, "Consilium", snap[1].Title)
}

func TestCreateProject_MissingLink(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")

	w := app.do(http.MethodPost, "/projects", url.Values{"title": {"Consilium"}}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Project link is required")
	assert.Equal(t, 0, app.mem.Calls(memory.OpInsertProject))
}

func TestCreateProject_RemoteFailure(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")
	app.mem.Fail(memory.OpInsertProject, errors.New("insert rejected"))

	w := app.do(http.MethodPost, "/projects", url.Values{"title": {"A"}, "link": {"https://a"}}, cookies)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to create project")
	assert.Contains(t, w.Body.String(), `value="A"`)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "ada@x.io")

	w := app.do(http.MethodPost, "/login", url.Values{"email": {"ada@x.io"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid login credentials")

	w = app.do(http.MethodPost, "/login", url.Values{"email": {"ada@x.io"}, "password": {"secret1"}, "next": {"//evil.example"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLogout_ClearsLocalSessionWhenRemoteFails(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")
	app.mem.Fail(memory.OpSignOut, errors.New("network"))

	w := app.do(http.MethodPost, "/logout", nil, cookies)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = app.do(http.MethodGet, "/account", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login")
}

func TestAccount_UpdateProfile(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")

	w := app.do(http.MethodPost, "/account/profile", url.Values{"name": {"A"}, "email": {"a@x.com"}}, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Profile updated")

	w = app.do(http.MethodGet, "/account", nil, cookies)
	assert.Contains(t, w.Body.String(), `value="A"`)
	assert.Contains(t, w.Body.String(), `value="a@x.com"`)
}

func TestAccount_PasswordMismatch(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")

	w := app.do(http.MethodPost, "/account/password", url.Values{"password": {"abcdef"}, "confirm_password": {"abcdeg"}}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")
	assert.Equal(t, 0, app.mem.Calls(memory.OpUpdateUser))
}

func TestAccount_DeleteRemovesDataAndSignsOut(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")
	for _, title := range []string{"One", "Two"} {
		w := app.do(http.MethodPost, "/projects", url.Values{"title": {title}, "link": {"https://x"}}, cookies)
		require.Equal(t, http.StatusSeeOther, w.Code)
	}

	w := app.do(http.MethodGet, "/account/delete", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This action cannot be undone")

	w = app.do(http.MethodPost, "/account/delete", nil, cookies)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?notice=deleted", w.Header().Get("Location"))
	assert.Equal(t, 1, app.mem.Calls(memory.OpDeleteProjects))
	assert.Equal(t, 1, app.mem.Calls(memory.OpDeleteProfile))

	w = app.do(http.MethodGet, "/account", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestAccount_DeleteFailureKeepsProfile(t *testing.T) {
	app := newTestApp(t)
	cookies := app.signUp(t, "ada@x.io")
	app.mem.Fail(memory.OpDeleteProjects, errors.New("rls"))

	w := app.do(http.MethodPost, "/account/delete", nil, cookies)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "delete_profile: skipped")
	assert.Equal(t, 0, app.mem.Calls(memory.OpDeleteProfile))
}

func TestFeed(t *testing.T) {
	app := newTestApp(t, remote.Project{ID: "1", Title: "Aries App", Link: "https://aries.example"})

	w := app.do(http.MethodGet, "/feed.xml", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/atom+xml")
	assert.Contains(t, w.Body.String(), "<title>Aries App</title>")
}

func TestEvents_StreamsSessionAndProjects(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case l, ok := <-lines:
				require.True(t, ok, "stream closed")
				if strings.HasPrefix(l, prefix) {
					return l
				}
			case <-deadline:
				t.Fatalf("no line with prefix %q", prefix)
			}
		}
	}

	waitFor("event: session")
	assert.Contains(t, waitFor("data: "), `"kind":"INITIAL_SESSION"`)

	app.mem.Push(remote.Project{ID: "p9", Title: "Pushed", Rating: 3.5})
	waitFor("event: project")
	data := waitFor("data: ")
	assert.Contains(t, data, `"title":"Pushed"`)
	assert.Contains(t, data, `"stars":["full","full","full","half","empty"]`)

	app.mem.Push(remote.Project{ID: "p10", Title: "Sneaky", Link: "javascript:alert(1)", Image: "https://img.example/a.png"})
	waitFor("event: project")
	data = waitFor("data: ")
	assert.Contains(t, data, `"title":"Sneaky"`)
	assert.Contains(t, data, `"link":"#"`)
	assert.NotContains(t, data, "javascript:")
}

func TestSafeURL(t *testing.T) {
	cases := map[string]string{
		"https://aries.example/app": "https://aries.example/app",
		"http://consilium.example":  "http://consilium.example",
		"/static/placeholder.png":   "/static/placeholder.png",
		"javascript:alert(1)":       "#",
		"  JavaScript:alert(1)":     "#",
		"java\tscript:alert(1)":     "#",
		"data:text/html,<script>x":  "#",
		"vbscript:msgbox(1)":        "#",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeURL(in), in)
	}
}
