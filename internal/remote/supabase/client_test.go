package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpublisher/showcase/internal/remote"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{URL: srv.URL, AnonKey: "anon"})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{AnonKey: "k"})
	assert.Error(t, err)
	_, err = NewClient(Options{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestAuth_SignInWithPassword(t *testing.T) {
	var gotGrant, gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		gotGrant = r.URL.Query().Get("grant_type")
		gotKey = r.Header.Get("apikey")
		var body credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "bearer",
			"expires_at":    1700000000,
			"user":          map[string]string{"id": "u1", "email": body.Email},
		})
	})
	c := newTestClient(t, mux)
	auth := c.Backend().Auth

	s, err := auth.SignInWithPassword(context.Background(), "a@b.c", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "password", gotGrant)
	assert.Equal(t, "anon", gotKey)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, time.Unix(1700000000, 0), s.ExpiresAt)

	_, err = auth.SignInWithPassword(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", remote.Message(err))
}

func TestAuth_SignUpWithoutSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"u9","email":"new@x.io"}`)
	})
	c := newTestClient(t, mux)

	res, err := c.Backend().Auth.SignUp(context.Background(), "new@x.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u9", res.User.ID)
	assert.Nil(t, res.Session)
}

func TestAuth_UsesAccessTokenAsBearer(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPut, r.Method)
		_, _ = io.WriteString(w, `{"id":"u1","email":"changed@x.io"}`)
	})
	c := newTestClient(t, mux)

	u, err := c.Backend().Auth.UpdateUser(context.Background(), "user-token", remote.UserAttributes{Email: "changed@x.io"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "changed@x.io", u.Email)
}

func TestProjectsTable_ListAndInsert(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
			_, _ = io.WriteString(w, `[{"id":"p2","title":"Consilium","link":"l","image":"i","rating":4.5,"created_at":"2024-05-02T10:00:00+00:00","user_id":"u"},
				{"id":"p1","title":"Aries App","link":"l","image":"i","rating":3,"category":"featured","created_at":"2024-05-01T10:00:00+00:00","user_id":"u"}]`)
		case http.MethodPost:
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
			var rows []remote.NewProject
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
			require.Len(t, rows, 1)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode([]remote.Project{{ID: "p3", Title: rows[0].Title, UserID: rows[0].UserID}})
		}
	})
	c := newTestClient(t, mux)
	tbl := c.Backend().Projects

	list, err := tbl.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Consilium", list[0].Title)
	assert.True(t, list[1].Featured())

	p, err := tbl.Insert(context.Background(), "tok", remote.NewProject{Title: "New", Link: "x", UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, "p3", p.ID)
}

func TestProjectsTable_DeleteByUserCountsRows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		_, _ = io.WriteString(w, `[{"id":"a"},{"id":"b"}]`)
	})
	c := newTestClient(t, mux)

	n, err := c.Backend().Projects.DeleteByUser(context.Background(), "tok", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestProfilesTable_GetMissingIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	c := newTestClient(t, mux)

	_, err := c.Backend().Profiles.Get(context.Background(), "tok", "nobody")
	assert.True(t, errors.Is(err, remote.ErrNotFound))
}

func TestDecodeError_PostgREST(t *testing.T) {
	err := decodeError("profiles.insert", http.StatusConflict, []byte(`{"code":"23505","message":"duplicate key","details":null}`))
	var re *remote.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "23505", re.Code)
	assert.Equal(t, "duplicate key", re.Message)
	assert.True(t, errors.Is(err, remote.ErrConflict))
}

func TestDecodeError_PlainBody(t *testing.T) {
	err := decodeError("x", http.StatusBadGateway, []byte("upstream down"))
	assert.Equal(t, "upstream down", remote.Message(err))
}
