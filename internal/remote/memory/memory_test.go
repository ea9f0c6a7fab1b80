package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpublisher/showcase/internal/remote"
)

func signUp(t *testing.T, b *Backend, email string) *remote.Session {
	t.Helper()
	res, err := b.Remote().Auth.SignUp(context.Background(), email, "secret1")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	return res.Session
}

func TestAuth_SignUpAndSignIn(t *testing.T) {
	b := New()
	auth := b.Remote().Auth
	ctx := context.Background()

	s := signUp(t, b, "Ada@X.io")
	assert.Equal(t, "ada@x.io", s.User.Email)

	_, err := auth.SignUp(ctx, "ada@x.io", "secret1")
	assert.Error(t, err)

	_, err = auth.SignInWithPassword(ctx, "ada@x.io", "wrong")
	assert.Equal(t, "Invalid login credentials", remote.Message(err))

	s2, err := auth.SignInWithPassword(ctx, "ada@x.io", "secret1")
	require.NoError(t, err)
	u, err := auth.GetUser(ctx, s2.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, u.ID)
}

func TestAuth_RefreshRotatesToken(t *testing.T) {
	b := New()
	s := signUp(t, b, "a@x.io")
	auth := b.Remote().Auth

	next, err := auth.RefreshSession(context.Background(), s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.AccessToken, next.AccessToken)

	_, err = auth.RefreshSession(context.Background(), s.RefreshToken)
	assert.Error(t, err)
}

func TestAuth_SignOutRevokesTokens(t *testing.T) {
	b := New()
	s := signUp(t, b, "a@x.io")
	auth := b.Remote().Auth

	require.NoError(t, auth.SignOut(context.Background(), s.AccessToken))
	_, err := auth.GetUser(context.Background(), s.AccessToken)
	assert.True(t, errors.Is(err, remote.ErrUnauthorized))
}

func TestProjects_InsertRequiresOwner(t *testing.T) {
	b := New()
	s := signUp(t, b, "a@x.io")
	projects := b.Remote().Projects

	_, err := projects.Insert(context.Background(), s.AccessToken, remote.NewProject{Title: "x", Link: "y", UserID: "someone-else"})
	assert.True(t, errors.Is(err, remote.ErrUnauthorized))

	p, err := projects.Insert(context.Background(), s.AccessToken, remote.NewProject{Title: "x", Link: "y", UserID: s.User.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Len(t, b.ProjectsOf(s.User.ID), 1)
}

func TestProjects_ListNewestFirst(t *testing.T) {
	b := New()
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b.Seed(remote.Project{Title: "old", CreatedAt: t0})
	b.Seed(remote.Project{Title: "new", CreatedAt: t0.Add(time.Hour)})

	list, err := b.Remote().Projects.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)
}

func TestChannel_BroadcastsInserts(t *testing.T) {
	b := New()
	s := signUp(t, b, "a@x.io")
	ctx := context.Background()

	sub, err := b.Remote().Channel.SubscribeInserts(ctx, remote.TableProjects)
	require.NoError(t, err)

	p, err := b.Remote().Projects.Insert(ctx, s.AccessToken, remote.NewProject{Title: "Aries App", Link: "l", UserID: s.User.ID})
	require.NoError(t, err)

	got := <-sub.Events()
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, sub.Close())
	_, open := <-sub.Events()
	assert.False(t, open)

	b.Push(remote.Project{ID: "after-close"})
}

func TestFail_InjectsErrors(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	b.Fail(OpListProjects, boom)

	_, err := b.Remote().Projects.List(context.Background(), "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, b.Calls(OpListProjects))

	b.Fail(OpListProjects, nil)
	_, err = b.Remote().Projects.List(context.Background(), "")
	assert.NoError(t, err)
}

func TestProfiles_GetMissing(t *testing.T) {
	b := New()
	_, err := b.Remote().Profiles.Get(context.Background(), "", "nobody")
	assert.True(t, errors.Is(err, remote.ErrNotFound))
}
