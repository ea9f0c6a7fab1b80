package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpublisher/showcase/internal/remote"
	"github.com/mkpublisher/showcase/internal/remote/memory"
)

var t0 = time.Date(2024, 12, 28, 10, 0, 0, 0, time.UTC)

func titles(ps []remote.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}

func TestLoadThenPushKeepsArrivalOrder(t *testing.T) {
	mem := memory.New()
	mem.Seed(remote.Project{ID: "1", Title: "Aries App", CreatedAt: t0})

	st := New()
	require.NoError(t, st.Load(context.Background(), mem.Remote().Projects))
	assert.True(t, st.Apply(remote.Project{ID: "2", Title: "Consilium", CreatedAt: t0.Add(time.Hour)}))

	assert.Equal(t, []string{"Aries App", "Consilium"}, titles(st.Snapshot()))
	status, msg := st.Status()
	assert.Equal(t, StatusReady, status)
	assert.Empty(t, msg)
}

func TestLoadFailureIsSticky(t *testing.T) {
	mem := memory.New()
	mem.Fail(memory.OpListProjects, errors.New("503"))

	st := New()
	assert.Error(t, st.Load(context.Background(), mem.Remote().Projects))
	status, msg := st.Status()
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, "Failed to fetch projects", msg)
	assert.Empty(t, st.Snapshot())

	st.Apply(remote.Project{ID: "x", Title: "pushed"})
	_, msg = st.Status()
	assert.Equal(t, "Failed to fetch projects", msg)
	assert.Equal(t, 1, mem.Calls(memory.OpListProjects))
}

func TestLoadFailureKeepsPendingPushes(t *testing.T) {
	mem := memory.New()
	mem.Fail(memory.OpListProjects, errors.New("503"))

	st := New()
	assert.True(t, st.Apply(remote.Project{ID: "early", Title: "Early Bird", CreatedAt: t0}))
	require.Error(t, st.Load(context.Background(), mem.Remote().Projects))

	assert.Equal(t, []string{"Early Bird"}, titles(st.Snapshot()))
	assert.Equal(t, []string{"Early Bird"}, titles(st.Recent(5)))
	assert.False(t, st.Apply(remote.Project{ID: "early", Title: "Early Bird"}))

	assert.True(t, st.Apply(remote.Project{ID: "late", Title: "Late", CreatedAt: t0.Add(time.Hour)}))
	assert.Equal(t, []string{"Early Bird", "Late"}, titles(st.Snapshot()))
	status, msg := st.Status()
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, FetchErrorMessage, msg)
}

func TestApplyIgnoresDuplicates(t *testing.T) {
	st := New()
	require.NoError(t, st.Load(context.Background(), memory.New().Remote().Projects))

	p := remote.Project{ID: "p1", Title: "Aries App"}
	assert.True(t, st.Apply(p))
	assert.False(t, st.Apply(p))
	assert.Equal(t, 1, st.Len())
}

func TestPushBeforeLoadIsAppendedAfterFetch(t *testing.T) {
	mem := memory.New()
	fetched := mem.Seed(remote.Project{ID: "1", Title: "Aries App", CreatedAt: t0})

	st := New()
	assert.True(t, st.Apply(remote.Project{ID: "2", Title: "Consilium"}))
	assert.False(t, st.Apply(remote.Project{ID: "2", Title: "Consilium"}))
	assert.True(t, st.Apply(fetched))
	assert.Equal(t, 0, st.Len())

	require.NoError(t, st.Load(context.Background(), mem.Remote().Projects))
	assert.Equal(t, []string{"Aries App", "Consilium"}, titles(st.Snapshot()))
}

func TestRunAppliesUntilClosed(t *testing.T) {
	st := New()
	require.NoError(t, st.Load(context.Background(), memory.New().Remote().Projects))

	events := make(chan remote.Project, 3)
	events <- remote.Project{ID: "a", Title: "A"}
	events <- remote.Project{ID: "a", Title: "A"}
	events <- remote.Project{ID: "b", Title: "B"}
	close(events)

	var applied []string
	st.Run(context.Background(), events, func(p remote.Project) { applied = append(applied, p.ID) })
	assert.Equal(t, []string{"a", "b"}, applied)
}

func TestFilter(t *testing.T) {
	ps := []remote.Project{
		{Title: "Aries App"},
		{Title: "Password Generator"},
		{Title: "Consilium"},
		{Title: "aries tools"},
	}
	orig := append([]remote.Project(nil), ps...)

	for _, q := range []string{"", "ARIES", "o", "zzz", "Gen"} {
		got := Filter(ps, q)
		for _, p := range got {
			assert.True(t, strings.Contains(strings.ToLower(p.Title), strings.ToLower(q)))
		}
		assert.Equal(t, got, Filter(got, q), "idempotent for %q", q)
		assert.Equal(t, orig, ps, "source untouched for %q", q)
	}
	assert.Equal(t, []string{"Aries App", "aries tools"}, titles(Filter(ps, "aries")))
	assert.Len(t, Filter(ps, ""), 4)
}

func TestRecentNewestFirst(t *testing.T) {
	st := New()
	require.NoError(t, st.Load(context.Background(), memory.New().Remote().Projects))
	st.Apply(remote.Project{ID: "1", Title: "Aries App", CreatedAt: t0})
	st.Apply(remote.Project{ID: "3", Title: "Consilium", CreatedAt: t0.Add(48 * time.Hour)})
	st.Apply(remote.Project{ID: "2", Title: "Password Generator", CreatedAt: t0.Add(24 * time.Hour)})

	assert.Equal(t, []string{"Consilium", "Password Generator"}, titles(st.Recent(2)))
	assert.Equal(t, []string{"Aries App", "Consilium", "Password Generator"}, titles(st.Snapshot()))
}
