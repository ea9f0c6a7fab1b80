// Package catalog holds the ordered list of published projects seen by the
// process: one fetch at mount, then pushed inserts appended as they arrive.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mkpublisher/showcase/internal/remote"
)

// FetchErrorMessage is the sticky message shown when the initial fetch fails.
const FetchErrorMessage = "Failed to fetch projects"

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// State is the in-process catalog. Order is arrival order: the fetched list
// (newest first) followed by pushed records in the order they were applied.
// Pushed records are not re-sorted.
type State struct {
	mu       sync.RWMutex
	status   Status
	errMsg   string
	projects []remote.Project
	ids      map[string]struct{}
	// pending holds records applied before the fetch completed.
	pending []remote.Project
}

func New() *State {
	return &State{status: StatusLoading, ids: make(map[string]struct{})}
}

// Load performs the one blocking fetch. On failure the catalog keeps only the
// records pushed so far and the sticky error; there is no retry.
func (s *State) Load(ctx context.Context, projects remote.Projects) error {
	list, err := projects.List(ctx, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = s.projects[:0]
	s.ids = make(map[string]struct{}, len(list)+len(s.pending))
	if err != nil {
		list = nil
		s.status = StatusFailed
		s.errMsg = FetchErrorMessage
	} else {
		s.status = StatusReady
		s.errMsg = ""
	}
	for _, p := range list {
		s.appendLocked(p)
	}
	for _, p := range s.pending {
		s.appendLocked(p)
	}
	s.pending = nil
	return err
}

// appendLocked appends p unless its id is already present.
func (s *State) appendLocked(p remote.Project) bool {
	if p.ID != "" {
		if _, dup := s.ids[p.ID]; dup {
			return false
		}
		s.ids[p.ID] = struct{}{}
	}
	s.projects = append(s.projects, p)
	return true
}

// Apply appends a pushed record to the end. It reports whether the record was
// new; a record whose id is already shown is ignored.
func (s *State) Apply(p remote.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusLoading {
		for _, q := range s.pending {
			if p.ID != "" && q.ID == p.ID {
				return false
			}
		}
		s.pending = append(s.pending, p)
		return true
	}
	return s.appendLocked(p)
}

// Run applies every record of events until ctx is done or events is closed.
// onApplied, if set, sees each record that was actually added.
func (s *State) Run(ctx context.Context, events <-chan remote.Project, onApplied func(remote.Project)) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-events:
			if !ok {
				return
			}
			if s.Apply(p) && onApplied != nil {
				onApplied(p)
			}
		}
	}
}

// Status returns the load status and the sticky error message, if any.
func (s *State) Status() (Status, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.errMsg
}

// Snapshot returns a copy of the ordered catalog.
func (s *State) Snapshot() []remote.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]remote.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Len returns the number of projects shown.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// Filter returns the projects whose title contains query, ignoring case, in
// catalog order. An empty query returns everything.
func (s *State) Filter(query string) []remote.Project {
	return Filter(s.Snapshot(), query)
}

// Filter is the pure form of State.Filter.
func Filter(projects []remote.Project, query string) []remote.Project {
	q := strings.ToLower(query)
	out := make([]remote.Project, 0, len(projects))
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
		}
	}
	return out
}

// Recent returns up to n projects, newest created_at first. It does not
// change the catalog order.
func (s *State) Recent(n int) []remote.Project {
	out := s.Snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
