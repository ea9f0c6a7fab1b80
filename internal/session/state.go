package session

import (
	"context"
	"sync"

	"github.com/mkpublisher/showcase/internal/remote"
)

// EventStream is a closable source of session changes.
type EventStream interface {
	Events() <-chan remote.AuthEvent
	Close() error
}

// State is the single slot holding the signed-in user of one live page. It
// is written by Init and by every notification after Watch; there is no
// polling.
type State struct {
	mu   sync.RWMutex
	user *remote.User

	onChange func(remote.AuthEventKind, *remote.User)

	stream EventStream
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewState returns an empty state. onChange, if set, runs after each
// notification has been applied.
func NewState(onChange func(remote.AuthEventKind, *remote.User)) *State {
	return &State{onChange: onChange, stop: make(chan struct{})}
}

// Init queries the current session once and fills the slot.
func (s *State) Init(ctx context.Context, load func(context.Context) (*remote.Session, error)) error {
	sess, err := load(ctx)
	if err != nil {
		return err
	}
	var u *remote.User
	if sess != nil {
		cp := sess.User
		u = &cp
	}
	s.set(u)
	return nil
}

// Watch applies every event of stream until Close or until the stream ends.
// It must be called at most once.
func (s *State) Watch(stream EventStream) {
	s.mu.Lock()
	s.stream = stream
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.stop:
				return
			case ev, ok := <-stream.Events():
				if !ok {
					return
				}
				u := ev.User()
				s.set(u)
				if s.onChange != nil {
					s.onChange(ev.Kind, u)
				}
			}
		}
	}()
}

func (s *State) set(u *remote.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// User returns a copy of the current user, or nil when signed out.
func (s *State) User() *remote.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Close unsubscribes and waits for the watch loop to exit. No onChange call
// happens after Close returns.
func (s *State) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		s.mu.RLock()
		stream, done := s.stream, s.done
		s.mu.RUnlock()
		if stream != nil {
			err = stream.Close()
		}
		if done != nil {
			<-done
		}
	})
	return err
}
