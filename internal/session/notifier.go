package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/remote"
)

// Notifier fans session changes out over redis pub/sub so every page open
// for a browser sees them, whichever instance serves it.
type Notifier struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func NewNotifier(client *redis.Client, log logrus.FieldLogger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{client: client, log: log.WithField("component", "session_notifier")}
}

func channel(sid string) string { return authEventPrefix + sid }

// redact drops the tokens; subscribers only need to know who is signed in.
func redact(ev remote.AuthEvent) remote.AuthEvent {
	if ev.Session == nil {
		return ev
	}
	return remote.AuthEvent{
		Kind:    ev.Kind,
		Session: &remote.Session{ExpiresAt: ev.Session.ExpiresAt, User: ev.Session.User},
	}
}

func (n *Notifier) Publish(ctx context.Context, sid string, ev remote.AuthEvent) error {
	data, err := json.Marshal(redact(ev))
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}
	if err := n.client.Publish(ctx, channel(sid), data).Err(); err != nil {
		return fmt.Errorf("failed to publish auth event: %w", err)
	}
	return nil
}

// Subscribe listens for the changes of one browser session. The subscription
// is active when Subscribe returns.
func (n *Notifier) Subscribe(ctx context.Context, sid string) (*Subscription, error) {
	ps := n.client.Subscribe(ctx, channel(sid))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to auth events: %w", err)
	}

	s := &Subscription{
		ps:     ps,
		events: make(chan remote.AuthEvent, 16),
		done:   make(chan struct{}),
	}
	go s.forward(n.log.WithField("sid_channel", channel(sid)))
	return s, nil
}

// Subscription delivers decoded auth events until Close.
type Subscription struct {
	ps     *redis.PubSub
	events chan remote.AuthEvent
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) Events() <-chan remote.AuthEvent { return s.events }

func (s *Subscription) forward(log logrus.FieldLogger) {
	defer close(s.events)
	msgs := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev remote.AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.WithError(err).Warn("dropping malformed auth event")
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
