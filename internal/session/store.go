package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkpublisher/showcase/internal/remote"
)

const (
	sessionKeyPrefix  = "session:"     // Browser session record: session:{sid}
	authEventPrefix   = "auth:events:" // Pub/Sub channel for session changes: auth:events:{sid}
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Store keeps the backend session of each browser in redis, keyed by the sid
// held in the browser's cookie.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sid string) string { return sessionKeyPrefix + sid }

func (s *Store) Save(ctx context.Context, sid string, sess *remote.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sid), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, sid string) (*remote.Session, error) {
	data, err := s.client.Get(ctx, s.key(sid)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess remote.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
