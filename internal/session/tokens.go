package session

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/mkpublisher/showcase/internal/remote"
)

func tokenFromSession(s *remote.Session) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresAt,
	}
}

// refresher exchanges the refresh token for a new session.
type refresher struct {
	ctx       context.Context
	auth      remote.Auth
	onRefresh func(*remote.Session)

	mu      sync.Mutex
	current *remote.Session
}

func (r *refresher) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	next, err := r.auth.RefreshSession(r.ctx, r.current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if next.User.ID == "" {
		next.User = r.current.User
	}
	r.current = next
	if r.onRefresh != nil {
		r.onRefresh(next)
	}
	return tokenFromSession(next), nil
}

// TokenSource returns the session's access token while it is valid and
// refreshes it through the auth service once it expires. onRefresh receives
// every new session.
func TokenSource(ctx context.Context, auth remote.Auth, s *remote.Session, onRefresh func(*remote.Session)) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tokenFromSession(s), &refresher{
		ctx:       ctx,
		auth:      auth,
		onRefresh: onRefresh,
		current:   s,
	})
}
