package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mkpublisher/showcase/internal/remote"
)

// Auth implements remote.Auth against GoTrue.
type Auth struct {
	c *Client
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`

	// Present when sign up returns a bare user (confirmation pending).
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (t tokenResponse) session(now time.Time) *remote.Session {
	expires := time.Unix(t.ExpiresAt, 0)
	if t.ExpiresAt == 0 && t.ExpiresIn > 0 {
		expires = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return &remote.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresAt:    expires,
		User:         remote.User{ID: t.User.ID, Email: t.User.Email},
	}
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*remote.SignUpResult, error) {
	remote.RecordAuthCall()
	var out tokenResponse
	_, err := a.c.do(ctx, request{
		op:     "auth.signup",
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentials{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.AccessToken == "" {
		return &remote.SignUpResult{User: remote.User{ID: out.ID, Email: out.Email}}, nil
	}
	s := out.session(time.Now())
	return &remote.SignUpResult{User: s.User, Session: s}, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*remote.Session, error) {
	remote.RecordAuthCall()
	var out tokenResponse
	_, err := a.c.do(ctx, request{
		op:     "auth.signin",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.session(time.Now()), nil
}

func (a *Auth) RefreshSession(ctx context.Context, refreshToken string) (*remote.Session, error) {
	remote.RecordAuthCall()
	var out tokenResponse
	_, err := a.c.do(ctx, request{
		op:     "auth.refresh",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.session(time.Now()), nil
}

func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	remote.RecordAuthCall()
	_, err := a.c.do(ctx, request{
		op:     "auth.signout",
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
	}, nil)
	return err
}

func (a *Auth) GetUser(ctx context.Context, accessToken string) (*remote.User, error) {
	remote.RecordAuthCall()
	var out userResponse
	_, err := a.c.do(ctx, request{
		op:     "auth.get_user",
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &remote.User{ID: out.ID, Email: out.Email}, nil
}

func (a *Auth) UpdateUser(ctx context.Context, accessToken string, attrs remote.UserAttributes) (*remote.User, error) {
	remote.RecordAuthCall()
	var out userResponse
	_, err := a.c.do(ctx, request{
		op:     "auth.update_user",
		method: http.MethodPut,
		path:   "/auth/v1/user",
		token:  accessToken,
		body:   attrs,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &remote.User{ID: out.ID, Email: out.Email}, nil
}
