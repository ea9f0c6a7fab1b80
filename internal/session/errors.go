package session

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoCookie        = errors.New("no session cookie")
	ErrNoRefreshToken  = errors.New("session has no refresh token")
)
