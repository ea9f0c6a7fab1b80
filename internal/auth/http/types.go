package http

import (
	"errors"
	"net/http"

	"github.com/mkpublisher/showcase/internal/auth/domain"
	"github.com/mkpublisher/showcase/internal/auth/service"
	"github.com/mkpublisher/showcase/internal/remote"
)

type Handler struct {
	facade *service.Facade
}

func New(facade *service.Facade) *Handler {
	return &Handler{
		facade: facade,
	}
}

type sessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
	User         remote.User `json:"user"`
}

func toSessionResponse(s *remote.Session) *sessionResponse {
	if s == nil {
		return nil
	}
	return &sessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.Unix(),
		User:         s.User,
	}
}

type profileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// statusFor maps facade and backend errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotSignedIn), errors.Is(err, remote.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrMissingPassword),
		errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrNothingToUpdate):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrConflict):
		return http.StatusConflict
	}
	var re *remote.Error
	if errors.As(err, &re) && re.Status >= 400 && re.Status < 500 {
		return re.Status
	}
	return http.StatusBadGateway
}
