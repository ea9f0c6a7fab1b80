package web

import (
	"errors"

	authdomain "github.com/mkpublisher/showcase/internal/auth/domain"
	projectdomain "github.com/mkpublisher/showcase/internal/projects/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

// isValidation reports whether err was caught before reaching the backend,
// or was a client error reported by it.
func isValidation(err error) bool {
	switch {
	case errors.Is(err, projectdomain.ErrMissingField),
		errors.Is(err, authdomain.ErrMissingCredential),
		errors.Is(err, authdomain.ErrMissingPassword),
		errors.Is(err, authdomain.ErrPasswordMismatch),
		errors.Is(err, authdomain.ErrNothingToUpdate):
		return true
	}
	var re *remote.Error
	return errors.As(err, &re) && re.Status >= 400 && re.Status < 500
}
