package domain

import (
	"errors"
	"fmt"
)

const (
	SignInRequiredMessage = "You must be logged in to create a project"
	CreateFailedMessage   = "Failed to create project"
)

var (
	ErrSignInRequired = errors.New("sign in required")
	ErrMissingField   = errors.New("missing required field")
	ErrCreateFailed   = errors.New("create project failed")
)

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// UserMessage is the single line shown for a failed submission.
func UserMessage(err error) string {
	var mf *MissingFieldError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignInRequired):
		return SignInRequiredMessage
	case errors.As(err, &mf):
		return "Project " + mf.Field + " is required"
	}
	return CreateFailedMessage
}
