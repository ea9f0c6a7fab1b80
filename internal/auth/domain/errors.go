package domain

import (
	"errors"

	"github.com/mkpublisher/showcase/internal/remote"
)

var (
	ErrNotSignedIn       = errors.New("not signed in")
	ErrMissingCredential = errors.New("email and password are required")
	ErrMissingPassword   = errors.New("password is required")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrNothingToUpdate   = errors.New("nothing to update")
)

// generic messages shown when the backend gave no message of its own
var fallbackMessages = map[string]string{
	OpSignUp:        "Failed to create account",
	OpUpdateProfile: "Failed to update profile",
	OpDeleteAccount: "Failed to delete account",
}

// UserMessage reduces err to one line suitable for a form or flash message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotSignedIn):
		return "You must be logged in"
	case errors.Is(err, ErrMissingCredential):
		return "Email and password are required"
	case errors.Is(err, ErrMissingPassword):
		return "Password is required"
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, ErrNothingToUpdate):
		return "Nothing to update"
	}

	if msg := remote.Message(err); msg != "" {
		return msg
	}
	if se, ok := AsStepError(err); ok {
		if msg, ok := fallbackMessages[se.Op]; ok {
			return msg
		}
	}
	return "Something went wrong, please try again"
}
