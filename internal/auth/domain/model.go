package domain

import (
	"errors"
	"strings"
)

// Operation names used in reports.
const (
	OpSignUp        = "sign_up"
	OpUpdateProfile = "update_profile"
	OpDeleteAccount = "delete_account"
)

// Step names, in the order they run.
const (
	StepCreateIdentity  = "create_identity"
	StepCreateProfile   = "create_profile"
	StepUpdateProfile   = "update_profile"
	StepUpdateAuthEmail = "update_auth_email"
	StepDeleteProjects  = "delete_projects"
	StepDeleteProfile   = "delete_profile"
	StepDeleteIdentity  = "delete_identity"
)

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Step is the outcome of one remote call inside a multi-step operation.
type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Err    error      `json:"-"`
	// Detail is a short note such as a row count or the reason a step was skipped.
	Detail string `json:"detail,omitempty"`
}

// Report describes how far a multi-step operation got. The steps are not
// transactional: a failure after an ok step leaves the earlier effect in place.
type Report struct {
	Op    string `json:"op"`
	Steps []Step `json:"steps"`
}

// OK records a successful step.
func (r *Report) OK(name, detail string) {
	r.Steps = append(r.Steps, Step{Name: name, Status: StepOK, Detail: detail})
}

// Fail records a failed step.
func (r *Report) Fail(name string, err error) {
	r.Steps = append(r.Steps, Step{Name: name, Status: StepFailed, Err: err})
}

// Skip records a step that was not attempted.
func (r *Report) Skip(name, reason string) {
	r.Steps = append(r.Steps, Step{Name: name, Status: StepSkipped, Detail: reason})
}

// Step returns the step called name.
func (r Report) Step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// Failed reports whether any step failed.
func (r Report) Failed() bool {
	return r.Err() != nil
}

// Err returns the error of the first failed step.
func (r Report) Err() error {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return s.Err
		}
	}
	return nil
}

// Partial reports whether a step succeeded before a later one failed.
func (r Report) Partial() bool {
	seenOK := false
	for _, s := range r.Steps {
		switch s.Status {
		case StepOK:
			seenOK = true
		case StepFailed:
			return seenOK
		}
	}
	return false
}

// StepError is returned by facade operations when a step fails. It keeps the
// step name next to the remote error.
type StepError struct {
	Op   string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Op + ": " + e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

// AsStepError returns the failed step carried by err, if any.
func AsStepError(err error) (*StepError, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"full_name" form:"full_name"`
}

// Normalize trims the text fields.
func (in SignUpInput) Normalize() SignUpInput {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	return in
}

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// PasswordChange is the change-password form.
type PasswordChange struct {
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm_password" form:"confirm_password"`
}

// Check validates the form locally before any remote call.
func (p PasswordChange) Check() error {
	if p.Password == "" {
		return ErrMissingPassword
	}
	if p.Password != p.Confirm {
		return ErrPasswordMismatch
	}
	return nil
}
