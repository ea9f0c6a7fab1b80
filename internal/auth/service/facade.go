package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/auth/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

// Facade is a thin pass-through over the backend's auth service and profiles
// table. It does not retry; every call is a single remote round trip.
type Facade struct {
	auth     remote.Auth
	profiles remote.Profiles
	projects remote.Projects
	log      logrus.FieldLogger
}

func NewFacade(b remote.Backend, log logrus.FieldLogger) *Facade {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Facade{
		auth:     b.Auth,
		profiles: b.Profiles,
		projects: b.Projects,
		log:      log.WithField("component", "auth"),
	}
}

func token(s *remote.Session) string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}

// SignUp creates the identity and then the profile row. A profile failure is
// reported but the identity stays; the returned session is still valid.
func (f *Facade) SignUp(ctx context.Context, in domain.SignUpInput) (*remote.Session, domain.Report, error) {
	in = in.Normalize()
	rep := domain.Report{Op: domain.OpSignUp}
	if in.Email == "" || in.Password == "" {
		return nil, rep, domain.ErrMissingCredential
	}

	res, err := f.auth.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		rep.Fail(domain.StepCreateIdentity, err)
		rep.Skip(domain.StepCreateProfile, "identity not created")
		return nil, rep, &domain.StepError{Op: rep.Op, Step: domain.StepCreateIdentity, Err: err}
	}
	rep.OK(domain.StepCreateIdentity, res.User.ID)

	err = f.profiles.Insert(ctx, token(res.Session), remote.Profile{
		ID:    res.User.ID,
		Name:  in.FullName,
		Email: in.Email,
	})
	if err != nil {
		rep.Fail(domain.StepCreateProfile, err)
		f.log.WithFields(logrus.Fields{"user_id": res.User.ID, "error": err}).
			Warn("identity created but profile insert failed")
		return res.Session, rep, &domain.StepError{Op: rep.Op, Step: domain.StepCreateProfile, Err: err}
	}
	rep.OK(domain.StepCreateProfile, "")
	return res.Session, rep, nil
}

func (f *Facade) SignIn(ctx context.Context, c domain.Credentials) (*remote.Session, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" || c.Password == "" {
		return nil, domain.ErrMissingCredential
	}
	return f.auth.SignInWithPassword(ctx, email, c.Password)
}

// SignOut ends the remote session. clearLocal always runs, so the browser is
// signed out even when the remote call fails; that failure is still returned.
func (f *Facade) SignOut(ctx context.Context, s *remote.Session, clearLocal func()) error {
	var err error
	if s != nil {
		err = f.auth.SignOut(ctx, s.AccessToken)
		if err != nil {
			f.log.WithError(err).Warn("remote sign out failed; clearing local session anyway")
		}
	}
	if clearLocal != nil {
		clearLocal()
	}
	return err
}

func (f *Facade) GetProfile(ctx context.Context, s *remote.Session, userID string) (*remote.Profile, error) {
	if s == nil {
		return nil, domain.ErrNotSignedIn
	}
	return f.profiles.Get(ctx, s.AccessToken, userID)
}

// UpdateProfile writes the profile row and, when the email changes, the auth
// email. The two writes are independent: if the second fails the profile keeps
// the new email while the identity keeps the old one.
func (f *Facade) UpdateProfile(ctx context.Context, s *remote.Session, userID string, u remote.ProfileUpdate) (domain.Report, error) {
	rep := domain.Report{Op: domain.OpUpdateProfile}
	if s == nil {
		return rep, domain.ErrNotSignedIn
	}
	if u.Empty() {
		return rep, domain.ErrNothingToUpdate
	}

	if err := f.profiles.Update(ctx, s.AccessToken, userID, u); err != nil {
		rep.Fail(domain.StepUpdateProfile, err)
		if u.Email != nil {
			rep.Skip(domain.StepUpdateAuthEmail, "profile not updated")
		}
		return rep, &domain.StepError{Op: rep.Op, Step: domain.StepUpdateProfile, Err: err}
	}
	rep.OK(domain.StepUpdateProfile, "")

	if u.Email == nil {
		return rep, nil
	}
	if _, err := f.auth.UpdateUser(ctx, s.AccessToken, remote.UserAttributes{Email: *u.Email}); err != nil {
		rep.Fail(domain.StepUpdateAuthEmail, err)
		f.log.WithFields(logrus.Fields{"user_id": userID, "error": err}).
			Warn("profile updated but auth email update failed")
		return rep, &domain.StepError{Op: rep.Op, Step: domain.StepUpdateAuthEmail, Err: err}
	}
	rep.OK(domain.StepUpdateAuthEmail, "")
	return rep, nil
}

func (f *Facade) UpdatePassword(ctx context.Context, s *remote.Session, p domain.PasswordChange) error {
	if s == nil {
		return domain.ErrNotSignedIn
	}
	if err := p.Check(); err != nil {
		return err
	}
	_, err := f.auth.UpdateUser(ctx, s.AccessToken, remote.UserAttributes{Password: p.Password})
	return err
}

// DeleteAccount removes the user's projects and then the profile. The profile
// is only touched once the projects are gone. The auth identity needs a
// privileged key and is left in place.
func (f *Facade) DeleteAccount(ctx context.Context, s *remote.Session, userID string) (domain.Report, error) {
	rep := domain.Report{Op: domain.OpDeleteAccount}
	if s == nil {
		return rep, domain.ErrNotSignedIn
	}

	n, err := f.projects.DeleteByUser(ctx, s.AccessToken, userID)
	if err != nil {
		rep.Fail(domain.StepDeleteProjects, err)
		rep.Skip(domain.StepDeleteProfile, "projects not deleted")
		rep.Skip(domain.StepDeleteIdentity, "requires service role")
		return rep, &domain.StepError{Op: rep.Op, Step: domain.StepDeleteProjects, Err: err}
	}
	rep.OK(domain.StepDeleteProjects, strconv.Itoa(n)+" rows")

	if err := f.profiles.Delete(ctx, s.AccessToken, userID); err != nil {
		rep.Fail(domain.StepDeleteProfile, err)
		rep.Skip(domain.StepDeleteIdentity, "requires service role")
		f.log.WithFields(logrus.Fields{"user_id": userID, "projects_deleted": n, "error": err}).
			Warn("projects deleted but profile delete failed")
		return rep, &domain.StepError{Op: rep.Op, Step: domain.StepDeleteProfile, Err: err}
	}
	rep.OK(domain.StepDeleteProfile, "")
	rep.Skip(domain.StepDeleteIdentity, "requires service role")

	f.log.WithFields(logrus.Fields{"user_id": userID, "projects_deleted": n}).Info("account data deleted")
	return rep, nil
}
