package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/mkpublisher/showcase/internal/auth/domain"
	"github.com/mkpublisher/showcase/internal/logging"
	"github.com/mkpublisher/showcase/internal/remote"
)

type accountData struct {
	Name  string
	Email string
	// Report is set after a multi-step operation so partial results are visible.
	Report *authdomain.Report
}

// requireSession returns the browser's session or redirects to sign in.
func (ctl *Controller) requireSession(c *gin.Context) *remote.Session {
	sess := currentSession(c)
	if sess == nil {
		c.Redirect(http.StatusSeeOther, loginURL(c.Request.URL.Path, "account"))
		return nil
	}
	return sess
}

func (ctl *Controller) accountData(c *gin.Context, sess *remote.Session) accountData {
	data := accountData{Email: sess.User.Email}
	p, err := ctl.facade.GetProfile(c.Request.Context(), sess, sess.User.ID)
	switch {
	case err == nil:
		data.Name, data.Email = p.Name, p.Email
	case errors.Is(err, remote.ErrNotFound):
	default:
		logging.NewLogger(c.Request.Context()).LogWarnf("account.profile", "profile lookup failed: %v", err)
	}
	return data
}

func (ctl *Controller) account(c *gin.Context) {
	sess := ctl.requireSession(c)
	if sess == nil {
		return
	}
	ctl.render(c, http.StatusOK, pageAccount, view{Data: ctl.accountData(c, sess)})
}

// updateProfile writes the changed fields only. A successful auth email
// change is stored in the browser's session and announced as USER_UPDATED.
func (ctl *Controller) updateProfile(c *gin.Context) {
	sess := ctl.requireSession(c)
	if sess == nil {
		return
	}
	current := ctl.accountData(c, sess)

	var u remote.ProfileUpdate
	if name := strings.TrimSpace(c.PostForm("name")); name != current.Name {
		u.Name = &name
	}
	if email := strings.TrimSpace(c.PostForm("email")); email != "" && email != current.Email {
		u.Email = &email
	}

	rep, err := ctl.facade.UpdateProfile(c.Request.Context(), sess, sess.User.ID, u)
	if step, ok := rep.Step(authdomain.StepUpdateAuthEmail); ok && step.Status == authdomain.StepOK {
		next := *sess
		next.User.Email = *u.Email
		if uerr := ctl.sessions.Update(c.Request.Context(), ctl.sessions.SID(c.Request), &next, remote.EventUserUpdated); uerr != nil {
			logging.NewLogger(c.Request.Context()).LogError("session.update", uerr)
		}
		sess = &next
		c.Set(ctxSession, sess)
	}

	data := ctl.accountData(c, sess)
	data.Report = &rep
	if err != nil {
		ctl.render(c, statusOf(err), pageAccount, view{Error: authdomain.UserMessage(err), Data: data})
		return
	}
	ctl.render(c, http.StatusOK, pageAccount, view{Notice: "Profile updated", Data: data})
}

func (ctl *Controller) updatePassword(c *gin.Context) {
	sess := ctl.requireSession(c)
	if sess == nil {
		return
	}
	var form authdomain.PasswordChange
	_ = c.ShouldBind(&form)

	if err := ctl.facade.UpdatePassword(c.Request.Context(), sess, form); err != nil {
		ctl.render(c, statusOf(err), pageAccount, view{Error: authdomain.UserMessage(err), Data: ctl.accountData(c, sess)})
		return
	}
	ctl.render(c, http.StatusOK, pageAccount, view{Notice: "Password updated", Data: ctl.accountData(c, sess)})
}

func (ctl *Controller) confirmDelete(c *gin.Context) {
	if ctl.requireSession(c) == nil {
		return
	}
	ctl.render(c, http.StatusOK, pageConfirmDelete, view{})
}

// deleteAccount removes the user's projects and profile, then signs out.
// On failure nothing more is attempted and the report is shown.
func (ctl *Controller) deleteAccount(c *gin.Context) {
	sess := ctl.requireSession(c)
	if sess == nil {
		return
	}
	log := logging.NewLogger(c.Request.Context())

	rep, err := ctl.facade.DeleteAccount(c.Request.Context(), sess, sess.User.ID)
	if err != nil {
		data := ctl.accountData(c, sess)
		data.Report = &rep
		ctl.render(c, statusOf(err), pageAccount, view{Error: authdomain.UserMessage(err), Data: data})
		return
	}

	serr := ctl.facade.SignOut(c.Request.Context(), sess, func() {
		if cerr := ctl.sessions.Clear(c.Writer, c.Request); cerr != nil {
			log.LogError("session.clear", cerr)
		}
	})
	if serr != nil {
		log.LogWarnf("auth.signout", "remote sign out after delete failed: %v", serr)
	}
	c.Redirect(http.StatusSeeOther, "/?notice=deleted")
}
