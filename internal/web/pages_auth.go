package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "github.com/mkpublisher/showcase/internal/auth/domain"
	"github.com/mkpublisher/showcase/internal/logging"
	"github.com/mkpublisher/showcase/internal/remote"
)

type authData struct {
	Next     string
	Email    string
	FullName string
}

func (ctl *Controller) loginForm(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusSeeOther, safeNext(c.Query("next")))
		return
	}
	ctl.render(c, http.StatusOK, pageLogin, view{
		Notice: notices[c.Query("notice")],
		Data:   authData{Next: safeNext(c.Query("next"))},
	})
}

func (ctl *Controller) login(c *gin.Context) {
	var form authdomain.Credentials
	_ = c.ShouldBind(&form)
	next := safeNext(c.PostForm("next"))

	sess, err := ctl.facade.SignIn(c.Request.Context(), form)
	if err != nil {
		ctl.render(c, statusOf(err), pageLogin, view{
			Error: authdomain.UserMessage(err),
			Data:  authData{Next: next, Email: form.Email},
		})
		return
	}

	if _, err := ctl.sessions.Establish(c.Writer, c.Request, sess, remote.EventSignedIn); err != nil {
		logging.NewLogger(c.Request.Context()).LogError("session.establish", err)
		ctl.render(c, http.StatusInternalServerError, pageLogin, view{
			Error: "Something went wrong, please try again",
			Data:  authData{Next: next, Email: form.Email},
		})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

func (ctl *Controller) signupForm(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	ctl.render(c, http.StatusOK, pageSignup, view{Data: authData{Next: safeNext(c.Query("next"))}})
}

// signup creates the account. When the profile insert fails after the
// identity was created the user is still signed in; the failed step is logged.
func (ctl *Controller) signup(c *gin.Context) {
	var form authdomain.SignUpInput
	_ = c.ShouldBind(&form)
	next := safeNext(c.PostForm("next"))
	log := logging.NewLogger(c.Request.Context())

	sess, rep, err := ctl.facade.SignUp(c.Request.Context(), form)
	if err != nil && sess == nil {
		ctl.render(c, statusOf(err), pageSignup, view{
			Error: authdomain.UserMessage(err),
			Data:  authData{Next: next, Email: form.Email, FullName: form.FullName},
		})
		return
	}
	if err != nil {
		log.LogWarnf("auth.signup", "partial sign up: %v", err)
	}

	if sess == nil {
		// the backend wants the email confirmed before the first sign in
		c.Redirect(http.StatusSeeOther, loginURL(next, "confirm"))
		return
	}
	if _, err := ctl.sessions.Establish(c.Writer, c.Request, sess, remote.EventSignedIn); err != nil {
		log.LogError("session.establish", err)
		c.Redirect(http.StatusSeeOther, loginURL(next, ""))
		return
	}
	log.LogInfof("auth.signup", "account created (%d steps)", len(rep.Steps))
	c.Redirect(http.StatusSeeOther, next)
}

// logout ends the remote session and always clears the browser's session.
func (ctl *Controller) logout(c *gin.Context) {
	sess := currentSession(c)
	err := ctl.facade.SignOut(c.Request.Context(), sess, func() {
		if cerr := ctl.sessions.Clear(c.Writer, c.Request); cerr != nil {
			logging.NewLogger(c.Request.Context()).LogError("session.clear", cerr)
		}
	})
	if err != nil {
		logging.NewLogger(c.Request.Context()).LogWarnf("auth.signout", "remote sign out failed: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func statusOf(err error) int {
	if isValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
