package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/catalog"
	"github.com/mkpublisher/showcase/internal/logging"
	projectdomain "github.com/mkpublisher/showcase/internal/projects/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

const recentCount = 5

// notices are the fixed messages a redirect can ask a page to show.
var notices = map[string]string{
	"create":  projectdomain.SignInRequiredMessage,
	"account": "You must be logged in to manage your account",
	"confirm": "Check your email to confirm your account, then sign in",
	"deleted": "Your account data has been deleted",
}

type homeData struct {
	Loading    bool
	FetchError string
	Projects   []remote.Project
	Recent     []remote.Project
	CreateOpen bool
	CreateErr  string
	Form       projectdomain.Submission
}

func (ctl *Controller) homeData(q string) homeData {
	st, msg := ctl.catalog.Status()
	return homeData{
		Loading:    st == catalog.StatusLoading,
		FetchError: msg,
		Projects:   ctl.catalog.Filter(q),
		Recent:     ctl.catalog.Recent(recentCount),
	}
}

func (ctl *Controller) home(c *gin.Context) {
	q := c.Query("q")
	if c.Query("create") == "1" && currentUser(c) == nil {
		c.Redirect(http.StatusSeeOther, loginURL("/?create=1", "create"))
		return
	}
	data := ctl.homeData(q)
	data.CreateOpen = c.Query("create") == "1"

	ctl.render(c, http.StatusOK, pageHome, view{
		Query:  q,
		Notice: notices[c.Query("notice")],
		Data:   data,
	})
}

// createProject handles the create form. Without a session the browser is
// sent to sign in and nothing is sent to the backend.
func (ctl *Controller) createProject(c *gin.Context) {
	var form projectdomain.Submission
	_ = c.ShouldBind(&form)

	sess := currentSession(c)
	if sess == nil {
		c.Redirect(http.StatusSeeOther, loginURL("/", "create"))
		return
	}

	user := sess.User
	p, err := ctl.projects.Submit(c.Request.Context(), &user, sess.AccessToken, form)
	if err != nil {
		data := ctl.homeData("")
		data.CreateOpen = true
		data.CreateErr = projectdomain.UserMessage(err)
		data.Form = form
		status := http.StatusBadGateway
		if isValidation(err) {
			status = http.StatusBadRequest
		}
		ctl.render(c, status, pageHome, view{Data: data})
		return
	}

	logging.NewLogger(c.Request.Context()).LogInfof("projects.create", "project %s created by %s", p.ID, user.ID)
	c.Redirect(http.StatusSeeOther, "/")
}
