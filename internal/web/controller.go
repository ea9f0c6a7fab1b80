// Package web serves the server-rendered pages: the catalog, the create form,
// sign in and sign up, account settings, the live event stream and the feed.
package web

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	authsvc "github.com/mkpublisher/showcase/internal/auth/service"
	"github.com/mkpublisher/showcase/internal/catalog"
	projectsvc "github.com/mkpublisher/showcase/internal/projects/service"
	"github.com/mkpublisher/showcase/internal/realtime"
	"github.com/mkpublisher/showcase/internal/session"
)

// Deps are the collaborators of the page controller.
type Deps struct {
	Facade   *authsvc.Facade
	Sessions *session.Manager
	Projects *projectsvc.Service
	Catalog  *catalog.State
	Hub      *realtime.Hub
	Log      logrus.FieldLogger
	// BaseURL is the public origin used in the feed.
	BaseURL string
}

// Controller renders pages and handles their forms.
type Controller struct {
	facade   *authsvc.Facade
	sessions *session.Manager
	projects *projectsvc.Service
	catalog  *catalog.State
	hub      *realtime.Hub
	log      logrus.FieldLogger
	baseURL  string
	pages    *pages
}

func New(d Deps) (*Controller, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		facade:   d.Facade,
		sessions: d.Sessions,
		projects: d.Projects,
		catalog:  d.Catalog,
		hub:      d.Hub,
		log:      log.WithField("component", "web"),
		baseURL:  d.BaseURL,
		pages:    p,
	}, nil
}

// Register mounts the pages on r.
func (ctl *Controller) Register(r gin.IRouter) {
	static, _ := fs.Sub(assets, "static")
	r.StaticFS("/static", http.FS(static))

	r.Use(ctl.withSession)

	r.GET("/", ctl.home)
	r.POST("/projects", ctl.createProject)

	r.GET("/login", ctl.loginForm)
	r.POST("/login", ctl.login)
	r.GET("/signup", ctl.signupForm)
	r.POST("/signup", ctl.signup)
	r.POST("/logout", ctl.logout)

	r.GET("/account", ctl.account)
	r.POST("/account/profile", ctl.updateProfile)
	r.POST("/account/password", ctl.updatePassword)
	r.GET("/account/delete", ctl.confirmDelete)
	r.POST("/account/delete", ctl.deleteAccount)

	r.GET("/events", ctl.events)
	r.GET("/feed.xml", ctl.feed)
}
