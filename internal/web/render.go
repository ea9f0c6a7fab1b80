package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/catalog"
	"github.com/mkpublisher/showcase/internal/remote"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	pageHome          = "home.html"
	pageLogin         = "login.html"
	pageSignup        = "signup.html"
	pageAccount       = "account.html"
	pageConfirmDelete = "delete.html"
)

var pageNames = []string{pageHome, pageLogin, pageSignup, pageAccount, pageConfirmDelete}

type pages struct {
	byName map[string]*template.Template
}

var funcs = template.FuncMap{
	"stars": starsOf,
	"date":  formatDate,
}

func starsOf(p remote.Project) []catalog.Star {
	return catalog.Stars(p.Rating)
}

func formatDate(p remote.Project) string {
	if p.CreatedAt.IsZero() {
		return ""
	}
	return p.CreatedAt.Format("Jan 2, 2006")
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// view is the data every page receives.
type view struct {
	User   *remote.User
	Query  string
	Notice string
	Error  string
	Data   any
}

func (ctl *Controller) render(c *gin.Context, status int, name string, v view) {
	if v.User == nil {
		v.User = currentUser(c)
	}
	t, ok := ctl.pages.byName[name]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown page")
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		ctl.log.WithFields(logrus.Fields{"page": name, "error": err}).Error("render failed")
		c.String(http.StatusInternalServerError, "render failed")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
