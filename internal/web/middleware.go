package web

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/logging"
	"github.com/mkpublisher/showcase/internal/remote"
)

const ctxSession = "web_session"

// withSession resolves the browser's session once per request. A session
// that cannot be read is treated as signed out.
func (ctl *Controller) withSession(c *gin.Context) {
	sess, err := ctl.sessions.Current(c.Request)
	if err != nil {
		logging.NewLogger(c.Request.Context()).LogWarnf("session.lookup", "session lookup failed: %v", err)
		sess = nil
	}
	if sess != nil {
		c.Set(ctxSession, sess)
	}
	c.Next()
}

func currentSession(c *gin.Context) *remote.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	s, _ := v.(*remote.Session)
	return s
}

func currentUser(c *gin.Context) *remote.User {
	s := currentSession(c)
	if s == nil {
		return nil
	}
	u := s.User
	return &u
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

func loginURL(next, notice string) string {
	q := url.Values{}
	q.Set("next", safeNext(next))
	if notice != "" {
		q.Set("notice", notice)
	}
	return "/login?" + q.Encode()
}
