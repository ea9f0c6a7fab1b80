package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/auth"
	"github.com/mkpublisher/showcase/internal/projects/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

func (h *Handler) create(c *gin.Context) {
	var req domain.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	var user *remote.User
	if id := auth.UserID(c); id != "" {
		user = &remote.User{ID: id, Email: auth.Email(c)}
	}

	p, err := h.svc.Submit(c.Request.Context(), user, auth.AccessToken(c), req)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, domain.ErrSignInRequired):
			status = http.StatusUnauthorized
		case errors.Is(err, domain.ErrMissingField):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"ok": false, "error": domain.UserMessage(err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	items := h.catalog.Filter(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}
