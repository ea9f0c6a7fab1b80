package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/auth"
	"github.com/mkpublisher/showcase/internal/auth/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

func (h *Handler) SignUp(c *gin.Context) {
	var in domain.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}

	sess, rep, err := h.facade.SignUp(c.Request.Context(), in)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"ok":      false,
			"error":   domain.UserMessage(err),
			"report":  rep,
			"partial": rep.Partial(),
			"session": toSessionResponse(sess),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "report": rep, "session": toSessionResponse(sess)})
}

func (h *Handler) SignIn(c *gin.Context) {
	var in domain.Credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
		return
	}

	sess, err := h.facade.SignIn(c.Request.Context(), in)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": domain.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "session": toSessionResponse(sess)})
}

func (h *Handler) SignOut(c *gin.Context) {
	sess := &remote.Session{AccessToken: auth.AccessToken(c)}
	if err := h.facade.SignOut(c.Request.Context(), sess, nil); err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": domain.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
