package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/auth"
	"github.com/mkpublisher/showcase/internal/auth/domain"
	"github.com/mkpublisher/showcase/internal/remote"
)

func bearerSession(c *gin.Context) *remote.Session {
	return &remote.Session{
		AccessToken: auth.AccessToken(c),
		User:        remote.User{ID: auth.UserID(c), Email: auth.Email(c)},
	}
}

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	p, err := h.facade.GetProfile(c.Request.Context(), bearerSession(c), userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": domain.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": p})
}

// UpdateProfile updates the profile row and, if the email changed, the auth email.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	rep, err := h.facade.UpdateProfile(c.Request.Context(), bearerSession(c), userID, remote.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": domain.UserMessage(err), "report": rep, "partial": rep.Partial()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "report": rep})
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	var req domain.PasswordChange
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	if err := h.facade.UpdatePassword(c.Request.Context(), bearerSession(c), req); err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": domain.UserMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	rep, err := h.facade.DeleteAccount(c.Request.Context(), bearerSession(c), userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": domain.UserMessage(err), "report": rep, "partial": rep.Partial()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "report": rep})
}
