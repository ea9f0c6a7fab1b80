package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID      = "user_id"
	CtxEmail       = "email"
	CtxAccessToken = "access_token"
)

// UserID extracts the authenticated user id from the Gin context.
// This is set by the bearer middleware.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

func Email(c *gin.Context) string {
	return c.GetString(CtxEmail)
}

// AccessToken is the raw bearer token, forwarded to the backend so that its
// row-level policies apply to the caller.
func AccessToken(c *gin.Context) string {
	return c.GetString(CtxAccessToken)
}
