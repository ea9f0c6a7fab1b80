package http

import "github.com/gin-gonic/gin"

// Register mounts the auth endpoints on public and the account endpoints on
// protected, which must run the bearer middleware.
func (h *Handler) Register(public, protected *gin.RouterGroup) {
	public.POST("/auth/signup", h.SignUp)
	public.POST("/auth/signin", h.SignIn)
	protected.POST("/auth/signout", h.SignOut)

	protected.GET("/account/profile", h.GetProfile)
	protected.PUT("/account/profile", h.UpdateProfile)
	protected.PUT("/account/password", h.UpdatePassword)
	protected.DELETE("/account", h.DeleteAccount)
}
