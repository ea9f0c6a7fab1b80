package http

import "github.com/gin-gonic/gin"

// Register attaches project routes. Creating requires the bearer middleware,
// passed as auth.
func (h *Handler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("", h.list)
	rg.POST("", auth, h.create)
}
