package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/utils"
)

type CorsHandler struct {
	allowedOrigins []string
}

func NewCorsHandler(allowedOrigins []string) *CorsHandler {
	return &CorsHandler{allowedOrigins: allowedOrigins}
}

// CorsMiddleware echoes an allowed origin so the auth cookie is sent along.
// Other origins get no CORS headers and the browser blocks the response.
func (h *CorsHandler) CorsMiddleware(c *gin.Context) {
	origin := c.GetHeader("Origin")
	c.Writer.Header().Add("Vary", "Origin")
	if origin != "" && utils.OriginAllowed(origin, c.Request.Host, h.allowedOrigins) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	}

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
