package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
)

const userContextKey = "user"

// CookieAuth verifies the session token carried in cookieName, or in a
// Bearer Authorization header. An empty secret disables verification.
func CookieAuth(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized", Message: "session token is required"})
			return
		}
		claims, err := utils.ParseUserToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized", Message: "invalid session token"})
			return
		}
		c.Set(userContextKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the verified claims of the request, if any.
func ClaimsFromContext(c *gin.Context) (*utils.UserClaims, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.UserClaims)
	return claims, ok
}
