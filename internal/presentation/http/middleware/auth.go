package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vistaoptics/pos-api/internal/infrastructure/backend"
	"github.com/vistaoptics/pos-api/internal/presentation/http/dto/response"
)

// SessionMiddleware requires the ambient backend session cookie and the
// operator identity headers. Authentication itself is owned by the retail
// backend: this service only forwards the cookie and rejects requests that
// carry no session at all.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie := c.GetHeader("Cookie")
		if cookie == "" {
			response.Unauthorized(c, "Backend session cookie is required")
			c.Abort()
			return
		}

		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(c, "X-User-ID header is required")
			c.Abort()
			return
		}

		branchID, _ := strconv.ParseInt(c.GetHeader("X-Branch-ID"), 10, 64)

		c.Set("user_id", userID)
		c.Set("branch_id", branchID)

		// Downstream backend calls reuse the caller's session verbatim.
		ctx := backend.WithSession(c.Request.Context(), cookie)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
