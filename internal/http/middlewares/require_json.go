package middlewares

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		// body-less requests (e.g. logout) are fine
		return r.ContentLength != 0
	default:
		return false
	}
}

// RequireJSON rejects mutating requests whose body is not declared as JSON.
// Parameters like charset are tolerated.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request) {
			c.Next()
			return
		}

		mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))

		if err != nil || mt != "application/json" {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": gin.H{
					"code":    "unsupported_media_type",
					"message": "Content-Type must be application/json",
				},
			})
			return
		}

		c.Next()
	}
}
