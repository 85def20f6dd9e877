package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// The API serves JSON only, so the default policy locks everything down.
// The Swagger page is the one HTML surface and needs CDN assets plus its
// inline bootstrap script.
var (
	apiCSP = "default-src 'none'"

	swaggerCSP = strings.Join([]string{
		"default-src 'self'",
		"base-uri 'none'",
		"frame-ancestors 'none'",
		"object-src 'none'",
		"connect-src 'self'",
		"img-src 'self' data: https:",
		"font-src 'self' https://unpkg.com data:",
		"style-src 'self' 'unsafe-inline' https://unpkg.com",
		"script-src 'self' 'unsafe-inline' https://unpkg.com",
	}, "; ")
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-XSS-Protection", "0")

		csp := apiCSP

		if strings.HasPrefix(c.Request.URL.Path, "/swagger") {
			csp = swaggerCSP
		}

		h.Set("Content-Security-Policy", csp)

		c.Next()
	}
}
