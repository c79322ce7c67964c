package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP    = "default-src 'none'; frame-ancestors 'none'"
	uploadCSP = "default-src 'none'; sandbox"
)

// SecurityHeaders 安全 HTTP 头中间件
// uploadsPrefix 下是用户上传的文件，附加 sandbox 防止 HTML/SVG 在本域执行脚本
func SecurityHeaders(uploadsPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if uploadsPrefix != "" && strings.HasPrefix(c.Request.URL.Path, uploadsPrefix+"/") {
			h.Set("Content-Security-Policy", uploadCSP)
		} else {
			h.Set("Content-Security-Policy", apiCSP)
		}

		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000")
		}

		c.Next()
	}
}
