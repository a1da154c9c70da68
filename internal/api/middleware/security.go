package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiCSP 接口只返回 JSON 与 xlsx 附件，不加载任何页面资源
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders 安全响应头。
// /api 下的响应含学生考勤数据，额外禁止任何缓存。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", apiCSP)

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
