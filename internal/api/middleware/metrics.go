package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/pkg/metrics"
)

// Metrics 按路由模板记录请求数与耗时
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
