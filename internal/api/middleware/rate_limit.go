package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krrishnaik/Markly/pkg/redis"
	"github.com/krrishnaik/Markly/pkg/response"
)

// RateLimit 基于 Redis 固定窗口计数的限流，按 scope 分组计数。
// 已认证请求按 user_id 计数，匿名请求（登录）按客户端 IP 计数。
// rdb 为 nil 或 Redis 出错时降级放行（与 JWTAuth 策略一致）。
func RateLimit(rdb *redis.Client, scope string, limit int, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), rateLimitKey(c, scope), limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", retryAfter)
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateLimitKey 形如 login:ip:10.0.0.1 或 ics_import:user:u3
func rateLimitKey(c *gin.Context, scope string) string {
	if uid := c.GetString(ctxUserID); uid != "" {
		return scope + ":user:" + uid
	}
	return scope + ":ip:" + c.ClientIP()
}
