package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/repository"
)

// RateLimit 返回一个基于客户端 IP 的速率限制中间件。
// 计数器存在 Redis 中 (经由 LiveStateRepository.CheckRateLimit)，
// 多实例部署时共享同一套限额。
func RateLimit(live repository.LiveStateRepository, maxRequests int, window time.Duration) gin.HandlerFunc {
	if live == nil {
		panic("LiveStateRepository cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// 服务在反向代理后面时 ClientIP 依赖 gin 的 trusted proxy 配置
		key := "ratelimit:" + c.ClientIP()

		exceeded, err := live.CheckRateLimit(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logrus.WithError(err).Error("RateLimit: Check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}
		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
