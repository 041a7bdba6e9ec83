package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"task-manager-api/internal/core/ratelimit"
	resp "task-manager-api/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "", nil)
	}
}

// WindowLimit 按客户端地址的滑动窗口限流；同一个实例挂在多个路由上时共享计数
func WindowLimit(store ratelimit.Store, name string, limit int, window time.Duration, l *zap.Logger) gin.HandlerFunc {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		res, err := store.Hit(c.Request.Context(), name+":"+ip, limit, window)
		if err != nil {
			// 存储不可用时放行
			l.Warn("rate limit store failed", zap.String("limiter", name), zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}

		reset := strconv.Itoa(int(math.Ceil(res.ResetAfter.Seconds())))
		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("RateLimit-Reset", reset)
		if !res.Allowed {
			h.Set("Retry-After", reset)
			rateLimited.WithLabelValues(name).Inc()
			l.Warn("rate limited", zap.String("limiter", name), zap.String("ip", ip))
			resp.Abort(c, http.StatusTooManyRequests, resp.CodeMsgMap[resp.CodeTooManyRequests], nil)
			return
		}
		c.Next()
	}
}
