package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/user/cinematch/internal/metrics"
)

// Metrics 按路由模板统计请求数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
