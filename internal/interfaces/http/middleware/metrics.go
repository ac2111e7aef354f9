package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docs-agent-api/pkg/metrics"
)

// Metrics 按路由模板采集请求指标；skipPaths（如 /metrics 自身）不计入
func Metrics(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}

		inFlight := metrics.HTTPRequestsInFlight.WithLabelValues(path)
		inFlight.Inc()
		start := time.Now()
		defer inFlight.Dec()

		c.Next()

		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
