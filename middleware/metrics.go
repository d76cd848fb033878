package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/yashrajoria/bike-store/pkg/aws"
)

// Metrics records request count, latency and error classes. Datapoints are
// sent from a goroutine so CloudWatch latency never reaches the client.
func Metrics(recorder aws_pkg.Recorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil || !recorder.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		// Route template, so /bike-details/:id is one series rather than one per id.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    path,
			"Status":  statusRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTPRequests, dimensions)
			_ = recorder.RecordLatency(ctx, aws_pkg.MetricHTTPLatency, duration, dimensions)
			if status >= 400 {
				_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTPErrors, dimensions)
				if status >= 500 {
					_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTP5xx, dimensions)
				} else {
					_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTP4xx, dimensions)
				}
			}
		}()
	}
}

func statusRange(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
