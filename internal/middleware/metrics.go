package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/metrics"
)

// Metrics counts requests per matched route. Unmatched paths share one
// label so scanners cannot blow up the series count.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
