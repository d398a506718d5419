package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger returns a Gin middleware that logs each request using zap. Paths
// listed in quiet are logged at debug level.
func Logger(log *zap.Logger, quiet ...string) gin.HandlerFunc {
	quietSet := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		quietSet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		level := zapcore.InfoLevel
		if _, ok := quietSet[path]; ok {
			level = zapcore.DebugLevel
		}
		if c.Writer.Status() >= 500 {
			level = zapcore.ErrorLevel
		}
		if ce := log.Check(level, "request"); ce != nil {
			ce.Write(
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.ClientIP()),
				zap.String("analysis_id", AnalysisID(c)),
			)
		}
	}
}
