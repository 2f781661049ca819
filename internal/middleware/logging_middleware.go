package middleware

import (
	"time"

	"github.com/annel0/arena-core/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи
// в серверный компонентный логгер. Служебные пути (health, metrics)
// логируются только на уровне Debug.
type RequestLogger struct {
	log   *logging.Logger
	quiet map[string]bool
}

func NewRequestLogger(quietPaths ...string) *RequestLogger {
	q := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		q[p] = true
	}
	return &RequestLogger{log: logging.GetServerLogger(), quiet: q}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пытаемся извлечь trace-id из OpenTelemetry, если уже создан.
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		logf := rl.log.Info
		if rl.quiet[path] {
			logf = rl.log.Debug
		}
		logf("[HTTP] %s %s %d %s ip=%s trace=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), traceID)
	}
}
