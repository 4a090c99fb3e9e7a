package tracing

import (
	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens a span per request. It honours incoming trace
// headers, falls back to X-Request-ID as the trace ID, and echoes the IDs
// on the response.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := TraceID(c.GetHeader(HeaderTraceID))
		if traceID == "" {
			traceID = TraceID(c.GetHeader(HeaderRequestID))
		}
		ctx := WithRemote(c.Request.Context(), traceID, SpanID(c.GetHeader(HeaderSpanID)))

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))
		c.Header(HeaderRequestID, string(span.TraceID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		tracer.Finish(span)
	}
}
