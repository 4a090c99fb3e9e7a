/*
Package tracing correlates the log lines of one request.

Each HTTP request gets a span whose trace ID comes from X-Trace-ID, then
X-Request-ID, and is generated otherwise. Handlers open child spans around
runs and session operations:

	span, ctx := tracer.StartSpan(c.Request.Context(), "run")
	defer tracer.Finish(span)
	span.SetTag("outcome", report.Outcome)

Finished spans are logged through zap by a background collector.
*/
package tracing
