/*
Package monitoring provides Prometheus metrics for the sandbox service.

# Overview

Metrics cover HTTP requests, sandbox runs (outcome, duration, steps), bridge
round trips by operation and status, regular expression activity, host
service tool calls, interactive sessions and WebSocket traffic.

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router.Use(monitoring.Middleware(metrics))

	prog, _ := loader.New(src, loader.WithObserver(metrics.BridgeObserver()))
	metrics.RecordRun(monitoring.OutcomeOK, elapsed, prog.Interpreter().Steps())

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
*/
package monitoring
