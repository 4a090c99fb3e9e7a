/*
Package http serves the sandbox over REST.

	GET    /                  service banner
	GET    /health            liveness and component stats
	POST   /run               run a manifest (JSON, YAML or TOML body)
	GET    /runs              recent run summaries
	GET    /runs/:id          one run report
	POST   /compare           run source here and in the reference runtime
	GET    /services          host services (?q= ranks, ?category= filters)
	GET    /services/:id      one service definition
	POST   /sessions          open an interactive session
	GET    /sessions          live sessions
	DELETE /sessions/:id      close a session
	GET    /stats             JSON counters
	GET    /metrics           Prometheus exposition

Session streams live in package ws.
*/
package http
