// Package session keeps interactive sandboxes alive between requests.
//
// A session owns one program. Clients drive it over a websocket stream:
// run its payload, append more top-level code, invoke exported functions.
// Links named in Remote are not served by the server: a client attaches a
// host connection and the session's bridge routes those roots to it.
package session
