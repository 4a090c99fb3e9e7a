// Package server assembles the sandbox service: configuration, logging,
// metrics, the runner, sessions and the reference pool behind one gin
// router.
package server
