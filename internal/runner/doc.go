// Package runner executes manifests in fresh sandboxes and keeps the reports
// of recent runs.
//
// Each run gets its own program and host. Registry services named by the
// manifest are mounted under their service ID, links are bound in name
// order, and exported calls run after the payload's top level. A run ends
// with one of the monitoring outcomes; only setup failures (unreadable
// payload, unknown service, unlinkable value) are returned as errors.
package runner
