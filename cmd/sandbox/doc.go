// Command sandbox runs a manifest once and prints its report.
//
//	sandbox [-json] [-codec json|proto] [-max-steps N] [-timeout D] app.yaml
//
// The manifest may be YAML, TOML or JSON. Its payload path is resolved
// relative to the manifest. The exit status is 0 when the run finished
// normally, 1 when the guest failed and 2 on setup errors.
package main
