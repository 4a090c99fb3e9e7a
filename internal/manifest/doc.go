// Package manifest reads host manifests: files that describe one sandbox run.
//
// A manifest names the payload (inline or as a file next to the manifest),
// the host values linked into the guest, the services mounted from the
// registry, the guest functions exported back to the host and the calls made
// on them once the payload's top level has run.
//
// Formats are chosen by extension:
//
//	.yaml, .yml  goccy/go-yaml
//	.toml        pelletier/go-toml/v2
//	.json        bytedance/sonic
//
// Example:
//
//	name: totals
//	payload: totals.js
//	services: [math]
//	links:
//	  prices: [3, 4.5, 10]
//	  tax: 0.2
//	exports: [total]
//	calls:
//	  - export: total
//	    args: [2]
package manifest
