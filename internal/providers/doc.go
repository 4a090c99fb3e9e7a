// Package providers holds the host services a sandbox can be given.
//
// Each provider implements service.Provider: Definition describes the
// service and its tools, Execute runs one tool. Registered services are
// mounted into the bridge store at [serviceID, tool...], so guest code calls
// them as ordinary functions and passes arguments positionally:
//
//	math.mean([1, 2, 3])        // 2
//	system.log("ready", "info") // true
//
// Available providers:
//   - math: arithmetic, trigonometry, statistics and special functions
//     (gonum), arbitrary precision decimals, unit conversions
//   - system: host runtime info, clock, and a log shared across runs
package providers
