/*
Package reference runs guest programs on goja, a conventional JavaScript
engine, so results from the step interpreter can be compared against a
well-tested implementation.

# Overview

Each Runtime owns one goja VM with the host-reaching globals removed and a
console that records output instead of printing it. Execution is bounded by
a timeout and by the caller's context, both enforced through goja's
interrupt mechanism.

The Pool keeps a fixed number of runtimes warm for the HTTP comparison
endpoint. Runtimes are reset between uses so no state leaks from one program
to the next.

# Usage

	rt, err := reference.New(reference.DefaultConfig())
	if err != nil {
	    return err
	}
	defer rt.Close()

	res, err := rt.Execute(ctx, "JSON.stringify([1, 2].map(function(x) { return x * 2 }))")
*/
package reference
