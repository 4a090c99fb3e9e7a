package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gojaref "github.com/GriffinCanCode/sandbox/internal/reference"
)

// TestAgainstReference runs the same programs through goja and compares the
// JSON rendering of their results.
func TestAgainstReference(t *testing.T) {
	ref, err := gojaref.New(gojaref.DefaultConfig())
	require.NoError(t, err)
	defer ref.Close()

	programs := map[string]string{
		"arithmetic": `JSON.stringify([1 + 2 * 3, 7 % 3, -7 % 3, 2 ** 8, 1 / 4, 5 / 2 | 0, -1 >>> 28, 1 << 31])`,
		"strings": `JSON.stringify(["abc".toUpperCase(), "a-b-c".split("-"), " x ".trim(), "abc".indexOf("c"),
			"abcdef".slice(1, -1), "ab".repeat(3), "x".padEnd(3, "."), "Hello".charAt(1)])`,
		"arrays": `var a = [5, 1, 4];
			a.push(2);
			JSON.stringify({ sorted: a.slice().sort(), mapped: a.map(function (x) { return x * x; }),
				joined: a.join("-"), idx: a.indexOf(4), last: a.lastIndexOf(9), spliced: a.splice(1, 1), rest: a })`,
		"objects": `var o = { z: 1, a: { b: [true, null, "s"] } };
			o.n = 3; delete o.z;
			JSON.stringify({ keys: Object.keys(o), copy: JSON.parse(JSON.stringify(o)), has: o.hasOwnProperty("n") })`,
		"closures": `function counter() { var n = 0; return { inc: function () { return ++n; }, get: function () { return n; } }; }
			var c = counter(); c.inc(); c.inc();
			JSON.stringify([c.get(), typeof c.inc])`,
		"exceptions": `var out = [];
			function risky(i) { if (i % 2) throw new TypeError("odd " + i); return i; }
			for (var i = 0; i < 4; i++) {
				try { out.push(risky(i)); } catch (e) { out.push(e.name + ":" + e.message); } finally { out.push("f"); }
			}
			JSON.stringify(out)`,
		"numbers": `JSON.stringify([(0.1).toFixed(3), (1234.5678).toFixed(1), (255).toString(2), parseInt("  17 "),
			parseFloat(".5"), Number("0x10"), isFinite("12"), Math.floor(-1.5), Math.abs(-3), 1e21, 1 / 3])`,
		"regexp": `var m = /(\d+)-(\d+)/.exec("range 10-20");
			JSON.stringify([m[1], m[2], m.index, "a1b2c3".replace(/\d/g, "#"), "one two".split(/\s+/),
				/^x/.test("xyz"), "aaa".lastIndexOf("a")])`,
		"labels": `var log = [];
			outer: for (var i = 0; i < 3; i++) { for (var j = 0; j < 3; j++) { if (j > i) continue outer; if (i === 2) break outer; log.push(i * 10 + j); } }
			JSON.stringify(log)`,
		"switch": `function kind(v) { switch (typeof v) { case "number": return "n"; case "string": return "s"; default: return "o"; } }
			JSON.stringify([kind(1), kind("a"), kind(null), kind(undefined)])`,
	}

	for name, src := range programs {
		t.Run(name, func(t *testing.T) {
			want, err := ref.Execute(context.Background(), src)
			require.NoError(t, err)
			assert.Equal(t, want.Value, eval(t, src))
		})
	}
}
