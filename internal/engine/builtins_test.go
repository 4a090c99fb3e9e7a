package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		// operators and conversions
		{"typeof null", "typeof null", "object"},
		{"typeof function", "typeof function() {}", "function"},
		{"typeof undeclared", "typeof missing", "undefined"},
		{"string concat left", `"a" + 1 + 2`, "a12"},
		{"string concat right", `1 + 2 + "a"`, "3a"},
		{"float addition", "String(0.1 + 0.2)", "0.30000000000000004"},
		{"exponent", "2 ** 10", 1024.0},
		{"sequence", "(1, 2)", 2.0},
		{"conditional", `true ? "y" : "n"`, "y"},
		{"nullish", `null ?? "d"`, "d"},
		{"in operator", `"b" in {b: 1}`, true},
		{"boxed number", "new Number(5) + 1", 6.0},
		{"number from string", `Number("  12 ")`, 12.0},
		{"number exponent", `Number("1e3")`, 1000.0},
		{"number garbage", `Number("abc")`, "NaN"},
		{"isNaN coerces", `isNaN("x")`, true},
		{"radix", "(255).toString(16)", "ff"},
		{"toFixed", "(3.14159).toFixed(2)", "3.14"},
		{"parseInt suffix", `parseInt("42px")`, 42.0},
		{"parseInt hex", `parseInt("0x1f")`, 31.0},
		{"parseFloat prefix", `parseFloat("3.5e2abc")`, 350.0},
		{"Math.max", "Math.max(1, 5, 3)", 5.0},
		{"Math.round half", "Math.round(2.5)", 3.0},
		{"Math.round negative half", "Math.round(-2.5)", -2.0},

		// functions and scoping
		{"closure counter", "function mk() { var c = 0; return function() { return ++c; }; } var f = mk(); f(); f();", 2.0},
		{"block scoped let", "let a = 1; { let a = 2; } a;", 1.0},
		{"const assignment", "const c = 1; var r; try { c = 2; } catch (e) { r = e.name; } r;", "TypeError"},
		{"arrow this", "var o = { v: 1, f: function() { return (() => this.v)(); } }; o.f();", 1.0},
		{"rest parameters", "function f(a, ...r) { return r.length; } f(1, 2, 3);", 2.0},
		{"arguments", "function f() { return arguments.length; } f(1, 2, 3);", 3.0},
		{"strict undeclared", `(function() { "use strict"; try { undeclared = 1; } catch (e) { return e.name; } })()`, "ReferenceError"},
		{"call", "function f(a, b) { return this.base + a + b; } f.call({ base: 1 }, 2, 3);", 6.0},
		{"apply", "function f(a, b) { return this.base + a + b; } f.apply({ base: 1 }, [2, 3]);", 6.0},
		{"bind", "function f(a, b) { return this.base + a + b; } f.bind({ base: 10 }, 1)(2);", 13.0},
		{"constructor", "function P(n) { this.n = n; } P.prototype.get = function() { return this.n; }; new P(5).get();", 5.0},
		{"instanceof", "function P() {} new P() instanceof P;", true},
		{"new member constructor", "var ns = { C: function() { this.x = 1; } }; var o = new ns.C(); o !== ns && o.x === 1 && ns.x === undefined && o instanceof ns.C;", true},
		{"new bracket constructor", `var ns = { C: function(v) { this.v = v; } }; new ns["C"](4).v + (ns.v === undefined ? 0 : 100);`, 4.0},
		{"new member prototype", "var ns = { C: function() {} }; ns.C.prototype.hi = 'h'; Object.getPrototypeOf(new ns.C()) === ns.C.prototype && new ns.C().hi;", "h"},
		{"valueOf in arithmetic", "({ valueOf: function() { return 10; } }) + 1", 11.0},
		{"toString in concat", `"x" + { toString: function() { return "y"; } }`, "xy"},
		{"valueOf in comparison", "({ valueOf: function() { return 3; } }) < 4", true},
		{"valueOf loose equality", "({ valueOf: function() { return 2; } }) == 2", true},
		{"valueOf on prototype", "function M(n) { this.n = n; } M.prototype.valueOf = function() { return this.n; }; new M(2) * new M(3);", 6.0},
		{"valueOf throws", "var r; try { ({ valueOf: function() { throw 'boom'; } }) + 1; } catch (e) { r = e; } r;", "boom"},
		{"plain object concat", `({}) + "!"`, "[object Object]!"},
		{"template", "`a${1 + 1}b`", "a2b"},
		{"for in order", `var s = ""; for (var k in { x: 1, y: 2 }) s += k; s;`, "xy"},
		{"for of", "var t = 0; for (var v of [1, 2, 3]) t += v; t;", 6.0},

		// objects
		{"getter", "var o = { get x() { return this.v * 2; }, v: 21 }; o.x;", 42.0},
		{"setter", "var o = { set x(v) { this.y = v + 1; } }; o.x = 1; o.y;", 2.0},
		{"defineProperty getter", `var o = {}; Object.defineProperty(o, "k", { get: function() { return 7; } }); o.k;`, 7.0},
		{"keys order", "Object.keys({ b: 1, a: 2, 1: 3 }).join();", "1,b,a"},
		{"prototype of array", "Object.getPrototypeOf([]) === Array.prototype", true},
		{"Object.create", "var p = { hi: 'x' }; var o = Object.create(p); o.hi + o.hasOwnProperty('hi');", "xfalse"},
		{"object to string", "String({})", "[object Object]"},
		{"delete non-configurable", "var a = [1]; delete a.length;", false},
		{"frozen object", `"use strict"; var o = Object.freeze({ a: 1 }); var r; try { o.a = 2; } catch (e) { r = e.name; } r;`, "TypeError"},

		// arrays
		{"map", "[1, 2, 3].map(function(x) { return x * 2; }).join()", "2,4,6"},
		{"filter", "[1, 2, 3, 4].filter(function(x) { return x % 2 == 0; }).length", 2.0},
		{"reduce", "[1, 2, 3].reduce(function(a, b) { return a + b; })", 6.0},
		{"reduce initial", "[1, 2, 3].reduce(function(a, b) { return a + b; }, 10)", 16.0},
		{"some every", "[1, 2].some(function(x) { return x > 1; }) && ![1, 2].every(function(x) { return x > 1; })", true},
		{"find", "[5, 12, 8].find(function(x) { return x > 10; })", 12.0},
		{"default sort", "[10, 9, 1].sort().join()", "1,10,9"},
		{"comparator sort", "[10, 9, 1].sort(function(a, b) { return a - b; }).join()", "1,9,10"},
		{"stable sort", `[{k: 1, v: "a"}, {k: 0, v: "b"}, {k: 1, v: "c"}].sort(function(x, y) { return x.k - y.k; }).map(function(o) { return o.v; }).join("")`, "bac"},
		{"length truncates", "var a = [1, 2, 3]; a.length = 1; a.join();", "1"},
		{"nested toString", "[1, [2, [3]]].toString()", "1,2,3"},
		{"nested join", `[[1, 2], [3]].join(";")`, "1,2;3"},
		{"cyclic toString", "var a = [1]; a.push(a); String(a);", "1,"},
		{"holes", "[, 1].length", 2.0},
		{"splice", `var a = [1, 2, 3, 4]; a.splice(1, 2).join() + "|" + a.join();`, "2,3|1,4"},
		{"shift unshift", "var a = [2]; a.unshift(0, 1); a.shift(); a.join();", "1,2"},
		{"reverse", `[1, 2, 3].reverse().join("")`, "321"},
		{"indexOf", "[1, 2, 3].indexOf(2)", 1.0},
		{"includes", "[1, 2, 3].includes(4)", false},
		{"isArray", "Array.isArray([]) && !Array.isArray({})", true},
		{"concat", "[1].concat([2, 3], 4).join()", "1,2,3,4"},

		// strings
		{"length", `"abc".length`, 3.0},
		{"index", `"abc"[1]`, "b"},
		{"split", `"a,b,,c".split(",").length`, 4.0},
		{"replace string", `"Hello".replace("l", "L")`, "HeLlo"},
		{"trim", `"  pad ".trim()`, "pad"},
		{"padStart", `"ab".padStart(4, "-")`, "--ab"},
		{"slice negative", `"abc".slice(-2)`, "bc"},
		{"substring swaps", `"abcdef".substring(4, 1)`, "bcd"},
		{"charCodeAt", `"%".charCodeAt(0)`, 37.0},
		{"fromCharCode", "String.fromCharCode(72, 105)", "Hi"},
		{"case", `"MiXed".toLowerCase() + "up".toUpperCase()`, "mixedUP"},
		{"unicode runes", `"héllo".length`, 5.0},

		// patterns
		{"regexp replace global", `"a-b-c".replace(/-/g, "+")`, "a+b+c"},
		{"regexp replace groups", `"John Smith".replace(/(\w+)\s(\w+)/, "$2, $1")`, "Smith, John"},
		{"regexp match global", `"x1y22z".match(/\d+/g).join("|")`, "1|22"},
		{"regexp exec groups", `/(\w+)@(\w+)/.exec("me@host")[2]`, "host"},
		{"regexp exec index", `/b+/.exec("aabbb").index`, 2.0},
		{"regexp test", `/^a.c$/i.test("AbC")`, true},
		{"regexp no match", `/z/.exec("abc")`, nil},
		{"regexp lastIndex", `var re = /a/g; re.test("aa"); re.test("aa"); re.lastIndex`, 2.0},
		{"regexp split", `"a1b2c".split(/\d/).join(",")`, "a,b,c"},
		{"search", `"hello".search(/l+/)`, 2.0},
		{"replace callback", `"abc".replace(/b/, function(m) { return m.toUpperCase(); })`, "aBc"},
		{"replace callback global", `"a1b2".replace(/\d/g, function(d, i) { return "[" + d + "@" + i + "]"; })`, "a[1@1]b[2@3]"},
		{"regexp toString", `String(/a\/b/gi)`, `/a\/b/gi`},

		// errors
		{"error toString", `String(new TypeError("bad"))`, "TypeError: bad"},
		{"error stack", `new Error("m").stack.indexOf("Error: m") === 0`, true},
		{"error inheritance", `new RangeError("r") instanceof Error`, true},
		{"error constructor name", `new SyntaxError().name`, "SyntaxError"},
		{"not a function", `var r; try { (void 0)(); } catch (e) { r = e.name; } r;`, "TypeError"},
		{"null member", `var r; try { null.x; } catch (e) { r = e.name; } r;`, "TypeError"},

		// JSON
		{"stringify", `JSON.stringify({ a: [1, "x", null, true], b: { c: undefined } })`, `{"a":[1,"x",null,true],"b":{}}`},
		{"stringify indent", `JSON.stringify({ a: 1, b: [1, 2] }, null, 2)`, "{\n  \"a\": 1,\n  \"b\": [\n    1,\n    2\n  ]\n}"},
		{"parse keeps order", `JSON.stringify(JSON.parse('{"z":1,"a":[2,3]}'))`, `{"z":1,"a":[2,3]}`},
		{"parse error", `var r; try { JSON.parse("{bad"); } catch (e) { r = e.name; } r;`, "SyntaxError"},
		{"stringify cycle", `var o = {}; o.self = o; var r; try { JSON.stringify(o); } catch (e) { r = e.name; } r;`, "TypeError"},
		{"stringify escapes", `JSON.stringify("a\"b\n")`, `"a\"b\n"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, tt.src))
		})
	}
}

func TestConsole(t *testing.T) {
	in, err := New(`console.log("a", { b: 1 }, [1, 2]); console.warn(new Error("w")); console.error(3);`)
	require.NoError(t, err)
	runToEnd(t, in)
	assert.Equal(t, []ConsoleEntry{
		{Level: "log", Message: `a {"b":1} [1,2]`},
		{Level: "warn", Message: "Error: w"},
		{Level: "error", Message: "3"},
	}, in.Console())
}

func TestMathRandomSeeded(t *testing.T) {
	first := eval(t, "Math.random()", WithSeed(42))
	second := eval(t, "Math.random()", WithSeed(42))
	other := eval(t, "Math.random()", WithSeed(43))
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.GreaterOrEqual(t, first.(float64), 0.0)
	assert.Less(t, first.(float64), 1.0)
}

func TestFromGoExport(t *testing.T) {
	in, err := New("1;")
	require.NoError(t, err)
	v := in.FromGo(map[string]any{"b": []any{1, "x", true, nil}, "a": 2.5})
	assert.Equal(t, []string{"a", "b"}, v.AsObject().Keys())
	assert.Equal(t, map[string]any{"b": []any{1.0, "x", true, nil}, "a": 2.5}, v.Export())
}
