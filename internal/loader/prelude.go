package loader

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
)

// preludeSource defines __link(path, keys, callable), which builds the guest
// stub for a host reference. Each advertised key becomes an accessor that
// reads and writes through the bridge when touched, so nothing crosses the
// boundary until guest code actually looks.
const preludeSource = `var __link = (function (get, set, call, tag) {
	function materialize(d) {
		if (d.type === "primitive") return d.value;
		return link(d.path, d.keys, d.type === "function");
	}
	function accessor(stub, path, key) {
		var at = path.concat([key]);
		Object.defineProperty(stub, key, {
			enumerable: true,
			configurable: true,
			get: function () { return materialize(get(at)); },
			set: function (v) { set(at, v); }
		});
	}
	function link(path, keys, callable) {
		var stub = callable
			? function () { return materialize(call(path, Array.prototype.slice.call(arguments))); }
			: {};
		tag(stub, path);
		for (var i = 0; i < keys.length; i++) {
			accessor(stub, path, keys[i]);
		}
		return stub;
	}
	return link;
})(__bridgeGet, __bridgeSet, __bridgeCall, __bridgeTag);
`

// Link binds a guest global to a wire value.
type Link struct {
	Name  string
	Value bridge.Value
}

// linkBlock renders one statement per link.
func linkBlock(links []Link) (string, error) {
	var b strings.Builder
	for _, l := range links {
		if !isIdentifier(l.Name) {
			return "", fmt.Errorf("link name %q is not an identifier", l.Name)
		}
		expr, err := expression(l.Value)
		if err != nil {
			return "", fmt.Errorf("link %s: %w", l.Name, err)
		}
		fmt.Fprintf(&b, "var %s = %s;\n", l.Name, expr)
	}
	return b.String(), nil
}

// expression renders a wire value as guest source: a literal for
// primitives, a __link call for references.
func expression(v bridge.Value) (string, error) {
	if !v.IsReference() {
		if !v.Defined {
			return "undefined", nil
		}
		lit, err := sonic.MarshalString(v.Data)
		if err != nil {
			return "", err
		}
		return "(" + lit + ")", nil
	}
	path := make([]any, len(v.Path))
	for i, s := range v.Path {
		if s.IsIndex() {
			path[i] = s.Int()
		} else {
			path[i] = s.String()
		}
	}
	keys := v.Keys
	if keys == nil {
		keys = []string{}
	}
	p, err := sonic.MarshalString(path)
	if err != nil {
		return "", err
	}
	k, err := sonic.MarshalString(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("__link(%s, %s, %t)", p, k, v.Type == bridge.KindFunction), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return !reserved[s]
}

var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "const": true, "continue": true,
	"debugger": true, "default": true, "delete": true, "do": true, "else": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"in": true, "instanceof": true, "let": true, "new": true, "null": true,
	"return": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "class": true, "enum": true, "export": true, "extends": true,
	"import": true, "super": true, "yield": true,
}
