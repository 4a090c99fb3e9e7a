package engine

import "github.com/dop251/goja/ast"

// polyfillSource implements the callback-taking built-ins in guest code so
// guest callbacks run on the interpreter stack like any other call.
const polyfillSource = `
(function() {
  var define = function(obj, name, fn) {
    Object.defineProperty(obj, name,
        {configurable: true, enumerable: false, writable: true, value: fn});
  };
  var checkCallback = function(fn) {
    if (typeof fn !== 'function') {
      throw new TypeError(fn + ' is not a function');
    }
  };

  define(Array.prototype, 'forEach', function forEach(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.forEach called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0;
    for (var i = 0; i < len; i++) {
      if (i in o) callback.call(thisArg, o[i], i, o);
    }
  });

  define(Array.prototype, 'map', function map(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.map called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0, out = new Array(len);
    for (var i = 0; i < len; i++) {
      if (i in o) out[i] = callback.call(thisArg, o[i], i, o);
    }
    return out;
  });

  define(Array.prototype, 'filter', function filter(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.filter called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0, out = [];
    for (var i = 0; i < len; i++) {
      if (i in o && callback.call(thisArg, o[i], i, o)) out.push(o[i]);
    }
    return out;
  });

  define(Array.prototype, 'some', function some(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.some called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0;
    for (var i = 0; i < len; i++) {
      if (i in o && callback.call(thisArg, o[i], i, o)) return true;
    }
    return false;
  });

  define(Array.prototype, 'every', function every(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.every called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0;
    for (var i = 0; i < len; i++) {
      if (i in o && !callback.call(thisArg, o[i], i, o)) return false;
    }
    return true;
  });

  define(Array.prototype, 'find', function find(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.find called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0;
    for (var i = 0; i < len; i++) {
      if (callback.call(thisArg, o[i], i, o)) return o[i];
    }
    return undefined;
  });

  define(Array.prototype, 'findIndex', function findIndex(callback, thisArg) {
    if (this == null) throw new TypeError('Array.prototype.findIndex called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0;
    for (var i = 0; i < len; i++) {
      if (callback.call(thisArg, o[i], i, o)) return i;
    }
    return -1;
  });

  define(Array.prototype, 'reduce', function reduce(callback) {
    if (this == null) throw new TypeError('Array.prototype.reduce called on null or undefined');
    checkCallback(callback);
    var o = Object(this), len = o.length >>> 0, i = 0, acc;
    if (arguments.length > 1) {
      acc = arguments[1];
    } else {
      while (i < len && !(i in o)) i++;
      if (i >= len) throw new TypeError('Reduce of empty array with no initial value');
      acc = o[i++];
    }
    for (; i < len; i++) {
      if (i in o) acc = callback(acc, o[i], i, o);
    }
    return acc;
  });

  define(Array.prototype, 'reduceRight', function reduceRight(callback) {
    if (this == null) throw new TypeError('Array.prototype.reduceRight called on null or undefined');
    checkCallback(callback);
    var o = Object(this), i = (o.length >>> 0) - 1, acc;
    if (arguments.length > 1) {
      acc = arguments[1];
    } else {
      while (i >= 0 && !(i in o)) i--;
      if (i < 0) throw new TypeError('Reduce of empty array with no initial value');
      acc = o[i--];
    }
    for (; i >= 0; i--) {
      if (i in o) acc = callback(acc, o[i], i, o);
    }
    return acc;
  });

  // Stable merge sort; undefined sorts last and holes are dropped to the end.
  define(Array.prototype, 'sort', function sort(compare) {
    if (compare !== undefined) checkCallback(compare);
    var o = Object(this), len = o.length >>> 0, items = [], undefs = 0;
    for (var i = 0; i < len; i++) {
      if (!(i in o)) continue;
      if (o[i] === undefined) undefs++;
      else items.push(o[i]);
    }
    var before = function(a, b) {
      if (compare !== undefined) return compare(a, b) <= 0;
      return String(a) <= String(b);
    };
    var buf = new Array(items.length);
    for (var width = 1; width < items.length; width *= 2) {
      for (var lo = 0; lo < items.length; lo += 2 * width) {
        var mid = Math.min(lo + width, items.length);
        var hi = Math.min(lo + 2 * width, items.length);
        var l = lo, r = mid, k = lo;
        while (l < mid && r < hi) {
          buf[k++] = before(items[l], items[r]) ? items[l++] : items[r++];
        }
        while (l < mid) buf[k++] = items[l++];
        while (r < hi) buf[k++] = items[r++];
      }
      var swap = items; items = buf; buf = swap;
    }
    var n = 0;
    for (; n < items.length; n++) o[n] = items[n];
    for (; undefs > 0; undefs--) o[n++] = undefined;
    for (; n < len; n++) delete o[n];
    return o;
  });

  var nativeReplace = String.prototype.replace;
  define(String.prototype, 'replace', function replace(pattern, replacement) {
    if (typeof replacement !== 'function') {
      return nativeReplace.call(this, pattern, replacement);
    }
    var s = String(this), out = '', last = 0, m;
    if (pattern instanceof RegExp) {
      if (pattern.global) pattern.lastIndex = 0;
      while ((m = pattern.exec(s)) !== null) {
        var args = m.slice();
        args.push(m.index, s);
        out += s.slice(last, m.index) + String(replacement.apply(undefined, args));
        last = m.index + m[0].length;
        if (!pattern.global) break;
        if (m[0] === '') pattern.lastIndex++;
      }
      return out + s.slice(last);
    }
    var needle = String(pattern), i = s.indexOf(needle);
    if (i === -1) return s;
    return s.slice(0, i) + String(replacement(needle, i, s)) + s.slice(i + needle.length);
  });
})();
`

// loadPolyfills parses the guest-side built-ins into the interpreter's file set,
// marked so they run under the polyfill budget.
func (in *Interpreter) loadPolyfills() ([]ast.Statement, error) {
	prog, err := in.parse("<polyfills>", polyfillSource, true)
	if err != nil {
		return nil, err
	}
	return prog.Body, nil
}
