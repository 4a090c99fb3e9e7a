package engine

import (
	"sort"
	"strconv"
	"unicode/utf8"
)

const (
	classObject    = "Object"
	classFunction  = "Function"
	classArray     = "Array"
	classArguments = "Arguments"
	classError     = "Error"
	classString    = "String"
	classNumber    = "Number"
	classBoolean   = "Boolean"
	classRegExp    = "RegExp"
)

type attr uint8

const (
	attrNotEnumerable attr = 1 << iota
	attrNotWritable
	attrNotConfigurable
	attrConst

	// hidden is the attribute set used for built-in methods.
	hidden = attrNotEnumerable
)

// Object is a guest object. Properties keep insertion order; accessor
// properties hold an undefined placeholder in props and their functions in
// the getter/setter maps.
type Object struct {
	proto      *Object
	class      string
	props      map[string]Value
	order      []string
	attrs      map[string]attr
	getters    map[string]*Object
	setters    map[string]*Object
	primitive  Value
	fn         *Function
	internal   any
	extensible bool
}

func newObject(proto *Object, class string) *Object {
	return &Object{
		proto:      proto,
		class:      class,
		props:      make(map[string]Value),
		extensible: true,
	}
}

func (o *Object) Class() string        { return o.class }
func (o *Object) Proto() *Object       { return o.proto }
func (o *Object) SetProto(p *Object)   { o.proto = p }
func (o *Object) Function() *Function  { return o.fn }
func (o *Object) Primitive() Value     { return o.primitive }
func (o *Object) Internal() any        { return o.internal }
func (o *Object) SetInternal(data any) { o.internal = data }
func (o *Object) Extensible() bool     { return o.extensible }

// HasOwn reports whether name is an own property.
func (o *Object) HasOwn(name string) bool {
	if _, ok := o.props[name]; ok {
		return true
	}
	if o.class == classString {
		return o.stringHas(name)
	}
	return false
}

// Get reads an own or inherited data property without invoking accessors.
func (o *Object) Get(name string) Value { return o.dataGet(name) }

// Set defines or overwrites an own enumerable data property. It bypasses
// writability checks and accessors and is meant for host-side setup.
func (o *Object) Set(name string, v Value) {
	o.define(name, v, 0)
	if o.class == classArray {
		if idx, ok := arrayIndex(name); ok && idx >= arrayLength(o) {
			o.props["length"] = Int(idx + 1)
		}
	}
}

// Keys returns the own enumerable keys in enumeration order.
func (o *Object) Keys() []string {
	var out []string
	for _, k := range o.ownKeys() {
		if o.isEnumerable(k) {
			out = append(out, k)
		}
	}
	return out
}

func (o *Object) define(name string, v Value, a attr) {
	if _, ok := o.props[name]; !ok {
		o.order = append(o.order, name)
	}
	o.props[name] = v
	o.setAttr(name, a)
	delete(o.getters, name)
	delete(o.setters, name)
}

func (o *Object) defineAccessor(name string, get, set *Object, a attr) {
	if _, ok := o.props[name]; !ok {
		o.order = append(o.order, name)
	}
	o.props[name] = Undefined()
	o.setAttr(name, a|attrNotWritable)
	if o.getters == nil {
		o.getters = make(map[string]*Object)
		o.setters = make(map[string]*Object)
	}
	o.getters[name] = get
	o.setters[name] = set
}

func (o *Object) setAttr(name string, a attr) {
	if a == 0 {
		delete(o.attrs, name)
		return
	}
	if o.attrs == nil {
		o.attrs = make(map[string]attr)
	}
	o.attrs[name] = a
}

func (o *Object) isAccessor(name string) bool {
	_, ok := o.getters[name]
	return ok
}

func (o *Object) isEnumerable(name string) bool {
	if o.class == classString && o.stringHas(name) && name != "length" {
		return true
	}
	return o.attrs[name]&attrNotEnumerable == 0
}

func (o *Object) isWritable(name string) bool {
	return o.attrs[name]&attrNotWritable == 0
}

func (o *Object) isConfigurable(name string) bool {
	return o.attrs[name]&attrNotConfigurable == 0
}

// remove deletes an own property. Non-configurable properties stay and
// report false.
func (o *Object) remove(name string) bool {
	if _, ok := o.props[name]; !ok {
		return !(o.class == classString && o.stringHas(name))
	}
	if !o.isConfigurable(name) {
		return false
	}
	delete(o.props, name)
	delete(o.attrs, name)
	delete(o.getters, name)
	delete(o.setters, name)
	for i, k := range o.order {
		if k == name {
			o.order = append(o.order[:i:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// lookup finds the object on the prototype chain owning name.
func (o *Object) lookup(name string) *Object {
	for cur := o; cur != nil; cur = cur.proto {
		if cur.HasOwn(name) {
			return cur
		}
	}
	return nil
}

// dataGet reads a data property along the prototype chain. Accessors read as
// undefined.
func (o *Object) dataGet(name string) Value {
	for cur := o; cur != nil; cur = cur.proto {
		if v, ok := cur.props[name]; ok {
			return v
		}
		if cur.class == classString {
			if v, ok := cur.stringGet(name); ok {
				return v
			}
		}
	}
	return Undefined()
}

// ownKeys lists own keys: array indices ascending, then the remaining keys in
// insertion order.
func (o *Object) ownKeys() []string {
	var idx []int
	var rest []string
	if o.class == classString {
		n := utf8.RuneCountInString(o.primitive.s)
		for i := 0; i < n; i++ {
			idx = append(idx, i)
		}
	}
	for _, k := range o.order {
		if i, ok := arrayIndex(k); ok {
			idx = append(idx, i)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Ints(idx)
	out := make([]string, 0, len(idx)+len(rest)+1)
	for _, i := range idx {
		out = append(out, indexKey(i))
	}
	if o.class == classString {
		out = append(out, "length")
	}
	return append(out, rest...)
}

func (o *Object) stringHas(name string) bool {
	_, ok := o.stringGet(name)
	return ok
}

func (o *Object) stringGet(name string) (Value, bool) {
	s := o.primitive.s
	if name == "length" {
		return Int(utf8.RuneCountInString(s)), true
	}
	i, ok := arrayIndex(name)
	if !ok {
		return Undefined(), false
	}
	r := []rune(s)
	if i >= len(r) {
		return Undefined(), false
	}
	return String(string(r[i])), true
}

// arrayIndex parses a canonical array index key.
func arrayIndex(name string) (int, bool) {
	if name == "" || len(name) > 10 || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || n >= 1<<32-1 {
		return 0, false
	}
	return int(n), true
}

func indexKey(i int) string { return strconv.Itoa(i) }

func arrayLength(o *Object) int {
	v := o.dataGet("length")
	if v.kind != KindNumber || v.n < 0 {
		return 0
	}
	return int(v.n)
}
