package engine

import (
	"math"
	"unicode/utf8"
)

// getProperty reads name from v, walking the prototype chain. When the
// property is an accessor its getter is left pending in the evaluation
// context and undefined is returned; the caller must invoke it.
func (in *Interpreter) getProperty(v Value, name string) (Value, error) {
	var obj *Object
	switch v.kind {
	case KindUndefined, KindNull:
		return Undefined(), in.Errorf(TypeError, "Cannot read property '%s' of %s", name, v.kind)
	case KindString:
		if name == "length" {
			return Int(utf8.RuneCountInString(v.s)), nil
		}
		if i, ok := arrayIndex(name); ok {
			r := []rune(v.s)
			if i < len(r) {
				return String(string(r[i])), nil
			}
			return Undefined(), nil
		}
		obj = in.protos.string
	case KindNumber:
		obj = in.protos.number
	case KindBoolean:
		obj = in.protos.boolean
	default:
		obj = v.o
	}
	for cur := obj; cur != nil; cur = cur.proto {
		if getter, ok := cur.getters[name]; ok {
			if getter == nil {
				return Undefined(), nil
			}
			in.ec.getterPending = true
			in.ec.accessor = getter
			return Undefined(), nil
		}
		if p, ok := cur.props[name]; ok {
			return p, nil
		}
		if cur.class == classString {
			if p, ok := cur.stringGet(name); ok {
				return p, nil
			}
		}
	}
	return Undefined(), nil
}

// hasProperty reports whether name exists on v or its prototypes.
func (in *Interpreter) hasProperty(o *Object, name string) bool {
	return o.lookup(name) != nil
}

// setProperty assigns name on target. A setter found on the chain is left
// pending in the evaluation context; the caller must invoke it with v.
func (in *Interpreter) setProperty(target Value, name string, v Value) error {
	switch target.kind {
	case KindUndefined, KindNull:
		return in.Errorf(TypeError, "Cannot set property '%s' of %s", name, target.kind)
	case KindObject:
	default:
		if in.strict() {
			return in.Errorf(TypeError, "Cannot create property '%s' on %s", name, target.TypeOf())
		}
		return nil
	}
	o := target.o
	if o.class == classString && o.stringHas(name) {
		return in.readOnly(name)
	}
	for cur := o; cur != nil; cur = cur.proto {
		if _, ok := cur.getters[name]; ok {
			setter := cur.setters[name]
			if setter == nil {
				if in.strict() {
					return in.Errorf(TypeError, "Cannot set property %s which has only a getter", name)
				}
				return nil
			}
			in.ec.setterPending = true
			in.ec.accessor = setter
			return nil
		}
		if _, ok := cur.props[name]; ok {
			if cur == o && !cur.isWritable(name) {
				return in.readOnly(name)
			}
			break
		}
	}
	if _, own := o.props[name]; !own && !o.extensible {
		if in.strict() {
			return in.Errorf(TypeError, "Cannot add property %s, object is not extensible", name)
		}
		return nil
	}
	if o.class == classArray {
		return in.setArrayProperty(o, name, v)
	}
	if _, own := o.props[name]; own {
		o.props[name] = v
		return nil
	}
	o.define(name, v, 0)
	return nil
}

func (in *Interpreter) readOnly(name string) error {
	if in.strict() {
		return in.Errorf(TypeError, "Cannot assign to read only property '%s'", name)
	}
	return nil
}

func (in *Interpreter) setArrayProperty(o *Object, name string, v Value) error {
	if name == "length" {
		n := in.ToNumber(v)
		newLen := toUint32(n)
		if float64(newLen) != n {
			return in.Errorf(RangeError, "Invalid array length")
		}
		truncateArray(o, int(newLen))
		o.props["length"] = Int(int(newLen))
		return nil
	}
	if idx, ok := arrayIndex(name); ok && idx >= arrayLength(o) {
		o.props["length"] = Int(idx + 1)
	}
	if _, own := o.props[name]; own {
		o.props[name] = v
	} else {
		o.define(name, v, 0)
	}
	return nil
}

func truncateArray(o *Object, n int) {
	if n >= arrayLength(o) {
		return
	}
	for _, k := range o.ownKeys() {
		if i, ok := arrayIndex(k); ok && i >= n {
			o.remove(k)
		}
	}
}

// deleteProperty removes an own property. Non-configurable properties throw
// in strict code and report false otherwise.
func (in *Interpreter) deleteProperty(target Value, name string) (bool, error) {
	o, err := in.toObject(target)
	if err != nil {
		return false, err
	}
	if o.remove(name) {
		return true, nil
	}
	if in.strict() {
		return false, in.Errorf(TypeError, "Cannot delete property '%s'", name)
	}
	return false, nil
}

// propertyDescriptor is the decoded form of a guest descriptor object.
type propertyDescriptor struct {
	value                              Value
	get, set                           *Object
	hasValue, hasGet, hasSet           bool
	writable, enumerable, configurable bool
	hasWritable                        bool
	hasEnumerable, hasConfigurable     bool
}

func (in *Interpreter) toDescriptor(v Value) (propertyDescriptor, error) {
	var d propertyDescriptor
	if v.kind != KindObject {
		return d, in.Errorf(TypeError, "Property description must be an object: %s", in.ToString(v))
	}
	o := v.o
	if o.lookup("value") != nil {
		d.hasValue, d.value = true, o.dataGet("value")
	}
	if o.lookup("writable") != nil {
		d.hasWritable, d.writable = true, ToBoolean(o.dataGet("writable"))
	}
	if o.lookup("enumerable") != nil {
		d.hasEnumerable, d.enumerable = true, ToBoolean(o.dataGet("enumerable"))
	}
	if o.lookup("configurable") != nil {
		d.hasConfigurable, d.configurable = true, ToBoolean(o.dataGet("configurable"))
	}
	for _, k := range [...]string{"get", "set"} {
		if o.lookup(k) == nil {
			continue
		}
		fv := o.dataGet(k)
		if !fv.IsUndefined() && !fv.IsFunction() {
			return d, in.Errorf(TypeError, "%s must be a function: %s", k, in.ToString(fv))
		}
		var fn *Object
		if fv.IsFunction() {
			fn = fv.o
		}
		if k == "get" {
			d.hasGet, d.get = true, fn
		} else {
			d.hasSet, d.set = true, fn
		}
	}
	if (d.hasGet || d.hasSet) && (d.hasValue || d.hasWritable) {
		return d, in.Errorf(TypeError, "Invalid property descriptor. Cannot both specify accessors and a value or writable attribute")
	}
	return d, nil
}

// defineOwnProperty applies a descriptor to o.
func (in *Interpreter) defineOwnProperty(o *Object, name string, d propertyDescriptor) error {
	_, exists := o.props[name]
	if !exists && !o.extensible {
		return in.Errorf(TypeError, "Cannot define property %s, object is not extensible", name)
	}
	if exists && !o.isConfigurable(name) {
		// Only a writable data property may still change its value or drop
		// writability.
		if d.hasGet || d.hasSet || (d.hasEnumerable && d.enumerable != o.isEnumerable(name)) ||
			(d.hasConfigurable && d.configurable) || o.isAccessor(name) || !o.isWritable(name) && (d.hasValue && !sameValue(d.value, o.props[name]) || d.hasWritable && d.writable) {
			return in.Errorf(TypeError, "Cannot redefine property: %s", name)
		}
	}
	var a attr
	keep := func(has, flag bool, bit attr, current bool) {
		switch {
		case has && !flag, !has && exists && !current, !has && !exists:
			a |= bit
		}
	}
	keep(d.hasEnumerable, d.enumerable, attrNotEnumerable, exists && o.isEnumerable(name))
	keep(d.hasConfigurable, d.configurable, attrNotConfigurable, exists && o.isConfigurable(name))
	if d.hasGet || d.hasSet {
		get, set := d.get, d.set
		if exists && o.isAccessor(name) {
			if !d.hasGet {
				get = o.getters[name]
			}
			if !d.hasSet {
				set = o.setters[name]
			}
		}
		o.defineAccessor(name, get, set, a)
		return nil
	}
	keep(d.hasWritable, d.writable, attrNotWritable, exists && o.isWritable(name))
	v := d.value
	if !d.hasValue && exists && !o.isAccessor(name) {
		v = o.props[name]
	}
	if o.class == classArray {
		if name == "length" {
			return in.setArrayProperty(o, name, v)
		}
		if idx, ok := arrayIndex(name); ok && idx >= arrayLength(o) {
			o.props["length"] = Int(idx + 1)
		}
	}
	o.define(name, v, a)
	return nil
}

func sameValue(a, b Value) bool {
	if a.kind == KindNumber && b.kind == KindNumber {
		if math.IsNaN(a.n) && math.IsNaN(b.n) {
			return true
		}
		return a.n == b.n && math.Signbit(a.n) == math.Signbit(b.n)
	}
	return StrictEquals(a, b)
}

// fromDescriptor builds the guest descriptor object for an own property.
func (in *Interpreter) fromDescriptor(o *Object, name string) Value {
	if !o.HasOwn(name) {
		return Undefined()
	}
	d := in.NewObject()
	if o.isAccessor(name) {
		d.Set("get", ObjectValue(o.getters[name]).orUndefined())
		d.Set("set", ObjectValue(o.setters[name]).orUndefined())
	} else {
		if o.class == classString {
			if v, ok := o.stringGet(name); ok {
				d.Set("value", v)
				d.Set("writable", Bool(false))
				d.Set("enumerable", Bool(name != "length"))
				d.Set("configurable", Bool(false))
				return ObjectValue(d)
			}
		}
		d.Set("value", o.props[name])
		d.Set("writable", Bool(o.isWritable(name)))
	}
	d.Set("enumerable", Bool(o.isEnumerable(name)))
	d.Set("configurable", Bool(o.isConfigurable(name)))
	return ObjectValue(d)
}

func (v Value) orUndefined() Value {
	if v.kind == KindNull {
		return Undefined()
	}
	return v
}
