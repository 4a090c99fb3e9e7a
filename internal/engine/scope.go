package engine

// Scope is one link of the lexical chain. Bindings live as properties on a
// backing object; the global scope is backed by the global object.
type Scope struct {
	Parent *Scope
	Strict bool
	Object *Object
}

func (in *Interpreter) newScope(parent *Scope, strict bool) *Scope {
	return &Scope{Parent: parent, Strict: strict, Object: newObject(nil, classObject)}
}

func (s *Scope) isGlobal() bool { return s.Parent == nil }

// resolve returns the nearest scope binding name, or nil.
func (s *Scope) resolve(name string) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.isGlobal() {
			if cur.Object.lookup(name) != nil {
				return cur
			}
			return nil
		}
		if _, ok := cur.Object.props[name]; ok {
			return cur
		}
	}
	return nil
}

// declare creates a binding in this scope unless one already exists.
func (s *Scope) declare(name string, v Value) {
	if _, ok := s.Object.props[name]; !ok {
		s.Object.define(name, v, attrNotConfigurable)
	}
}

// getValue reads a variable. A global accessor leaves the getter pending.
func (in *Interpreter) getValue(scope *Scope, name string) (Value, error) {
	s := scope.resolve(name)
	if s == nil {
		return Undefined(), in.Errorf(ReferenceError, "%s is not defined", name)
	}
	if s.isGlobal() {
		return in.getProperty(ObjectValue(s.Object), name)
	}
	return s.Object.props[name], nil
}

// setValue writes a variable. Undeclared names become globals unless the
// scope is strict. A global setter is left pending.
func (in *Interpreter) setValue(scope *Scope, name string, v Value) error {
	s := scope.resolve(name)
	if s == nil {
		if scope.Strict {
			return in.Errorf(ReferenceError, "%s is not defined", name)
		}
		s = in.global
	}
	if !s.Object.isWritable(name) && !s.Object.isAccessor(name) {
		if s.Object.attrs[name]&attrConst != 0 {
			return in.Errorf(TypeError, "Assignment to constant variable.")
		}
		if scope.Strict {
			return in.Errorf(TypeError, "Cannot assign to read only variable '%s'", name)
		}
		return nil
	}
	if s.isGlobal() {
		return in.setProperty(ObjectValue(s.Object), name, v)
	}
	s.Object.props[name] = v
	return nil
}
