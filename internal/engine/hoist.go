package engine

import (
	"github.com/dop251/goja/ast"
)

// declarations are the names a function body or program introduces before
// any of its statements run.
type declarations struct {
	vars  []string
	funcs []*ast.FunctionLiteral
	// lexical holds let and const names declared directly in the list.
	lexical []string
}

// declarationsOf collects var and function declarations from a statement
// list without entering nested functions. Results are cached per node.
func (in *Interpreter) declarationsOf(owner ast.Node, list []ast.Statement) *declarations {
	if d, ok := in.decls[owner]; ok {
		return d
	}
	d := &declarations{}
	for _, st := range list {
		collectDecls(st, d)
	}
	d.lexical = lexicalNames(list)
	in.decls[owner] = d
	return d
}

func collectDecls(node ast.Statement, d *declarations) {
	switch n := node.(type) {
	case *ast.VariableStatement:
		for _, b := range n.List {
			if id, ok := b.Target.(*ast.Identifier); ok {
				d.vars = append(d.vars, id.Name.String())
			}
		}
	case *ast.FunctionDeclaration:
		d.funcs = append(d.funcs, n.Function)
	case *ast.BlockStatement:
		for _, s := range n.List {
			collectDecls(s, d)
		}
	case *ast.IfStatement:
		collectDecls(n.Consequent, d)
		if n.Alternate != nil {
			collectDecls(n.Alternate, d)
		}
	case *ast.ForStatement:
		if vl, ok := n.Initializer.(*ast.ForLoopInitializerVarDeclList); ok {
			for _, b := range vl.List {
				if id, ok := b.Target.(*ast.Identifier); ok {
					d.vars = append(d.vars, id.Name.String())
				}
			}
		}
		collectDecls(n.Body, d)
	case *ast.ForInStatement:
		collectForInto(n.Into, d)
		collectDecls(n.Body, d)
	case *ast.ForOfStatement:
		collectForInto(n.Into, d)
		collectDecls(n.Body, d)
	case *ast.WhileStatement:
		collectDecls(n.Body, d)
	case *ast.DoWhileStatement:
		collectDecls(n.Body, d)
	case *ast.LabelledStatement:
		collectDecls(n.Statement, d)
	case *ast.TryStatement:
		collectDecls(n.Body, d)
		if n.Catch != nil {
			collectDecls(n.Catch.Body, d)
		}
		if n.Finally != nil {
			collectDecls(n.Finally, d)
		}
	case *ast.SwitchStatement:
		for _, c := range n.Body {
			for _, s := range c.Consequent {
				collectDecls(s, d)
			}
		}
	}
}

func collectForInto(into ast.ForInto, d *declarations) {
	if v, ok := into.(*ast.ForIntoVar); ok {
		if id, ok := v.Binding.Target.(*ast.Identifier); ok {
			d.vars = append(d.vars, id.Name.String())
		}
	}
}

// hoist declares the vars, functions and top-level lexical names of a body
// in scope.
func (in *Interpreter) hoist(scope *Scope, owner ast.Node, list []ast.Statement) error {
	d := in.declarationsOf(owner, list)
	for _, name := range d.vars {
		scope.declare(name, Undefined())
	}
	in.declareLexical(scope, d)
	for _, fl := range d.funcs {
		fn, err := in.newClosure(fl, scope, "")
		if err != nil {
			return err
		}
		name := fl.Name.Name.String()
		if _, ok := scope.Object.props[name]; ok {
			scope.Object.props[name] = ObjectValue(fn)
		} else {
			scope.declare(name, ObjectValue(fn))
		}
	}
	return nil
}

func (in *Interpreter) declareLexical(scope *Scope, d *declarations) {
	for _, name := range d.lexical {
		scope.declare(name, Undefined())
	}
}

func lexicalNames(list []ast.Statement) []string {
	var out []string
	for _, st := range list {
		ld, ok := st.(*ast.LexicalDeclaration)
		if !ok {
			continue
		}
		for _, b := range ld.List {
			if id, ok := b.Target.(*ast.Identifier); ok {
				out = append(out, id.Name.String())
			}
		}
	}
	return out
}

// blockDeclarations returns the let and const names declared directly in a
// block, or nil when there are none.
func (in *Interpreter) blockDeclarations(block *ast.BlockStatement) *declarations {
	d, ok := in.decls[block]
	if !ok {
		if names := lexicalNames(block.List); len(names) > 0 {
			d = &declarations{lexical: names}
		}
		in.decls[block] = d
	}
	return d
}
