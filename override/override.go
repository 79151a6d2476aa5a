// Package override builds the method-override graph (C1): for each
// concrete virtual method, the set of methods in subclasses that directly
// override it, and the derived set of methods that are provably
// non-true-virtual despite being declared virtual.
//
// Grounded on libredex's MethodOverrideGraph (referenced from
// CallGraph.cpp's SingleCalleeStrategy/CompleteCallGraphStrategy as
// mog::get_non_true_virtuals and mog::get_overriding_methods).
package override

import "dexanalysis-core/ir"

// Graph is an immutable mapping from a method to the methods that
// directly override it, plus the derived true-virtual classification.
// Lookup is O(1) per key; construction is a single pass over the scope.
type Graph struct {
	children    map[ir.Signature][]*ir.Method
	trueVirtual map[ir.Signature]bool
}

// Build walks the class hierarchy once and records, for every virtual
// method M in class C, an edge from the nearest ancestor method with a
// matching name+descriptor to M. A dangling superclass reference (a
// missing ancestor class) terminates the walk for that method; the
// method is then its own hierarchy root.
func Build(scope *ir.Scope) *Graph {
	g := &Graph{
		children:    make(map[ir.Signature][]*ir.Method),
		trueVirtual: make(map[ir.Signature]bool),
	}

	for _, c := range scope.Classes {
		for _, m := range c.VirtualMethods {
			parent := findOverriddenAncestor(scope, c, m)
			if parent != nil {
				g.children[parent.Signature()] = append(g.children[parent.Signature()], m)
			}
		}
	}

	for _, c := range scope.Classes {
		for _, m := range c.VirtualMethods {
			sig := m.Signature()
			g.trueVirtual[sig] = len(g.children[sig]) > 0 || c.ExternallySubclassable || m.Rooted
		}
	}

	return g
}

// findOverriddenAncestor walks from c's superclass upward looking for the
// nearest virtual method matching m's name+descriptor. Returns nil if the
// chain is exhausted or hits a missing class before a match is found.
func findOverriddenAncestor(scope *ir.Scope, c *ir.Class, m *ir.Method) *ir.Method {
	cur := c
	for cur.Super != "" {
		super, ok := scope.ClassNamed(cur.Super)
		if !ok {
			return nil // dangling reference: m is its own hierarchy root
		}
		if candidate := super.FindVirtual(m.Ref.Name, m.Ref.Descriptor); candidate != nil {
			return candidate
		}
		cur = super
	}
	return nil
}

// Children returns the methods that directly override m. The returned
// slice must not be mutated.
func (g *Graph) Children(m *ir.Method) []*ir.Method {
	return g.children[m.Signature()]
}

// IsTrueVirtual reports whether m is declared virtual and may still
// dispatch to more than one runtime target: it has at least one override,
// its owner class is externally subclassable, or it is itself rooted.
// Non-virtual methods are never true-virtual.
func (g *Graph) IsTrueVirtual(m *ir.Method) bool {
	if !m.Virtual {
		return false
	}
	return g.trueVirtual[m.Signature()]
}

// NonTrueVirtuals returns every virtual method that is not true-virtual:
// declared virtual, but admitting exactly one runtime target.
func (g *Graph) NonTrueVirtuals(scope *ir.Scope) []*ir.Method {
	var out []*ir.Method
	for _, m := range scope.AllMethods() {
		if m.Virtual && !g.IsTrueVirtual(m) {
			out = append(out, m)
		}
	}
	return out
}

// OverridesTransitive returns every method that transitively overrides m:
// its direct overriders, their overriders, and so on. Used by the
// complete call-graph strategy, which must emit an edge to every possible
// runtime target of a virtual invoke, not just the direct overriders.
func (g *Graph) OverridesTransitive(m *ir.Method) []*ir.Method {
	var out []*ir.Method
	seen := make(map[ir.Signature]bool)
	worklist := append([]*ir.Method{}, g.Children(m)...)
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		sig := cur.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, cur)
		worklist = append(worklist, g.Children(cur)...)
	}
	return out
}
