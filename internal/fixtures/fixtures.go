// Package fixtures builds the small hand-written scopes spec.md's §8
// end-to-end scenarios describe, shared by tests in override, resolve,
// and callgraph so each package's tests exercise the exact same input
// data the spec's scenarios are stated against.
package fixtures

import "dexanalysis-core/ir"

// OverrideScenario builds spec.md §8 scenario 5: class A declares
// virtual f(), class B extends A overrides f(), class C's g() invokes
// A.f via invoke-virtual.
func OverrideScenario() *ir.Scope {
	a := &ir.Class{Name: "scenario5.A"}
	af := &ir.Method{Ref: ir.MethodRef{Owner: "scenario5.A", Name: "f", Descriptor: "()V"}, Virtual: true, Code: &ir.Code{}}
	a.VirtualMethods = []*ir.Method{af}

	b := &ir.Class{Name: "scenario5.B", Super: "scenario5.A"}
	bf := &ir.Method{Ref: ir.MethodRef{Owner: "scenario5.B", Name: "f", Descriptor: "()V"}, Virtual: true, Code: &ir.Code{}}
	b.VirtualMethods = []*ir.Method{bf}

	c := &ir.Class{Name: "scenario5.C"}
	g := &ir.Method{
		Ref:    ir.MethodRef{Owner: "scenario5.C", Name: "g", Descriptor: "()V"},
		Rooted: true,
		Code: &ir.Code{Instructions: []ir.Instruction{
			{Opcode: ir.OpInvokeVirtual, Ref: ir.MethodRef{Owner: "scenario5.A", Name: "f", Descriptor: "()V"}},
		}},
	}
	c.DirectMethods = []*ir.Method{g}

	return ir.NewScope([]*ir.Class{a, b, c})
}

// FinalMethodScenario builds spec.md §8 scenario 6: class D declares a
// final (non-virtual) h(), class E's k() invokes it via invoke-direct.
func FinalMethodScenario() *ir.Scope {
	d := &ir.Class{Name: "scenario6.D"}
	h := &ir.Method{Ref: ir.MethodRef{Owner: "scenario6.D", Name: "h", Descriptor: "()V"}, Code: &ir.Code{}}
	d.DirectMethods = []*ir.Method{h}

	e := &ir.Class{Name: "scenario6.E"}
	k := &ir.Method{
		Ref:    ir.MethodRef{Owner: "scenario6.E", Name: "k", Descriptor: "()V"},
		Rooted: true,
		Code: &ir.Code{Instructions: []ir.Instruction{
			{Opcode: ir.OpInvokeDirect, Ref: ir.MethodRef{Owner: "scenario6.D", Name: "h", Descriptor: "()V"}},
		}},
	}
	e.DirectMethods = []*ir.Method{k}

	return ir.NewScope([]*ir.Class{d, e})
}

// DiamondHierarchy builds a three-level hierarchy (Root -> Mid -> Leaf)
// where Mid overrides Root's virtual method m() and Leaf overrides Mid's,
// exercising the transitive-overrides walk used by the complete strategy.
func DiamondHierarchy() *ir.Scope {
	root := &ir.Class{Name: "diamond.Root"}
	rootM := &ir.Method{Ref: ir.MethodRef{Owner: "diamond.Root", Name: "m", Descriptor: "()V"}, Virtual: true, Rooted: true, Code: &ir.Code{}}
	root.VirtualMethods = []*ir.Method{rootM}

	mid := &ir.Class{Name: "diamond.Mid", Super: "diamond.Root"}
	midM := &ir.Method{Ref: ir.MethodRef{Owner: "diamond.Mid", Name: "m", Descriptor: "()V"}, Virtual: true, Code: &ir.Code{}}
	mid.VirtualMethods = []*ir.Method{midM}

	leaf := &ir.Class{Name: "diamond.Leaf", Super: "diamond.Mid"}
	leafM := &ir.Method{Ref: ir.MethodRef{Owner: "diamond.Leaf", Name: "m", Descriptor: "()V"}, Virtual: true, Code: &ir.Code{}}
	leaf.VirtualMethods = []*ir.Method{leafM}

	return ir.NewScope([]*ir.Class{root, mid, leaf})
}

// DanglingSuperclass builds a class whose Super points at a class that
// does not exist in the scope, exercising the "missing ancestor"
// tolerance both override.Build and resolve.Resolve must show.
func DanglingSuperclass() *ir.Scope {
	orphan := &ir.Class{Name: "dangling.Orphan", Super: "dangling.Missing"}
	m := &ir.Method{Ref: ir.MethodRef{Owner: "dangling.Orphan", Name: "m", Descriptor: "()V"}, Virtual: true}
	orphan.VirtualMethods = []*ir.Method{m}
	return ir.NewScope([]*ir.Class{orphan})
}
