// Package ir defines the program scope that the analysis core operates on:
// classes, methods, code bodies, and the symbolic references an invoke
// instruction carries. It has no knowledge of override graphs, resolution,
// call graphs, or dominators — those live in their own packages and treat
// a *Scope as a read-only view.
package ir

import "fmt"

// ClassName is a fully qualified class identity, e.g. "com/example/Base".
type ClassName string

// SearchKind encodes the invoke flavor an instruction carries, which in
// turn determines how resolve.Resolve walks the class hierarchy.
type SearchKind int

const (
	SearchStatic SearchKind = iota
	SearchDirect
	SearchVirtual
	SearchInterface
	SearchSuper
)

func (k SearchKind) String() string {
	switch k {
	case SearchStatic:
		return "static"
	case SearchDirect:
		return "direct"
	case SearchVirtual:
		return "virtual"
	case SearchInterface:
		return "interface"
	case SearchSuper:
		return "super"
	default:
		return "unknown"
	}
}

// Opcode is the subset of instruction opcodes the core cares about: whether
// an instruction is an invoke (and which kind) or a branch (for cfg).
type Opcode int

const (
	OpNop Opcode = iota
	OpInvokeStatic
	OpInvokeDirect
	OpInvokeVirtual
	OpInvokeInterface
	OpInvokeSuper
	OpGoto
	OpIf
	OpReturn
)

// IsInvoke reports whether the opcode is an invoke of any flavor.
func (o Opcode) IsInvoke() bool {
	switch o {
	case OpInvokeStatic, OpInvokeDirect, OpInvokeVirtual, OpInvokeInterface, OpInvokeSuper:
		return true
	default:
		return false
	}
}

// SearchKind maps an invoke opcode to the search flavor the resolver uses.
// Panics if called on a non-invoke opcode; callers must check IsInvoke first.
func (o Opcode) SearchKind() SearchKind {
	switch o {
	case OpInvokeStatic:
		return SearchStatic
	case OpInvokeDirect:
		return SearchDirect
	case OpInvokeVirtual:
		return SearchVirtual
	case OpInvokeInterface:
		return SearchInterface
	case OpInvokeSuper:
		return SearchSuper
	default:
		panic(fmt.Sprintf("ir: SearchKind called on non-invoke opcode %d", o))
	}
}

// IsBranch reports whether the opcode can transfer control to a target
// other than the next instruction; used by the cfg package.
func (o Opcode) IsBranch() bool {
	return o == OpGoto || o == OpIf || o == OpReturn
}

// MethodRef is a symbolic reference to a method, as it appears on an
// invoke instruction, before resolution. It does not identify a runtime
// target by itself: resolve.Resolve does that.
type MethodRef struct {
	Owner      ClassName
	Name       string
	Descriptor string // e.g. "(I)V"
}

func (r MethodRef) String() string {
	return string(r.Owner) + "." + r.Name + r.Descriptor
}

// Signature uniquely identifies a Method within a Scope for the scope's
// lifetime.
type Signature string

func sig(owner ClassName, name, descriptor string) Signature {
	return Signature(string(owner) + "." + name + descriptor)
}

// Instruction is one entry in a method's linear code stream. Target is
// only meaningful for branch opcodes and is an index into the owning
// Code.Instructions slice. Ref is only meaningful for invoke opcodes.
type Instruction struct {
	Opcode Opcode
	Ref    MethodRef
	Target int
}

// Code is a method's body: a flat instruction stream. Basic-block
// structure, when needed, is derived on demand by the cfg package.
type Code struct {
	Instructions []Instruction
}

// InvokeSites returns the index of every invoke instruction in the code,
// in stream order.
func (c *Code) InvokeSites() []int {
	var sites []int
	for i, insn := range c.Instructions {
		if insn.Opcode.IsInvoke() {
			sites = append(sites, i)
		}
	}
	return sites
}

// RenderState carries the mutable inlining hints a method accumulates
// during analysis. It is not part of a method's identity.
type RenderState struct {
	dontInline  bool
	forceInline bool
}

func (r *RenderState) DontInline() bool  { return r.dontInline }
func (r *RenderState) ForceInline() bool { return r.forceInline }

func (r *RenderState) SetDontInline() { r.dontInline = true }

// SetForceInline sets the force-inline hint. It is a no-op if
// DontInline has already been set, since do-not-inline always wins.
func (r *RenderState) SetForceInline() {
	if r.dontInline {
		return
	}
	r.forceInline = true
}

// Method is one method of one class. Its identity (Signature) is stable
// for the lifetime of the owning Scope.
type Method struct {
	Ref      MethodRef
	Owner    *Class
	Virtual  bool // declared virtual (admits override)
	Static   bool
	Clinit   bool // static initializer
	Rooted   bool // externally entered: exported, reflectively reachable, ...
	Code     *Code
	Rstate   RenderState

	// Annotations holds the method's own annotation names, independent
	// of any annotation its owner class carries.
	Annotations []string
}

// Signature returns the method's stable identity.
func (m *Method) Signature() Signature { return sig(m.Ref.Owner, m.Ref.Name, m.Ref.Descriptor) }

// IsConcrete reports whether the method has a code body (not abstract or native).
func (m *Method) IsConcrete() bool { return m.Code != nil }

func (m *Method) String() string { return m.Ref.String() }

// Class is one class in the scope: a type identity, an optional
// superclass, its direct (non-virtual) and virtual methods, and the
// annotation-derived facts the core needs (external subclassability,
// no-inline markers).
type Class struct {
	Name                   ClassName
	Super                  ClassName // "" if none (e.g. the root of the hierarchy)
	DirectMethods          []*Method
	VirtualMethods         []*Method
	ExternallySubclassable bool
	NoInlineAnnotated      bool
}

// AllMethods returns direct and virtual methods together, direct first.
func (c *Class) AllMethods() []*Method {
	out := make([]*Method, 0, len(c.DirectMethods)+len(c.VirtualMethods))
	out = append(out, c.DirectMethods...)
	out = append(out, c.VirtualMethods...)
	return out
}

// FindVirtual returns the virtual method on this class with the given
// name+descriptor, or nil.
func (c *Class) FindVirtual(name, descriptor string) *Method {
	for _, m := range c.VirtualMethods {
		if m.Ref.Name == name && m.Ref.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindAny returns the direct or virtual method on this class with the
// given name+descriptor, or nil. Used by the resolver for static/direct
// search kinds, which do not walk the hierarchy.
func (c *Class) FindAny(name, descriptor string) *Method {
	for _, m := range c.DirectMethods {
		if m.Ref.Name == name && m.Ref.Descriptor == descriptor {
			return m
		}
	}
	return c.FindVirtual(name, descriptor)
}

// Scope is an ordered collection of classes, plus the indexes the core's
// components need for O(1) lookup. Construct with NewScope; Scope is
// immutable once built except for the per-method RenderState mutations
// the inliner collaborator makes.
type Scope struct {
	Classes []*Class

	classByName  map[ClassName]*Class
	methodBySig  map[Signature]*Method
}

// NewScope indexes classes and their methods. Class iteration order is
// preserved as given; callers that want a deterministic build should pass
// a deterministically ordered slice.
func NewScope(classes []*Class) *Scope {
	s := &Scope{
		Classes:     classes,
		classByName: make(map[ClassName]*Class, len(classes)),
		methodBySig: make(map[Signature]*Method),
	}
	for _, c := range classes {
		s.classByName[c.Name] = c
		for _, m := range c.AllMethods() {
			m.Owner = c
			s.methodBySig[m.Signature()] = m
		}
	}
	return s
}

// ClassNamed looks up a class by name; ok is false if the class is not in
// the scope (a dangling reference, e.g. a missing superclass).
func (s *Scope) ClassNamed(name ClassName) (*Class, bool) {
	c, ok := s.classByName[name]
	return c, ok
}

// MethodNamed looks up a method by its stable signature.
func (s *Scope) MethodNamed(sig Signature) (*Method, bool) {
	m, ok := s.methodBySig[sig]
	return m, ok
}

// AllMethods returns every method in the scope, owning class by owning
// class, in class-iteration order.
func (s *Scope) AllMethods() []*Method {
	var out []*Method
	for _, c := range s.Classes {
		out = append(out, c.AllMethods()...)
	}
	return out
}
