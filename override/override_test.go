package override_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexanalysis-core/internal/fixtures"
	"dexanalysis-core/ir"
	"dexanalysis-core/override"
)

func TestBuildRecordsDirectOverrideEdge(t *testing.T) {
	scope := fixtures.OverrideScenario()
	g := override.Build(scope)

	a, _ := scope.ClassNamed("scenario5.A")
	b, _ := scope.ClassNamed("scenario5.B")
	af := a.VirtualMethods[0]
	bf := b.VirtualMethods[0]

	assert.Equal(t, []*ir.Method{bf}, g.Children(af))
	assert.True(t, g.IsTrueVirtual(af), "A.f has an override, so it is true-virtual")
}

func TestNonVirtualMethodIsNeverTrueVirtual(t *testing.T) {
	scope := fixtures.FinalMethodScenario()
	g := override.Build(scope)

	d, _ := scope.ClassNamed("scenario6.D")
	h := d.DirectMethods[0]
	assert.False(t, h.Virtual)
	assert.False(t, g.IsTrueVirtual(h))
}

func TestVirtualMethodWithNoOverrideIsNonTrueVirtual(t *testing.T) {
	scope := fixtures.OverrideScenario()
	g := override.Build(scope)

	b, _ := scope.ClassNamed("scenario5.B")
	bf := b.VirtualMethods[0]

	assert.False(t, g.IsTrueVirtual(bf))
	assert.Contains(t, g.NonTrueVirtuals(scope), bf)
}

func TestExternallySubclassableMakesMethodTrueVirtualEvenWithoutOverride(t *testing.T) {
	base := &ir.Class{Name: "extsub.Base", ExternallySubclassable: true}
	f := &ir.Method{Ref: ir.MethodRef{Owner: "extsub.Base", Name: "f", Descriptor: "()V"}, Virtual: true}
	base.VirtualMethods = []*ir.Method{f}
	scope := ir.NewScope([]*ir.Class{base})

	g := override.Build(scope)
	assert.True(t, g.IsTrueVirtual(f))
}

func TestRootedMethodIsTrueVirtual(t *testing.T) {
	base := &ir.Class{Name: "rooted.Base"}
	f := &ir.Method{Ref: ir.MethodRef{Owner: "rooted.Base", Name: "f", Descriptor: "()V"}, Virtual: true, Rooted: true}
	base.VirtualMethods = []*ir.Method{f}
	scope := ir.NewScope([]*ir.Class{base})

	g := override.Build(scope)
	assert.True(t, g.IsTrueVirtual(f))
}

func TestDanglingSuperclassTreatsMethodAsItsOwnRoot(t *testing.T) {
	scope := fixtures.DanglingSuperclass()
	g := override.Build(scope)

	orphan, _ := scope.ClassNamed("dangling.Orphan")
	m := orphan.VirtualMethods[0]

	// No ancestor was found (the superclass is missing), so m has no
	// parent edge recorded anywhere, and (having no children and no other
	// qualifying fact) is not true-virtual.
	assert.Empty(t, g.Children(m))
	assert.False(t, g.IsTrueVirtual(m))
}

func TestOverridesTransitiveWalksMultipleLevels(t *testing.T) {
	scope := fixtures.DiamondHierarchy()
	g := override.Build(scope)

	root, _ := scope.ClassNamed("diamond.Root")
	mid, _ := scope.ClassNamed("diamond.Mid")
	leaf, _ := scope.ClassNamed("diamond.Leaf")
	rootM := root.VirtualMethods[0]
	midM := mid.VirtualMethods[0]
	leafM := leaf.VirtualMethods[0]

	require.NotNil(t, rootM)
	transitive := g.OverridesTransitive(rootM)
	assert.ElementsMatch(t, []*ir.Method{midM, leafM}, transitive)
}
