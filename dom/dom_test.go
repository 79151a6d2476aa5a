package dom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dexanalysis-core/dom"
)

// testGraph is a small literal edge-list graph used only by these tests,
// analogous to the GraphInterface fixture in
// original_source/test/unit/DominatorsTest.cpp.
type testGraph struct {
	entry int
	succ  map[int][]int
	pred  map[int][]int
	nodes []int
}

func newTestGraph(entry int, edges [][2]int) *testGraph {
	g := &testGraph{entry: entry, succ: map[int][]int{}, pred: map[int][]int{}}
	seen := map[int]bool{}
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			g.nodes = append(g.nodes, n)
		}
	}
	add(entry)
	for _, e := range edges {
		from, to := e[0], e[1]
		add(from)
		add(to)
		g.succ[from] = append(g.succ[from], to)
		g.pred[to] = append(g.pred[to], from)
	}
	return g
}

func (g *testGraph) Entry() int             { return g.entry }
func (g *testGraph) Successors(n int) []int { return g.succ[n] }
func (g *testGraph) Predecessors(n int) []int { return g.pred[n] }
func (g *testGraph) Nodes() []int           { return g.nodes }

func assertIdom(t *testing.T, tree *dom.Tree[int], want map[int]int) {
	t.Helper()
	for n, wantIdom := range want {
		got, ok := tree.Idom(n)
		assert.True(t, ok, "node %d should be reachable", n)
		assert.Equal(t, wantIdom, got, "idom(%d)", n)
	}
}

// Scenario 1 from spec.md §8.
func TestBuildSimpleDiamond(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}, {0, 2}, {1, 3}, {1, 4}, {4, 2}})
	tree := dom.Build[int](g)
	assertIdom(t, tree, map[int]int{0: 0, 1: 0, 2: 0, 3: 1, 4: 1})
}

// Scenario 2 from spec.md §8: a back edge from node 3 to the entry.
func TestBuildLoopBackToEntry(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}, {3, 0}})
	tree := dom.Build[int](g)
	assertIdom(t, tree, map[int]int{0: 0, 1: 0, 2: 0, 3: 0})
}

// Scenario 3 from spec.md §8: two independent loops joined downstream.
func TestBuildTwoLoopsJoinDownstream(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}, {1, 2}, {2, 1}, {0, 3}, {3, 4}, {4, 3}, {4, 5}, {2, 5}})
	tree := dom.Build[int](g)
	assertIdom(t, tree, map[int]int{0: 0, 1: 0, 2: 1, 3: 0, 4: 3, 5: 0})
}

// Scenario 4 from spec.md §8: the same shape with the second loop entered
// from node 1 instead of from the entry, changing the immediate dominator
// of nodes 3 and 5 from 0 to 1.
func TestBuildLoopOwnershipShiftsIdom(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}, {1, 2}, {2, 1}, {1, 3}, {3, 4}, {4, 3}, {4, 5}, {2, 5}})
	tree := dom.Build[int](g)
	assertIdom(t, tree, map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 4: 3, 5: 1})
}

func TestEntryDominatesEveryReachableNode(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}, {1, 2}, {2, 1}, {1, 3}})
	tree := dom.Build[int](g)
	for _, n := range g.Nodes() {
		assert.True(t, tree.Dominates(0, n), "entry must dominate node %d", n)
	}
}

func TestDominatesIsReflexive(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}, {1, 2}})
	tree := dom.Build[int](g)
	assert.True(t, tree.Dominates(2, 2))
}

func TestUnreachableNodeIsAbsentFromTree(t *testing.T) {
	g := newTestGraph(0, [][2]int{{0, 1}})
	g.nodes = append(g.nodes, 99) // present in the node set, but never an edge endpoint
	tree := dom.Build[int](g)
	_, ok := tree.Idom(99)
	assert.False(t, ok)
}

func TestIdomIsInvariantUnderSuccessorOrderPermutation(t *testing.T) {
	g1 := newTestGraph(0, [][2]int{{0, 1}, {0, 2}, {1, 3}, {1, 4}, {4, 2}})
	g2 := newTestGraph(0, [][2]int{{0, 2}, {0, 1}, {1, 4}, {1, 3}, {4, 2}})

	t1 := dom.Build[int](g1)
	t2 := dom.Build[int](g2)

	for _, n := range []int{1, 2, 3, 4} {
		d1, ok1 := t1.Idom(n)
		d2, ok2 := t2.Idom(n)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, d1, d2, "idom(%d) must not depend on successor-list order", n)
	}
}
