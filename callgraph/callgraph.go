// Package callgraph builds a whole-program call graph (C3) under one of
// two dispatch-resolution strategies, combining the override graph (C1)
// and the method resolver (C2).
//
// Grounded on libredex's CallGraph.cpp: Graph owns nodes and edges by
// index (spec.md's "Design Notes", §9) rather than the original's
// shared_ptr-linked nodes/edges, to avoid reference cycles; construction
// uses an explicit worklist rather than the original's recursive visit,
// to avoid stack overflow on deep call chains.
package callgraph

import (
	"fmt"

	"dexanalysis-core/ir"
	"dexanalysis-core/override"
	"dexanalysis-core/resolve"
)

// NodeID identifies a node in a Graph. The two ghost nodes are created
// first, so Entry() is 0 and Exit() is 1; method nodes follow.
type NodeID int

// EdgeID identifies an edge in a Graph.
type EdgeID int

// Callsite is one outgoing edge a BuildStrategy reports for a method: the
// resolved callee and the locator of the invoke instruction that reaches
// it.
type Callsite struct {
	Callee  *ir.Method
	Locator InvokeLocator
}

// InvokeLocator identifies the position of an invoke instruction within
// its caller's code stream. Ghost edges carry NullLocator (Index -1);
// the zero value (Index 0) names the first instruction.
type InvokeLocator struct {
	Index int
}

// NullLocator is the locator carried by ghost-entry and ghost-exit edges,
// which do not correspond to a real invoke instruction.
var NullLocator = InvokeLocator{Index: -1}

// BuildStrategy is the two-operation capability set the builder is
// parameterized over (spec.md §9's "Strategy polymorphism" design note).
type BuildStrategy interface {
	// Roots returns the methods the strategy designates as externally
	// entered.
	Roots(scope *ir.Scope) []*ir.Method
	// Callsites returns the out-edges for one method.
	Callsites(scope *ir.Scope, m *ir.Method) []Callsite
}

type node struct {
	id       NodeID
	method   *ir.Method // nil for the two ghost nodes
	ghost    bool
	outEdges []EdgeID
	inEdges  []EdgeID
}

type edge struct {
	id      EdgeID
	from    NodeID
	to      NodeID
	locator InvokeLocator
}

// Graph is a directed graph of methods plus two ghost singleton nodes,
// GHOST_ENTRY and GHOST_EXIT. Nodes are owned by the graph; edges are
// referenced by index from both endpoints. Releasing the graph (letting
// it become unreachable) releases all of it: there are no reference
// cycles.
type Graph struct {
	nodes []node
	edges []edge

	nodeOf map[ir.Signature]NodeID

	entry NodeID
	exit  NodeID

	// dedup guards the "no duplicate edge with identical
	// (caller, callee, locator)" invariant from spec.md §4.3.
	dedup map[[3]int]bool
}

func newGraph() *Graph {
	g := &Graph{
		nodeOf: make(map[ir.Signature]NodeID),
		dedup:  make(map[[3]int]bool),
	}
	g.entry = g.addGhost()
	g.exit = g.addGhost()
	return g
}

func (g *Graph) addGhost() NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{id: id, ghost: true})
	return id
}

func (g *Graph) nodeFor(m *ir.Method) NodeID {
	sig := m.Signature()
	if id, ok := g.nodeOf[sig]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{id: id, method: m})
	g.nodeOf[sig] = id
	return id
}

// addEdge appends an edge from -> to with the given locator, enforcing
// the invariants from spec.md §4.3/§7: no duplicate (caller, callee,
// locator) triple, and ghost nodes are never predecessors or successors
// of each other. Invariant violations are programmer error and panic.
func (g *Graph) addEdge(from, to NodeID, locator InvokeLocator) {
	if g.nodes[from].ghost && g.nodes[to].ghost {
		panic("callgraph: ghost node adjacent to ghost node")
	}
	dedupKey := [3]int{int(from), int(to), locator.Index}
	if g.dedup[dedupKey] {
		panic(fmt.Sprintf("callgraph: duplicate edge (%d, %d, %d)", from, to, locator.Index))
	}
	g.dedup[dedupKey] = true

	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, edge{id: id, from: from, to: to, locator: locator})
	g.nodes[from].outEdges = append(g.nodes[from].outEdges, id)
	g.nodes[to].inEdges = append(g.nodes[to].inEdges, id)
}

// Build constructs a call graph for scope under strategy, following the
// protocol in spec.md §4.3: ghost-entry edges to every root, then an
// explicit worklist over callsites, adding a ghost-exit edge for any
// method with no callsites.
func Build(scope *ir.Scope, strategy BuildStrategy) *Graph {
	g := newGraph()

	roots := strategy.Roots(scope)
	for _, r := range roots {
		g.addEdge(g.entry, g.nodeFor(r), NullLocator)
	}

	visited := make(map[ir.Signature]bool)
	worklist := append([]*ir.Method{}, roots...)
	for len(worklist) > 0 {
		m := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		sig := m.Signature()
		if visited[sig] {
			continue
		}
		visited[sig] = true

		callsites := strategy.Callsites(scope, m)
		if len(callsites) == 0 {
			g.addEdge(g.nodeFor(m), g.exit, NullLocator)
			continue
		}
		for _, cs := range callsites {
			g.addEdge(g.nodeFor(m), g.nodeFor(cs.Callee), cs.Locator)
			worklist = append(worklist, cs.Callee)
		}
	}

	return g
}

// BuildSingleCalleeGraph builds the call graph under the single-callee
// strategy: a conservative over-approximation recording only monomorphic
// targets.
func BuildSingleCalleeGraph(scope *ir.Scope) *Graph {
	return Build(scope, newSingleCalleeStrategy(scope))
}

// BuildCompleteCallGraph builds the call graph under the complete
// strategy: a sound over-approximation covering every possible runtime
// target.
func BuildCompleteCallGraph(scope *ir.Scope) *Graph {
	return Build(scope, newCompleteStrategy(scope))
}

// Entry returns the GHOST_ENTRY node.
func (g *Graph) Entry() NodeID { return g.entry }

// Exit returns the GHOST_EXIT node.
func (g *Graph) Exit() NodeID { return g.exit }

// Nodes returns every node ID in the graph, ghosts included, in creation
// order. Iteration order beyond "ghosts first" is not part of the
// contract.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		out[i] = NodeID(i)
	}
	return out
}

// Successors returns the nodes n has outgoing edges to. Order is not
// part of the contract.
func (g *Graph) Successors(n NodeID) []NodeID {
	edges := g.nodes[n].outEdges
	out := make([]NodeID, len(edges))
	for i, eid := range edges {
		out[i] = g.edges[eid].to
	}
	return out
}

// Predecessors returns the nodes with outgoing edges to n. Order is not
// part of the contract.
func (g *Graph) Predecessors(n NodeID) []NodeID {
	edges := g.nodes[n].inEdges
	out := make([]NodeID, len(edges))
	for i, eid := range edges {
		out[i] = g.edges[eid].from
	}
	return out
}

// OutEdges returns the edge IDs of n's outgoing edges.
func (g *Graph) OutEdges(n NodeID) []EdgeID {
	return g.nodes[n].outEdges
}

// MethodOf returns the method a node represents, or (nil, false) for a
// ghost node.
func (g *Graph) MethodOf(n NodeID) (*ir.Method, bool) {
	nd := g.nodes[n]
	return nd.method, !nd.ghost
}

// InvokeLocator returns the locator carried by edge e.
func (g *Graph) InvokeLocator(e EdgeID) InvokeLocator {
	return g.edges[e].locator
}

// EdgeEndpoints returns the (from, to) node IDs of edge e.
func (g *Graph) EdgeEndpoints(e EdgeID) (NodeID, NodeID) {
	ed := g.edges[e]
	return ed.from, ed.to
}

// --- strategies ---

type singleCalleeStrategy struct {
	overrides  *override.Graph
	nonVirtual map[ir.Signature]bool
	cache      *resolve.Cache
}

func newSingleCalleeStrategy(scope *ir.Scope) *singleCalleeStrategy {
	og := override.Build(scope)
	nv := make(map[ir.Signature]bool)
	for _, m := range og.NonTrueVirtuals(scope) {
		nv[m.Signature()] = true
	}
	return &singleCalleeStrategy{overrides: og, nonVirtual: nv, cache: resolve.NewCache()}
}

// isDefinitelyVirtual mirrors libredex's is_definitely_virtual: declared
// virtual and not known to be non-true-virtual.
func (s *singleCalleeStrategy) isDefinitelyVirtual(m *ir.Method) bool {
	return m.Virtual && !s.nonVirtual[m.Signature()]
}

func (s *singleCalleeStrategy) Roots(scope *ir.Scope) []*ir.Method {
	var roots []*ir.Method
	for _, m := range scope.AllMethods() {
		if !m.IsConcrete() {
			continue
		}
		if s.overrides.IsTrueVirtual(m) || m.Rooted || m.Clinit {
			roots = append(roots, m)
		}
	}
	return roots
}

func (s *singleCalleeStrategy) Callsites(scope *ir.Scope, m *ir.Method) []Callsite {
	if m.Code == nil {
		return nil
	}
	var out []Callsite
	for _, idx := range m.Code.InvokeSites() {
		insn := m.Code.Instructions[idx]
		callee, ok := resolve.Resolve(scope, insn.Ref, insn.Opcode.SearchKind(), s.cache, m)
		if !ok {
			continue
		}
		if s.isDefinitelyVirtual(callee) {
			continue
		}
		if !callee.IsConcrete() {
			continue
		}
		out = append(out, Callsite{Callee: callee, Locator: InvokeLocator{Index: idx}})
	}
	return out
}

type completeStrategy struct {
	overrides *override.Graph
	cache     *resolve.Cache
}

func newCompleteStrategy(scope *ir.Scope) *completeStrategy {
	return &completeStrategy{overrides: override.Build(scope), cache: resolve.NewCache()}
}

func (s *completeStrategy) Roots(scope *ir.Scope) []*ir.Method {
	var roots []*ir.Method
	for _, m := range scope.AllMethods() {
		if m.Rooted || m.Clinit {
			roots = append(roots, m)
		}
	}
	return roots
}

func (s *completeStrategy) Callsites(scope *ir.Scope, m *ir.Method) []Callsite {
	if m.Code == nil {
		return nil
	}
	var out []Callsite
	for _, idx := range m.Code.InvokeSites() {
		insn := m.Code.Instructions[idx]
		callee, ok := resolve.Resolve(scope, insn.Ref, insn.Opcode.SearchKind(), s.cache, m)
		if !ok {
			continue
		}
		loc := InvokeLocator{Index: idx}
		if callee.IsConcrete() {
			out = append(out, Callsite{Callee: callee, Locator: loc})
		}
		for _, overrider := range s.overrides.OverridesTransitive(callee) {
			out = append(out, Callsite{Callee: overrider, Locator: loc})
		}
	}
	return out
}
