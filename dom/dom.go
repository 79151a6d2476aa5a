// Package dom computes immediate dominators for an arbitrary directed
// rooted graph (C4), generic over any graph-shape that exposes an entry
// node, per-node successors/predecessors, and a node set.
//
// The algorithm is the iterative "simple, fast" dominance computation
// (Cooper, Harvey & Kennedy, "A Simple, Fast Dominance Algorithm"), not
// Lengauer-Tarjan, per spec.md §4.4's explicit note that callers only
// ever run this on modestly sized per-method graphs. Confirmed against
// the reference semantics in original_source/test/unit/DominatorsTest.cpp.
package dom

// Graph is the capability set the dominator engine needs. N is any
// comparable node identifier type with value equality; callers
// instantiate this on call graphs (callgraph.NodeID) or control-flow
// graphs (cfg.BlockID) alike.
type Graph[N comparable] interface {
	Entry() N
	Successors(n N) []N
	Predecessors(n N) []N
	Nodes() []N
}

// Tree is the result of Build: each reachable node other than the entry
// maps to its immediate dominator. The entry dominates itself. Querying
// a node absent from the graph, or unreachable from the entry, returns
// the zero value of N and ok=false.
type Tree[N comparable] struct {
	entry N
	idom  map[N]N
}

// Idom returns v's immediate dominator. idom(entry) == entry always.
// Unreachable or unknown nodes return (zero value, false).
func (t *Tree[N]) Idom(v N) (N, bool) {
	d, ok := t.idom[v]
	return d, ok
}

// Dominates reports whether a dominates b: walking Idom repeatedly from
// b reaches a in finitely many steps (including a == b).
func (t *Tree[N]) Dominates(a, b N) bool {
	for {
		if a == b {
			return true
		}
		d, ok := t.idom[b]
		if !ok || d == b {
			return a == b
		}
		b = d
	}
}

// Build computes the immediate dominator of every node reachable from
// g's entry. Unreachable nodes are absent from the result.
func Build[N comparable](g Graph[N]) *Tree[N] {
	entry := g.Entry()

	rpo, rpoIndex := reversePostorder(g, entry)

	idom := make(map[N]N, len(rpo))
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		// Skip index 0: that is the entry, already fixed.
		for i := 1; i < len(rpo); i++ {
			b := rpo[i]

			var newIdom N
			var haveNewIdom bool
			for _, p := range g.Predecessors(b) {
				if _, ok := idom[p]; !ok {
					continue // predecessor not yet processed this pass
				}
				if !haveNewIdom {
					newIdom = p
					haveNewIdom = true
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if !haveNewIdom {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	return &Tree[N]{entry: entry, idom: idom}
}

// intersect walks two fingers up the dominator tree being built,
// comparing reverse-postorder numbers, until they meet at the nearest
// common ancestor. Requires both b1 and b2 to already have an idom
// entry (true of any node already processed in the current pass).
func intersect[N comparable](idom map[N]N, rpoIndex map[N]int, b1, b2 N) N {
	finger1, finger2 := b1, b2
	for finger1 != finger2 {
		for rpoIndex[finger1] > rpoIndex[finger2] {
			finger1 = idom[finger1]
		}
		for rpoIndex[finger2] > rpoIndex[finger1] {
			finger2 = idom[finger2]
		}
	}
	return finger1
}

// reversePostorder returns the nodes reachable from entry in
// reverse-postorder, along with each node's position in that order.
// Unreachable nodes are excluded, matching spec.md §4.4's "Unreachable
// nodes yield ... undefined" contract.
func reversePostorder[N comparable](g Graph[N], entry N) ([]N, map[N]int) {
	visited := make(map[N]bool)
	var postorder []N

	var visit func(n N)
	visit = func(n N) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, s := range g.Successors(n) {
			visit(s)
		}
		postorder = append(postorder, n)
	}
	visit(entry)

	rpo := make([]N, len(postorder))
	for i, n := range postorder {
		rpo[len(postorder)-1-i] = n
	}
	rpoIndex := make(map[N]int, len(rpo))
	for i, n := range rpo {
		rpoIndex[n] = i
	}
	return rpo, rpoIndex
}
