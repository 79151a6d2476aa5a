// Package resolve implements the method resolver (C2): given an
// invoke-site's symbolic reference, search kind, and enclosing method,
// return the method definition it targets, memoizing the result in a
// cache keyed by (ref, search kind).
//
// Grounded on libredex's resolve_method/MethodRefCache, as used by
// CallGraph.cpp's two build strategies.
package resolve

import (
	"sync"

	"dexanalysis-core/ir"
)

// key is the cache key: a symbolic reference plus the search flavor it
// was resolved under. The same reference can resolve differently under
// different search kinds (e.g. super vs virtual), so both are part of the
// key.
type key struct {
	ref  ir.MethodRef
	kind ir.SearchKind
}

// entry is the cached outcome of a resolution: method may be nil, which
// still counts as a cached "unresolved" result (⊥), distinct from no
// entry at all.
type entry struct {
	method *ir.Method
}

// Cache is a memoizing, mutex-guarded map from (ref, search kind) to
// resolved method or ⊥. It mutates through a logically pure interface:
// Resolve never returns a different result for the same inputs because
// the cache changed, only faster. Safe for concurrent use; reads of
// already-resolved entries do not block each other.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]entry
}

// NewCache returns an empty resolver cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[key]entry)}
}

func (c *Cache) get(k key) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	return e, ok
}

func (c *Cache) put(k key, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = e
}

// Resolve returns the method definition that ref resolves to under kind,
// with or without a code body, from the perspective of caller (only used
// by SearchSuper, which anchors the search at the caller's declaring
// class's direct parent rather than at ref.Owner). ok is false if the
// reference is unresolved; this is not an error, callers should skip the
// callsite.
func Resolve(scope *ir.Scope, ref ir.MethodRef, kind ir.SearchKind, cache *Cache, caller *ir.Method) (*ir.Method, bool) {
	if kind == ir.SearchSuper {
		// The super search depends on caller, which is not part of the
		// cache key, so it bypasses the cache.
		m := resolveUncached(scope, ref, kind, caller)
		return m, m != nil
	}

	k := key{ref: ref, kind: kind}
	if e, ok := cache.get(k); ok {
		return e.method, e.method != nil
	}

	m := resolveUncached(scope, ref, kind, caller)
	cache.put(k, entry{method: m})
	return m, m != nil
}

func resolveUncached(scope *ir.Scope, ref ir.MethodRef, kind ir.SearchKind, caller *ir.Method) *ir.Method {
	switch kind {
	case ir.SearchStatic, ir.SearchDirect:
		owner, ok := scope.ClassNamed(ref.Owner)
		if !ok {
			return nil
		}
		return owner.FindAny(ref.Name, ref.Descriptor)

	case ir.SearchVirtual, ir.SearchInterface:
		owner, ok := scope.ClassNamed(ref.Owner)
		if !ok {
			return nil
		}
		return walkHierarchy(scope, owner, ref.Name, ref.Descriptor)

	case ir.SearchSuper:
		if caller == nil || caller.Owner == nil || caller.Owner.Super == "" {
			return nil
		}
		parent, ok := scope.ClassNamed(caller.Owner.Super)
		if !ok {
			return nil
		}
		return walkHierarchy(scope, parent, ref.Name, ref.Descriptor)

	default:
		return nil
	}
}

// walkHierarchy looks for a direct or virtual definition (with or without
// a code body) starting at start and
// walking up the Super chain. A dangling superclass reference simply
// stops the walk: the reference is unresolved, not an error.
func walkHierarchy(scope *ir.Scope, start *ir.Class, name, descriptor string) *ir.Method {
	cur := start
	for cur != nil {
		if m := cur.FindAny(name, descriptor); m != nil {
			return m
		}
		if cur.Super == "" {
			return nil
		}
		next, ok := scope.ClassNamed(cur.Super)
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}
