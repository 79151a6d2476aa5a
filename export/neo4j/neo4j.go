// Package neo4j persists a computed override graph, call graph, and
// dominator tree into Neo4j for interactive inspection with Cypher.
//
// Grounded directly on scarbo87-go-callgraph-neo4j's Neo4jLoader: the
// same NewDriverWithContext/BasicAuth connection setup, the same
// ExecuteQuery+EagerResultTransformer query helper, and the same
// batched UNWIND+MERGE upsert pattern, applied to IRMethod/IRClass nodes
// and CALLS/OVERRIDES/IDOM relationships instead of GoFunc/GoPackage and
// ACCURATE_CALLS/IMPLEMENTS.
package neo4j

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"dexanalysis-core/callgraph"
	"dexanalysis-core/dom"
	"dexanalysis-core/ir"
	"dexanalysis-core/override"
)

// Loader connects to Neo4j and upserts the analysis core's output graphs.
type Loader struct {
	driver neo4j.DriverWithContext
	ctx    context.Context
}

// NewLoader connects to Neo4j and returns a ready-to-use Loader.
func NewLoader(ctx context.Context, uri, user, password string) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}
	return &Loader{driver: driver, ctx: ctx}, nil
}

// Close releases the underlying Neo4j driver resources.
func (l *Loader) Close() {
	l.driver.Close(l.ctx)
}

func (l *Loader) runCypher(cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(l.ctx, l.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

// CreateIndexes ensures the indexes the upserts below rely on exist.
func (l *Loader) CreateIndexes() error {
	log.Println("Creating indexes...")
	indexes := []string{
		"CREATE INDEX ir_class_name IF NOT EXISTS FOR (n:IRClass) ON (n.name)",
		"CREATE INDEX ir_method_sig IF NOT EXISTS FOR (n:IRMethod) ON (n.signature)",
	}
	for _, q := range indexes {
		if err := l.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CleanGraph removes all previously loaded nodes and relationships.
func (l *Loader) CleanGraph() error {
	log.Println("Cleaning existing IR graph data...")
	queries := []string{
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH ()-[r:OVERRIDES]->() DELETE r",
		"MATCH ()-[r:IDOM]->() DELETE r",
		"MATCH (n:IRMethod) DETACH DELETE n",
		"MATCH (n:IRClass) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadScope upserts IRClass nodes for every class in scope.
func (l *Loader) LoadScope(scope *ir.Scope) error {
	log.Printf("Loading %d classes...", len(scope.Classes))
	batch := make([]map[string]any, 0, len(scope.Classes))
	for _, c := range scope.Classes {
		batch = append(batch, map[string]any{
			"name":  string(c.Name),
			"super": string(c.Super),
		})
	}
	return l.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:IRClass {name: row.name})
		 SET n.super = row.super`,
		map[string]any{"batch": batch},
	)
}

// LoadOverrides upserts OVERRIDES relationships from each method to the
// methods that directly override it.
func (l *Loader) LoadOverrides(scope *ir.Scope, og *override.Graph) error {
	type row struct{ parent, child string }
	var rows []row
	for _, m := range scope.AllMethods() {
		for _, child := range og.Children(m) {
			rows = append(rows, row{parent: string(m.Signature()), child: string(child.Signature())})
		}
	}
	log.Printf("Loading %d override edges...", len(rows))
	batch := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, map[string]any{"parent": r.parent, "child": r.child})
	}
	return l.runCypher(
		`UNWIND $batch AS row
		 MERGE (p:IRMethod {signature: row.parent})
		 MERGE (c:IRMethod {signature: row.child})
		 MERGE (p)-[:OVERRIDES]->(c)`,
		map[string]any{"batch": batch},
	)
}

// LoadCallGraph upserts IRMethod nodes and CALLS relationships for every
// non-ghost edge in g.
func (l *Loader) LoadCallGraph(g *callgraph.Graph) error {
	var batch []map[string]any
	for _, e := range g.Nodes() {
		for _, eid := range g.OutEdges(e) {
			from, to := g.EdgeEndpoints(eid)
			fromM, fromOK := g.MethodOf(from)
			toM, toOK := g.MethodOf(to)
			if !fromOK || !toOK {
				continue // skip ghost-adjacent edges; ghosts have no signature to key on
			}
			batch = append(batch, map[string]any{
				"caller": string(fromM.Signature()),
				"callee": string(toM.Signature()),
				"site":   g.InvokeLocator(eid).Index,
			})
		}
	}
	log.Printf("Loading %d call edges...", len(batch))
	return l.runCypher(
		`UNWIND $batch AS row
		 MERGE (caller:IRMethod {signature: row.caller})
		 MERGE (callee:IRMethod {signature: row.callee})
		 MERGE (caller)-[r:CALLS]->(callee)
		 SET r.site = row.site`,
		map[string]any{"batch": batch},
	)
}

// LoadDominators upserts IDOM relationships from each node to its
// immediate dominator, labeled nodes by signature.
func (l *Loader) LoadDominators(g *callgraph.Graph, tree *dom.Tree[callgraph.NodeID]) error {
	var batch []map[string]any
	for _, n := range g.Nodes() {
		m, ok := g.MethodOf(n)
		if !ok {
			continue
		}
		d, ok := tree.Idom(n)
		if !ok || d == n {
			continue
		}
		dm, ok := g.MethodOf(d)
		if !ok {
			continue
		}
		batch = append(batch, map[string]any{
			"v":    string(m.Signature()),
			"idom": string(dm.Signature()),
		})
	}
	log.Printf("Loading %d idom edges...", len(batch))
	return l.runCypher(
		`UNWIND $batch AS row
		 MERGE (v:IRMethod {signature: row.v})
		 MERGE (d:IRMethod {signature: row.idom})
		 MERGE (d)-[:IDOM]->(v)`,
		map[string]any{"batch": batch},
	)
}
