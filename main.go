package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"dexanalysis-core/callgraph"
	"dexanalysis-core/dom"
	neo4jexport "dexanalysis-core/export/neo4j"
	"dexanalysis-core/goadapter"
	"dexanalysis-core/ir"
	"dexanalysis-core/override"
)

func main() {
	var (
		strategy  = flag.String("strategy", "single-callee", "call graph strategy: single-callee or complete")
		goDir     = flag.String("go-dir", "", "import an ir.Scope from a real Go module at this path instead of the builtin demo scope")
		neo4jURI  = flag.String("neo4j-uri", "", "Neo4j bolt URI; when set, the computed graphs are loaded into Neo4j")
		neo4jUser = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass = flag.String("neo4j-pass", "", "Neo4j password")
		clean     = flag.Bool("clean", false, "clean existing IR graph data before loading")
	)
	flag.Parse()

	if *neo4jURI != "" && *neo4jPass == "" {
		fmt.Fprintln(os.Stderr, "Error: --neo4j-pass is required when --neo4j-uri is set")
		flag.Usage()
		os.Exit(1)
	}

	scope, err := loadScope(*goDir)
	if err != nil {
		log.Fatalf("loading scope: %v", err)
	}
	log.Printf("Scope: %d classes, %d methods", len(scope.Classes), len(scope.AllMethods()))

	log.Println("Building method-override graph...")
	og := override.Build(scope)

	log.Println("Building call graph...")
	var g *callgraph.Graph
	switch *strategy {
	case "single-callee":
		g = callgraph.BuildSingleCalleeGraph(scope)
	case "complete":
		g = callgraph.BuildCompleteCallGraph(scope)
	default:
		log.Fatalf("unknown strategy %q (want single-callee or complete)", *strategy)
	}
	log.Printf("Call graph: %d nodes", len(g.Nodes()))

	log.Println("Computing dominators over the call graph...")
	tree := dom.Build[callgraph.NodeID](g)

	if *neo4jURI == "" {
		log.Println("Done (no --neo4j-uri given, skipping export).")
		return
	}

	ctx := context.Background()
	loader, err := neo4jexport.NewLoader(ctx, *neo4jURI, *neo4jUser, *neo4jPass)
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	if *clean {
		if err := loader.CleanGraph(); err != nil {
			log.Fatal(err)
		}
	}
	if err := loader.CreateIndexes(); err != nil {
		log.Fatal(err)
	}
	if err := loader.LoadScope(scope); err != nil {
		log.Fatal(err)
	}
	if err := loader.LoadOverrides(scope, og); err != nil {
		log.Fatal(err)
	}
	if err := loader.LoadCallGraph(g); err != nil {
		log.Fatal(err)
	}
	if err := loader.LoadDominators(g, tree); err != nil {
		log.Fatal(err)
	}

	log.Println("Done! Graph loaded into Neo4j.")
}

func loadScope(goDir string) (*ir.Scope, error) {
	if goDir == "" {
		return demoScope(), nil
	}
	log.Printf("Importing scope from Go module at %s...", goDir)
	return goadapter.LoadScope(goDir)
}

// demoScope is a small hand-built scope used when no --go-dir is given,
// so the tool has something to analyze out of the box.
func demoScope() *ir.Scope {
	base := &ir.Class{Name: "demo.Base"}
	baseF := &ir.Method{Ref: ir.MethodRef{Owner: "demo.Base", Name: "f", Descriptor: "()V"}, Virtual: true}
	base.VirtualMethods = []*ir.Method{baseF}

	derived := &ir.Class{Name: "demo.Derived", Super: "demo.Base"}
	derivedF := &ir.Method{Ref: ir.MethodRef{Owner: "demo.Derived", Name: "f", Descriptor: "()V"}, Virtual: true}
	derived.VirtualMethods = []*ir.Method{derivedF}

	caller := &ir.Class{Name: "demo.Caller"}
	g := &ir.Method{
		Ref:    ir.MethodRef{Owner: "demo.Caller", Name: "g", Descriptor: "()V"},
		Rooted: true,
		Code: &ir.Code{Instructions: []ir.Instruction{
			{Opcode: ir.OpInvokeVirtual, Ref: ir.MethodRef{Owner: "demo.Base", Name: "f", Descriptor: "()V"}},
		}},
	}
	caller.DirectMethods = []*ir.Method{g}

	return ir.NewScope([]*ir.Class{base, derived, caller})
}
