// Package cfg implements the minimal per-function backward worklist
// fixpoint driver (§6 "CFG(function) → nodes + edges with per-statement
// payloads") and exposes analyze_function end to end: seed the exit
// state, iterate the transfer function to a fixpoint, then hand the
// entry environment to the entry extractor.
package cfg

import (
	"github.com/coldtrace/taintcore/internal/pkg/entry"
	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/taintcoreerr"
	"github.com/coldtrace/taintcore/internal/pkg/transfer"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

// Node is one statement of a function body plus its successor edges.
// The external CFG collaborator is responsible for control-flow
// structure (branches, loops); the core only ever walks edges backward.
type Node struct {
	Stmt  ir.Stmt
	Succs []int
}

// Graph is a function body as a flat node list; node 0 is the unique
// entry node (the external collaborator is responsible for guaranteeing
// this — a function with multiple syntactic entry statements is
// expected to have been threaded through a single synthetic entry by
// that layer before reaching the core).
type Graph struct {
	Nodes []Node
}

// maxIterations bounds the worklist loop so a malformed graph (e.g. one
// whose widening never stabilizes because the caller fed in a transfer
// function that isn't actually monotone) cannot hang the analysis. Once
// the bound is reached the loop stops and analyzeGraph returns the entry
// state reached so far; no error is reported. No well-formed input
// modeled by §4.1's lattice should ever approach it.
const maxIterations = 10000

// analyzeGraph runs the backward fixpoint over g, seeding every exit
// node (a node with no successors) with exitState, and returns the
// environment reaching function entry.
func analyzeGraph(g Graph, exitState env.Environment, ctx transfer.Context) env.Environment {
	if len(g.Nodes) == 0 {
		return env.New()
	}
	in := make([]env.Environment, len(g.Nodes))
	for i := range in {
		in[i] = env.New()
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i := len(g.Nodes) - 1; i >= 0; i-- {
			out := env.New()
			for _, s := range g.Nodes[i].Succs {
				out = env.Join(out, in[s])
			}
			if len(g.Nodes[i].Succs) == 0 {
				out = env.Join(out, exitState)
			}
			next := env.Widen(in[i], transfer.Transfer(g.Nodes[i].Stmt, out, ctx))
			if !env.Equal(next, in[i]) {
				in[i] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return in[0]
}

// AnalyzeFunction implements the exposed analyze_function(function_node,
// resolver, environment) → Model (§6). sig is the callable's formal
// signature; g is its body.
//
// Within a function body every reference to a parameter is just another
// identifier, so the backward analysis (like analyze_expression
// generally) tracks it at the Variable root bearing its name, the same
// root an ordinary local gets. Published models, by contrast, are keyed
// by the parameter's canonical position so a caller can match actual
// arguments without caring what the callee happened to name them. This
// function is the one place that translates between the two: it seeds
// the exit state at the constructor receiver's name, then remaps the
// reported entry state from name-keyed roots to position-keyed roots
// before handing it to the entry extractor.
func AnalyzeFunction(g Graph, sig resolver.FunctionSignature, r resolver.Resolver, ctx transfer.Context) (model.Model, error) {
	bindings := resolver.NormalizeParameters(sig)

	// Lifecycle (spec.md §3): a constructor's "return value" is the
	// receiver it mutates, so LocalReturn seeds at the first parameter's
	// name instead of at LocalResult.
	exitRoot := env.Result
	if sig.IsConstructor() && len(bindings) > 0 {
		exitRoot = env.NewVariable(bindings[0].Name)
	}
	exitState := env.New().WithTree(exitRoot, leafReturnTree())

	if len(g.Nodes) == 0 {
		return model.Empty(), taintcoreerr.AnalysisNoEntry(sig.Name)
	}
	entryState := analyzeGraph(g, exitState, ctx)

	published := env.New()
	for _, b := range bindings {
		if t := entryState.At(env.NewVariable(b.Name)); !tree.IsEmpty(t) {
			published = published.WithTreeStrong(b.Root, t)
		}
	}
	return entry.Extract(published, bindings, r), nil
}

func leafReturnTree() *tree.Tree {
	return tree.Leaf(leafset.Single(leafset.LocalReturn).WithReturnAccessPath(label.Empty()))
}
