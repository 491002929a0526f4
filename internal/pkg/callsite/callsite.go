// Package callsite implements C7: matching a call's actual arguments to
// a callee's declared formal roots, applying its sink and
// taint-in-taint-out models, stamping each contribution with a
// callee/call-ID breadcrumb, and falling
// back to the obscure treatment when no model is known (spec.md §4.4).
package callsite

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/normalize"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/transfer"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

// Engine implements transfer.CallAnalyzer.
type Engine struct {
	Resolver    resolver.Resolver
	CallTargets resolver.CallTargetResolver
	Models      model.Registry
	// WellKnownDangerous names external targets (e.g. a shell-execution
	// function) for which AnalyzeCall synthesizes a single-argument
	// TaintSink[Shell] model on first use rather than requiring an
	// explicit declaration. This is the model cache spec.md §5 calls a
	// concession to ergonomics, not a correctness feature: an empty map
	// disables it with no change to observable results for any program
	// whose model source declares those targets explicitly.
	WellKnownDangerous map[string]bool

	cache *lru.Cache[string, model.Model]
}

// NewEngine builds an Engine with its synthetic-model cache sized to
// cacheSize entries (0 disables caching, relying solely on Models).
func NewEngine(r resolver.Resolver, ct resolver.CallTargetResolver, models model.Registry, wellKnown map[string]bool, cacheSize int) *Engine {
	var cache *lru.Cache[string, model.Model]
	if cacheSize > 0 {
		cache, _ = lru.New[string, model.Model](cacheSize)
	}
	return &Engine{
		Resolver:           r,
		CallTargets:        ct,
		Models:             models,
		WellKnownDangerous: wellKnown,
		cache:              cache,
	}
}

// AnalyzeCall implements transfer.CallAnalyzer.
func (e *Engine) AnalyzeCall(callee normalize.Normalized, args []ir.Arg, incoming *tree.Tree, st env.Environment, ctx transfer.Context) env.Environment {
	targets := e.resolveTargets(callee)
	if len(targets) == 0 {
		return e.obscureFallback(args, incoming, st, ctx)
	}
	// Each candidate target is analyzed against the same input state and
	// the resulting states joined (§4.4). Since every contribution below
	// is a weak (joining) assignment, threading st sequentially through
	// each target produces the same result as analyzing independently
	// and joining afterward (see transfer.AnalyzeExpression's doc comment
	// for the underlying argument).
	for _, target := range targets {
		st = e.analyzeTarget(target, args, incoming, st, ctx)
	}
	return st
}

func (e *Engine) resolveTargets(callee normalize.Normalized) []resolver.Target {
	switch callee.Kind {
	case normalize.Global, normalize.Local:
		return e.CallTargets.Resolve(callee.Name)
	case normalize.Access:
		recvType, ok := e.Resolver.ResolveType(callee.Base.Original)
		if !ok {
			return nil
		}
		return e.CallTargets.ResolveIndirect(recvType, callee.Member)
	default:
		return nil
	}
}

func (e *Engine) analyzeTarget(target resolver.Target, args []ir.Arg, incoming *tree.Tree, st env.Environment, ctx transfer.Context) env.Environment {
	m, ok := e.Models.Get(target.Name)
	bindings := e.formalBindings(target.Name)
	if !ok {
		if sm, synth := e.syntheticModel(target.Name); synth {
			m, ok = sm, true
			// A synthetic model has no backing resolver signature, so its
			// formal binding is fixed: a single positional root matching
			// the sink tree syntheticModel declares.
			bindings = []resolver.ParamBinding{{Root: env.NewPositionalParameter(0, "command"), Name: "command"}}
		}
	}
	if !ok || m.IsObscure {
		return e.obscureFallback(args, incoming, st, ctx)
	}

	matches := matchArgs(args, bindings)
	callID := uuid.NewString()
	for _, mt := range matches {
		sinkLeaves := tree.Read(m.SinkTaint.At(mt.root), label.Empty(), tree.Identity)
		sinkTree := tree.Leaf(applyCall(sinkLeaves, target.Name, callID))
		titoTree := titoContribution(m.TaintInTaintOut.At(mt.root), incoming, target.Name, callID)
		st = transfer.AnalyzeExpression(mt.arg.Value, tree.Join(sinkTree, titoTree), st, ctx)
	}
	return st
}

// obscureFallback implements the obscure treatment (§4.4): incoming
// taint collapses to a single leaf tagged "obscure" and propagates
// unchanged to every (non-starred) actual argument.
func (e *Engine) obscureFallback(args []ir.Arg, incoming *tree.Tree, st env.Environment, ctx transfer.Context) env.Environment {
	collapsed := tree.Leaf(tree.Collapse(incoming).WithBreadcrumb("obscure"))
	for _, a := range args {
		if a.Starred {
			continue
		}
		st = transfer.AnalyzeExpression(a.Value, collapsed, st, ctx)
	}
	return st
}

func (e *Engine) formalBindings(target string) []resolver.ParamBinding {
	sig, ok := e.Resolver.Signature(target)
	if !ok {
		return nil
	}
	return resolver.NormalizeParameters(sig)
}

// syntheticModel returns (and caches) a synthetic single-parameter
// TaintSink[Shell] model for a configured well-known dangerous target.
func (e *Engine) syntheticModel(target string) (model.Model, bool) {
	if e.cache != nil {
		if m, hit := e.cache.Get(target); hit {
			return m, true
		}
	}
	if !e.WellKnownDangerous[target] {
		return model.Model{}, false
	}
	m := model.Empty()
	m.SinkTaint = env.New().WithTree(env.NewPositionalParameter(0, "command"), tree.Leaf(leafset.Single("Shell")))
	if e.cache != nil {
		e.cache.Add(target, m)
	}
	return m, true
}

// argMatch is one {actual, formal root} pairing (§4.4). This
// implementation matches only at the formal's root path: it does not
// attempt sub-path argument destructuring, which spec.md does not detail
// beyond "matches actual to formal arguments".
type argMatch struct {
	arg  ir.Arg
	root env.Root
}

func matchArgs(args []ir.Arg, bindings []resolver.ParamBinding) []argMatch {
	byName := map[string]env.Root{}
	var positional []env.Root
	for _, b := range bindings {
		byName[b.Name] = b.Root
		if b.Root.Kind == env.PositionalParameter {
			positional = append(positional, b.Root)
		}
	}

	var out []argMatch
	posIdx := 0
	for _, a := range args {
		if a.Starred {
			// Unpacked arguments (*xs) don't match a single formal root;
			// out of scope for this matcher.
			continue
		}
		if a.Keyword != "" {
			if root, ok := byName[a.Keyword]; ok {
				out = append(out, argMatch{arg: a, root: root})
			}
			continue
		}
		if posIdx < len(positional) {
			out = append(out, argMatch{arg: a, root: positional[posIdx]})
		}
		posIdx++
	}
	return out
}

// applyCall stamps a leaf set with a breadcrumb identifying the callee
// and this call's unique ID (§8 "every leaf produced by C7 carries
// exactly one breadcrumb identifying the stamped callee").
func applyCall(ls leafset.LeafSet, callee, callID string) leafset.LeafSet {
	return ls.WithBreadcrumb(callee + "#" + callID)
}

// titoContribution implements the TITO half of §4.4: for every raw path
// in the callee's taint_in_taint_out tree rooted at the matched formal,
// every ReturnAccessPath feature on that path's tip names a suffix of
// the incoming call taint that flows back out through this argument.
func titoContribution(titoTree *tree.Tree, incoming *tree.Tree, callee, callID string) *tree.Tree {
	result := tree.Empty()
	tree.Fold(titoTree, struct{}{}, func(_ struct{}, titoPath label.Path, tip leafset.LeafSet) struct{} {
		for _, k := range tip.Kinds() {
			for _, extra := range tip.ReturnAccessPaths(k) {
				collapsed := tree.Read(incoming, extra, tree.Identity)
				if collapsed.IsEmpty() {
					continue
				}
				for _, b := range tip.Breadcrumbs(k) {
					collapsed = collapsed.WithBreadcrumb(b)
				}
				collapsed = collapsed.WithBreadcrumb("tito:" + callee + "#" + callID)
				result = tree.Join(result, tree.Prepend(titoPath, tree.Leaf(collapsed)))
			}
		}
		return struct{}{}
	})
	return result
}
