// Package transfer implements C6: the backward per-statement and
// per-expression transfer functions of spec.md §4.3. Given an output
// state (the environment that holds after a statement runs) and the
// statement itself, Transfer produces the input state that would make
// the output hold.
package transfer

import (
	"fmt"
	"strconv"

	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/normalize"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

// Diagnostics receives a non-fatal note whenever the transfer function
// falls back to identity for a shape §4.3 does not list (TransferUnknownNode,
// §7). Callers that don't care may leave it nil.
type Diagnostics interface {
	Unhandled(kind string)
}

// CallAnalyzer is the call-site engine's (C7) contract with the transfer
// function. AnalyzeCall receives the call's normalized callee and raw
// arguments, the taint incoming at the call's result, and the state to
// thread the call's contribution into; it returns the updated state. It
// is an interface (rather than a direct import of the callsite package)
// so that callsite can itself call back into AnalyzeExpression to recurse
// into actual arguments without an import cycle.
type CallAnalyzer interface {
	AnalyzeCall(callee normalize.Normalized, args []ir.Arg, incoming *tree.Tree, st env.Environment, ctx Context) env.Environment
}

// Context bundles the read-only collaborators the transfer function
// needs beyond the environment it is folding updates into.
type Context struct {
	Resolver    resolver.Resolver
	Calls       CallAnalyzer
	Diagnostics Diagnostics
	// GlobalSinks holds the sink contributions the model parser declared
	// on globals via a module-level `name: TaintSink[K] = ...` form
	// (§4.5), keyed by the same Global root the normalizer produces for
	// that name. May be nil.
	GlobalSinks env.Environment
}

func (c Context) unhandled(kind string) {
	if c.Diagnostics != nil {
		c.Diagnostics.Unhandled(kind)
	}
}

// Transfer is the per-statement backward transfer function (§4.3).
func Transfer(stmt ir.Stmt, out env.Environment, ctx Context) env.Environment {
	switch stmt.Kind {
	case ir.StmtAssign:
		taint, _ := computeAssignmentTaint(stmt.Target, out, ctx)
		return AnalyzeExpression(stmt.Value, taint, out, ctx)

	case ir.StmtReturn, ir.StmtYield, ir.StmtYieldFrom:
		// A yielded value is, for TITO purposes, a return channel too
		// (§4.3), so all three push into LocalResult the same way.
		return AnalyzeExpression(stmt.Expr, out.At(env.Result), out, ctx)

	case ir.StmtExpr:
		return AnalyzeExpression(stmt.Expr, tree.Empty(), out, ctx)

	case ir.StmtControlOnly:
		return out

	default:
		ctx.unhandled(fmt.Sprintf("stmt-kind-%d", stmt.Kind))
		return out
	}
}

// computeAssignmentTaint implements compute_assignment_taint (§4.3): the
// taint tree an assignment target already carries in the output state,
// to be pulled back through the assigned value. The bool result reports
// whether the caller already knows it cannot be indexed positionally
// (the Starred case) and so must not prepend an Index label of its own.
func computeAssignmentTaint(target ir.Expr, st env.Environment, ctx Context) (*tree.Tree, bool) {
	switch target.Kind {
	case ir.Starred:
		sub, _ := computeAssignmentTaint(*target.Inner, st, ctx)
		return sub, true

	case ir.ListOrTuple:
		result := tree.Empty()
		// Reverse order: positions are processed last-to-first so that
		// widening, applied across fixpoint iterations outside this
		// function, prioritizes earlier elements (§4.3 Ordering
		// tie-breaks). The final joined tree is the same regardless of
		// order, since each position writes a disjoint Index label.
		for i := len(target.Elements) - 1; i >= 0; i-- {
			sub, collapse := computeAssignmentTaint(target.Elements[i], st, ctx)
			if !collapse {
				sub = tree.Prepend(label.Path{label.NewIndex(strconv.Itoa(i))}, sub)
			}
			result = tree.Join(result, sub)
		}
		return result, false

	default:
		n := normalize.Normalize(target, ctx.Resolver)
		root, path, ok := rootAndPath(n)
		if !ok {
			return tree.Empty(), false
		}
		result := tree.Subtree(st.At(root), path)
		if root.Kind == env.Global && ctx.GlobalSinks != nil {
			result = tree.Join(result, tree.Subtree(ctx.GlobalSinks.At(root), path))
		}
		return result, false
	}
}

// extendReturnAccessPath is the TransformFn a dictionary/list/tuple
// literal's extract-read uses: reading past a tip that was seeded at an
// ancestor path still needs that tip's ReturnAccessPath features to
// report the full path from the original observation, not just the
// suffix below the literal key (§4.1).
func extendReturnAccessPath(remainingSuffix label.Path, tip leafset.LeafSet) leafset.LeafSet {
	return tip.MapReturnAccessPaths(func(p label.Path) label.Path {
		return p.Concat(remainingSuffix)
	})
}

// rootAndPath walks a normalized access-path expression down to its
// binding root and the path of labels leading to n.
func rootAndPath(n normalize.Normalized) (env.Root, label.Path, bool) {
	switch n.Kind {
	case normalize.Local:
		return env.NewVariable(n.Name), label.Empty(), true
	case normalize.Global:
		return env.NewGlobal(n.Name), label.Empty(), true
	case normalize.Access:
		root, path, ok := rootAndPath(*n.Base)
		if !ok {
			return env.Root{}, nil, false
		}
		return root, path.Append(label.NewField(n.Member)), true
	case normalize.Index:
		root, path, ok := rootAndPath(*n.Base)
		if !ok {
			return env.Root{}, nil, false
		}
		return root, path.Append(n.Label), true
	default:
		// CallExpr is never a valid assignment target.
		return env.Root{}, nil, false
	}
}

// AnalyzeExpression implements analyze_expression (§4.3): it pulls
// incoming taint back through e, folding the resulting assignments into
// st. Every case below weak-assigns (joins) its contribution, so
// composing the sub-expression cases sequentially — rather than
// analyzing each independently against st and joining the results — is
// equivalent and simpler: base ∪ delta1 then (base ∪ delta1) ∪ delta2
// is the same set as (base ∪ delta1) ∪ (base ∪ delta2).
func AnalyzeExpression(e ir.Expr, incoming *tree.Tree, st env.Environment, ctx Context) env.Environment {
	switch e.Kind {
	case ir.Identifier, ir.Attribute, ir.Subscript, ir.Call:
		return analyzeNormalized(normalize.Normalize(e, ctx.Resolver), incoming, st, ctx)

	case ir.Dict:
		for _, entry := range e.Entries {
			key := label.NewAny()
			if entry.ConstantKey != nil {
				key = label.NewField(*entry.ConstantKey)
			}
			sub := tree.Read(incoming, label.Path{key}, extendReturnAccessPath)
			st = AnalyzeExpression(entry.Value, tree.Leaf(sub), st, ctx)
		}
		return st

	case ir.ListOrTuple:
		for i := len(e.Elements) - 1; i >= 0; i-- {
			key := label.NewField(strconv.Itoa(i))
			if e.Comprehension {
				key = label.NewAny()
			}
			sub := tree.Read(incoming, label.Path{key}, extendReturnAccessPath)
			st = AnalyzeExpression(e.Elements[i], tree.Leaf(sub), st, ctx)
		}
		return st

	case ir.Starred:
		return AnalyzeExpression(*e.Inner, tree.Prepend(label.Path{label.NewAny()}, incoming), st, ctx)

	case ir.Ternary:
		st = AnalyzeExpression(*e.Then, incoming, st, ctx)
		st = AnalyzeExpression(*e.Else, incoming, st, ctx)
		return AnalyzeExpression(*e.Test, tree.Empty(), st, ctx)

	case ir.Recurse:
		for _, operand := range e.Operands {
			st = AnalyzeExpression(operand, incoming, st, ctx)
		}
		return st

	case ir.Literal:
		return st

	default:
		ctx.unhandled(fmt.Sprintf("expr-kind-%d", e.Kind))
		return st
	}
}

// analyzeNormalized continues analyze_expression over an already
// normalized access-path shape, recursing toward its root.
func analyzeNormalized(n normalize.Normalized, incoming *tree.Tree, st env.Environment, ctx Context) env.Environment {
	switch n.Kind {
	case normalize.Local:
		return st.AssignPath(env.NewVariable(n.Name), label.Empty(), incoming, true)

	case normalize.Global:
		// Globals are not model-tracked by the per-function analyzer.
		return st

	case normalize.Access:
		wrapped := tree.Prepend(label.Path{label.NewField(n.Member)}, incoming)
		return analyzeNormalized(*n.Base, wrapped, st, ctx)

	case normalize.Index:
		wrapped := tree.Prepend(label.Path{n.Label}, incoming)
		return analyzeNormalized(*n.Base, wrapped, st, ctx)

	case normalize.CallExpr:
		if ctx.Calls == nil {
			return st
		}
		return ctx.Calls.AnalyzeCall(n, n.Args, incoming, st, ctx)

	default:
		return st
	}
}
