// Package normalize implements C5: canonicalizing raw ir.Expr shapes
// into the normalized form §4.2 defines — Global, Local, Access, Index,
// or Call — which the backward transfer function (C6) and the
// call-site engine (C7) dispatch on.
package normalize

import (
	"strings"

	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
)

// Kind discriminates the five normalized shapes.
type Kind int

const (
	// Global is a module-level binding reference.
	Global Kind = iota
	// Local is a reference to a local variable.
	Local
	// Access is `expr.member`.
	Access
	// Index is `expr[label]`.
	Index
	// CallExpr is `callee(args...)`.
	CallExpr
)

// Normalized is the canonicalized form of an expression (§4.2).
type Normalized struct {
	Kind Kind

	// Global / Local
	Name string

	// Access / Index
	Base *Normalized

	// Access
	Member string

	// Index
	Label label.Label

	// CallExpr
	Callee *Normalized
	Args   []ir.Arg

	// Original is the raw expression this form was produced from,
	// preserved so the invariant "re-serializing a normalized expression
	// yields an expression semantically equivalent to the original"
	// (§8) is checkable in tests without a separate pretty-printer.
	Original ir.Expr
}

// Normalize canonicalizes e per §4.2.
func Normalize(e ir.Expr, r resolver.Resolver) Normalized {
	switch e.Kind {
	case ir.Identifier:
		if r.IsGlobal(e.Name) {
			return Normalized{Kind: Global, Name: e.Name, Original: e}
		}
		return Normalized{Kind: Local, Name: e.Name, Original: e}

	case ir.Attribute:
		if dotted, ok := dottedName(e); ok && r.IsGlobal(dotted) {
			return Normalized{Kind: Global, Name: dotted, Original: e}
		}
		base := Normalize(*e.Recv, r)
		normalized := Normalized{Kind: Access, Base: &base, Member: e.Member, Original: e}
		if r.IsProperty(e.Member) {
			return Normalized{Kind: CallExpr, Callee: &normalized, Original: e}
		}
		return normalized

	case ir.Subscript:
		base := Normalize(*e.Base, r)
		var l label.Label
		if e.ConstantIndex != nil {
			l = label.NewIndex(*e.ConstantIndex)
		} else {
			l = label.NewAny()
		}
		return Normalized{Kind: Index, Base: &base, Label: l, Original: e}

	case ir.Call:
		callee := Normalize(*e.Callee, r)
		return Normalized{Kind: CallExpr, Callee: &callee, Args: e.Args, Original: e}

	default:
		// Dict/ListOrTuple/Starred/Ternary/Recurse/Literal are not
		// access-path shapes: they are not call targets or assignment
		// targets, so the normalizer has nothing canonical to produce
		// for them. Callers (C6) dispatch on e.Kind directly for these.
		return Normalized{Kind: Local, Name: "", Original: e}
	}
}

// dottedName returns the fully-qualified dotted name of e if e is a pure
// chain of Identifier/Attribute nodes (e.g. `os.path.join` without any
// call or subscript along the way), and whether such a name exists.
func dottedName(e ir.Expr) (string, bool) {
	switch e.Kind {
	case ir.Identifier:
		return e.Name, true
	case ir.Attribute:
		prefix, ok := dottedName(*e.Recv)
		if !ok {
			return "", false
		}
		return prefix + "." + e.Member, true
	default:
		return "", false
	}
}

// AsExpr re-serializes a Normalized form back to a semantically
// equivalent raw expression, witnessing the round-trip invariant in §8.
func AsExpr(n Normalized) ir.Expr {
	switch n.Kind {
	case Global, Local:
		parts := strings.Split(n.Name, ".")
		e := ir.Expr{Kind: ir.Identifier, Name: parts[0]}
		for _, m := range parts[1:] {
			recv := e
			e = ir.Expr{Kind: ir.Attribute, Recv: &recv, Member: m}
		}
		return e
	case Access:
		recv := AsExpr(*n.Base)
		return ir.Expr{Kind: ir.Attribute, Recv: &recv, Member: n.Member}
	case Index:
		base := AsExpr(*n.Base)
		e := ir.Expr{Kind: ir.Subscript, Base: &base}
		if n.Label.Kind != label.Any {
			idx := n.Label.Name
			e.ConstantIndex = &idx
		}
		return e
	case CallExpr:
		callee := AsExpr(*n.Callee)
		return ir.Expr{Kind: ir.Call, Callee: &callee, Args: n.Args}
	default:
		return ir.Expr{Kind: ir.Literal}
	}
}
