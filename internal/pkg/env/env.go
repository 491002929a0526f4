// Package env implements Environment (C4): a mapping from access-path
// roots to taint trees, with the tree lattice operations lifted
// pointwise.
package env

import (
	"sort"

	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

// RootKind discriminates the five root shapes in spec.md §3.
type RootKind int

const (
	// Variable names a local binding by name. Inside a function body a
	// parameter referenced by name is tracked at a Variable root too;
	// published models key parameters by PositionalParameter or
	// NamedParameter instead.
	Variable RootKind = iota
	// PositionalParameter names a formal parameter by its position (and,
	// for diagnostics, its declared name).
	PositionalParameter
	// NamedParameter names a keyword-only formal parameter.
	NamedParameter
	// LocalResult is the distinguished return-value slot.
	LocalResult
	// Global names a module-level binding.
	Global
)

func (k RootKind) String() string {
	switch k {
	case Variable:
		return "Variable"
	case PositionalParameter:
		return "PositionalParameter"
	case NamedParameter:
		return "NamedParameter"
	case LocalResult:
		return "LocalResult"
	case Global:
		return "Global"
	default:
		return "Unknown"
	}
}

// Root is one binding site a taint tree can be rooted at.
type Root struct {
	Kind RootKind
	// Name holds the variable/parameter/global name. Unused for
	// LocalResult.
	Name string
	// Position holds the formal parameter's 0-based position for
	// PositionalParameter roots (the receiver, when present, counts as
	// position 0 per §4.4/§4.5).
	Position int
}

// NewVariable builds a Variable root.
func NewVariable(name string) Root { return Root{Kind: Variable, Name: name} }

// NewPositionalParameter builds a PositionalParameter root.
func NewPositionalParameter(position int, name string) Root {
	return Root{Kind: PositionalParameter, Position: position, Name: name}
}

// NewNamedParameter builds a NamedParameter root.
func NewNamedParameter(name string) Root { return Root{Kind: NamedParameter, Name: name} }

// Result is the LocalResult root.
var Result = Root{Kind: LocalResult}

// NewGlobal builds a Global root.
func NewGlobal(name string) Root { return Root{Kind: Global, Name: name} }

func (r Root) String() string {
	switch r.Kind {
	case LocalResult:
		return "$result"
	case PositionalParameter:
		return r.Name
	default:
		return r.Name
	}
}

// Environment maps roots to taint trees. A nil or absent root is treated
// as the empty tree everywhere below — Environment is value-typed the
// same way *tree.Tree is: every operation returns a new map.
type Environment map[Root]*tree.Tree

// New returns an empty environment.
func New() Environment { return Environment{} }

// At returns the tree rooted at r, or the empty tree if r is unbound.
func (e Environment) At(r Root) *tree.Tree {
	return e[r]
}

// Roots returns the bound roots in a deterministic order.
func (e Environment) Roots() []Root {
	out := make([]Root, 0, len(e))
	for r := range e {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Name < b.Name
	})
	return out
}

// WithTree returns a copy of e where r is weak-assigned (joined with
// whatever tree it already held) the tree t at the empty path.
func (e Environment) WithTree(r Root, t *tree.Tree) Environment {
	out := e.Clone()
	out[r] = tree.Join(out[r], t)
	return out
}

// WithTreeStrong returns a copy of e where r is replaced (not joined)
// by t.
func (e Environment) WithTreeStrong(r Root, t *tree.Tree) Environment {
	out := e.Clone()
	if t == nil {
		delete(out, r)
		return out
	}
	out[r] = t
	return out
}

// AssignPath assigns (weak or strong) subtree at path under root r.
func (e Environment) AssignPath(r Root, path label.Path, subtree *tree.Tree, weak bool) Environment {
	out := e.Clone()
	assigned := tree.Assign(path, subtree, out[r], weak)
	if assigned == nil {
		delete(out, r)
	} else {
		out[r] = assigned
	}
	return out
}

// ReadPath reads path under root r.
func (e Environment) ReadPath(r Root, path label.Path, transform tree.TransformFn) leafset.LeafSet {
	return tree.Read(e[r], path, transform)
}

// Clone returns an independent shallow copy of e (the trees themselves
// are shared, since they are immutable once built).
func (e Environment) Clone() Environment {
	out := make(Environment, len(e))
	for r, t := range e {
		out[r] = t
	}
	return out
}

// Join is the pointwise lattice join.
func Join(a, b Environment) Environment {
	out := a.Clone()
	for r, t := range b {
		out[r] = tree.Join(out[r], t)
	}
	return out
}

// LessOrEqual reports whether a is pointwise dominated by b.
func LessOrEqual(a, b Environment) bool {
	for r, t := range a {
		if !tree.LessOrEqual(t, b[r]) {
			return false
		}
	}
	return true
}

// Equal reports pointwise lattice equality.
func Equal(a, b Environment) bool {
	return LessOrEqual(a, b) && LessOrEqual(b, a)
}

// Widen is Join with tree.Widen in place of tree.Join at every root.
func Widen(previous, next Environment) Environment {
	out := previous.Clone()
	for r, t := range next {
		out[r] = tree.Widen(out[r], t, 0)
	}
	return out
}
