package env

import (
	"testing"

	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

func TestJoinIsPointwise(t *testing.T) {
	x := NewVariable("x")
	a := New().WithTree(x, tree.Leaf(leafset.Single("A")))
	b := New().WithTree(x, tree.Leaf(leafset.Single("B")))

	joined := Join(a, b)
	got := joined.ReadPath(x, label.Empty(), nil)
	if !got.Has("A") || !got.Has("B") {
		t.Errorf("Join at %v = %v, want both A and B", x, got)
	}
}

func TestLessOrEqualAndWiden(t *testing.T) {
	x := NewVariable("x")
	a := New().WithTree(x, tree.Leaf(leafset.Single("A")))
	joined := Join(a, a)
	if !LessOrEqual(a, joined) {
		t.Errorf("a should be <= join(a,a)")
	}
	if !Equal(Widen(a, a), a) {
		t.Errorf("widen(e,e) != e")
	}
}

func TestWithTreeStrongReplaces(t *testing.T) {
	x := NewVariable("x")
	e := New().WithTree(x, tree.Leaf(leafset.Single("A")))
	e = e.WithTreeStrong(x, tree.Leaf(leafset.Single("B")))
	got := e.ReadPath(x, label.Empty(), nil)
	if got.Has("A") || !got.Has("B") {
		t.Errorf("WithTreeStrong should replace, got %v", got)
	}
}

func TestAssignPathUnderRoot(t *testing.T) {
	self := NewPositionalParameter(0, "self")
	e := New().AssignPath(self, label.Path{label.NewField("y")}, tree.Leaf(leafset.Single(leafset.LocalReturn)), true)

	got := e.ReadPath(self, label.Path{label.NewField("y")}, nil)
	if !got.Has(leafset.LocalReturn) {
		t.Errorf("AssignPath result = %v, want LocalReturn at self.y", got)
	}
}

func TestRootsAreDeterministicallyOrdered(t *testing.T) {
	e := New().
		WithTree(NewVariable("b"), tree.Leaf(leafset.Single("X"))).
		WithTree(NewVariable("a"), tree.Leaf(leafset.Single("X"))).
		WithTree(Result, tree.Leaf(leafset.Single("X")))

	roots := e.Roots()
	if len(roots) != 3 {
		t.Fatalf("got %d roots, want 3", len(roots))
	}
	// Variable sorts before LocalResult by RootKind ordinal; ties break
	// by name.
	if roots[0] != NewVariable("a") {
		t.Errorf("roots[0] = %v, want Variable(a) first", roots[0])
	}
}
