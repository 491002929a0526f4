// Package tree implements TaintTree: a rose tree keyed by access-path
// labels, whose nodes carry a leaf-set "tip". This is the abstract domain
// C3 describes in spec.md §3/§4.1: read, assign, prepend, collapse,
// shape, partition, transform, fold, join, widen, and less-or-equal.
//
// A *Tree is value-typed from the consumer's perspective: every
// operation below returns a new tree and never mutates its arguments,
// though subtrees are shared structurally between results. nil is the
// canonical empty tree (invariant 2 in spec.md §3: a node with empty tip
// and no children is structurally equal to the empty tree at that slot).
package tree

import (
	"sort"

	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
)

// Tree is one node of a TaintTree.
type Tree struct {
	Tip      leafset.LeafSet
	Children map[label.Label]*Tree
}

// Empty returns the empty tree.
func Empty() *Tree { return nil }

// Leaf builds a tree whose root tip is s and which has no children.
func Leaf(s leafset.LeafSet) *Tree {
	return normalize(s, nil)
}

// IsEmpty reports whether t is structurally the empty tree.
func IsEmpty(t *Tree) bool {
	return t == nil
}

// tipOf returns the tip of t, treating nil as the empty leaf set.
func tipOf(t *Tree) leafset.LeafSet {
	if t == nil {
		return leafset.Empty()
	}
	return t.Tip
}

func childrenOf(t *Tree) map[label.Label]*Tree {
	if t == nil {
		return nil
	}
	return t.Children
}

// normalize builds a node from a tip and a child map, collapsing to the
// canonical empty tree per invariant 2 and dropping any empty children
// (since a present-but-empty child is indistinguishable from an absent
// one — invariant 1 forbids duplicate sibling labels but says nothing
// requires storing empties).
func normalize(tip leafset.LeafSet, children map[label.Label]*Tree) *Tree {
	clean := map[label.Label]*Tree{}
	for l, c := range children {
		if c == nil {
			continue
		}
		clean[l] = c
	}
	if tip.IsEmpty() && len(clean) == 0 {
		return nil
	}
	return &Tree{Tip: tip, Children: clean}
}

func cloneChildren(t *Tree) map[label.Label]*Tree {
	out := map[label.Label]*Tree{}
	for l, c := range childrenOf(t) {
		out[l] = c
	}
	return out
}

// Clone returns t itself: every operation in this package returns a
// fresh node graph, so sharing a subtree across call sites is always
// safe; Clone exists so callers that hold a *Tree by convention (as they
// would hold a value type) never need a type switch to know it is safe
// to keep using a tree after passing it elsewhere.
func Clone(t *Tree) *Tree { return t }

// TransformFn rewrites a non-leaf tip encountered along a Read, given the
// part of the read path not yet traversed below that tip. It lets the
// analyzer extend
// ReturnAccessPath features when a read descends deeper than the
// analysis originally observed at a call site (§4.1); the tree itself
// stays policy-free.
type TransformFn func(remainingSuffix label.Path, tip leafset.LeafSet) leafset.LeafSet

// Identity is the no-op TransformFn.
func Identity(_ label.Path, tip leafset.LeafSet) leafset.LeafSet { return tip }

// Read traverses path from the root of t. At each step, if the tip
// encountered is non-empty and the path isn't yet exhausted, transform
// is applied to it (the "non-leaf tip" case); once the path is
// exhausted, the tip at that point and everything below it (Collapsed)
// contribute directly. A child labeled Any, when present, causes the
// read to join across every sibling (invariant 3).
func Read(t *Tree, path label.Path, transform TransformFn) leafset.LeafSet {
	if transform == nil {
		transform = Identity
	}
	return readAt(t, path, transform)
}

func readAt(t *Tree, remaining label.Path, transform TransformFn) leafset.LeafSet {
	if t == nil {
		return leafset.Empty()
	}
	result := leafset.Empty()
	if len(remaining) > 0 {
		if !t.Tip.IsEmpty() {
			result = leafset.Join(result, transform(remaining, t.Tip))
		}
	} else {
		result = leafset.Join(result, t.Tip)
		result = leafset.Join(result, Collapse(withoutTip(t)))
		return result
	}

	head, rest, _ := remaining.Head()
	if _, hasAny := t.Children[label.NewAny()]; hasAny {
		for _, child := range t.Children {
			result = leafset.Join(result, readAt(child, rest, transform))
		}
		return result
	}
	child, ok := t.Children[head]
	if !ok {
		return result
	}
	return leafset.Join(result, readAt(child, rest, transform))
}

// withoutTip returns a tree identical to t but with an empty root tip,
// used so Collapse-at-exhausted-path doesn't double count the tip
// already joined in by the caller.
func withoutTip(t *Tree) *Tree {
	if t == nil {
		return nil
	}
	return normalize(leafset.Empty(), t.Children)
}

// Assign replaces (or, if weak, joins into) the subtree of t found at
// path with subtree. Intermediate nodes along path are materialized
// with empty tips. Writing through an Any label always joins; a write
// under a concrete label beside an existing Any child follows weak for
// that child and is also joined into the Any child — Any is
// join-absorbing on both read and write (Design Note §9).
func Assign(path label.Path, subtree *Tree, t *Tree, weak bool) *Tree {
	return assignAt(t, path, subtree, weak)
}

func assignAt(t *Tree, remaining label.Path, subtree *Tree, weak bool) *Tree {
	if len(remaining) == 0 {
		if weak {
			return Join(t, subtree)
		}
		return subtree
	}

	head, rest, _ := remaining.Head()
	children := cloneChildren(t)

	if head.Kind == label.Any {
		// Assign-through-Any: Any absorbs everything written through it,
		// so the write always joins rather than replaces.
		children[head] = assignAt(children[head], rest, subtree, true)
	} else {
		children[head] = assignAt(children[head], rest, subtree, weak)
		// Assign-onto-Any: if an Any sibling already exists, mirror the
		// write into it (weakly), since a future read through Any would
		// otherwise miss content just written under a concrete label.
		if any, ok := children[label.NewAny()]; ok {
			children[label.NewAny()] = Join(any, chainTo(rest, subtree))
		}
	}

	return normalize(tipOf(t), children)
}

// chainTo builds a tree whose root has a single chain of labels path
// leading to subtree — the shape Prepend produces.
func chainTo(path label.Path, subtree *Tree) *Tree {
	if len(path) == 0 {
		return subtree
	}
	head, rest, _ := path.Head()
	return normalize(leafset.Empty(), map[label.Label]*Tree{head: chainTo(rest, subtree)})
}

// Prepend produces a tree whose root has a single chain path leading to
// subtree: synonym for Assign(path, subtree, Empty(), weak=false).
func Prepend(path label.Path, subtree *Tree) *Tree {
	return chainTo(path, subtree)
}

// Collapse returns the join of every leaf and tip in t, flattened to a
// single leaf set at the root.
func Collapse(t *Tree) leafset.LeafSet {
	if t == nil {
		return leafset.Empty()
	}
	result := t.Tip
	keys := sortedLabels(t.Children)
	for _, l := range keys {
		result = leafset.Join(result, Collapse(t.Children[l]))
	}
	return result
}

// CollapseToDepth collapses everything strictly below depth d into the
// tip of the node at depth d, leaving the structure above depth d
// untouched. CollapseToDepth(0, t) is equivalent to Leaf(Collapse(t)).
func CollapseToDepth(d int, t *Tree) *Tree {
	if t == nil {
		return nil
	}
	if d <= 0 {
		return Leaf(Collapse(t))
	}
	children := map[label.Label]*Tree{}
	for l, c := range t.Children {
		children[l] = CollapseToDepth(d-1, c)
	}
	return normalize(t.Tip, children)
}

// Essential returns the skeleton of t with all leaf sets emptied. The
// skeleton's nodes are built directly rather than through normalize, so a
// node with an empty tip and no children is kept as a node (not nil): the
// skeleton serves as a mold for Shape, which needs every path of t.
func Essential(t *Tree) *Tree {
	if t == nil {
		return nil
	}
	children := map[label.Label]*Tree{}
	for l, c := range t.Children {
		if c != nil {
			children[l] = Essential(c)
		}
	}
	return &Tree{Tip: leafset.Empty(), Children: children}
}

// Shape retains only the paths present in mold, merging pruned content
// into the nearest retained ancestor (§4.1 invariant 7). Typically mold
// is Essential(t') for some other tree t'.
func Shape(t *Tree, mold *Tree) *Tree {
	if t == nil {
		return nil
	}
	if mold == nil {
		// Nothing survives; everything collapses into this node's tip.
		return Leaf(Collapse(t))
	}
	tip := t.Tip
	children := map[label.Label]*Tree{}
	for l, c := range t.Children {
		if moldChild, ok := mold.Children[l]; ok {
			children[l] = Shape(c, moldChild)
			continue
		}
		// l is not part of the mold: fold its entire collapsed subtree
		// into the current (retained) node instead of dropping it.
		tip = leafset.Join(tip, Collapse(c))
	}
	return normalize(tip, children)
}

// Transform applies f to every node's tip (leaf and non-leaf alike),
// preserving structure. Unlike Read's transform hook, this walks the
// whole tree unconditionally — it is how the entry extractor stamps
// every surviving leaf with a type breadcrumb (§4.6 step 3).
func Transform(t *Tree, f func(leafset.LeafSet) leafset.LeafSet) *Tree {
	if t == nil {
		return nil
	}
	children := map[label.Label]*Tree{}
	for l, c := range t.Children {
		children[l] = Transform(c, f)
	}
	return normalize(f(t.Tip), children)
}

// Fold folds f over every (path, tip) pair in t with a non-empty tip,
// starting from root = Empty path ("RawPath" axis in §4.1).
func Fold[A any](t *Tree, init A, f func(acc A, path label.Path, tip leafset.LeafSet) A) A {
	return foldAt(t, label.Empty(), init, f)
}

func foldAt[A any](t *Tree, prefix label.Path, acc A, f func(A, label.Path, leafset.LeafSet) A) A {
	if t == nil {
		return acc
	}
	if !t.Tip.IsEmpty() {
		acc = f(acc, prefix, t.Tip)
	}
	for _, l := range sortedLabels(t.Children) {
		acc = foldAt(t.Children[l], prefix.Append(l), acc, f)
	}
	return acc
}

// Partition splits t by leaf kind: the result maps each key produced by
// f to the subtree of t consisting only of leaves whose kind maps to
// that key. Used by the entry extractor (C9) to split LocalReturn
// (TITO) leaves from sink leaves.
func Partition[K comparable](t *Tree, f func(leafset.Kind) (K, bool)) map[K]*Tree {
	out := map[K]*Tree{}
	partitionInto(t, f, out)
	return out
}

func partitionInto[K comparable](t *Tree, f func(leafset.Kind) (K, bool), acc map[K]*Tree) {
	if t == nil {
		return
	}
	byKey := map[K]leafset.LeafSet{}
	for _, k := range t.Tip.Kinds() {
		key, ok := f(k)
		if !ok {
			continue
		}
		kindOnly := t.Tip.FilterKind(func(kk leafset.Kind) bool { return kk == k })
		byKey[key] = leafset.Join(byKey[key], kindOnly)
	}

	childPartitions := map[K]map[label.Label]*Tree{}
	for l, c := range t.Children {
		sub := Partition(c, f)
		for key, st := range sub {
			if childPartitions[key] == nil {
				childPartitions[key] = map[label.Label]*Tree{}
			}
			childPartitions[key][l] = st
		}
	}

	keys := map[K]bool{}
	for k := range byKey {
		keys[k] = true
	}
	for k := range childPartitions {
		keys[k] = true
	}
	for k := range keys {
		node := normalize(byKey[k], childPartitions[k])
		if node != nil {
			acc[k] = Join(acc[k], node)
		}
	}
}

// Subtree returns the subtree of t found by following path, preserving
// its internal structure (unlike Read, which flattens everything below
// the path into a single leaf set). Used by the backward transfer
// function's compute_assignment_taint to recover the structured taint
// already recorded at an assignment target.
//
// If path runs past a node that has no matching child but whose own tip
// is non-empty, that tip is the last structure recorded for everything
// beneath it: it is reinterpreted as applying to the whole of path's
// remaining suffix and returned as a leaf, with any ReturnAccessPath
// feature extended by that suffix so a later read at the deeper path
// still reports the access it actually took. Only once neither a
// matching child nor a tip is found does path count as absent (nil).
func Subtree(t *Tree, path label.Path) *Tree {
	head, rest, ok := path.Head()
	if !ok {
		return t
	}
	if t == nil {
		return nil
	}
	if child, exists := t.Children[head]; exists {
		return Subtree(child, rest)
	}
	if t.Tip.IsEmpty() {
		return nil
	}
	return Leaf(t.Tip.MapReturnAccessPaths(func(p label.Path) label.Path {
		return p.Concat(path)
	}))
}

// Join is the node-wise lattice join.
func Join(a, b *Tree) *Tree {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	children := map[label.Label]*Tree{}
	for l, c := range a.Children {
		children[l] = c
	}
	for l, c := range b.Children {
		children[l] = Join(children[l], c)
	}
	return normalize(leafset.Join(a.Tip, b.Tip), children)
}

// LessOrEqual reports whether a is dominated by b: a's tip is a subset
// of b's tip, and every child of a is dominated by the corresponding
// child of b.
func LessOrEqual(a, b *Tree) bool {
	if a == nil {
		return true
	}
	if b == nil {
		return a.Tip.IsEmpty() && len(a.Children) == 0
	}
	if !leafset.LessOrEqual(a.Tip, b.Tip) {
		return false
	}
	for l, c := range a.Children {
		if !LessOrEqual(c, b.Children[l]) {
			return false
		}
	}
	return true
}

// Equal reports structural lattice equality (not Go struct identity).
func Equal(a, b *Tree) bool {
	return LessOrEqual(a, b) && LessOrEqual(b, a)
}

// Widen is Join with LeafSet.Widen in place of LeafSet.Join at every
// node and with structural collapsing beyond maxWidenDepth, so that a
// fixpoint over an unboundedly deep recursive structure still
// terminates. Callers typically invoke Widen only after a fixed number
// of plain Join iterations (the external fixpoint driver's concern).
func Widen(previous, next *Tree, depth int) *Tree {
	return widenAt(previous, next, depth)
}

const maxWidenDepth = 8

func widenAt(previous, next *Tree, depth int) *Tree {
	if depth > maxWidenDepth {
		return Leaf(leafset.Widen(Collapse(previous), Collapse(next)))
	}
	if previous == nil {
		return next
	}
	if next == nil {
		return previous
	}
	children := map[label.Label]*Tree{}
	for l, c := range previous.Children {
		children[l] = c
	}
	for l, c := range next.Children {
		children[l] = widenAt(children[l], c, depth+1)
	}
	return normalize(leafset.Widen(previous.Tip, next.Tip), children)
}

func sortedLabels(m map[label.Label]*Tree) []label.Label {
	out := make([]label.Label, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PathCount returns the number of raw (path, tip) pairs with non-empty
// tips in t, used by the entry extractor's TITO over-width heuristic.
func PathCount(t *Tree) int {
	return Fold(t, 0, func(acc int, _ label.Path, _ leafset.LeafSet) int { return acc + 1 })
}
