// Package leafset implements LeafSet(K): finite sets over a kind domain
// K (source kinds for forward analysis, sink kinds for backward
// analysis), where each element additionally carries simple features
// (breadcrumbs) and complex features (ReturnAccessPath suffixes used to
// stitch TITO flows across call boundaries).
package leafset

import (
	"sort"
	"strings"

	"github.com/coldtrace/taintcore/internal/pkg/label"
)

// Kind names a source or sink kind, e.g. "UserControlled" or "SQL".
// LocalReturn is the distinguished kind (see GLOSSARY) marking "this
// value participates in the function's return channel"; it is removed
// during entry extraction.
type Kind string

// LocalReturn is the distinguished sink kind used to seed the exit state
// of every function (and of every constructor's receiver) so that
// ordinary backward propagation doubles as TITO discovery.
const LocalReturn Kind = "LocalReturn"

// maxComplexFeatures bounds the number of ReturnAccessPath suffixes kept
// per kind once widening kicks in, per Design Note §9: complex features
// must be interned or bounded at widen time to keep the lattice finite.
const maxComplexFeatures = 4

// Leaf is one element of a LeafSet: a kind plus the breadcrumbs and
// ReturnAccessPath suffixes accumulated for it so far.
type Leaf struct {
	Kind        Kind
	Breadcrumbs map[string]struct{}
	// ReturnAccessPaths are the complex ReturnAccessPath(path) features;
	// keyed by an interned HighwayHash fingerprint of the path so
	// membership is a set and repeated suffixes share one canonical Path.
	ReturnAccessPaths map[string]label.Path
}

func newLeaf(k Kind) *Leaf {
	return &Leaf{
		Kind:              k,
		Breadcrumbs:       map[string]struct{}{},
		ReturnAccessPaths: map[string]label.Path{},
	}
}

func (l *Leaf) clone() *Leaf {
	out := newLeaf(l.Kind)
	for b := range l.Breadcrumbs {
		out.Breadcrumbs[b] = struct{}{}
	}
	for k, p := range l.ReturnAccessPaths {
		out.ReturnAccessPaths[k] = p
	}
	return out
}

func (l *Leaf) addReturnAccessPath(p label.Path) {
	key, canon := internPath(p)
	l.ReturnAccessPaths[key] = canon
}

func (l *Leaf) subsetOf(o *Leaf) bool {
	for b := range l.Breadcrumbs {
		if _, ok := o.Breadcrumbs[b]; !ok {
			return false
		}
	}
	for k := range l.ReturnAccessPaths {
		if _, ok := o.ReturnAccessPaths[k]; !ok {
			return false
		}
	}
	return true
}

func (l *Leaf) mergeFrom(o *Leaf) {
	for b := range o.Breadcrumbs {
		l.Breadcrumbs[b] = struct{}{}
	}
	for k, p := range o.ReturnAccessPaths {
		l.ReturnAccessPaths[k] = p
	}
}

func (l *Leaf) equal(o *Leaf) bool {
	return l.subsetOf(o) && o.subsetOf(l)
}

// LeafSet is a finite set of Leaf, one per distinct Kind.
type LeafSet struct {
	leaves map[Kind]*Leaf
}

// Empty returns the empty leaf set.
func Empty() LeafSet {
	return LeafSet{leaves: map[Kind]*Leaf{}}
}

// Single returns a leaf set containing a single leaf of the given kind
// with no features.
func Single(k Kind) LeafSet {
	s := Empty()
	s.leaves[k] = newLeaf(k)
	return s
}

// IsEmpty reports whether the set has no elements.
func (s LeafSet) IsEmpty() bool { return len(s.leaves) == 0 }

// Kinds returns the sorted kinds present in the set.
func (s LeafSet) Kinds() []Kind {
	out := make([]Kind, 0, len(s.leaves))
	for k := range s.leaves {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether the set contains a leaf of kind k.
func (s LeafSet) Has(k Kind) bool {
	_, ok := s.leaves[k]
	return ok
}

// ReturnAccessPaths returns the ReturnAccessPath suffixes recorded for
// kind k, or nil if k is absent.
func (s LeafSet) ReturnAccessPaths(k Kind) []label.Path {
	l, ok := s.leaves[k]
	if !ok {
		return nil
	}
	out := make([]label.Path, 0, len(l.ReturnAccessPaths))
	for _, p := range l.ReturnAccessPaths {
		out = append(out, p)
	}
	return out
}

// Breadcrumbs returns the breadcrumbs recorded for kind k.
func (s LeafSet) Breadcrumbs(k Kind) []string {
	l, ok := s.leaves[k]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l.Breadcrumbs))
	for b := range l.Breadcrumbs {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Clone deep-copies the set.
func (s LeafSet) Clone() LeafSet {
	out := Empty()
	for k, l := range s.leaves {
		out.leaves[k] = l.clone()
	}
	return out
}

// WithBreadcrumb returns a copy of s where every leaf carries the given
// breadcrumb in addition to whatever it already has.
func (s LeafSet) WithBreadcrumb(b string) LeafSet {
	out := s.Clone()
	for _, l := range out.leaves {
		l.Breadcrumbs[b] = struct{}{}
	}
	return out
}

// WithReturnAccessPath returns a copy of s where every leaf of kind
// LocalReturn additionally carries the given ReturnAccessPath suffix.
func (s LeafSet) WithReturnAccessPath(p label.Path) LeafSet {
	out := s.Clone()
	if l, ok := out.leaves[LocalReturn]; ok {
		l.addReturnAccessPath(p)
	}
	return out
}

// MapReturnAccessPaths returns a copy of s where every ReturnAccessPath
// feature on every leaf has been replaced by f(path). Used by
// tree.Subtree and by the transfer package's Read transform to extend
// ReturnAccessPath suffixes as a read descends past the point the call
// site originally observed (§4.1).
func (s LeafSet) MapReturnAccessPaths(f func(label.Path) label.Path) LeafSet {
	out := Empty()
	for k, l := range s.leaves {
		nl := newLeaf(k)
		for b := range l.Breadcrumbs {
			nl.Breadcrumbs[b] = struct{}{}
		}
		for _, p := range l.ReturnAccessPaths {
			nl.addReturnAccessPath(f(p))
		}
		out.leaves[k] = nl
	}
	return out
}

// FilterKind returns the subset of s whose kind satisfies f, used by
// Partition in the tree package to split LocalReturn leaves from sinks.
func (s LeafSet) FilterKind(f func(Kind) bool) LeafSet {
	out := Empty()
	for k, l := range s.leaves {
		if f(k) {
			out.leaves[k] = l.clone()
		}
	}
	return out
}

// Join is the lattice join: set union, merging features for kinds
// present on both sides.
func Join(a, b LeafSet) LeafSet {
	out := a.Clone()
	for k, l := range b.leaves {
		if existing, ok := out.leaves[k]; ok {
			existing.mergeFrom(l)
		} else {
			out.leaves[k] = l.clone()
		}
	}
	return out
}

// LessOrEqual reports whether a is a substructure of b: every kind in a
// is present in b with a subset of its features.
func LessOrEqual(a, b LeafSet) bool {
	for k, l := range a.leaves {
		ol, ok := b.leaves[k]
		if !ok || !l.subsetOf(ol) {
			return false
		}
	}
	return true
}

// Equal reports structural equality.
func Equal(a, b LeafSet) bool {
	return LessOrEqual(a, b) && LessOrEqual(b, a)
}

// Widen is Join bounded by maxComplexFeatures per kind, so that repeated
// widening of an unboundedly deep call chain still converges.
func Widen(previous, next LeafSet) LeafSet {
	joined := Join(previous, next)
	for _, l := range joined.leaves {
		if len(l.ReturnAccessPaths) <= maxComplexFeatures {
			continue
		}
		keys := make([]string, 0, len(l.ReturnAccessPaths))
		for k := range l.ReturnAccessPaths {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys[maxComplexFeatures:] {
			delete(l.ReturnAccessPaths, k)
		}
	}
	return joined
}

// String renders a deterministic, human-readable form for debugging and
// test failure messages.
func (s LeafSet) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	var parts []string
	for _, k := range s.Kinds() {
		l := s.leaves[k]
		var feats []string
		for _, b := range s.Breadcrumbs(k) {
			feats = append(feats, "via:"+b)
		}
		for _, p := range l.ReturnAccessPaths {
			feats = append(feats, "rap:"+p.String())
		}
		if len(feats) == 0 {
			parts = append(parts, string(k))
			continue
		}
		sort.Strings(feats)
		parts = append(parts, string(k)+"["+strings.Join(feats, ",")+"]")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
