// Package entry implements C9: once a per-function backward fixpoint
// reports its entry environment, this is the last step that turns that
// environment into a published Model — one sink tree and one
// taint-in-taint-out tree per formal parameter (spec.md §4.6).
package entry

import (
	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

// maxTitoPaths is the over-width bound of §4.6 step 4: beyond this many
// raw paths, a TITO candidate collapses to depth 0 rather than carrying
// its full shape forward.
const maxTitoPaths = 5

// Extract turns entryState (the state the backward fixpoint reports at
// function entry) into a fresh Model, one sink/TITO pair per binding.
func Extract(entryState env.Environment, bindings []resolver.ParamBinding, r resolver.Resolver) model.Model {
	m := model.Empty()
	for _, b := range bindings {
		t := entryState.At(b.Root)
		if tree.IsEmpty(t) {
			continue
		}
		groups := tree.Partition(t, classify)

		if sinkTree, ok := groups["sink"]; ok {
			sinkTree = simplify(sinkTree, r.TypeBreadcrumb(b.Annotation))
			m.SinkTaint = m.SinkTaint.WithTree(b.Root, sinkTree)
		}
		if titoTree, ok := groups["tito"]; ok {
			titoTree = simplify(titoTree, r.TypeBreadcrumb(b.Annotation))
			if tree.PathCount(titoTree) > maxTitoPaths {
				titoTree = tree.CollapseToDepth(0, titoTree)
			}
			m.TaintInTaintOut = m.TaintInTaintOut.WithTree(b.Root, titoTree)
		}
	}
	return m
}

// classify splits LocalReturn leaves (TITO candidates) from every other
// kind (sink contributions), per §4.6 step 2.
func classify(k leafset.Kind) (string, bool) {
	if k == leafset.LocalReturn {
		return "tito", true
	}
	return "sink", true
}

// simplify canonicalizes t to its essential shape and stamps every
// surviving leaf with a type-derived breadcrumb (§4.6 step 3).
func simplify(t *tree.Tree, breadcrumb string) *tree.Tree {
	t = tree.Shape(t, tree.Essential(t))
	if breadcrumb == "" {
		return t
	}
	return tree.Transform(t, func(ls leafset.LeafSet) leafset.LeafSet {
		return ls.WithBreadcrumb(breadcrumb)
	})
}
