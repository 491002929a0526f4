package modelsrc

import (
	"fmt"
	"strings"

	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/taintconfig"
	"github.com/coldtrace/taintcore/internal/pkg/taintcoreerr"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

// annKind discriminates the five annotation forms (§4.5). Union is only
// an intermediate node: flatten expands it away before applyAnnotation
// ever sees one.
type annKind int

const (
	annSource annKind = iota
	annSink
	annTito
	annSkip
	annSanitize
	annUnion
)

// parsedAnnotation is the parse tree for one annotation expression.
type parsedAnnotation struct {
	kind     annKind
	kinds    []string
	via      []string
	children []parsedAnnotation
}

// parseAnnotationString parses one annotation expression, e.g.
// `TaintSource[UserControlled,Via[header]]` or `Union[TaintSource[A],TaintSink[B]]`.
func parseAnnotationString(s string) (parsedAnnotation, error) {
	s = strings.TrimSpace(s)
	name, content, hasBracket, err := splitNameBracket(s)
	if err != nil {
		return parsedAnnotation{}, err
	}
	name = strings.TrimSpace(name)

	switch name {
	case "SkipAnalysis":
		if hasBracket {
			return parsedAnnotation{}, fmt.Errorf("SkipAnalysis takes no arguments")
		}
		return parsedAnnotation{kind: annSkip}, nil

	case "Sanitize":
		if hasBracket {
			return parsedAnnotation{}, fmt.Errorf("Sanitize takes no arguments")
		}
		return parsedAnnotation{kind: annSanitize}, nil

	case "TaintSource":
		kinds, via, err := parseKindsVia(content)
		if err != nil {
			return parsedAnnotation{}, err
		}
		if len(kinds) == 0 {
			return parsedAnnotation{}, fmt.Errorf("TaintSource requires at least one kind")
		}
		return parsedAnnotation{kind: annSource, kinds: kinds, via: via}, nil

	case "TaintSink":
		kinds, via, err := parseKindsVia(content)
		if err != nil {
			return parsedAnnotation{}, err
		}
		if len(kinds) == 0 {
			return parsedAnnotation{}, fmt.Errorf("TaintSink requires at least one kind")
		}
		return parsedAnnotation{kind: annSink, kinds: kinds, via: via}, nil

	case "TaintInTaintOut":
		kinds, via, err := parseKindsVia(content)
		if err != nil {
			return parsedAnnotation{}, err
		}
		if len(kinds) == 0 {
			kinds = []string{string(leafset.LocalReturn)}
		}
		if len(kinds) > 1 {
			return parsedAnnotation{}, fmt.Errorf("TaintInTaintOut takes at most one kind")
		}
		return parsedAnnotation{kind: annTito, kinds: kinds, via: via}, nil

	case "Union":
		if !hasBracket {
			return parsedAnnotation{}, fmt.Errorf("Union requires arguments")
		}
		var children []parsedAnnotation
		for _, part := range splitTopLevel(content) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			child, err := parseAnnotationString(part)
			if err != nil {
				return parsedAnnotation{}, err
			}
			children = append(children, child)
		}
		if len(children) == 0 {
			return parsedAnnotation{}, fmt.Errorf("Union requires at least one member")
		}
		return parsedAnnotation{kind: annUnion, children: children}, nil

	default:
		return parsedAnnotation{}, fmt.Errorf("unknown annotation %q", name)
	}
}

// parseKindsVia splits a TaintSource/TaintSink/TaintInTaintOut bracket
// body into its bare kind names and, if present, the feature names
// carried by a trailing Via[...] member.
func parseKindsVia(content string) (kinds []string, via []string, err error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, nil
	}
	for _, part := range splitTopLevel(content) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "Via") {
			_, viaContent, hasBracket, verr := splitNameBracket(part)
			if verr != nil {
				return nil, nil, verr
			}
			if !hasBracket {
				return nil, nil, fmt.Errorf("Via requires brackets")
			}
			for _, f := range splitTopLevel(viaContent) {
				f = strings.TrimSpace(f)
				if f != "" {
					via = append(via, f)
				}
			}
			continue
		}
		kinds = append(kinds, part)
	}
	return kinds, via, nil
}

// splitNameBracket splits "Name[content]" into ("Name", "content", true)
// or, absent brackets, ("Name", "", false).
func splitNameBracket(s string) (name, content string, hasBracket bool, err error) {
	idx := strings.IndexByte(s, '[')
	if idx < 0 {
		return s, "", false, nil
	}
	if !strings.HasSuffix(s, "]") {
		return "", "", false, fmt.Errorf("unbalanced brackets in %q", s)
	}
	return s[:idx], s[idx+1 : len(s)-1], true, nil
}

// flatten expands a Union node into its leaf (non-Union) members; every
// other kind flattens to itself.
func flatten(pa parsedAnnotation) []parsedAnnotation {
	if pa.kind != annUnion {
		return []parsedAnnotation{pa}
	}
	var out []parsedAnnotation
	for _, c := range pa.children {
		out = append(out, flatten(c)...)
	}
	return out
}

// applyAnnotation records pa's effect on m at root, checking it against
// cfg's allow-lists and against position ("param" or "return").
func applyAnnotation(pa parsedAnnotation, root env.Root, position, callable string, cfg taintconfig.Configuration, m *model.Model) error {
	switch pa.kind {
	case annSkip:
		if position != "return" {
			return taintcoreerr.InvalidModel(callable, "SkipAnalysis is only valid in return position")
		}
		raiseMode(m, model.SkipAnalysis)
		return nil

	case annSanitize:
		if position != "return" {
			return taintcoreerr.InvalidModel(callable, "Sanitize is only valid in return position")
		}
		raiseMode(m, model.Sanitize)
		return nil

	case annSource:
		for _, k := range pa.kinds {
			if !cfg.HasSource(k) {
				return taintcoreerr.ConfigurationMismatch(callable, k)
			}
		}
		for _, f := range pa.via {
			if !cfg.HasFeature(f) {
				return taintcoreerr.ConfigurationMismatch(callable, f)
			}
		}
		m.SourceTaint = m.SourceTaint.WithTree(root, tree.Leaf(leavesFor(pa)))
		return nil

	case annSink:
		if containsLocalReturn(pa.kinds) {
			return taintcoreerr.InvalidModel(callable, "TaintSink may not name the LocalReturn kind")
		}
		for _, k := range pa.kinds {
			if !cfg.HasSink(k) {
				return taintcoreerr.ConfigurationMismatch(callable, k)
			}
		}
		for _, f := range pa.via {
			if !cfg.HasFeature(f) {
				return taintcoreerr.ConfigurationMismatch(callable, f)
			}
		}
		m.SinkTaint = m.SinkTaint.WithTree(root, tree.Leaf(leavesFor(pa)))
		return nil

	case annTito:
		if position != "param" {
			return taintcoreerr.InvalidModel(callable, "TaintInTaintOut is only valid on parameters")
		}
		for _, f := range pa.via {
			if !cfg.HasFeature(f) {
				return taintcoreerr.ConfigurationMismatch(callable, f)
			}
		}
		ls := leafset.Single(leafset.Kind(pa.kinds[0])).WithReturnAccessPath(label.Empty())
		for _, f := range pa.via {
			ls = ls.WithBreadcrumb(f)
		}
		m.TaintInTaintOut = m.TaintInTaintOut.WithTree(root, tree.Leaf(ls))
		return nil

	default:
		return taintcoreerr.InvalidModel(callable, "unsupported annotation in this position")
	}
}

func raiseMode(m *model.Model, target model.Mode) {
	if target > m.Mode {
		m.Mode = target
	}
}

func containsLocalReturn(kinds []string) bool {
	for _, k := range kinds {
		if k == string(leafset.LocalReturn) {
			return true
		}
	}
	return false
}

// leavesFor builds the leaf set a TaintSource/TaintSink annotation
// contributes: one leaf per declared kind, each carrying every Via
// feature as a breadcrumb.
func leavesFor(pa parsedAnnotation) leafset.LeafSet {
	out := leafset.Empty()
	for _, k := range pa.kinds {
		ls := leafset.Single(leafset.Kind(k))
		for _, f := range pa.via {
			ls = ls.WithBreadcrumb(f)
		}
		out = leafset.Join(out, ls)
	}
	return out
}
