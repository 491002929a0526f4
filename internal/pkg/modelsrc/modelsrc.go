// Package modelsrc implements C8: a hand-written scanner and parser for
// the small declaration source spec.md §4.5 describes (function
// signatures, class blocks, and typed module-level assignments carrying
// annotations from a closed vocabulary) and its translation into
// initial per-callable models.
//
// The grammar is tiny and closed, so a line-oriented regexp scanner plus
// a small recursive-descent annotation parser is enough; a general
// parser-combinator or grammar library would be overkill for five
// annotation forms (see SPEC_FULL.md's DOMAIN STACK table).
package modelsrc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/taintconfig"
	"github.com/coldtrace/taintcore/internal/pkg/taintcoreerr"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

var (
	classRe  = regexp.MustCompile(`^class\s+(\w+)\s*\(([^)]*)\)\s*:$`)
	funcRe   = regexp.MustCompile(`^def\s+(\w+)\s*\(([^)]*)\)(?:\s*->\s*(.+))?\s*:$`)
	assignRe = regexp.MustCompile(`^(\w+)\s*:\s*(.+?)\s*=.*$`)
)

// Options controls optional parsing behavior.
type Options struct {
	// Verify, when set, checks every modeled callable exists in the
	// external environment and that its declared parameter count matches
	// the resolver's reported arity, plus evaluates every configured
	// Rule against it (§4.5).
	Verify bool
}

// Result is the output of Parse.
type Result struct {
	// Models maps a callable (or a module-level global's own name, for
	// TaintSource assignments) to its model.
	Models map[string]model.Model
	// GlobalSinks holds the sink contributions declared by module-level
	// `name: TaintSink[K] = ...` assignments (the "synthesized $global
	// parameter" of §4.5), keyed by the Global root the normalizer
	// produces for that name — ready to pass directly as
	// transfer.Context.GlobalSinks.
	GlobalSinks env.Environment
}

// Parse parses source against cfg, consulting r only when opts.Verify is
// set. Parsing is all-or-nothing: the first InvalidModel aborts (§7).
func Parse(source string, r resolver.Resolver, cfg taintconfig.Configuration, opts Options) (Result, error) {
	res := Result{Models: map[string]model.Model{}, GlobalSinks: env.New()}

	var classSink []parsedAnnotation
	classIndent := -1

	for _, line := range preprocess(source) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := leadingSpaces(line)
		if classIndent >= 0 && indent <= classIndent {
			classSink = nil
			classIndent = -1
		}

		if m := classRe.FindStringSubmatch(trimmed); m != nil {
			name, bases := m[1], m[2]
			classIndent = indent
			classSink = nil
			for _, base := range splitTopLevel(bases) {
				base = strings.TrimSpace(base)
				if base == "" {
					continue
				}
				pa, err := parseAnnotationString(base)
				if err != nil {
					return Result{}, taintcoreerr.InvalidModel(name, err.Error())
				}
				classSink = append(classSink, flatten(pa)...)
			}
			continue
		}

		if m := funcRe.FindStringSubmatch(trimmed); m != nil {
			name := m[1]
			fm, declaredParams, err := parseFunc(name, m[2], m[3], classSink, cfg)
			if err != nil {
				return Result{}, err
			}
			if opts.Verify {
				if err := verify(name, declaredParams, r, cfg); err != nil {
					return Result{}, err
				}
			}
			if existing, ok := res.Models[name]; ok {
				fm = model.Merge(existing, fm)
			}
			res.Models[name] = fm
			continue
		}

		if m := assignRe.FindStringSubmatch(trimmed); m != nil {
			if err := parseAssign(&res, m[1], m[2], cfg); err != nil {
				return Result{}, err
			}
			continue
		}

		// Only top-level lines are required to be one of the three
		// declaration forms; deeper lines are uninspected body content
		// (this grammar only models signatures, not bodies).
		if indent == 0 {
			return Result{}, taintcoreerr.InvalidModel("<source>", fmt.Sprintf("unrecognized declaration form: %q", trimmed))
		}
	}

	return res, nil
}

func parseFunc(name, paramsRaw, retRaw string, classSink []parsedAnnotation, cfg taintconfig.Configuration) (model.Model, int, error) {
	fm := model.Empty()

	params := splitTopLevel(paramsRaw)
	position := 0
	declared := 0
	for _, raw := range params {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		declared++
		pname, ann := splitParam(raw)
		root := env.NewPositionalParameter(position, pname)
		if position == 0 {
			for _, sinkAnn := range classSink {
				if err := applyAnnotation(sinkAnn, root, "param", name, cfg, &fm); err != nil {
					return model.Model{}, 0, err
				}
			}
		}
		position++

		if ann == "" {
			continue
		}
		pa, err := parseAnnotationString(ann)
		if err != nil {
			return model.Model{}, 0, taintcoreerr.InvalidModel(name, err.Error())
		}
		for _, leafAnn := range flatten(pa) {
			if err := applyAnnotation(leafAnn, root, "param", name, cfg, &fm); err != nil {
				return model.Model{}, 0, err
			}
		}
	}

	retRaw = strings.TrimSpace(retRaw)
	if retRaw != "" {
		pa, err := parseAnnotationString(retRaw)
		if err != nil {
			return model.Model{}, 0, taintcoreerr.InvalidModel(name, err.Error())
		}
		for _, leafAnn := range flatten(pa) {
			if err := applyAnnotation(leafAnn, env.Result, "return", name, cfg, &fm); err != nil {
				return model.Model{}, 0, err
			}
		}
	}

	return fm, declared, nil
}

func parseAssign(res *Result, gname, annRaw string, cfg taintconfig.Configuration) error {
	pa, err := parseAnnotationString(strings.TrimSpace(annRaw))
	if err != nil {
		return taintcoreerr.InvalidModel(gname, err.Error())
	}
	for _, leafAnn := range flatten(pa) {
		switch leafAnn.kind {
		case annSource:
			for _, k := range leafAnn.kinds {
				if !cfg.HasSource(k) {
					return taintcoreerr.ConfigurationMismatch(gname, k)
				}
			}
			gm := res.Models[gname]
			gm.SourceTaint = gm.SourceTaint.WithTree(env.NewGlobal(gname), tree.Leaf(leavesFor(leafAnn)))
			res.Models[gname] = gm
		case annSink:
			for _, k := range leafAnn.kinds {
				if !cfg.HasSink(k) {
					return taintcoreerr.ConfigurationMismatch(gname, k)
				}
			}
			res.GlobalSinks = res.GlobalSinks.WithTree(env.NewGlobal(gname), tree.Leaf(leavesFor(leafAnn)))
		default:
			return taintcoreerr.InvalidModel(gname, "module-level assignments only support TaintSource/TaintSink")
		}
	}
	return nil
}

func verify(name string, declaredParams int, r resolver.Resolver, cfg taintconfig.Configuration) error {
	if r == nil || !r.Exists(name) {
		return taintcoreerr.InvalidModel(name, "callable does not exist in the external environment")
	}
	if arity, ok := r.Arity(name); ok && arity != declaredParams {
		return taintcoreerr.InvalidModel(name, fmt.Sprintf("declared %d parameters, resolver reports arity %d", declaredParams, arity))
	}
	for _, rule := range cfg.Rules {
		ok, err := evalRule(rule, name)
		if err != nil {
			return taintcoreerr.InvalidModel(name, fmt.Sprintf("rule %q: %s", rule.Name, err))
		}
		if !ok {
			return taintcoreerr.InvalidModel(name, fmt.Sprintf("rejected by rule %q", rule.Name))
		}
	}
	return nil
}

func evalRule(rule taintconfig.Rule, callable string) (bool, error) {
	out, err := expr.Eval(rule.Predicate, map[string]any{"callable": callable})
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("predicate did not evaluate to a boolean")
	}
	return b, nil
}

// splitParam splits a parameter segment into its bare name and
// annotation text, stripping a trailing default-value expression from
// either half.
func splitParam(raw string) (name, annotation string) {
	if idx := strings.Index(raw, ":"); idx >= 0 {
		name = strings.TrimSpace(raw[:idx])
		annotation = strings.TrimSpace(raw[idx+1:])
		if eq := strings.Index(annotation, "="); eq >= 0 {
			annotation = strings.TrimSpace(annotation[:eq])
		}
		return name, annotation
	}
	name = raw
	if eq := strings.Index(name, "="); eq >= 0 {
		name = strings.TrimSpace(name[:eq])
	}
	return name, ""
}

func preprocess(source string) []string {
	lines := strings.Split(source, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := leadingSpaces(l)
		if common == -1 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= common {
			out[i] = l[common:]
		} else {
			out[i] = l
		}
	}
	return out
}

func leadingSpaces(l string) int {
	n := 0
	for _, r := range l {
		if r != ' ' {
			break
		}
		n++
	}
	return n
}

// splitTopLevel splits s on commas that are not nested inside brackets.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
