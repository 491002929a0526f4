// Package model defines the per-callable Model (spec.md §3) and its
// registry, and implements model_merge (§6), the pointwise join the
// spec names but does not detail (see SPEC_FULL.md's "Supplemented
// Features").
package model

import "github.com/coldtrace/taintcore/internal/pkg/env"

// Mode captures whether a callable's analysis should be skipped or its
// return value treated as sanitized of everything that flows in.
type Mode int

const (
	// Normal is the default: the callable is analyzed or modeled as
	// usual.
	Normal Mode = iota
	// Sanitize marks a callable whose return value never carries taint
	// from its arguments, regardless of what the body (if analyzed)
	// would otherwise conclude.
	Sanitize
	// SkipAnalysis marks a callable the per-function analyzer must never
	// run on; callers fall back to its declared model (or to the
	// obscure fallback if it has none).
	SkipAnalysis
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case Sanitize:
		return "Sanitize"
	case SkipAnalysis:
		return "SkipAnalysis"
	default:
		return "Unknown"
	}
}

// mergeMode combines two modes by the conservative total order
// Normal < Sanitize < SkipAnalysis (SPEC_FULL.md Supplemented Features):
// whichever mode constrains analysis more wins, since a model parsed
// from two different declarations (or joined across overridden call
// targets) must never be less conservative than either input.
func mergeMode(a, b Mode) Mode {
	if a > b {
		return a
	}
	return b
}

// Model is the published summary of a callable (spec.md §3).
type Model struct {
	SinkTaint       env.Environment
	TaintInTaintOut env.Environment
	// SourceTaint is the forward-analysis counterpart; the core's
	// forward domain is out of this document's scope (spec.md §3 calls
	// it out explicitly as "not elaborated here"), but the field is
	// carried so Model, ModelMerge, and the registry are usable as the
	// real system's single source of truth for a callable.
	SourceTaint env.Environment
	Mode        Mode
	IsObscure   bool
}

// Empty returns the empty model: no flows, Normal mode, not obscure.
func Empty() Model {
	return Model{
		SinkTaint:       env.New(),
		TaintInTaintOut: env.New(),
		SourceTaint:     env.New(),
		Mode:            Normal,
	}
}

// Obscure returns the model used when no user model and no inferred
// model exists for a callee (§4.4).
func Obscure() Model {
	m := Empty()
	m.IsObscure = true
	return m
}

// Merge is model_merge (§6): the pointwise join of two models.
func Merge(a, b Model) Model {
	return Model{
		SinkTaint:       env.Join(a.SinkTaint, b.SinkTaint),
		TaintInTaintOut: env.Join(a.TaintInTaintOut, b.TaintInTaintOut),
		SourceTaint:     env.Join(a.SourceTaint, b.SourceTaint),
		Mode:            mergeMode(a.Mode, b.Mode),
		IsObscure:       a.IsObscure || b.IsObscure,
	}
}

// Registry is the interprocedural model registry (§6): write-once per
// key is the only durability guarantee the core relies on (§5); the
// core treats it as read-only during any single function's fixpoint.
type Registry interface {
	Get(target string) (Model, bool)
	Set(target string, m Model)
}

// MapRegistry is a trivial in-memory Registry, suitable for tests and
// for a single-process driver. It is not safe for concurrent writers to
// the same key racing with readers; §5 only requires that concurrent
// writes to the same key be equal by construction, which callers of Set
// must themselves guarantee. (The synthetic shell-exec models in
// internal/pkg/callsite live in that package's own cache, not here.)
type MapRegistry struct {
	models map[string]Model
}

// NewMapRegistry returns an empty MapRegistry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{models: map[string]Model{}}
}

// Get implements Registry.
func (r *MapRegistry) Get(target string) (Model, bool) {
	m, ok := r.models[target]
	return m, ok
}

// Set implements Registry.
func (r *MapRegistry) Set(target string, m Model) {
	r.models[target] = m
}
