// Package resolver declares the external collaborator contracts the
// core consumes (spec.md §6): name/type resolution, call-target
// resolution, and formal-parameter normalization. The core never
// implements these — the surrounding program-representation layer
// (AST, CFG, name resolution, type inference) is explicitly out of
// scope (§1) — but it needs a stable Go interface to program against,
// and tests need small fakes satisfying it.
package resolver

import (
	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
)

// Position is an opaque source location, used only to stamp call sites
// (§4.4 apply_call) and to report parse/analysis diagnostics. The core
// never interprets its contents.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return p.File
}

// Type is an opaque, resolver-assigned type identifier (e.g. a
// fully-qualified class name). The core only ever compares types via
// Resolver.LessOrEqual; it never inspects their structure.
type Type string

// ClassDef describes a class declaration as the external resolver sees
// it. The model parser (C8) does not consult it: class-level TaintSink
// bases are read from the class header in the model source itself.
type ClassDef struct {
	Name    string
	Bases   []string
	Methods []string
}

// FormalParam is one formal parameter of a callable, as the external
// program representation describes it.
type FormalParam struct {
	Name       string
	Annotation string
	// Keyword marks a keyword-only (NamedParameter) formal; otherwise it
	// is bound positionally.
	Keyword bool
}

// FunctionSignature is the header information the CFG collaborator
// exposes about the function under analysis or about a call target
// being modeled.
type FunctionSignature struct {
	Name   string
	Params []FormalParam
}

// IsConstructor reports whether this signature is for a "__init__"
// method, which seeds LocalResult at the first parameter's root instead
// of at the LocalResult root (spec.md §3 Lifecycle).
func (f FunctionSignature) IsConstructor() bool {
	return f.Name == "__init__"
}

// ParamBinding is a (root, name, annotation) triple produced by
// parameter normalization (§6 "given a function's formal parameters,
// produce (root, name, node) triples in canonical order").
type ParamBinding struct {
	Root       env.Root
	Name       string
	Annotation string
}

// NormalizeParameters produces canonical (root, name, annotation)
// triples for sig's formal parameters: positional parameters in
// declaration order (the receiver, if any, is expected to already be
// Params[0] with Position implied by its index), then keyword-only
// parameters as NamedParameter roots.
func NormalizeParameters(sig FunctionSignature) []ParamBinding {
	out := make([]ParamBinding, 0, len(sig.Params))
	position := 0
	for _, p := range sig.Params {
		if p.Keyword {
			out = append(out, ParamBinding{
				Root:       env.NewNamedParameter(p.Name),
				Name:       p.Name,
				Annotation: p.Annotation,
			})
			continue
		}
		out = append(out, ParamBinding{
			Root:       env.NewPositionalParameter(position, p.Name),
			Name:       p.Name,
			Annotation: p.Annotation,
		})
		position++
	}
	return out
}

// Resolver is the name/type-resolution collaborator (§6).
type Resolver interface {
	// ResolveType returns the static type of an expression, if known.
	ResolveType(e ir.Expr) (Type, bool)
	// ClassDefinition returns the class declaration named by ref.
	ClassDefinition(ref string) (ClassDef, bool)
	// LessOrEqual reports whether a is a subtype of (or equal to) b.
	LessOrEqual(a, b Type) bool
	// ParseReference turns a callable or global reference string (as it
	// appears in a model declaration) into the canonical target name the
	// ModelRegistry and CallTargetResolver key on.
	ParseReference(ref string) (string, bool)
	// IsGlobal reports whether name resolves to a known module/global
	// binding in the current scope, used by the normalizer (§4.2) to
	// decide between Global and Local.
	IsGlobal(name string) bool
	// IsProperty reports whether ref names a property-decorated accessor
	// method, so the normalizer rewrites bare access into a zero-arg
	// call (§4.2).
	IsProperty(ref string) bool
	// Exists reports whether ref resolves to a real callable in the
	// external environment, used by the model parser's verification
	// pass (§4.5).
	Exists(ref string) bool
	// Arity returns the resolved callable's parameter count, accounting
	// for an implicit receiver, used by the model parser's verification
	// pass (§4.5).
	Arity(ref string) (int, bool)
	// Signature returns the formal-parameter signature of ref, used to
	// seed a per-function analysis and by the entry extractor.
	Signature(ref string) (FunctionSignature, bool)
	// TypeBreadcrumb derives a breadcrumb string from a parameter's
	// declared annotation, used by the entry extractor (§4.6 step 3).
	TypeBreadcrumb(annotation string) string
}

// Target is one call target returned by a CallTargetResolver: a
// canonical callable name plus whether the dispatch to it is implicit
// (e.g. a default/fallback, as opposed to a statically resolved call).
type Target struct {
	Name     string
	Implicit bool
}

// CallTargetResolver is the call-target-resolution collaborator (§6).
type CallTargetResolver interface {
	// Resolve returns the static call targets for a direct call to
	// calleeRef.
	Resolve(calleeRef string) []Target
	// ResolveIndirect returns the override targets for a method call
	// dispatched dynamically on a receiver of type recv.
	ResolveIndirect(recv Type, methodName string) []Target
}
