// Package taintcore exports the analysis core's public surface: the
// three operations spec.md §6 names as Exposed — analyze_function,
// parse_models, and model_merge — plus the collaborator types a caller
// needs to invoke them. Everything here is a thin re-export over
// internal/pkg, the same convention the teacher's own pkg/levee uses
// for its Analyzer and SetConfigBytes.
package taintcore

import (
	"github.com/coldtrace/taintcore/internal/pkg/cfg"
	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/modelsrc"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/taintconfig"
	"github.com/coldtrace/taintcore/internal/pkg/transfer"
)

type (
	// Node and Graph describe a function body for AnalyzeFunction: one
	// flat statement list plus successor edges (§6 "CFG(function)").
	Node  = cfg.Node
	Graph = cfg.Graph

	// Model is one callable's published sink/TITO/source summary.
	Model = model.Model

	// Configuration is the sources/sinks/features/rules allow-list C8
	// validates model-source annotations against.
	Configuration = taintconfig.Configuration

	// Resolver and CallTargetResolver are the external collaborator
	// contracts a caller must implement to drive analysis over its own
	// program representation.
	Resolver           = resolver.Resolver
	CallTargetResolver = resolver.CallTargetResolver

	// FunctionSignature, FormalParam and ParamBinding describe a
	// callable's formal parameters.
	FunctionSignature = resolver.FunctionSignature
	FormalParam       = resolver.FormalParam
	ParamBinding      = resolver.ParamBinding

	// Stmt and Expr are the IR shapes a Graph's nodes carry.
	Stmt = ir.Stmt
	Expr = ir.Expr

	// TransferContext bundles the collaborators AnalyzeFunction threads
	// through the backward transfer function, including the call-site
	// engine (see the callsite package) as its Calls field.
	TransferContext = transfer.Context

	// ModelOptions controls ParseModels' optional verification pass.
	ModelOptions = modelsrc.Options

	// ParseResult is ParseModels' output: one Model per declared
	// callable, plus any module-level global sink declarations.
	ParseResult = modelsrc.Result

	// Environment is the per-root taint state GlobalSinks and a
	// TransferContext carry.
	Environment = env.Environment
)

// AnalyzeFunction is the analyze_function exposed operation (§6): given
// a function body, its formal signature, a Resolver, and a
// TransferContext (wiring in a call-site engine), it runs the backward
// fixpoint and returns the published Model.
var AnalyzeFunction = cfg.AnalyzeFunction

// ParseModels is the parse_models exposed operation (§6): it parses a
// model-source document against a Configuration, consulting r only when
// opts.Verify is set.
func ParseModels(source string, r resolver.Resolver, cfg taintconfig.Configuration, opts modelsrc.Options) (ParseResult, error) {
	return modelsrc.Parse(source, r, cfg, opts)
}

// MergeModels is the model_merge exposed operation (§6): the pointwise
// join of two Models' sink/TITO/source trees, escalating Mode and
// OR-ing IsObscure.
var MergeModels = model.Merge
