package cfg

import (
	"testing"

	"github.com/coldtrace/taintcore/internal/pkg/callsite"
	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/taintcoreerr"
	"github.com/coldtrace/taintcore/internal/pkg/transfer"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

type fakeResolver struct {
	sigs map[string]resolver.FunctionSignature
}

func (f fakeResolver) ResolveType(ir.Expr) (resolver.Type, bool)        { return "", false }
func (f fakeResolver) ClassDefinition(string) (resolver.ClassDef, bool) { return resolver.ClassDef{}, false }
func (f fakeResolver) LessOrEqual(resolver.Type, resolver.Type) bool    { return false }
func (f fakeResolver) ParseReference(ref string) (string, bool)        { return ref, true }
func (f fakeResolver) IsGlobal(string) bool                            { return false }
func (f fakeResolver) IsProperty(string) bool                          { return false }
func (f fakeResolver) Exists(string) bool                              { return true }
func (f fakeResolver) Arity(string) (int, bool)                        { return 0, true }
func (f fakeResolver) Signature(ref string) (resolver.FunctionSignature, bool) {
	sig, ok := f.sigs[ref]
	return sig, ok
}
func (f fakeResolver) TypeBreadcrumb(string) string { return "" }

type fakeCallTargets struct {
	direct map[string][]resolver.Target
}

func (f fakeCallTargets) Resolve(calleeRef string) []resolver.Target { return f.direct[calleeRef] }
func (f fakeCallTargets) ResolveIndirect(resolver.Type, string) []resolver.Target { return nil }

func ident(name string) ir.Expr { return ir.Expr{Kind: ir.Identifier, Name: name} }

func TestAnalyzeFunctionSinkPassThrough(t *testing.T) {
	reg := model.NewMapRegistry()
	sinkEnv := env.New().WithTree(env.NewPositionalParameter(0, "p"), tree.Leaf(leafset.Single("Test")))
	reg.Set("sink", model.Model{SinkTaint: sinkEnv, TaintInTaintOut: env.New(), SourceTaint: env.New()})

	r := fakeResolver{sigs: map[string]resolver.FunctionSignature{
		"sink": {Name: "sink", Params: []resolver.FormalParam{{Name: "p"}}},
		"g":    {Name: "g", Params: []resolver.FormalParam{{Name: "x"}}},
	}}
	ct := fakeCallTargets{direct: map[string][]resolver.Target{"sink": {{Name: "sink"}}}}
	engine := callsite.NewEngine(r, ct, reg, nil, 8)
	ctx := transfer.Context{Resolver: r, Calls: engine}

	callee := ident("sink")
	call := ir.Expr{Kind: ir.Call, Callee: &callee, Args: []ir.Arg{{Value: ident("x")}}}
	g := Graph{Nodes: []Node{{Stmt: ir.Stmt{Kind: ir.StmtExpr, Expr: call}}}}

	m, err := AnalyzeFunction(g, r.sigs["g"], r, ctx)
	if err != nil {
		t.Fatalf("AnalyzeFunction returned error: %v", err)
	}

	got := m.SinkTaint.ReadPath(env.NewPositionalParameter(0, "x"), label.Empty(), tree.Identity)
	if !got.Has("Test") {
		t.Errorf("inferred sink taint at x = %v, want Test", got)
	}
}

func TestAnalyzeFunctionConstructorSeedsAtReceiver(t *testing.T) {
	r := fakeResolver{sigs: map[string]resolver.FunctionSignature{
		"__init__": {Name: "__init__", Params: []resolver.FormalParam{{Name: "self"}, {Name: "x"}}},
	}}
	ctx := transfer.Context{Resolver: r}

	selfExpr := ident("self")
	target := ir.Expr{Kind: ir.Attribute, Recv: &selfExpr, Member: "y"}
	assign := ir.Stmt{Kind: ir.StmtAssign, Target: target, Value: ident("x")}
	g := Graph{Nodes: []Node{{Stmt: assign}}}

	m, err := AnalyzeFunction(g, r.sigs["__init__"], r, ctx)
	if err != nil {
		t.Fatalf("AnalyzeFunction returned error: %v", err)
	}

	xRoot := env.NewPositionalParameter(1, "x")
	tito := m.TaintInTaintOut.ReadPath(xRoot, label.Empty(), tree.Identity)
	if !tito.Has(leafset.LocalReturn) {
		t.Errorf("inferred tito at x = %v, want LocalReturn", tito)
	}
	paths := tito.ReturnAccessPaths(leafset.LocalReturn)
	want := label.Path{label.NewField("y")}
	if len(paths) != 1 || !paths[0].Equal(want) {
		t.Errorf("ReturnAccessPaths at x = %v, want [.y]", paths)
	}
}

func TestAnalyzeFunctionEmptyGraphIsAnalysisNoEntry(t *testing.T) {
	r := fakeResolver{}
	ctx := transfer.Context{Resolver: r}
	sig := resolver.FunctionSignature{Name: "empty"}

	_, err := AnalyzeFunction(Graph{}, sig, r, ctx)
	if !taintcoreerr.IsAnalysisNoEntry(err) {
		t.Errorf("err = %v, want AnalysisNoEntry", err)
	}
}
