package modelsrc

import (
	"strings"
	"testing"

	"github.com/coldtrace/taintcore/internal/pkg/env"
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/leafset"
	"github.com/coldtrace/taintcore/internal/pkg/model"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
	"github.com/coldtrace/taintcore/internal/pkg/taintconfig"
	"github.com/coldtrace/taintcore/internal/pkg/taintcoreerr"
	"github.com/coldtrace/taintcore/internal/pkg/tree"
)

func cfg() taintconfig.Configuration {
	return taintconfig.Configuration{
		Sources:  []string{"UserControlled"},
		Sinks:    []string{"SQL", "Shell"},
		Features: []string{"header"},
	}
}

type fakeResolver struct {
	arity  map[string]int
	exists map[string]bool
}

func (f fakeResolver) ResolveType(ir.Expr) (resolver.Type, bool)        { return "", false }
func (f fakeResolver) ClassDefinition(string) (resolver.ClassDef, bool) { return resolver.ClassDef{}, false }
func (f fakeResolver) LessOrEqual(resolver.Type, resolver.Type) bool    { return false }
func (f fakeResolver) ParseReference(ref string) (string, bool)        { return ref, true }
func (f fakeResolver) IsGlobal(string) bool                            { return false }
func (f fakeResolver) IsProperty(string) bool                          { return false }
func (f fakeResolver) Exists(name string) bool {
	if f.exists == nil {
		return true
	}
	return f.exists[name]
}
func (f fakeResolver) Arity(name string) (int, bool) {
	n, ok := f.arity[name]
	return n, ok
}
func (f fakeResolver) Signature(string) (resolver.FunctionSignature, bool) {
	return resolver.FunctionSignature{}, false
}
func (f fakeResolver) TypeBreadcrumb(string) string { return "" }

func TestParseFunctionSourceAndSink(t *testing.T) {
	src := `
def handle(request: TaintSource[UserControlled], out) -> TaintSink[SQL]:
    pass
`
	res, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	m, ok := res.Models["handle"]
	if !ok {
		t.Fatalf("no model recorded for handle")
	}

	reqRoot := env.NewPositionalParameter(0, "request")
	src0 := m.SourceTaint.ReadPath(reqRoot, label.Empty(), tree.Identity)
	if !src0.Has("UserControlled") {
		t.Errorf("source taint at request = %v, want UserControlled", src0)
	}

	ret := m.SinkTaint.ReadPath(env.Result, label.Empty(), tree.Identity)
	if !ret.Has("SQL") {
		t.Errorf("sink taint at return = %v, want SQL", ret)
	}
}

func TestParseTaintInTaintOutOnParameter(t *testing.T) {
	src := `
def identity(x: TaintInTaintOut):
    pass
`
	res, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	m := res.Models["identity"]
	xRoot := env.NewPositionalParameter(0, "x")
	tito := m.TaintInTaintOut.ReadPath(xRoot, label.Empty(), tree.Identity)
	if !tito.Has(leafset.LocalReturn) {
		t.Errorf("tito at x = %v, want LocalReturn", tito)
	}
	if len(tito.ReturnAccessPaths(leafset.LocalReturn)) != 1 {
		t.Errorf("tito ReturnAccessPaths at x = %v, want exactly one (the empty path)", tito.ReturnAccessPaths(leafset.LocalReturn))
	}
}

func TestParseUnionComposesSourceAndSink(t *testing.T) {
	src := `
def both(x: Union[TaintSource[UserControlled],TaintSink[SQL]]):
    pass
`
	res, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	m := res.Models["both"]
	xRoot := env.NewPositionalParameter(0, "x")
	if !m.SourceTaint.ReadPath(xRoot, label.Empty(), tree.Identity).Has("UserControlled") {
		t.Errorf("Union member TaintSource[UserControlled] was not applied")
	}
	if !m.SinkTaint.ReadPath(xRoot, label.Empty(), tree.Identity).Has("SQL") {
		t.Errorf("Union member TaintSink[SQL] was not applied")
	}
}

func TestParseClassLevelSinkAppliesToReceiver(t *testing.T) {
	src := `
class Handler(TaintSink[SQL]):
    def run(self, x):
        pass
    def other(self, y):
        pass
`
	res, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	self0 := env.NewPositionalParameter(0, "self")
	for _, name := range []string{"run", "other"} {
		m, ok := res.Models[name]
		if !ok {
			t.Fatalf("no model recorded for %s", name)
		}
		if !m.SinkTaint.ReadPath(self0, label.Empty(), tree.Identity).Has("SQL") {
			t.Errorf("%s: class-level sink did not propagate to receiver", name)
		}
	}
}

func TestParseModuleAssignmentGlobalSource(t *testing.T) {
	src := `
request_path: TaintSource[UserControlled] = None
`
	res, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	m, ok := res.Models["request_path"]
	if !ok {
		t.Fatalf("no model recorded for module global request_path")
	}
	got := m.SourceTaint.ReadPath(env.NewGlobal("request_path"), label.Empty(), tree.Identity)
	if !got.Has("UserControlled") {
		t.Errorf("global source taint = %v, want UserControlled", got)
	}
}

func TestParseModuleAssignmentGlobalSink(t *testing.T) {
	src := `
dangerous_sink: TaintSink[Shell] = None
`
	res, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	got := res.GlobalSinks.ReadPath(env.NewGlobal("dangerous_sink"), label.Empty(), tree.Identity)
	if !got.Has("Shell") {
		t.Errorf("global sink taint = %v, want Shell", got)
	}
}

func TestParseRejectsUnconfiguredSourceKind(t *testing.T) {
	src := `
def f(x: TaintSource[Unknown]):
    pass
`
	_, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if err == nil {
		t.Fatal("Parse returned no error for an unconfigured source kind")
	}
	if !taintcoreerr.IsInvalidModel(err) {
		t.Errorf("err = %v, want InvalidModel", err)
	}
	if !strings.Contains(err.Error(), "f") || !strings.Contains(err.Error(), "Unknown") {
		t.Errorf("err = %v, want it to name both the callable and the kind", err)
	}
}

func TestParseRejectsSinkOnLocalReturn(t *testing.T) {
	src := `
def f() -> TaintSink[LocalReturn]:
    pass
`
	_, err := Parse(src, fakeResolver{}, cfg(), Options{})
	if !taintcoreerr.IsInvalidModel(err) {
		t.Errorf("err = %v, want InvalidModel", err)
	}
}

func TestParseSkipAnalysisAndSanitizeOnlyValidOnReturn(t *testing.T) {
	_, err := Parse("def f(x: SkipAnalysis):\n    pass\n", fakeResolver{}, cfg(), Options{})
	if !taintcoreerr.IsInvalidModel(err) {
		t.Errorf("SkipAnalysis on a parameter: err = %v, want InvalidModel", err)
	}

	res, err := Parse("def f() -> Sanitize:\n    pass\n", fakeResolver{}, cfg(), Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if res.Models["f"].Mode != model.Sanitize {
		t.Errorf("mode = %v, want Sanitize", res.Models["f"].Mode)
	}
}

func TestParseVerifyChecksExistenceAndArity(t *testing.T) {
	src := "def f(x, y):\n    pass\n"
	r := fakeResolver{exists: map[string]bool{"f": true}, arity: map[string]int{"f": 1}}

	_, err := Parse(src, r, cfg(), Options{Verify: true})
	if !taintcoreerr.IsInvalidModel(err) {
		t.Errorf("arity mismatch: err = %v, want InvalidModel", err)
	}

	r2 := fakeResolver{exists: map[string]bool{}, arity: map[string]int{}}
	_, err2 := Parse(src, r2, cfg(), Options{Verify: true})
	if !taintcoreerr.IsInvalidModel(err2) {
		t.Errorf("missing callable: err = %v, want InvalidModel", err2)
	}
}

func TestParseUnrecognizedTopLevelLineIsInvalidModel(t *testing.T) {
	_, err := Parse("this is not a declaration\n", fakeResolver{}, cfg(), Options{})
	if !taintcoreerr.IsInvalidModel(err) {
		t.Errorf("err = %v, want InvalidModel", err)
	}
}
