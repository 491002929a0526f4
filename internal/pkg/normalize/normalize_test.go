package normalize

import (
	"testing"

	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/label"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
)

// fakeResolver is a minimal resolver.Resolver for normalizer tests.
type fakeResolver struct {
	globals    map[string]bool
	properties map[string]bool
}

func (f fakeResolver) ResolveType(ir.Expr) (resolver.Type, bool)            { return "", false }
func (f fakeResolver) ClassDefinition(string) (resolver.ClassDef, bool)     { return resolver.ClassDef{}, false }
func (f fakeResolver) LessOrEqual(resolver.Type, resolver.Type) bool        { return false }
func (f fakeResolver) ParseReference(ref string) (string, bool)            { return ref, true }
func (f fakeResolver) IsGlobal(name string) bool                           { return f.globals[name] }
func (f fakeResolver) IsProperty(ref string) bool                          { return f.properties[ref] }
func (f fakeResolver) Exists(string) bool                                  { return true }
func (f fakeResolver) Arity(string) (int, bool)                            { return 0, true }
func (f fakeResolver) Signature(string) (resolver.FunctionSignature, bool) { return resolver.FunctionSignature{}, false }
func (f fakeResolver) TypeBreadcrumb(string) string                        { return "" }

func ident(name string) ir.Expr { return ir.Expr{Kind: ir.Identifier, Name: name} }

func TestNormalizeIdentifierLocalVsGlobal(t *testing.T) {
	r := fakeResolver{globals: map[string]bool{"os": true}}

	local := Normalize(ident("x"), r)
	if local.Kind != Local || local.Name != "x" {
		t.Errorf("Normalize(x) = %+v, want Local(x)", local)
	}

	global := Normalize(ident("os"), r)
	if global.Kind != Global || global.Name != "os" {
		t.Errorf("Normalize(os) = %+v, want Global(os)", global)
	}
}

func TestNormalizeAttributeCollapsesKnownDottedGlobal(t *testing.T) {
	r := fakeResolver{globals: map[string]bool{"os.path": true}}
	recv := ident("os")
	e := ir.Expr{Kind: ir.Attribute, Recv: &recv, Member: "path"}

	got := Normalize(e, r)
	if got.Kind != Global || got.Name != "os.path" {
		t.Errorf("Normalize(os.path) = %+v, want Global(os.path)", got)
	}
}

func TestNormalizeAttributeOrdinary(t *testing.T) {
	r := fakeResolver{}
	recv := ident("x")
	e := ir.Expr{Kind: ir.Attribute, Recv: &recv, Member: "a"}

	got := Normalize(e, r)
	if got.Kind != Access || got.Member != "a" || got.Base.Kind != Local {
		t.Errorf("Normalize(x.a) = %+v, want Access(Local(x), a)", got)
	}
}

func TestNormalizePropertyAccessBecomesZeroArgCall(t *testing.T) {
	r := fakeResolver{properties: map[string]bool{"cached_value": true}}
	recv := ident("x")
	e := ir.Expr{Kind: ir.Attribute, Recv: &recv, Member: "cached_value"}

	got := Normalize(e, r)
	if got.Kind != CallExpr || len(got.Args) != 0 {
		t.Fatalf("Normalize(property access) = %+v, want a zero-arg CallExpr", got)
	}
	if got.Callee.Kind != Access || got.Callee.Member != "cached_value" {
		t.Errorf("callee of rewritten property call = %+v, want Access(..., cached_value)", got.Callee)
	}
}

func TestNormalizeSubscriptConstantVsNonConstant(t *testing.T) {
	r := fakeResolver{}
	base := ident("x")
	idx := "0"
	constant := ir.Expr{Kind: ir.Subscript, Base: &base, ConstantIndex: &idx}
	got := Normalize(constant, r)
	if got.Kind != Index || got.Label.Kind != label.Index || got.Label.Name != "0" {
		t.Errorf("Normalize(x[0]) = %+v, want Index label", got)
	}

	nonConstant := ir.Expr{Kind: ir.Subscript, Base: &base}
	got2 := Normalize(nonConstant, r)
	if got2.Kind != Index || got2.Label.Kind != label.Any {
		t.Errorf("Normalize(x[dyn]) = %+v, want Any label", got2)
	}
}

func TestRoundTripNormalization(t *testing.T) {
	r := fakeResolver{globals: map[string]bool{"os.environ": true}}
	base := ident("x")
	idx := "k"
	tests := []ir.Expr{
		ident("x"),
		{Kind: ir.Attribute, Recv: &base, Member: "a"},
		{Kind: ir.Subscript, Base: &base, ConstantIndex: &idx},
	}

	for _, e := range tests {
		n := Normalize(e, r)
		rt := AsExpr(n)
		// Re-normalizing the round-tripped expression should produce the
		// same canonical form, witnessing semantic equivalence without
		// needing a full expression-equality oracle.
		n2 := Normalize(rt, r)
		if n.Kind != n2.Kind || n.Name != n2.Name || n.Member != n2.Member {
			t.Errorf("round trip of %+v: got %+v, then %+v", e, n, n2)
		}
	}
}
