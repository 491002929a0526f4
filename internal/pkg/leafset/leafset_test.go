package leafset

import (
	"testing"

	"github.com/coldtrace/taintcore/internal/pkg/label"
)

func TestJoinIdempotentAndAbsorbsBottom(t *testing.T) {
	s := Single("Test").WithBreadcrumb("obscure")
	if !Equal(Join(s, s), s) {
		t.Errorf("join(s,s) != s")
	}
	if !Equal(Join(s, Empty()), s) {
		t.Errorf("join(s, empty) != s")
	}
}

func TestLessOrEqualWithJoin(t *testing.T) {
	a := Single("Test")
	b := Single("Other")
	joined := Join(a, b)
	if !LessOrEqual(a, joined) {
		t.Errorf("a should be <= join(a,b)")
	}
	if !LessOrEqual(b, joined) {
		t.Errorf("b should be <= join(a,b)")
	}
}

func TestJoinMergesFeaturesForSharedKind(t *testing.T) {
	a := Single("Test").WithBreadcrumb("x")
	b := Single("Test").WithBreadcrumb("y")
	joined := Join(a, b)

	got := joined.Breadcrumbs("Test")
	if len(got) != 2 {
		t.Fatalf("Breadcrumbs() = %v, want 2 entries", got)
	}
}

func TestWidenBoundsComplexFeatureCardinality(t *testing.T) {
	s := Single(LocalReturn)
	for i := 0; i < 10; i++ {
		p := label.Path{label.NewField(string(rune('a' + i)))}
		s = s.WithReturnAccessPath(p)
	}
	widened := Widen(Empty(), s)
	if got := len(widened.ReturnAccessPaths(LocalReturn)); got > maxComplexFeatures {
		t.Errorf("Widen() kept %d complex features, want <= %d", got, maxComplexFeatures)
	}
}

func TestWidenOfEqualStatesIsIdentity(t *testing.T) {
	s := Single("Test").WithBreadcrumb("x")
	if !Equal(Widen(s, s), s) {
		t.Errorf("widen(t,t) != t")
	}
}

func TestMapReturnAccessPathsExtendsSuffix(t *testing.T) {
	s := Single(LocalReturn).WithReturnAccessPath(label.Path{label.NewField("y")})
	mapped := s.MapReturnAccessPaths(func(p label.Path) label.Path {
		return p.Append(label.NewField("z"))
	})
	paths := mapped.ReturnAccessPaths(LocalReturn)
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(paths))
	}
	want := label.Path{label.NewField("y"), label.NewField("z")}
	if !paths[0].Equal(want) {
		t.Errorf("mapped path = %v, want %v", paths[0], want)
	}
}

func TestFilterKindSplitsLocalReturnFromSinks(t *testing.T) {
	s := Join(Single(LocalReturn), Single("SQL"))
	tito := s.FilterKind(func(k Kind) bool { return k == LocalReturn })
	sinks := s.FilterKind(func(k Kind) bool { return k != LocalReturn })

	if !tito.Has(LocalReturn) || tito.Has("SQL") {
		t.Errorf("tito partition = %v, want only LocalReturn", tito)
	}
	if !sinks.Has("SQL") || sinks.Has(LocalReturn) {
		t.Errorf("sink partition = %v, want only SQL", sinks)
	}
}
