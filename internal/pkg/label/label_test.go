package label

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPathAppendDoesNotMutateReceiver(t *testing.T) {
	base := Path{NewField("a")}
	extended := base.Append(NewField("b"))

	if len(base) != 1 {
		t.Fatalf("Append mutated the receiver: %v", base)
	}
	want := Path{NewField("a"), NewField("b")}
	if !extended.Equal(want) {
		t.Errorf("Append() = %v, want %v", extended, want)
	}
}

func TestPathHead(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		wantOK   bool
		wantHead Label
		wantRest Path
	}{
		{
			name:   "empty",
			path:   Empty(),
			wantOK: false,
		},
		{
			name:     "single",
			path:     Path{NewField("x")},
			wantOK:   true,
			wantHead: NewField("x"),
			wantRest: Path{},
		},
		{
			name:     "multiple",
			path:     Path{NewField("x"), NewIndex("0")},
			wantOK:   true,
			wantHead: NewField("x"),
			wantRest: Path{NewIndex("0")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			head, rest, ok := tc.path.Head()
			if ok != tc.wantOK {
				t.Fatalf("Head() ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if !head.Equal(tc.wantHead) {
				t.Errorf("Head() head = %v, want %v", head, tc.wantHead)
			}
			if diff := cmp.Diff(tc.wantRest, rest, cmp.Comparer(func(a, b Path) bool { return a.Equal(b) })); diff != "" {
				t.Errorf("Head() rest mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPathConcat(t *testing.T) {
	p := Path{NewField("a")}.Concat(Path{NewIndex("0"), NewAny()})
	want := Path{NewField("a"), NewIndex("0"), NewAny()}
	if !p.Equal(want) {
		t.Errorf("Concat() = %v, want %v", p, want)
	}
}

func TestLabelString(t *testing.T) {
	tests := []struct {
		l    Label
		want string
	}{
		{NewField("foo"), ".foo"},
		{NewIndex("3"), "[3]"},
		{NewAny(), "[*]"},
	}
	for _, tc := range tests {
		if got := tc.l.String(); got != tc.want {
			t.Errorf("%+v.String() = %q, want %q", tc.l, got, tc.want)
		}
	}
}
