// Package label defines the atomic access-path labels and the paths built
// from them. A Label names one step into a value: a named field, a
// numeric index, or the Any wildcard that joins with every sibling on
// read and absorbs whatever is assigned through it.
package label

import "strings"

// Kind discriminates the three label shapes.
type Kind int

const (
	// Field names a struct-like member access, e.g. `.foo`.
	Field Kind = iota
	// Index names a numeric or string subscript, e.g. `[0]`.
	Index
	// Any is the wildcard produced by non-constant subscripts and by
	// comprehension/star expansion. It joins with every sibling on read
	// and absorbs whatever is assigned through it.
	Any
)

func (k Kind) String() string {
	switch k {
	case Field:
		return "Field"
	case Index:
		return "Index"
	case Any:
		return "Any"
	default:
		return "Unknown"
	}
}

// Label is one step of an access path.
type Label struct {
	Kind Kind
	// Name holds the field name for Field labels and the literal index
	// text for Index labels. Unused for Any.
	Name string
}

// NewField builds a Field label.
func NewField(name string) Label { return Label{Kind: Field, Name: name} }

// NewIndex builds an Index label.
func NewIndex(index string) Label { return Label{Kind: Index, Name: index} }

// NewAny builds the Any wildcard label.
func NewAny() Label { return Label{Kind: Any} }

// Equal reports structural equality between two labels.
func (l Label) Equal(o Label) bool {
	return l.Kind == o.Kind && l.Name == o.Name
}

func (l Label) String() string {
	switch l.Kind {
	case Field:
		return "." + l.Name
	case Index:
		return "[" + l.Name + "]"
	case Any:
		return "[*]"
	default:
		return "?"
	}
}

// Path is an ordered sequence of labels. An empty path denotes the root.
type Path []Label

// Empty is the root path.
func Empty() Path { return nil }

// Append returns a new path with l appended; the receiver is unchanged.
func (p Path) Append(l Label) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = l
	return out
}

// Concat returns a new path consisting of p followed by o.
func (p Path) Concat(o Path) Path {
	if len(o) == 0 {
		return p
	}
	out := make(Path, 0, len(p)+len(o))
	out = append(out, p...)
	out = append(out, o...)
	return out
}

// Head returns the first label and the remaining suffix. ok is false for
// an empty path.
func (p Path) Head() (l Label, rest Path, ok bool) {
	if len(p) == 0 {
		return Label{}, nil, false
	}
	return p[0], p[1:], true
}

// Equal reports structural, order-sensitive equality.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if !p[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	var b strings.Builder
	for _, l := range p {
		b.WriteString(l.String())
	}
	return b.String()
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}
