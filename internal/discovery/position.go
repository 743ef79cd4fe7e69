package discovery

// Kind classifies a discovered position in the test tree.
type Kind string

const (
	KindFile      Kind = "file"
	KindNamespace Kind = "namespace"
	KindTest      Kind = "test"
)

// Range is a source span with 0-based lines and columns.
type Range struct {
	StartLine int `json:"startLine"`
	StartCol  int `json:"startCol"`
	EndLine   int `json:"endLine"`
	EndCol    int `json:"endCol"`
}

// Position is a node in the discovered test tree: the file itself, a
// test.describe group, or an individual test. Children are ordered by
// source position and each child's range is contained in its parent's.
type Position struct {
	Kind     Kind        `json:"kind"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Range    Range       `json:"range"`
	Children []*Position `json:"children,omitempty"`
}

// CountTests returns the number of leaf test positions under p.
func (p *Position) CountTests() int {
	if p.Kind == KindTest {
		return 1
	}
	count := 0
	for _, c := range p.Children {
		count += c.CountTests()
	}
	return count
}
