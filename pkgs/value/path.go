package value

import "strconv"

// SegmentKind distinguishes a map-key hop from a list-index hop in a Path.
type SegmentKind int

const (
	SegKey SegmentKind = iota
	SegIndex
)

// Segment is one hop of a Path: either a map key or a list index.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

func (s Segment) String() string {
	if s.Kind == SegIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// SourceLocation records where in the original document a value's leaf
// was found, for diagnostics. File is empty when the document came from
// an in-memory buffer with no associated path.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// Path is an immutable, ordered sequence of segments denoting a value's
// location in the document it was parsed from. Extending a Path
// always returns a new Path; the receiver is never mutated.
type Path struct {
	segments []Segment
	loc      SourceLocation
}

// Root returns the empty path, denoting the document root.
func Root() Path {
	return Path{}
}

// RootAt returns the empty path carrying a source location for the
// document root.
func RootAt(loc SourceLocation) Path {
	return Path{loc: loc}
}

// Key returns a new Path extending the receiver with a map-key hop.
func (p Path) Key(k string) Path {
	return p.extend(Segment{Kind: SegKey, Key: k})
}

// Index returns a new Path extending the receiver with a list-index hop.
func (p Path) Index(i int) Path {
	return p.extend(Segment{Kind: SegIndex, Index: i})
}

func (p Path) extend(seg Segment) Path {
	next := make([]Segment, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = seg
	return Path{segments: next, loc: p.loc}
}

// Segments returns a copy of the path's segments, root first.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len reports how many hops this path has taken from the root.
func (p Path) Len() int { return len(p.segments) }

// Location returns the source location recorded at the path's root.
func (p Path) Location() SourceLocation { return p.loc }

// HasPrefix reports whether p is other, or a strict extension of other.
// Used to check the invariant that every resolved value's path descends
// from the document root it was resolved against.
func (p Path) HasPrefix(other Path) bool {
	if len(other.segments) > len(p.segments) {
		return false
	}
	for i, seg := range other.segments {
		if seg != p.segments[i] {
			return false
		}
	}
	return true
}

// String renders the path in "/key/0/child" form, the stable identifier
// used in reports.
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	out := make([]byte, 0, 32)
	for _, seg := range p.segments {
		out = append(out, '/')
		out = append(out, seg.String()...)
	}
	return string(out)
}
