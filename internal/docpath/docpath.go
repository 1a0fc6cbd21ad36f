package docpath

import (
	"strconv"
	"strings"
)

// Step is one navigation step into a document: a mapping field or a sequence index.
type Step struct {
	// Name is the field name for field steps.
	Name string
	// Index is the element index for index steps. A negative index never resolves.
	Index int
	// IsIndex reports whether the step addresses a sequence element.
	IsIndex bool
}

// Field returns a field step.
func Field(name string) Step { return Step{Name: name} }

// Index returns an index step.
func Index(i int) Step { return Step{Index: i, IsIndex: true} }

// String renders a single step the way it appears inside a path.
func (s Step) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Name
}

// Path is an ordered sequence of steps from the document root.
type Path []Step

// Field returns a new path extended by a field step. The receiver is never modified.
func (p Path) Field(name string) Path {
	return p.append(Field(name))
}

// Index returns a new path extended by an index step. The receiver is never modified.
func (p Path) Index(i int) Path {
	return p.append(Index(i))
}

// Join returns a new path made of p followed by suffix.
func (p Path) Join(suffix Path) Path {
	out := make(Path, 0, len(p)+len(suffix))
	out = append(out, p...)
	return append(out, suffix...)
}

func (p Path) append(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// String returns the canonical encoding of the path.
func (p Path) String() string { return Encode(p) }

// Equal reports whether two paths contain the same steps.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Encode joins field steps with "." and appends index steps as "[n]" directly after
// the step they index into, e.g. events[0].list[3].parameters[0].
func Encode(steps []Step) string {
	var sb strings.Builder
	for i, s := range steps {
		if s.IsIndex {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(s.Index))
			sb.WriteByte(']')
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.Name)
	}
	return sb.String()
}

// Decode parses a canonical path string. It never fails: malformed index groups
// become index steps with a negative index, which no document can resolve.
func Decode(path string) Path {
	if path == "" {
		return Path{}
	}

	var steps Path
	for _, segment := range strings.Split(path, ".") {
		bracket := strings.IndexByte(segment, '[')
		if bracket < 0 {
			steps = append(steps, Field(segment))
			continue
		}

		// An empty leading name indexes directly into the current node.
		if name := segment[:bracket]; name != "" {
			steps = append(steps, Field(name))
		}
		steps = append(steps, decodeIndices(segment[bracket:])...)
	}
	return steps
}

// decodeIndices parses one or more trailing "[n]" groups.
func decodeIndices(rest string) []Step {
	var steps []Step
	for rest != "" {
		if rest[0] != '[' {
			return append(steps, Index(-1))
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return append(steps, Index(-1))
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			n = -1
		}
		steps = append(steps, Index(n))
		rest = rest[end+1:]
	}
	return steps
}

// ValidField reports whether a mapping key survives an Encode/Decode round trip.
func ValidField(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".[]")
}
