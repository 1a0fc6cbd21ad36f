// Package mutate writes translated strings back into generic document trees.
package mutate

import (
	"errors"
	"fmt"
	"strconv"

	"bga/internal/docpath"
	"bga/internal/document"
)

var (
	ErrEmptyPath       = errors.New("empty path")
	ErrMissingKey      = errors.New("missing key")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrNotScalar       = errors.New("target is not a scalar")
)

// Edit replaces the scalar at Path with Text.
type Edit struct {
	Path string
	Text string
}

// Failure is an edit that could not be resolved against the document.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Apply returns a copy of doc with every resolvable edit applied, plus the edits that
// failed. Only the containers along an edited path are copied; doc itself is never
// modified. Missing keys and indices are reported, never created.
func Apply(doc any, edits []Edit) (any, []Failure) {
	var failures []Failure
	for _, e := range edits {
		updated, err := set(doc, docpath.Decode(e.Path), e.Text)
		if err != nil {
			failures = append(failures, Failure{Path: e.Path, Err: err})
			continue
		}
		doc = updated
	}
	return doc, failures
}

// set returns node with the scalar at steps replaced by text.
func set(node any, steps docpath.Path, text string) (any, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyPath
	}

	step := steps[0]
	switch n := node.(type) {
	case map[string]any:
		if step.IsIndex {
			return nil, fmt.Errorf("%w: index %s on mapping", ErrTypeMismatch, step)
		}
		child, ok := n[step.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingKey, step.Name)
		}
		replaced, err := replace(child, steps[1:], text)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = v
		}
		out[step.Name] = replaced
		return out, nil

	case []any:
		i, err := sequenceIndex(step, len(n))
		if err != nil {
			return nil, err
		}
		replaced, err := replace(n[i], steps[1:], text)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(n))
		copy(out, n)
		out[i] = replaced
		return out, nil

	default:
		return nil, fmt.Errorf("%w: step %s on scalar", ErrTypeMismatch, step)
	}
}

// replace resolves the rest of the path below child, or overwrites child when the
// path ends here.
func replace(child any, rest docpath.Path, text string) (any, error) {
	if len(rest) > 0 {
		return set(child, rest, text)
	}
	if !document.IsScalar(child) {
		return nil, ErrNotScalar
	}
	return text, nil
}

// sequenceIndex resolves a step against a sequence. A numeric field name is accepted
// as an index, as older paths encoded root indices that way ("0.name").
func sequenceIndex(step docpath.Step, length int) (int, error) {
	i := step.Index
	if !step.IsIndex {
		n, err := strconv.Atoi(step.Name)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q on sequence", ErrTypeMismatch, step.Name)
		}
		i = n
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, length)
	}
	return i, nil
}
