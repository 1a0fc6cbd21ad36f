package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MaxAliasNodes caps how many nodes alias expansion may produce per document.
const MaxAliasNodes = 100_000

var (
	ErrAliasCycle     = errors.New("alias refers to itself")
	ErrAliasExpansion = errors.New("alias expansion exceeds node limit")
)

// DecodeYAMLStream parses every document of a YAML stream and returns them as a
// sequence, so "[2].MonoBehaviour.m_Text" addresses the third document.
func DecodeYAMLStream(data []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []any
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode yaml document %d: %w", len(docs), err)
		}
		doc, err := FromYAML(&node)
		if err != nil {
			return nil, fmt.Errorf("decode yaml document %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FromYAML converts a yaml.v3 node into the generic tree. Custom tags (Unity's
// "!u!114" class markers and similar) are ignored; their content is kept. Aliases are
// expanded in place; a self-referencing alias or an expansion past MaxAliasNodes is
// an error.
func FromYAML(node *yaml.Node) (any, error) {
	c := &converter{expanding: make(map[*yaml.Node]bool)}
	return c.convert(node)
}

type converter struct {
	expanding map[*yaml.Node]bool
	// depth counts the aliases currently being expanded; expanded counts the nodes
	// produced under any of them.
	depth    int
	expanded int
}

func (c *converter) convert(node *yaml.Node) (any, error) {
	if node == nil {
		return nil, nil
	}
	if c.depth > 0 {
		c.expanded++
		if c.expanded > MaxAliasNodes {
			return nil, fmt.Errorf("%w (%d)", ErrAliasExpansion, MaxAliasNodes)
		}
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return c.convert(node.Content[0])
	case yaml.AliasNode:
		return c.alias(node)
	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := c.convert(child)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := c.convert(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[node.Content[i].Value] = v
		}
		return m, nil
	case yaml.ScalarNode:
		return scalarFromYAML(node), nil
	default:
		return nil, nil
	}
}

func (c *converter) alias(node *yaml.Node) (any, error) {
	target := node.Alias
	if target == nil {
		return nil, nil
	}
	if c.expanding[target] {
		return nil, fmt.Errorf("%w: *%s", ErrAliasCycle, node.Value)
	}

	c.expanding[target] = true
	c.depth++
	v, err := c.convert(target)
	c.depth--
	delete(c.expanding, target)
	return v, err
}

func scalarFromYAML(node *yaml.Node) any {
	switch node.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err == nil {
			return b
		}
	case "!!int", "!!float":
		return json.Number(node.Value)
	}
	return node.Value
}
