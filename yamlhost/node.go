package yamlhost

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reoring/tristate/document"
)

const mergeTag = "!!merge"

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// toYAML renders n as a yaml.Node. Absent items and fields are skipped.
func toYAML(n document.Node) (*yaml.Node, error) {
	switch n.Kind {
	case document.KindScalar:
		if yn, ok := n.Raw.(*yaml.Node); ok {
			return yn, nil
		}
		var yn yaml.Node
		if err := yn.Encode(n.Raw); err != nil {
			return nil, err
		}
		return &yn, nil
	case document.KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range n.Items {
			if item.IsAbsent() {
				continue
			}
			c, err := toYAML(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			seq.Content = append(seq.Content, c)
		}
		return seq, nil
	case document.KindObject:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range n.Fields {
			if f.Value.IsAbsent() {
				continue
			}
			c, err := toYAML(f.Value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", f.Key, err)
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}
			m.Content = append(m.Content, key, c)
		}
		return m, nil
	}
	return nullNode(), nil
}

// fromYAML converts a parsed yaml.Node. Aliases are resolved and merge keys
// are expanded ahead of the mapping's own keys, so explicit keys win.
func fromYAML(yn *yaml.Node) document.Node {
	if yn == nil {
		return document.Absent()
	}
	switch yn.Kind {
	case yaml.DocumentNode:
		if len(yn.Content) == 0 {
			return document.Absent()
		}
		return fromYAML(yn.Content[0])
	case yaml.AliasNode:
		return fromYAML(yn.Alias)
	case yaml.SequenceNode:
		items := make([]document.Node, 0, len(yn.Content))
		for _, c := range yn.Content {
			items = append(items, fromYAML(c))
		}
		return document.Array(items...)
	case yaml.MappingNode:
		var merged, own []document.Field
		for i := 0; i+1 < len(yn.Content); i += 2 {
			k, v := yn.Content[i], yn.Content[i+1]
			if k.ShortTag() == mergeTag {
				merged = append(merged, mergeFields(v)...)
				continue
			}
			own = append(own, document.Field{Key: k.Value, Value: fromYAML(v)})
		}
		return document.Object(append(merged, own...)...)
	case yaml.ScalarNode:
		if yn.ShortTag() == "!!null" {
			return document.Null()
		}
		return document.Scalar(yn)
	}
	return document.Absent()
}

func mergeFields(v *yaml.Node) []document.Field {
	if v.Kind == yaml.AliasNode {
		v = v.Alias
	}
	switch v.Kind {
	case yaml.MappingNode:
		return fromYAML(v).Fields
	case yaml.SequenceNode:
		var out []document.Field
		for _, c := range v.Content {
			out = append(out, mergeFields(c)...)
		}
		return out
	}
	return nil
}
