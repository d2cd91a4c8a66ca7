package jsonhost

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/reoring/tristate/document"
)

// appendJSON renders n as compact JSON. Absent items and fields are skipped.
func appendJSON(buf []byte, n document.Node) ([]byte, error) {
	switch n.Kind {
	case document.KindAbsent, document.KindNull:
		return append(buf, "null"...), nil
	case document.KindScalar:
		switch raw := n.Raw.(type) {
		case []byte:
			return append(buf, raw...), nil
		case json.RawMessage:
			return append(buf, raw...), nil
		}
		b, err := json.Marshal(n.Raw)
		if err != nil {
			return nil, fmt.Errorf("jsonhost: scalar payload %T: %w", n.Raw, err)
		}
		return append(buf, b...), nil
	case document.KindArray:
		buf = append(buf, '[')
		first := true
		for _, item := range n.Items {
			if item.IsAbsent() {
				continue
			}
			if !first {
				buf = append(buf, ',')
			}
			first = false
			var err error
			if buf, err = appendJSON(buf, item); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case document.KindObject:
		buf = append(buf, '{')
		first := true
		for _, f := range n.Fields {
			if f.Value.IsAbsent() {
				continue
			}
			if !first {
				buf = append(buf, ',')
			}
			first = false
			k, err := json.Marshal(f.Key)
			if err != nil {
				return nil, err
			}
			buf = append(append(buf, k...), ':')
			if buf, err = appendJSON(buf, f.Value); err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	}
	return nil, fmt.Errorf("jsonhost: unknown node kind %d", n.Kind)
}
