// Package document is the format-neutral tree that host serializers parse
// wire data into and render wire data from.
//
// An object node keeps its keys in document order and answers "is key K
// present" separately from "what is the value at K", so an absent key and an
// explicit null stay distinguishable.
package document

import "strings"

// Kind is the shape of a Node.
type Kind uint8

const (
	KindAbsent Kind = iota // No value at all; the zero Node.
	KindNull
	KindScalar // Opaque host-encoded value held in Raw.
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Node is one value of a document.
type Node struct {
	Kind   Kind
	Items  []Node  // KindArray
	Fields []Field // KindObject, in document order
	Raw    any     // KindScalar payload, owned by the host that produced it
}

// Field is one key/value pair of an object node.
type Field struct {
	Key   string
	Value Node
}

// Absent returns the node meaning "nothing to emit".
func Absent() Node { return Node{} }

// Null returns a null node.
func Null() Node { return Node{Kind: KindNull} }

// Scalar returns a scalar node carrying a host payload.
func Scalar(raw any) Node { return Node{Kind: KindScalar, Raw: raw} }

// Array returns an array node.
func Array(items ...Node) Node {
	if items == nil {
		items = []Node{}
	}
	return Node{Kind: KindArray, Items: items}
}

// Object returns an object node.
func Object(fields ...Field) Node {
	if fields == nil {
		fields = []Field{}
	}
	return Node{Kind: KindObject, Fields: fields}
}

// IsAbsent reports whether n is the absent node.
func (n Node) IsAbsent() bool { return n.Kind == KindAbsent }

// IsNull reports whether n is null.
func (n Node) IsNull() bool { return n.Kind == KindNull }

// Has reports whether object n has key. It is false for non-objects.
func (n Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Get returns the value at key. When a key repeats, the last one wins.
func (n Node) Get(key string) (Node, bool) {
	if n.Kind != KindObject {
		return Node{}, false
	}
	for i := len(n.Fields) - 1; i >= 0; i-- {
		if n.Fields[i].Key == key {
			return n.Fields[i].Value, true
		}
	}
	return Node{}, false
}

// GetFold is Get with case-insensitive key matching; an exact match wins.
func (n Node) GetFold(key string) (Node, bool) {
	if v, ok := n.Get(key); ok {
		return v, true
	}
	if n.Kind != KindObject {
		return Node{}, false
	}
	for i := len(n.Fields) - 1; i >= 0; i-- {
		if strings.EqualFold(n.Fields[i].Key, key) {
			return n.Fields[i].Value, true
		}
	}
	return Node{}, false
}

// Keys returns the object's keys in document order.
func (n Node) Keys() []string {
	if n.Kind != KindObject {
		return nil
	}
	keys := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of items or fields.
func (n Node) Len() int {
	switch n.Kind {
	case KindArray:
		return len(n.Items)
	case KindObject:
		return len(n.Fields)
	}
	return 0
}
