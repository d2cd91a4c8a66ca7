package cborhost

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/reoring/tristate/document"
)

// Major types and simple values of RFC 8949 §3.
const (
	majorText  = 3
	majorArray = 4
	majorMap   = 5

	simpleNull      = 0xf6
	simpleUndefined = 0xf7
)

func isNull(b []byte) bool {
	return len(b) == 1 && (b[0] == simpleNull || b[0] == simpleUndefined)
}

// parseItem splits one well-formed data item into nodes. Map keys must be
// text strings; they come back in sorted order because the decoder reads
// maps into Go maps.
func parseItem(raw cbor.RawMessage) (document.Node, error) {
	if isNull(raw) {
		return document.Null(), nil
	}
	switch raw[0] >> 5 {
	case majorArray:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(raw, &items); err != nil {
			return document.Node{}, err
		}
		out := make([]document.Node, 0, len(items))
		for _, it := range items {
			n, err := parseItem(it)
			if err != nil {
				return document.Node{}, err
			}
			out = append(out, n)
		}
		return document.Array(out...), nil
	case majorMap:
		var m map[string]cbor.RawMessage
		if err := decMode.Unmarshal(raw, &m); err != nil {
			return document.Node{}, err
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]document.Field, 0, len(keys))
		for _, k := range keys {
			n, err := parseItem(m[k])
			if err != nil {
				return document.Node{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields = append(fields, document.Field{Key: k, Value: n})
		}
		return document.Object(fields...), nil
	}
	return document.Scalar(raw), nil
}

// appendCBOR renders n with definite lengths; absent items and fields are
// skipped. Maps are written by hand because the encoder sorts map keys and
// fields must keep their order.
func appendCBOR(buf []byte, n document.Node) ([]byte, error) {
	switch n.Kind {
	case document.KindAbsent, document.KindNull:
		return append(buf, simpleNull), nil
	case document.KindScalar:
		switch raw := n.Raw.(type) {
		case cbor.RawMessage:
			return append(buf, raw...), nil
		case []byte:
			return append(buf, raw...), nil
		}
		b, err := encMode.Marshal(n.Raw)
		if err != nil {
			return nil, err
		}
		return append(buf, b...), nil
	case document.KindArray:
		items := make([]cbor.RawMessage, 0, len(n.Items))
		for _, it := range n.Items {
			if it.IsAbsent() {
				continue
			}
			b, err := appendCBOR(nil, it)
			if err != nil {
				return nil, err
			}
			items = append(items, b)
		}
		b, err := encMode.Marshal(items)
		if err != nil {
			return nil, err
		}
		return append(buf, b...), nil
	case document.KindObject:
		count := 0
		for _, f := range n.Fields {
			if !f.Value.IsAbsent() {
				count++
			}
		}
		buf = appendHead(buf, majorMap, uint64(count))
		for _, f := range n.Fields {
			if f.Value.IsAbsent() {
				continue
			}
			buf = appendHead(buf, majorText, uint64(len(f.Key)))
			buf = append(buf, f.Key...)
			var err error
			if buf, err = appendCBOR(buf, f.Value); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return nil, fmt.Errorf("cborhost: unknown node kind %d", n.Kind)
}

// appendHead writes the head of a map or text string in its shortest form.
func appendHead(buf []byte, major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return append(buf, m|byte(n))
	case n <= 0xff:
		return append(buf, m|24, byte(n))
	case n <= 0xffff:
		return binary.BigEndian.AppendUint16(append(buf, m|25), uint16(n))
	case n <= 0xffffffff:
		return binary.BigEndian.AppendUint32(append(buf, m|26), uint32(n))
	}
	return binary.BigEndian.AppendUint64(append(buf, m|27), n)
}
