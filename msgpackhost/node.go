package msgpackhost

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/reoring/tristate/document"
)

var nilCode = msgpcode.Nil

func isArray(c byte) bool {
	return msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32
}

func isMap(c byte) bool {
	return msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32
}

// readNode reads one value. Containers are split into nodes; everything else
// stays a raw scalar.
func readNode(dec *msgpack.Decoder) (document.Node, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return document.Node{}, err
	}
	switch {
	case c == nilCode:
		if err := dec.DecodeNil(); err != nil {
			return document.Node{}, err
		}
		return document.Null(), nil
	case isArray(c):
		l, err := dec.DecodeArrayLen()
		if err != nil {
			return document.Node{}, err
		}
		items := make([]document.Node, 0, l)
		for i := 0; i < l; i++ {
			n, err := readNode(dec)
			if err != nil {
				return document.Node{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, n)
		}
		return document.Array(items...), nil
	case isMap(c):
		l, err := dec.DecodeMapLen()
		if err != nil {
			return document.Node{}, err
		}
		fields := make([]document.Field, 0, l)
		for i := 0; i < l; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return document.Node{}, fmt.Errorf("map key %d: %w", i, err)
			}
			n, err := readNode(dec)
			if err != nil {
				return document.Node{}, fmt.Errorf("key %q: %w", key, err)
			}
			fields = append(fields, document.Field{Key: key, Value: n})
		}
		return document.Object(fields...), nil
	}
	raw, err := dec.DecodeRaw()
	if err != nil {
		return document.Node{}, err
	}
	return document.Scalar(raw), nil
}

// render encodes n; absent items and fields are skipped.
func render(n document.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(&buf)
	if err := writeNode(enc, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(enc *msgpack.Encoder, n document.Node) error {
	switch n.Kind {
	case document.KindAbsent, document.KindNull:
		return enc.EncodeNil()
	case document.KindScalar:
		switch raw := n.Raw.(type) {
		case msgpack.RawMessage:
			return enc.Encode(raw)
		case []byte:
			return enc.Encode(msgpack.RawMessage(raw))
		}
		return enc.Encode(n.Raw)
	case document.KindArray:
		count := 0
		for _, it := range n.Items {
			if !it.IsAbsent() {
				count++
			}
		}
		if err := enc.EncodeArrayLen(count); err != nil {
			return err
		}
		for _, it := range n.Items {
			if it.IsAbsent() {
				continue
			}
			if err := writeNode(enc, it); err != nil {
				return err
			}
		}
		return nil
	case document.KindObject:
		count := 0
		for _, f := range n.Fields {
			if !f.Value.IsAbsent() {
				count++
			}
		}
		if err := enc.EncodeMapLen(count); err != nil {
			return err
		}
		for _, f := range n.Fields {
			if f.Value.IsAbsent() {
				continue
			}
			if err := enc.EncodeString(f.Key); err != nil {
				return err
			}
			if err := writeNode(enc, f.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("msgpackhost: unknown node kind %d", n.Kind)
}
