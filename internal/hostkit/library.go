package hostkit

import (
	"reflect"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
)

// MarshalFunc encodes v with a serialization library into a node, usually a
// scalar carrying the library's raw encoding.
type MarshalFunc func(v any) (document.Node, error)

// UnmarshalFunc decodes n into the value ptr points to with a serialization
// library.
type UnmarshalFunc func(n document.Node, ptr any) error

// LibraryCodecs returns a BuildFunc that hands every type to a serialization
// library. Hosts without their own object codec use it as their fallback.
func LibraryCodecs(marshal MarshalFunc, unmarshal UnmarshalFunc) BuildFunc {
	return func(t reflect.Type, _ tristate.CodecLookup) (tristate.Codec, error) {
		return &libraryCodec{t: t, marshal: marshal, unmarshal: unmarshal}, nil
	}
}

type libraryCodec struct {
	t         reflect.Type
	marshal   MarshalFunc
	unmarshal UnmarshalFunc
}

func (c *libraryCodec) Encode(v reflect.Value) (document.Node, error) {
	n, err := c.marshal(v.Interface())
	if err != nil {
		return document.Node{}, tristate.NewEncodeError(err)
	}
	return n, nil
}

func (c *libraryCodec) Decode(n document.Node, dst reflect.Value) error {
	if n.IsAbsent() {
		return nil
	}
	if err := c.unmarshal(n, dst.Addr().Interface()); err != nil {
		return tristate.NewDecodeError(tristate.CodeInvalidType, err)
	}
	return nil
}
