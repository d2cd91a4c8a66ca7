package hostkit

import (
	"reflect"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
)

// Base is embedded by hosts. It provides Members, CodecFor, AddCodecFactory,
// SetMemberCodec and MemberCodec.
type Base struct {
	*Registry
	walker *tristate.Walker
}

// NewBase returns a Base over w whose own codecs come from build.
func NewBase(w *tristate.Walker, build BuildFunc) Base {
	return Base{Registry: NewRegistry(build), walker: w}
}

// Members returns the host's member walker.
func (b Base) Members() *tristate.Walker { return b.walker }

// EncodeValue encodes v through the host codec of its dynamic type. A nil v
// encodes as null.
func (b Base) EncodeValue(v any) (document.Node, error) {
	if v == nil {
		return document.Null(), nil
	}
	rv := reflect.ValueOf(v)
	c, err := b.CodecFor(rv.Type())
	if err != nil {
		return document.Node{}, err
	}
	return c.Encode(rv)
}

// DecodeValue decodes n into the value ptr points to.
func (b Base) DecodeValue(n document.Node, ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &tristate.ConfigError{Type: reflect.TypeOf(ptr), Code: tristate.CodeInvalidType, Message: "decode target must be a non-nil pointer"}
	}
	c, err := b.CodecFor(rv.Type().Elem())
	if err != nil {
		return err
	}
	return c.Decode(n, rv.Elem())
}
