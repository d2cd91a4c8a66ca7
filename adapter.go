package tristate

import (
	"reflect"

	"github.com/reoring/tristate/document"
)

// WrapperCodecFactory is the CodecFactory for Value[T] types. The codec it
// builds resolves the host codec for T once and delegates the value to it,
// adding only the definedness handling.
func WrapperCodecFactory(t reflect.Type, lookup CodecLookup) (Codec, bool, error) {
	if !IsWrapperType(t) {
		return nil, false, nil
	}
	c, err := newWrapperCodec(t, lookup)
	if err != nil {
		return nil, true, err
	}
	return c, true, nil
}

type wrapperCodec struct {
	t     reflect.Type
	inner reflect.Type
	codec Codec
}

func newWrapperCodec(t reflect.Type, lookup CodecLookup) (*wrapperCodec, error) {
	inner := InnerTypeOf(t)
	c, err := lookup.CodecFor(inner)
	if err != nil {
		if ce, ok := AsConfigError(err); ok {
			return nil, ce
		}
		return nil, &ConfigError{Type: t, Code: CodeNoCodec, Message: "no codec for inner type " + inner.String(), Cause: err}
	}
	return &wrapperCodec{t: t, inner: inner, codec: c}, nil
}

// liftMemberCodec adapts a codec declared for T into one for Value[T].
func liftMemberCodec(t reflect.Type, c Codec) *wrapperCodec {
	return &wrapperCodec{t: t, inner: InnerTypeOf(t), codec: c}
}

func (c *wrapperCodec) Encode(v reflect.Value) (document.Node, error) {
	if !IsDefinedValue(v) {
		return document.Absent(), nil
	}
	return c.codec.Encode(unwrap(v, c.inner))
}

func (c *wrapperCodec) Decode(n document.Node, dst reflect.Value) error {
	if n.IsAbsent() {
		return nil
	}
	inner := reflect.New(c.inner).Elem()
	if err := c.codec.Decode(n, inner); err != nil {
		return err
	}
	return define(dst, inner)
}
