package tristate

import (
	"reflect"

	"github.com/reoring/tristate/document"
)

// Codec encodes and decodes values of one Go type against document nodes.
type Codec interface {
	// Encode returns the node for v. An Absent node means "emit nothing".
	Encode(v reflect.Value) (document.Node, error)
	// Decode stores n into dst, which is addressable and of the codec's type.
	Decode(n document.Node, dst reflect.Value) error
}

// CodecLookup resolves the codec a host uses for a type.
type CodecLookup interface {
	CodecFor(t reflect.Type) (Codec, error)
}

// CodecFactory builds a codec for t when it handles t; ok is false to let
// the next factory or the host's own codec handle it. lookup resolves other
// types through the same host, including this factory.
type CodecFactory func(t reflect.Type, lookup CodecLookup) (c Codec, ok bool, err error)

// Host is a serializer instance the engine can be registered with.
type Host interface {
	CodecLookup
	// Members returns the host's member introspection.
	Members() *Walker
}

// CodecHost is a Host that accepts whole-type codec overrides. It is enough
// for the walker integration shape.
type CodecHost interface {
	Host
	// AddCodecFactory installs f ahead of the host's built-in codecs.
	AddCodecFactory(f CodecFactory)
}

// MemberHookHost is a CodecHost whose object codec consults per-member plans
// before encoding a member. It enables the hook integration shape.
type MemberHookHost interface {
	CodecHost
	// AddMemberModifier installs m; it runs once per struct type when the
	// host builds that type's object codec.
	AddMemberModifier(m MemberModifier)
}

// MemberPlan is a host's encoding plan for one struct member.
type MemberPlan struct {
	Member Member
	// ShouldEncode reports whether the member is written for owner; nil
	// means always. It runs before any codec is invoked for the member.
	ShouldEncode func(owner, field reflect.Value) bool
	// Codec overrides the codec of the member's type when non-nil.
	Codec Codec
}

// MemberModifier adjusts the member plans of struct type t.
type MemberModifier func(t reflect.Type, plans []*MemberPlan)

// MemberCodecSource is implemented by hosts that allow a codec to be
// declared for a single member. The codec is declared for the member's
// underlying type: T for a Value[T] member.
type MemberCodecSource interface {
	MemberCodec(owner reflect.Type, m Member) (Codec, bool)
}

// InstallTracker is implemented by hosts that record the integration
// installed into them. Every Engine consults the record, so a host receives
// Value[T] support once no matter how many engines register it.
type InstallTracker interface {
	// TrackInstall runs install unless a shape is already recorded and
	// returns the recorded shape. fresh reports whether install ran. A
	// failed install records nothing.
	TrackInstall(install func() (Shape, error)) (s Shape, fresh bool, err error)
}
