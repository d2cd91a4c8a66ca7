// Package tristate provides:
//
// - Value[T], an optional value that tells "never set" apart from "set to the zero value or null"
// - Codec support that omits undefined members on encode and records key presence on decode
// - Integration with host serializers through a small SPI (Codec, CodecFactory, MemberModifier)
// - Presence collection for PATCH-style handlers via CollectPresence
//
// Design policy:
//   - Keep only public APIs in the root package; shared host plumbing lives under internal/.
//   - Concrete hosts live in their own packages: jsonhost, yamlhost, cborhost, msgpackhost.
//     Reusable member codecs (for SetMemberCodec) live in codec.
//   - Value encoding is always delegated to the host codec for T; the engine only decides
//     whether a member is written at all.
//
// A host with a member hook (jsonhost) gets the codec factory for Value[T] plus the
// SuppressUndefined modifier. Hosts without one get a walker that takes over the
// struct, slice, map and pointer types holding a Value[T].
//
// Typical usage:
//
//	type Patch struct {
//		Name  tristate.Value[string]  `json:"name"`
//		Email tristate.Value[*string] `json:"email"`
//	}
//
//	h := jsonhost.New(jsonhost.Options{})
//	if err := tristate.Register(h, Patch{}); err != nil {
//		return err
//	}
//	var p Patch
//	err := h.Unmarshal(data, &p)
//	pm, err := tristate.CollectPresence(h.Members(), &p)
package tristate
