package tristate

import "reflect"

// SuppressUndefined is the MemberModifier that keeps undefined Value[T]
// members out of the output entirely. For each wrapped member it adds a
// ShouldEncode predicate, combined with any predicate already present, so the
// host skips the member before asking a codec for anything.
//
// A member codec the host already planned for the member is declared for T;
// it is lifted to a Value[T] codec so that it keeps applying.
func SuppressUndefined(t reflect.Type, plans []*MemberPlan) {
	for _, p := range plans {
		if !p.Member.Wrapped || p.Member.Ignored {
			continue
		}
		prev := p.ShouldEncode
		if prev == nil {
			p.ShouldEncode = shouldEncodeDefined
		} else {
			p.ShouldEncode = func(owner, field reflect.Value) bool {
				return prev(owner, field) && IsDefinedValue(field)
			}
		}
		if p.Codec != nil {
			if _, ok := p.Codec.(*wrapperCodec); !ok {
				p.Codec = liftMemberCodec(p.Member.Type, p.Codec)
			}
		}
	}
}

func shouldEncodeDefined(_, field reflect.Value) bool {
	return IsDefinedValue(field)
}
