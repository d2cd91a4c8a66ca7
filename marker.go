package tristate

import "reflect"

// Wrapper is implemented by every Value[T], whatever T is. It lets code that
// only holds a reflect.Value or an interface read a wrapped member without
// knowing T.
type Wrapper interface {
	IsDefined() bool
	Boxed() any
	InnerType() reflect.Type
	tristate()
}

// BoxSetter is implemented by *Value[T].
type BoxSetter interface {
	Wrapper
	SetBoxed(x any) error
}

var (
	wrapperType   = reflect.TypeFor[Wrapper]()
	boxSetterType = reflect.TypeFor[BoxSetter]()
)

// IsWrapperType reports whether t is an instantiation of Value. It inspects
// the type only, so it can be used while building per-type codecs.
func IsWrapperType(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	return t.Implements(wrapperType) && reflect.PointerTo(t).Implements(boxSetterType)
}

// InnerTypeOf returns T for Value[T] and nil for any other type.
func InnerTypeOf(t reflect.Type) reflect.Type {
	if !IsWrapperType(t) {
		return nil
	}
	return reflect.Zero(t).Interface().(Wrapper).InnerType()
}

// IsDefinedValue reports whether v, which must hold a Value[T], is defined.
func IsDefinedValue(v reflect.Value) bool {
	return v.Interface().(Wrapper).IsDefined()
}

// unwrap copies the content of the Value[T] held by v into a fresh,
// addressable T.
func unwrap(v reflect.Value, inner reflect.Type) reflect.Value {
	out := reflect.New(inner).Elem()
	if b := v.Interface().(Wrapper).Boxed(); b != nil {
		out.Set(reflect.ValueOf(b))
	}
	return out
}

// define stores inner into the addressable Value[T] dst.
func define(dst, inner reflect.Value) error {
	var x any
	if inner.IsValid() {
		x = inner.Interface()
	}
	return dst.Addr().Interface().(BoxSetter).SetBoxed(x)
}
