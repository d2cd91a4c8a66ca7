package tristate

import (
	"bytes"
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Value holds a T together with whether it was ever assigned.
//
// The zero Value is Undefined. Assigning anything, including a nil pointer,
// map, slice or interface, makes it Defined: "assigned null" and "never
// assigned" are distinct states.
type Value[T any] struct {
	v       T
	defined bool
}

// Of returns a Defined value holding v.
func Of[T any](v T) Value[T] {
	return Value[T]{v: v, defined: true}
}

// Undefined returns a value that was never assigned.
func Undefined[T any]() Value[T] {
	return Value[T]{}
}

// IsDefined reports whether the value was assigned.
func (o Value[T]) IsDefined() bool { return o.defined }

// Get returns the stored value, or the zero T when undefined.
func (o Value[T]) Get() T {
	if !o.defined {
		var zero T
		return zero
	}
	return o.v
}

// Lookup returns the stored value and whether it is defined.
func (o Value[T]) Lookup() (T, bool) {
	return o.Get(), o.defined
}

// GetOr returns the stored value, or def when undefined.
func (o Value[T]) GetOr(def T) T {
	if !o.defined {
		return def
	}
	return o.v
}

// Set stores v and marks the value defined.
func (o *Value[T]) Set(v T) {
	o.v = v
	o.defined = true
}

// InnerType returns the reflect.Type of T.
func (o Value[T]) InnerType() reflect.Type { return reflect.TypeFor[T]() }

// Boxed returns Get() as an interface value.
func (o Value[T]) Boxed() any { return o.Get() }

// SetBoxed stores x, which must be a T or nil, and marks the value defined.
// nil stores the zero T.
func (o *Value[T]) SetBoxed(x any) error {
	if x == nil {
		var zero T
		o.Set(zero)
		return nil
	}
	v, ok := x.(T)
	if !ok {
		return fmt.Errorf("%w: got %T, want %s", ErrBoxedType, x, reflect.TypeFor[T]())
	}
	o.Set(v)
	return nil
}

// Presence reports the value's state as presence flags: zero when undefined,
// PresenceSeen when defined, plus PresenceWasNull when T is nillable and nil.
func (o Value[T]) Presence() Presence {
	if !o.defined {
		return 0
	}
	p := PresenceSeen
	if isNilValue(reflect.ValueOf(&o.v).Elem()) {
		p |= PresenceWasNull
	}
	return p
}

// IsZero reports whether the value is undefined. encoding/json's omitzero and
// yaml.v3's omitempty use it to drop undefined members.
func (o Value[T]) IsZero() bool { return !o.defined }

func (o Value[T]) String() string {
	if !o.defined {
		return "undefined"
	}
	return fmt.Sprint(o.v)
}

func (Value[T]) tristate() {}

var nullLiteral = []byte("null")

// MarshalJSON encodes the stored value. An undefined value encodes as null
// because a standalone JSON value cannot be empty; use a registered host to
// omit it.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.defined {
		return nullLiteral, nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes data into T and marks the value defined, including
// for null.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	var v T
	if !bytes.Equal(bytes.TrimSpace(data), nullLiteral) {
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
	}
	o.Set(v)
	return nil
}

// MarshalYAML returns the stored value, or nil when undefined.
func (o Value[T]) MarshalYAML() (any, error) {
	if !o.defined {
		return nil, nil
	}
	return o.v, nil
}

// UnmarshalYAML decodes n into T and marks the value defined.
func (o *Value[T]) UnmarshalYAML(n *yaml.Node) error {
	var v T
	if n.ShortTag() != "!!null" {
		if err := n.Decode(&v); err != nil {
			return err
		}
	}
	o.Set(v)
	return nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
