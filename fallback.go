package tristate

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/reoring/tristate/document"
)

// walkerFactory returns the CodecFactory used for hosts without a member
// hook. It claims Value[T] and every composite type that holds one, and walks
// those types itself; all other types stay with the host.
func (e *Engine) walkerFactory(h Host) CodecFactory {
	mcs, _ := h.(MemberCodecSource)
	return func(t reflect.Type, lookup CodecLookup) (Codec, bool, error) {
		if IsWrapperType(t) {
			return WrapperCodecFactory(t, lookup)
		}
		if !needsEngine(t) {
			return nil, false, nil
		}
		switch t.Kind() {
		case reflect.Struct:
			c, err := newObjectCodec(t, h.Members(), mcs, lookup, e.opt.MatchFold)
			if err != nil {
				return nil, true, err
			}
			return c, true, nil
		case reflect.Slice, reflect.Array:
			elem, err := lookup.CodecFor(t.Elem())
			if err != nil {
				return nil, true, memberConfigError(t, "element", err)
			}
			return &collectionCodec{t: t, elem: elem}, true, nil
		case reflect.Map:
			if t.Key().Kind() != reflect.String {
				return nil, true, &ConfigError{Type: t, Code: CodeNoCodec, Message: "maps holding optional values need string keys"}
			}
			elem, err := lookup.CodecFor(t.Elem())
			if err != nil {
				return nil, true, memberConfigError(t, "value", err)
			}
			return &mapCodec{t: t, elem: elem}, true, nil
		case reflect.Pointer:
			elem, err := lookup.CodecFor(t.Elem())
			if err != nil {
				return nil, true, err
			}
			return &pointerCodec{t: t, elem: elem}, true, nil
		}
		return nil, false, nil
	}
}

func memberConfigError(t reflect.Type, what string, err error) error {
	if ce, ok := AsConfigError(err); ok {
		return ce
	}
	return &ConfigError{Type: t, Code: CodeNoCodec, Message: what + ": " + err.Error(), Cause: err}
}

var needsCache = xsync.NewMap[reflect.Type, bool]()

// needsEngine reports whether t is or transitively holds a Value[T].
func needsEngine(t reflect.Type) bool {
	if v, ok := needsCache.Load(t); ok {
		return v
	}
	found, _ := scanNeeds(t, make(map[reflect.Type]bool))
	needsCache.Store(t, found)
	return found
}

// scanNeeds walks t's element and field types. partial reports that a
// negative answer depended on a type whose scan was still in progress; such
// answers are not cached.
func scanNeeds(t reflect.Type, visiting map[reflect.Type]bool) (found, partial bool) {
	if IsWrapperType(t) {
		return true, false
	}
	if v, ok := needsCache.Load(t); ok {
		return v, false
	}
	if visiting[t] {
		return false, true
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		found, partial = scanNeeds(t.Elem(), visiting)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() && !sf.Anonymous {
				continue
			}
			f, p := scanNeeds(sf.Type, visiting)
			if f {
				found, partial = true, false
				break
			}
			partial = partial || p
		}
	}
	if found || !partial {
		needsCache.Store(t, found)
	}
	return found, partial
}

// objectCodec walks a struct's members directly: undefined Value[T] members
// are skipped and everything else is written through the host's codec for
// the member's (unwrapped) type.
type objectCodec struct {
	t       reflect.Type
	members []Member
	codecs  []Codec
	fold    bool
}

func newObjectCodec(t reflect.Type, w *Walker, mcs MemberCodecSource, lookup CodecLookup, fold bool) (*objectCodec, error) {
	all, err := w.Members(t)
	if err != nil {
		return nil, err
	}
	c := &objectCodec{t: t, fold: fold}
	for _, m := range all {
		if m.Ignored {
			continue
		}
		var mc Codec
		if mcs != nil {
			mc, _ = mcs.MemberCodec(t, m)
		}
		if mc == nil {
			vt := m.Type
			if m.Wrapped {
				vt = m.Inner
			}
			if mc, err = lookup.CodecFor(vt); err != nil {
				return nil, memberConfigError(t, "member "+m.Name, err)
			}
		}
		c.members = append(c.members, m)
		c.codecs = append(c.codecs, mc)
	}
	return c, nil
}

func (c *objectCodec) Encode(v reflect.Value) (document.Node, error) {
	fields := make([]document.Field, 0, len(c.members))
	for i, m := range c.members {
		fv := m.Field(v)
		if m.Wrapped {
			if !IsDefinedValue(fv) {
				continue
			}
			fv = unwrap(fv, m.Inner)
		} else if m.OmitEmpty && IsEmptyValue(fv) {
			continue
		}
		n, err := c.codecs[i].Encode(fv)
		if err != nil {
			return document.Node{}, PrefixPath(err, m.WireName)
		}
		if n.IsAbsent() {
			continue
		}
		fields = append(fields, document.Field{Key: m.WireName, Value: n})
	}
	return document.Object(fields...), nil
}

func (c *objectCodec) Decode(n document.Node, dst reflect.Value) error {
	switch n.Kind {
	case document.KindAbsent, document.KindNull:
		return nil
	case document.KindObject:
	default:
		return &DecodeError{Code: CodeInvalidType, Message: "expected object for " + c.t.String() + ", got " + n.Kind.String()}
	}
	for i, m := range c.members {
		child, ok := c.lookupKey(n, m.WireName)
		if !ok {
			continue
		}
		fv := m.Field(dst)
		if !m.Wrapped {
			if err := c.codecs[i].Decode(child, fv); err != nil {
				return PrefixPath(err, m.WireName)
			}
			continue
		}
		inner := reflect.New(m.Inner).Elem()
		if err := c.codecs[i].Decode(child, inner); err != nil {
			return PrefixPath(err, m.WireName)
		}
		if err := define(fv, inner); err != nil {
			return PrefixPath(NewDecodeError(CodeInvalidType, err), m.WireName)
		}
	}
	return nil
}

func (c *objectCodec) lookupKey(n document.Node, key string) (document.Node, bool) {
	if c.fold {
		return n.GetFold(key)
	}
	return n.Get(key)
}

// collectionCodec handles slices and arrays. Elements that encode to
// nothing (undefined Value[T]) are left out of the array; an array slot has
// no key that could be absent instead.
type collectionCodec struct {
	t    reflect.Type
	elem Codec
}

func (c *collectionCodec) Encode(v reflect.Value) (document.Node, error) {
	if v.Kind() == reflect.Slice && v.IsNil() {
		return document.Null(), nil
	}
	items := make([]document.Node, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		n, err := c.elem.Encode(v.Index(i))
		if err != nil {
			return document.Node{}, PrefixPath(err, strconv.Itoa(i))
		}
		if n.IsAbsent() {
			continue
		}
		items = append(items, n)
	}
	return document.Array(items...), nil
}

func (c *collectionCodec) Decode(n document.Node, dst reflect.Value) error {
	switch n.Kind {
	case document.KindAbsent:
		return nil
	case document.KindNull:
		dst.Set(reflect.Zero(c.t))
		return nil
	case document.KindArray:
	default:
		return &DecodeError{Code: CodeInvalidType, Message: "expected array, got " + n.Kind.String()}
	}
	if c.t.Kind() == reflect.Array {
		for i := 0; i < dst.Len(); i++ {
			if i >= len(n.Items) {
				dst.Index(i).Set(reflect.Zero(c.t.Elem()))
				continue
			}
			if err := c.elem.Decode(n.Items[i], dst.Index(i)); err != nil {
				return PrefixPath(err, strconv.Itoa(i))
			}
		}
		return nil
	}
	s := reflect.MakeSlice(c.t, len(n.Items), len(n.Items))
	for i, item := range n.Items {
		if err := c.elem.Decode(item, s.Index(i)); err != nil {
			return PrefixPath(err, strconv.Itoa(i))
		}
	}
	dst.Set(s)
	return nil
}

// mapCodec handles maps with string-kinded keys. A value that encodes to
// nothing drops its key. Keys are written in sorted order.
type mapCodec struct {
	t    reflect.Type
	elem Codec
}

func (c *mapCodec) Encode(v reflect.Value) (document.Node, error) {
	if v.IsNil() {
		return document.Null(), nil
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	fields := make([]document.Field, 0, len(keys))
	for _, k := range keys {
		n, err := c.elem.Encode(v.MapIndex(k))
		if err != nil {
			return document.Node{}, PrefixPath(err, k.String())
		}
		if n.IsAbsent() {
			continue
		}
		fields = append(fields, document.Field{Key: k.String(), Value: n})
	}
	return document.Object(fields...), nil
}

func (c *mapCodec) Decode(n document.Node, dst reflect.Value) error {
	switch n.Kind {
	case document.KindAbsent:
		return nil
	case document.KindNull:
		dst.Set(reflect.Zero(c.t))
		return nil
	case document.KindObject:
	default:
		return &DecodeError{Code: CodeInvalidType, Message: "expected object, got " + n.Kind.String()}
	}
	m := reflect.MakeMapWithSize(c.t, len(n.Fields))
	for _, f := range n.Fields {
		ev := reflect.New(c.t.Elem()).Elem()
		if err := c.elem.Decode(f.Value, ev); err != nil {
			return PrefixPath(err, f.Key)
		}
		m.SetMapIndex(reflect.ValueOf(f.Key).Convert(c.t.Key()), ev)
	}
	dst.Set(m)
	return nil
}

type pointerCodec struct {
	t    reflect.Type
	elem Codec
}

func (c *pointerCodec) Encode(v reflect.Value) (document.Node, error) {
	if v.IsNil() {
		return document.Null(), nil
	}
	return c.elem.Encode(v.Elem())
}

func (c *pointerCodec) Decode(n document.Node, dst reflect.Value) error {
	switch n.Kind {
	case document.KindAbsent:
		return nil
	case document.KindNull:
		dst.Set(reflect.Zero(c.t))
		return nil
	}
	if dst.IsNil() {
		dst.Set(reflect.New(c.t.Elem()))
	}
	return c.elem.Decode(n, dst.Elem())
}

type isZeroer interface{ IsZero() bool }

// IsEmptyValue reports whether v counts as empty for an omitempty member,
// following encoding/json, plus types with an IsZero method.
func IsEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	case reflect.Struct:
		if z, ok := v.Interface().(isZeroer); ok {
			return z.IsZero()
		}
	}
	return false
}
