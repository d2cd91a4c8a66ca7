package jsonhost

import (
	"encoding"
	"errors"
	"reflect"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
)

var (
	marshalerType       = reflect.TypeFor[json.Marshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// build returns the host's own codec for t.
func (h *Host) build(t reflect.Type, lookup tristate.CodecLookup) (tristate.Codec, error) {
	if implements(t, marshalerType) || implements(t, textMarshalerType) {
		return leafCodec{}, nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		elem, err := lookup.CodecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &pointerCodec{t: t, elem: elem}, nil
	case reflect.Struct:
		return h.newObjectCodec(t, lookup)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return leafCodec{}, nil
		}
		fallthrough
	case reflect.Array:
		elem, err := lookup.CodecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &arrayCodec{t: t, elem: elem}, nil
	case reflect.Map:
		if !validMapKey(t.Key()) {
			return nil, &tristate.ConfigError{Type: t, Code: tristate.CodeNoCodec, Message: "unsupported map key type " + t.Key().String(), Cause: tristate.ErrNoCodec}
		}
		elem, err := lookup.CodecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &mapCodec{t: t, elem: elem}, nil
	}
	return leafCodec{}, nil
}

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface))
}

// leafCodec hands the value to goccy/go-json.
type leafCodec struct{}

func (leafCodec) Encode(v reflect.Value) (document.Node, error) {
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return document.Node{}, tristate.NewEncodeError(err)
	}
	if string(b) == "null" {
		return document.Null(), nil
	}
	return document.Scalar(b), nil
}

func (leafCodec) Decode(n document.Node, dst reflect.Value) error {
	if n.IsAbsent() {
		return nil
	}
	raw, err := appendJSON(nil, n)
	if err != nil {
		return tristate.NewDecodeError(tristate.CodeInvalidType, err)
	}
	if err := json.Unmarshal(raw, dst.Addr().Interface()); err != nil {
		return tristate.NewDecodeError(tristate.CodeInvalidType, err)
	}
	return nil
}

type objectField struct {
	member       tristate.Member
	shouldEncode func(owner, field reflect.Value) bool
	codec        tristate.Codec
}

// objectCodec writes a struct from its member plans.
type objectCodec struct {
	t      reflect.Type
	fields []objectField
	fold   bool
}

func (h *Host) newObjectCodec(t reflect.Type, lookup tristate.CodecLookup) (*objectCodec, error) {
	members, err := h.Members().Members(t)
	if err != nil {
		return nil, err
	}
	plans := make([]*tristate.MemberPlan, 0, len(members))
	for _, m := range members {
		if m.Ignored {
			continue
		}
		p := &tristate.MemberPlan{Member: m}
		if c, ok := h.MemberCodec(t, m); ok {
			p.Codec = c
		}
		plans = append(plans, p)
	}
	for _, mod := range h.memberModifiers() {
		mod(t, plans)
	}

	c := &objectCodec{t: t, fold: h.opt.MatchFold}
	for _, p := range plans {
		mc := p.Codec
		if mc == nil {
			if mc, err = lookup.CodecFor(p.Member.Type); err != nil {
				return nil, err
			}
		}
		c.fields = append(c.fields, objectField{member: p.Member, shouldEncode: p.ShouldEncode, codec: mc})
	}
	return c, nil
}

func (c *objectCodec) Encode(v reflect.Value) (document.Node, error) {
	out := make([]document.Field, 0, len(c.fields))
	for _, f := range c.fields {
		fv := f.member.Field(v)
		if f.shouldEncode != nil && !f.shouldEncode(v, fv) {
			continue
		}
		if f.member.OmitEmpty && tristate.IsEmptyValue(fv) {
			continue
		}
		n, err := f.codec.Encode(fv)
		if err != nil {
			return document.Node{}, tristate.PrefixPath(err, f.member.WireName)
		}
		if n.IsAbsent() {
			err := &tristate.EncodeError{Code: tristate.CodeEncodeFailed, Message: "member " + f.member.Name + " has no value to write"}
			return document.Node{}, tristate.PrefixPath(err, f.member.WireName)
		}
		out = append(out, document.Field{Key: f.member.WireName, Value: n})
	}
	return document.Object(out...), nil
}

func (c *objectCodec) Decode(n document.Node, dst reflect.Value) error {
	switch n.Kind {
	case document.KindAbsent, document.KindNull:
		return nil
	case document.KindObject:
	default:
		return &tristate.DecodeError{Code: tristate.CodeInvalidType, Message: "expected object for " + c.t.String() + ", got " + n.Kind.String()}
	}
	for _, f := range c.fields {
		var (
			child document.Node
			ok    bool
		)
		if c.fold {
			child, ok = n.GetFold(f.member.WireName)
		} else {
			child, ok = n.Get(f.member.WireName)
		}
		if !ok {
			continue
		}
		if err := f.codec.Decode(child, f.member.Field(dst)); err != nil {
			return tristate.PrefixPath(err, f.member.WireName)
		}
	}
	return nil
}

type pointerCodec struct {
	t    reflect.Type
	elem tristate.Codec
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

// arrayCodec handles slices and arrays; elements encoding to nothing are
// left out.
type arrayCodec struct {
	t    reflect.Type
	elem tristate.Codec
}

func (c *arrayCodec) Encode(v reflect.Value) (document.Node, error) {
	if v.Kind() == reflect.Slice && v.IsNil() {
		return document.Null(), nil
	}
	items := make([]document.Node, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		n, err := c.elem.Encode(v.Index(i))
		if err != nil {
			return document.Node{}, tristate.PrefixPath(err, strconv.Itoa(i))
		}
		if !n.IsAbsent() {
			items = append(items, n)
		}
	}
	return document.Array(items...), nil
}

func (c *arrayCodec) Decode(n document.Node, dst reflect.Value) error {
	switch n.Kind {
	case document.KindAbsent:
		return nil
	case document.KindNull:
		dst.Set(reflect.Zero(c.t))
		return nil
	case document.KindArray:
	default:
		return &tristate.DecodeError{Code: tristate.CodeInvalidType, Message: "expected array, got " + n.Kind.String()}
	}
	if c.t.Kind() == reflect.Array {
		for i := 0; i < dst.Len(); i++ {
			if i >= len(n.Items) {
				dst.Index(i).Set(reflect.Zero(c.t.Elem()))
				continue
			}
			if err := c.elem.Decode(n.Items[i], dst.Index(i)); err != nil {
				return tristate.PrefixPath(err, strconv.Itoa(i))
			}
		}
		return nil
	}
	s := reflect.MakeSlice(c.t, len(n.Items), len(n.Items))
	for i, item := range n.Items {
		if err := c.elem.Decode(item, s.Index(i)); err != nil {
			return tristate.PrefixPath(err, strconv.Itoa(i))
		}
	}
	dst.Set(s)
	return nil
}

// mapCodec handles maps with string-kinded keys, written in key order.
type mapCodec struct {
	t    reflect.Type
	elem tristate.Codec
}

func (c *mapCodec) Encode(v reflect.Value) (document.Node, error) {
	if v.IsNil() {
		return document.Null(), nil
	}
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := formatMapKey(iter.Key())
		if err != nil {
			return document.Node{}, tristate.NewEncodeError(err)
		}
		entries = append(entries, entry{key: k, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	fields := make([]document.Field, 0, len(entries))
	for _, e := range entries {
		n, err := c.elem.Encode(e.val)
		if err != nil {
			return document.Node{}, tristate.PrefixPath(err, e.key)
		}
		if !n.IsAbsent() {
			fields = append(fields, document.Field{Key: e.key, Value: n})
		}
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
		return &tristate.DecodeError{Code: tristate.CodeInvalidType, Message: "expected object, got " + n.Kind.String()}
	}
	m := reflect.MakeMapWithSize(c.t, len(n.Fields))
	for _, f := range n.Fields {
		ev := reflect.New(c.t.Elem()).Elem()
		if err := c.elem.Decode(f.Value, ev); err != nil {
			return tristate.PrefixPath(err, f.Key)
		}
		kv, err := parseMapKey(f.Key, c.t.Key())
		if err != nil {
			return tristate.PrefixPath(tristate.NewDecodeError(tristate.CodeInvalidType, err), f.Key)
		}
		m.SetMapIndex(kv, ev)
	}
	dst.Set(m)
	return nil
}

// Map keys follow encoding/json: string kinds as is, then
// encoding.TextMarshaler, then integers in decimal.
func validMapKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func formatMapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", errors.New("unsupported map key type " + k.Type().String())
}

func parseMapKey(s string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.String {
		return reflect.ValueOf(s).Convert(t), nil
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		kv := reflect.New(t)
		if err := kv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return kv.Elem(), nil
	}
	kv := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		kv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		kv.SetUint(u)
	default:
		return reflect.Value{}, errors.New("unsupported map key type " + t.String())
	}
	return kv, nil
}
