package tristate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// TagKey is the struct tag read before any host tag. It accepts
// `tristate:"name=wire"`, `tristate:"-"` and `tristate:"ignore"`.
const TagKey = "tristate"

// Member describes one exported field of a struct type as seen on the wire.
type Member struct {
	Name      string       // Go field name.
	WireName  string       // Key used in documents.
	Ignored   bool         // Excluded from both encode and decode.
	OmitEmpty bool         // Host tag carried omitempty.
	Type      reflect.Type // Declared field type.
	Index     []int        // Field index path, for promoted fields of embedded structs.
	Wrapped   bool         // Type is a Value[T].
	Inner     reflect.Type // T when Wrapped.
}

// Field returns the member's field of the struct value v. The result is
// settable when v is addressable.
func (m Member) Field(v reflect.Value) reflect.Value {
	return v.FieldByIndex(m.Index)
}

// WalkerOpt configures a Walker.
type WalkerOpt struct {
	// TagKey is the host's struct tag (for example "json" or "yaml").
	TagKey string
	// Naming derives wire names for fields the tags do not name.
	Naming NamingPolicy
}

// Walker derives member descriptors for struct types and caches them per type.
// A Walker is safe for concurrent use; cached descriptors are never mutated.
type Walker struct {
	opt   WalkerOpt
	cache *xsync.Map[reflect.Type, []Member]
}

// NewWalker returns a Walker using opt.
func NewWalker(opt WalkerOpt) *Walker {
	return &Walker{opt: opt, cache: xsync.NewMap[reflect.Type, []Member]()}
}

// TagKey returns the host struct tag the walker reads.
func (w *Walker) TagKey() string { return w.opt.TagKey }

// Members returns the ordered descriptors of t's exported fields, ignored
// members included. t may be a struct or a pointer to one. The returned slice
// is shared and must not be modified.
func (w *Walker) Members(t reflect.Type) ([]Member, error) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &ConfigError{Type: t, Code: CodeInvalidMember, Message: "members requested for a non-struct type"}
	}
	if ms, ok := w.cache.Load(t); ok {
		return ms, nil
	}
	ms, err := w.derive(t)
	if err != nil {
		return nil, err
	}
	actual, _ := w.cache.LoadOrStore(t, ms)
	return actual, nil
}

type candidate struct {
	m     Member
	depth int
	named bool
}

func (w *Walker) derive(t reflect.Type) ([]Member, error) {
	var cands []candidate
	w.collect(t, nil, 0, &cands, map[reflect.Type]bool{t: true})

	// A shallower member shadows deeper ones with the same wire name; two at
	// the shallowest depth make the name ambiguous unless exactly one is tagged.
	groups := make(map[string][]int)
	for i, c := range cands {
		if !c.m.Ignored {
			groups[c.m.WireName] = append(groups[c.m.WireName], i)
		}
	}
	best := make(map[string]int, len(groups))
	for name, idx := range groups {
		minDepth := cands[idx[0]].depth
		for _, i := range idx[1:] {
			minDepth = min(minDepth, cands[i].depth)
		}
		var shallow, named []int
		for _, i := range idx {
			if cands[i].depth != minDepth {
				continue
			}
			shallow = append(shallow, i)
			if cands[i].named {
				named = append(named, i)
			}
		}
		switch {
		case len(shallow) == 1:
			best[name] = shallow[0]
		case len(named) == 1:
			best[name] = named[0]
		default:
			a, b := cands[shallow[0]].m, cands[shallow[1]].m
			if len(named) > 1 {
				a, b = cands[named[0]].m, cands[named[1]].m
			}
			return nil, &ConfigError{Type: t, Code: CodeInvalidMember,
				Message: fmt.Sprintf("fields %s and %s share wire name %q", a.Name, b.Name, name)}
		}
	}
	out := make([]Member, 0, len(cands))
	for i, c := range cands {
		if !c.m.Ignored && best[c.m.WireName] != i {
			continue
		}
		out = append(out, c.m)
	}
	return out, nil
}

func (w *Walker) collect(t reflect.Type, index []int, depth int, out *[]candidate, visiting map[reflect.Type]bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := append(append([]int(nil), index...), i)
		key := w.resolveKey(sf)

		if sf.Anonymous && key.name == "" && !key.ignored {
			ft := sf.Type
			if ft.Kind() == reflect.Struct && !IsWrapperType(ft) && !visiting[ft] {
				visiting[ft] = true
				w.collect(ft, idx, depth+1, out, visiting)
				delete(visiting, ft)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		m := Member{
			Name:      sf.Name,
			WireName:  key.name,
			Ignored:   key.ignored,
			OmitEmpty: key.omitEmpty,
			Type:      sf.Type,
			Index:     idx,
		}
		if m.WireName == "" {
			m.WireName = sf.Name
			if w.opt.Naming != nil {
				m.WireName = w.opt.Naming(sf.Name)
			}
		}
		if IsWrapperType(sf.Type) {
			m.Wrapped = true
			m.Inner = InnerTypeOf(sf.Type)
		}
		*out = append(*out, candidate{m: m, depth: depth, named: key.name != ""})
	}
}

type structKey struct {
	name      string
	ignored   bool
	omitEmpty bool
}

// resolveKey applies the tag priority: tristate tag > host tag > field name.
// "-" in either tag ignores the field.
func (w *Walker) resolveKey(sf reflect.StructField) structKey {
	var k structKey
	if tt, ok := sf.Tag.Lookup(TagKey); ok {
		for _, p := range strings.Split(tt, ",") {
			p = strings.TrimSpace(p)
			switch {
			case p == "-", p == "ignore":
				k.ignored = true
			case strings.HasPrefix(p, "name="):
				k.name = strings.TrimPrefix(p, "name=")
			}
		}
	}
	if w.opt.TagKey == "" {
		return k
	}
	ht, ok := sf.Tag.Lookup(w.opt.TagKey)
	if !ok {
		return k
	}
	if ht == "-" {
		k.ignored = true
		return k
	}
	name, opts, _ := strings.Cut(ht, ",")
	if k.name == "" {
		k.name = name
	}
	for _, o := range strings.Split(opts, ",") {
		if o == "omitempty" || o == "omitzero" {
			k.omitEmpty = true
		}
	}
	return k
}
