package tristate

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Presence is the bit flag reported for optional values.
type Presence uint8

const (
	PresenceSeen    Presence = 1 << iota // Value was defined (the key was sent).
	PresenceWasNull                      // Value was defined as null.
)

// PresenceMap maps JSON Pointers to Presence flags.
type PresenceMap map[string]Presence

// Seen reports whether the value at path was defined.
func (pm PresenceMap) Seen(path string) bool { return pm[path]&PresenceSeen != 0 }

// WasNull reports whether the value at path was defined as null.
func (pm PresenceMap) WasNull(path string) bool { return pm[path]&PresenceWasNull != 0 }

// Filter returns the entries whose path starts with one of include (all when
// include is empty) and with none of exclude.
func (pm PresenceMap) Filter(include, exclude []string) PresenceMap {
	if pm == nil {
		return nil
	}
	out := make(PresenceMap, len(pm))
	for path, p := range pm {
		if len(include) > 0 && !hasAnyPrefix(path, include) {
			continue
		}
		if hasAnyPrefix(path, exclude) {
			continue
		}
		out[path] = p
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// simple string interner for PresenceMap keys
var (
	_internMu   sync.RWMutex
	_internPool = map[string]string{}
)

func internString(s string) string {
	_internMu.RLock()
	if v, ok := _internPool[s]; ok {
		_internMu.RUnlock()
		return v
	}
	_internMu.RUnlock()

	_internMu.Lock()
	if v, ok := _internPool[s]; ok { // double-check
		_internMu.Unlock()
		return v
	}
	_internPool[s] = s
	_internMu.Unlock()
	return s
}

type presencer interface{ Presence() Presence }

// CollectPresence walks a decoded value and records the presence of every
// Value[T] it holds, keyed by JSON Pointer built from w's wire names. The root
// "/" is always marked seen. Undefined values are left out of the map.
func CollectPresence(w *Walker, v any) (PresenceMap, error) {
	pm := PresenceMap{"/": PresenceSeen}
	if v == nil {
		return pm, nil
	}
	c := presenceCollector{w: w, pm: pm}
	if err := c.walk(reflect.ValueOf(v), ""); err != nil {
		return nil, err
	}
	return pm, nil
}

type presenceCollector struct {
	w  *Walker
	pm PresenceMap
}

func (c *presenceCollector) walk(v reflect.Value, path string) error {
	t := v.Type()
	if IsWrapperType(t) {
		p := v.Interface().(presencer).Presence()
		if p == 0 {
			return nil
		}
		key := path
		if key == "" {
			key = "/"
		}
		c.pm[internString(key)] |= p
		return c.walk(unwrap(v, InnerTypeOf(t)), path)
	}
	if !needsEngine(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return c.walk(v.Elem(), path)
	case reflect.Struct:
		members, err := c.w.Members(t)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.Ignored {
				continue
			}
			if err := c.walk(m.Field(v), JoinPointer(path, m.WireName)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := c.walk(v.Index(i), JoinPointer(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := c.walk(iter.Value(), JoinPointer(path, iter.Key().String())); err != nil {
				return err
			}
		}
	}
	return nil
}
