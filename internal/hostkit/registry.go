// Package hostkit holds the plumbing shared by the concrete hosts: the codec
// factory chain with its per-type cache, per-member codec overrides, and the
// embeddable Base implementing the tristate host interfaces.
package hostkit

import (
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
)

// BuildFunc builds the host's own codec for t. It runs after every installed
// CodecFactory declined t and must not return a nil codec without an error.
type BuildFunc func(t reflect.Type, lookup tristate.CodecLookup) (tristate.Codec, error)

// Registry resolves codecs for a host. Lookups hit a lock-free cache; misses
// are built under a mutex so that recursive types resolve to one codec.
// Codecs reach the cache only when the whole build succeeded.
type Registry struct {
	build BuildFunc

	mu        sync.Mutex
	factories []tristate.CodecFactory
	cache     *xsync.Map[reflect.Type, tristate.Codec]
	members   *xsync.Map[memberKey, tristate.Codec]

	installMu sync.Mutex
	installed bool
	shape     tristate.Shape
}

type memberKey struct {
	owner reflect.Type
	field string
}

// NewRegistry returns a Registry falling back to build.
func NewRegistry(build BuildFunc) *Registry {
	return &Registry{
		build:   build,
		cache:   xsync.NewMap[reflect.Type, tristate.Codec](),
		members: xsync.NewMap[memberKey, tristate.Codec](),
	}
}

// AddCodecFactory installs f after the factories already present and ahead
// of the host's own codecs. Cached codecs are dropped.
func (r *Registry) AddCodecFactory(f tristate.CodecFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, f)
	r.cache.Clear()
}

// TrackInstall implements tristate.InstallTracker.
func (r *Registry) TrackInstall(install func() (tristate.Shape, error)) (tristate.Shape, bool, error) {
	r.installMu.Lock()
	defer r.installMu.Unlock()
	if r.installed {
		return r.shape, false, nil
	}
	s, err := install()
	if err != nil {
		return 0, false, err
	}
	r.installed, r.shape = true, s
	return s, true, nil
}

// Invalidate drops every cached codec, for hosts whose own build inputs
// changed.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Clear()
}

// SetMemberCodec declares c for field (the Go field name) of struct type
// owner. c is written for the field's underlying type: T for a Value[T].
// Cached codecs are dropped.
func (r *Registry) SetMemberCodec(owner reflect.Type, field string, c tristate.Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members.Store(memberKey{owner, field}, c)
	r.cache.Clear()
}

// MemberCodec implements tristate.MemberCodecSource.
func (r *Registry) MemberCodec(owner reflect.Type, m tristate.Member) (tristate.Codec, bool) {
	return r.members.Load(memberKey{owner, m.Name})
}

// CodecFor returns the codec for t.
func (r *Registry) CodecFor(t reflect.Type) (tristate.Codec, error) {
	if t == nil {
		return nil, &tristate.ConfigError{Code: tristate.CodeNoCodec, Message: "nil type", Cause: tristate.ErrNoCodec}
	}
	if c, ok := r.cache.Load(t); ok {
		return c, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := &resolver{r: r, built: make(map[reflect.Type]tristate.Codec), pending: make(map[reflect.Type]*lazyCodec)}
	c, err := res.CodecFor(t)
	if err != nil {
		return nil, err
	}
	for bt, bc := range res.built {
		r.cache.Store(bt, bc)
	}
	return c, nil
}

// resolver is the lookup handed to factories during one build. It sees the
// codecs built so far and hands out placeholders for types still being built.
type resolver struct {
	r       *Registry
	built   map[reflect.Type]tristate.Codec
	pending map[reflect.Type]*lazyCodec
}

func (res *resolver) CodecFor(t reflect.Type) (tristate.Codec, error) {
	if c, ok := res.r.cache.Load(t); ok {
		return c, nil
	}
	if c, ok := res.built[t]; ok {
		return c, nil
	}
	if lc, ok := res.pending[t]; ok {
		return lc, nil
	}
	lc := &lazyCodec{t: t}
	res.pending[t] = lc
	c, err := res.buildOne(t)
	delete(res.pending, t)
	if err != nil {
		return nil, err
	}
	lc.c = c
	res.built[t] = c
	return c, nil
}

func (res *resolver) buildOne(t reflect.Type) (tristate.Codec, error) {
	for _, f := range res.r.factories {
		c, ok, err := f(t, res)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}
	if Unsupported(t) {
		return nil, &tristate.ConfigError{Type: t, Code: tristate.CodeNoCodec, Message: "kind " + t.Kind().String() + " cannot be serialized", Cause: tristate.ErrNoCodec}
	}
	return res.r.build(t, res)
}

// Unsupported reports whether no host can serialize values of t.
func Unsupported(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

// lazyCodec stands in for a codec whose type is still being built, which
// happens for self-referential types.
type lazyCodec struct {
	t reflect.Type
	c tristate.Codec
}

func (l *lazyCodec) Encode(v reflect.Value) (document.Node, error) {
	return l.c.Encode(v)
}

func (l *lazyCodec) Decode(n document.Node, dst reflect.Value) error {
	return l.c.Decode(n, dst)
}
