package tristate

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Shape selects how the engine integrates with a host.
type Shape int

const (
	// ShapeAuto picks ShapeHook when the host offers a member hook and
	// ShapeWalker otherwise.
	ShapeAuto Shape = iota
	// ShapeHook installs the Value[T] codec factory and the SuppressUndefined
	// member modifier; the host keeps walking objects itself.
	ShapeHook
	// ShapeWalker installs a factory that walks every type holding a
	// Value[T] itself and delegates the rest to the host.
	ShapeWalker
)

func (s Shape) String() string {
	switch s {
	case ShapeAuto:
		return "auto"
	case ShapeHook:
		return "hook"
	case ShapeWalker:
		return "walker"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Options configures an Engine. The zero value is ready to use.
type Options struct {
	Shape Shape
	// Logger receives debug records about registrations. nil discards them.
	Logger *slog.Logger
	// MatchFold makes the walker shape match member keys case-insensitively
	// when decoding; an exact match still wins.
	MatchFold bool
}

// Engine registers Value[T] support with host serializers.
type Engine struct {
	opt Options
	log *slog.Logger

	mu         sync.Mutex
	registered map[Host]Shape
}

// New returns an Engine using opt.
func New(opt Options) *Engine {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{opt: opt, log: log, registered: make(map[Host]Shape)}
}

var defaultEngine = New(Options{})

// Register registers h with the default engine. See Engine.Register.
func Register(h Host, prewarm ...any) error {
	return defaultEngine.Register(h, prewarm...)
}

// Register installs Value[T] support into h. Registering the same host again
// is a no-op apart from pre-warming. Hosts implementing InstallTracker are
// installed into once across all engines; the first shape sticks.
//
// Each prewarm argument is a sample value or a reflect.Type whose codec is
// resolved immediately, so that a wrapped type without an inner codec fails
// here with a *ConfigError instead of on first use.
func (e *Engine) Register(h Host, prewarm ...any) error {
	if h == nil {
		return &ConfigError{Code: CodeUnsupportedHost, Message: "nil host", Cause: ErrUnsupportedHost}
	}
	if !reflect.TypeOf(h).Comparable() {
		return &ConfigError{Type: reflect.TypeOf(h), Code: CodeUnsupportedHost, Message: "host must be comparable (use a pointer)", Cause: ErrUnsupportedHost}
	}

	e.mu.Lock()
	shape, done := e.registered[h]
	if !done {
		fresh := true
		var err error
		if tr, ok := h.(InstallTracker); ok {
			shape, fresh, err = tr.TrackInstall(func() (Shape, error) { return e.install(h) })
		} else {
			shape, err = e.install(h)
		}
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.registered[h] = shape
		if fresh {
			e.log.Debug("tristate: registered host", "host", fmt.Sprintf("%T", h), "shape", shape.String())
		} else {
			e.log.Debug("tristate: host already carries support", "host", fmt.Sprintf("%T", h), "shape", shape.String())
		}
	}
	e.mu.Unlock()

	for _, x := range prewarm {
		t, ok := x.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(x)
		}
		if t == nil {
			continue
		}
		if _, err := h.CodecFor(t); err != nil {
			if ce, ok := AsConfigError(err); ok {
				return ce
			}
			return &ConfigError{Type: t, Code: CodeNoCodec, Message: err.Error(), Cause: err}
		}
		e.log.Debug("tristate: pre-warmed codec", "type", t.String())
	}
	return nil
}

// Shape reports the shape installed into h, if h is registered.
func (e *Engine) Shape(h Host) (Shape, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.registered[h]
	return s, ok
}

func (e *Engine) install(h Host) (Shape, error) {
	shape := e.opt.Shape
	hh, hasHook := h.(MemberHookHost)
	ch, hasCodec := h.(CodecHost)
	if shape == ShapeAuto {
		switch {
		case hasHook:
			shape = ShapeHook
		case hasCodec:
			shape = ShapeWalker
		}
	}
	switch {
	case shape == ShapeHook && hasHook:
		hh.AddCodecFactory(WrapperCodecFactory)
		hh.AddMemberModifier(SuppressUndefined)
		return ShapeHook, nil
	case shape == ShapeWalker && hasCodec:
		ch.AddCodecFactory(e.walkerFactory(h))
		return ShapeWalker, nil
	}
	return 0, &ConfigError{
		Type:    reflect.TypeOf(h),
		Code:    CodeUnsupportedHost,
		Message: "host cannot take the " + shape.String() + " shape",
		Cause:   ErrUnsupportedHost,
	}
}
