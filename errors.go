package tristate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Error codes carried by ConfigError, DecodeError and EncodeError.
const (
	CodeInvalidType     = "invalid_type"
	CodeInvalidFormat   = "invalid_format"
	CodeParseError      = "parse_error"
	CodeDuplicateKey    = "duplicate_key"
	CodeTruncated       = "truncated"
	CodeNoCodec         = "no_codec"
	CodeUnsupportedHost = "unsupported_host"
	CodeInvalidMember   = "invalid_member"
	CodeEncodeFailed    = "encode_failed"
)

var (
	// ErrNoCodec reports that a host has no codec for a type.
	ErrNoCodec = errors.New("tristate: no codec for type")

	// ErrUnsupportedHost reports that a host offers neither a member hook nor
	// codec factories.
	ErrUnsupportedHost = errors.New("tristate: host supports no integration shape")

	// ErrBoxedType reports a SetBoxed call with a value of the wrong type.
	ErrBoxedType = errors.New("tristate: boxed value has wrong type")
)

// ConfigError is returned while wiring the engine into a host: a wrapped
// type whose inner type has no codec, an unusable struct layout, or a host
// without any integration shape. It is never produced per value.
type ConfigError struct {
	Type    reflect.Type // Offending type, nil when not type specific.
	Code    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	b := &strings.Builder{}
	b.WriteString("tristate: configuration ")
	b.WriteString(e.Code)
	if e.Type != nil {
		fmt.Fprintf(b, " for %s", e.Type)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// DecodeError is returned when a wire node does not fit its destination.
// Path is the JSON Pointer of the offending member or element.
type DecodeError struct {
	Path    string
	Code    string
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tristate: decode %s at %s: %s", e.Code, renderPath(e.Path), e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// EncodeError is returned when a host codec fails on a defined value.
type EncodeError struct {
	Path    string
	Code    string
	Message string
	Cause   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("tristate: encode %s at %s: %s", e.Code, renderPath(e.Path), e.Message)
}

func (e *EncodeError) Unwrap() error { return e.Cause }

// NewDecodeError wraps a host decode failure at the current (root) path.
func NewDecodeError(code string, cause error) *DecodeError {
	return &DecodeError{Code: code, Message: cause.Error(), Cause: cause}
}

// NewEncodeError wraps a host encode failure at the current (root) path.
func NewEncodeError(cause error) *EncodeError {
	return &EncodeError{Code: CodeEncodeFailed, Message: cause.Error(), Cause: cause}
}

// PrefixPath prepends seg to the path of a DecodeError or EncodeError. Codecs
// call it while unwinding so the final path reads from the document root.
// Other errors are returned unchanged.
func PrefixPath(err error, seg string) error {
	switch e := err.(type) {
	case *DecodeError:
		e.Path = "/" + escapePointerToken(seg) + e.Path
	case *EncodeError:
		e.Path = "/" + escapePointerToken(seg) + e.Path
	}
	return err
}

// AsDecodeError extracts a *DecodeError from err.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// AsConfigError extracts a *ConfigError from err.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointerToken(s string) string {
	return pointerEscaper.Replace(s)
}

// JoinPointer appends token to a JSON Pointer.
func JoinPointer(base, token string) string {
	if base == "/" {
		base = ""
	}
	return base + "/" + escapePointerToken(token)
}

func renderPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
