// Package cborhost is a CBOR serializer over fxamacker/cbor. Registering it
// with tristate installs the walker shape; types without a Value[T] are
// encoded by the library with Core Deterministic Encoding.
package cborhost

import (
	"errors"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
	"github.com/reoring/tristate/internal/hostkit"
)

// encMode encodes leaves with Core Deterministic Encoding (RFC 8949 §4.2).
// encoding.TextMarshaler types serialize as text strings.
var encMode cbor.EncMode

// decMode decodes standard CBOR, rejecting duplicate map keys. any-typed
// targets get map[string]any for maps.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("cborhost: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("cborhost: CBOR decoder initialization failed: " + err.Error())
	}
}

// Options configures a Host.
type Options struct {
	// TagKey is the struct tag naming members. Defaults to "cbor".
	TagKey string
	Naming tristate.NamingPolicy
}

// Host is a CBOR serializer. Use a *Host; it is safe for concurrent use.
type Host struct {
	hostkit.Base
}

var (
	_ tristate.CodecHost         = (*Host)(nil)
	_ tristate.MemberCodecSource = (*Host)(nil)
)

// New returns a Host using opt.
func New(opt Options) *Host {
	if opt.TagKey == "" {
		opt.TagKey = "cbor"
	}
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: opt.TagKey, Naming: opt.Naming})
	return &Host{Base: hostkit.NewBase(w, hostkit.LibraryCodecs(marshalNode, unmarshalNode))}
}

// Marshal returns the CBOR encoding of v. An undefined Value[T] yields empty
// output.
func (h *Host) Marshal(v any) ([]byte, error) {
	n, err := h.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	if n.IsAbsent() {
		return []byte{}, nil
	}
	out, err := appendCBOR(nil, n)
	if err != nil {
		return nil, tristate.NewEncodeError(err)
	}
	return out, nil
}

// Unmarshal parses data and stores the result in the value ptr points to.
func (h *Host) Unmarshal(data []byte, ptr any) error {
	n, err := h.Parse(data)
	if err != nil {
		return err
	}
	return h.DecodeValue(n, ptr)
}

// Parse parses one CBOR data item into a document node. Empty input yields
// the absent node.
func (h *Host) Parse(data []byte) (document.Node, error) {
	if len(data) == 0 {
		return document.Absent(), nil
	}
	var raw cbor.RawMessage
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return document.Node{}, parseError(err)
	}
	n, err := parseItem(raw)
	if err != nil {
		return document.Node{}, parseError(err)
	}
	return n, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

func parseError(err error) error {
	var dup *cbor.DupMapKeyError
	if errors.As(err, &dup) {
		return tristate.NewDecodeError(tristate.CodeDuplicateKey, err)
	}
	return tristate.NewDecodeError(tristate.CodeParseError, err)
}

func marshalNode(v any) (document.Node, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return document.Node{}, err
	}
	if isNull(b) {
		return document.Null(), nil
	}
	return document.Scalar(cbor.RawMessage(b)), nil
}

func unmarshalNode(n document.Node, ptr any) error {
	raw, err := appendCBOR(nil, n)
	if err != nil {
		return err
	}
	return decMode.Unmarshal(raw, ptr)
}
