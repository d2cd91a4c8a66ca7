// Package msgpackhost is a MessagePack serializer over vmihailenco/msgpack.
// Registering it with tristate installs the walker shape.
package msgpackhost

import (
	"bytes"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
	"github.com/reoring/tristate/internal/hostkit"
)

// ErrTrailingData reports input left over after the first value.
var ErrTrailingData = errors.New("msgpackhost: unexpected data after top-level value")

// Options configures a Host.
type Options struct {
	// TagKey is the struct tag naming members. Defaults to "msgpack".
	TagKey string
	Naming tristate.NamingPolicy
}

// Host is a MessagePack serializer. Use a *Host; it is safe for concurrent
// use.
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
		opt.TagKey = "msgpack"
	}
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: opt.TagKey, Naming: opt.Naming})
	return &Host{Base: hostkit.NewBase(w, hostkit.LibraryCodecs(marshalNode, unmarshalNode))}
}

// Marshal returns the MessagePack encoding of v. An undefined Value[T]
// yields empty output.
func (h *Host) Marshal(v any) ([]byte, error) {
	n, err := h.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	if n.IsAbsent() {
		return []byte{}, nil
	}
	out, err := render(n)
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

// Parse parses one MessagePack value into a document node. Map keys must be
// strings and keep their order. Empty input yields the absent node.
func (h *Host) Parse(data []byte) (document.Node, error) {
	if len(data) == 0 {
		return document.Absent(), nil
	}
	r := bytes.NewReader(data)
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(r)

	n, err := readNode(dec)
	if err != nil {
		return document.Node{}, tristate.NewDecodeError(tristate.CodeParseError, err)
	}
	if r.Len() > 0 {
		return document.Node{}, tristate.NewDecodeError(tristate.CodeParseError, ErrTrailingData)
	}
	return n, nil
}

func marshalNode(v any) (document.Node, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return document.Node{}, err
	}
	if len(b) == 1 && b[0] == nilCode {
		return document.Null(), nil
	}
	return document.Scalar(msgpack.RawMessage(b)), nil
}

func unmarshalNode(n document.Node, ptr any) error {
	raw, err := render(n)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(raw, ptr)
}
