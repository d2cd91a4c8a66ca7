// Package yamlhost is a YAML serializer over gopkg.in/yaml.v3. It has no
// member hook, so registering it with tristate installs the walker shape:
// types holding a Value[T] are walked by tristate and every other type is
// handed to yaml.v3 through yaml.Node.
package yamlhost

import (
	"gopkg.in/yaml.v3"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
	"github.com/reoring/tristate/internal/hostkit"
)

// Options configures a Host.
type Options struct {
	// TagKey is the struct tag naming members. Defaults to "yaml".
	TagKey string
	// Naming derives wire names for untagged members. Defaults to
	// tristate.LowerCase, matching yaml.v3.
	Naming tristate.NamingPolicy
}

// Host is a YAML serializer. Use a *Host; it is safe for concurrent use.
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
		opt.TagKey = "yaml"
	}
	if opt.Naming == nil {
		opt.Naming = tristate.LowerCase
	}
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: opt.TagKey, Naming: opt.Naming})
	return &Host{Base: hostkit.NewBase(w, hostkit.LibraryCodecs(marshalNode, unmarshalNode))}
}

// Marshal returns the YAML encoding of v. An undefined Value[T] yields empty
// output.
func (h *Host) Marshal(v any) ([]byte, error) {
	n, err := h.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	if n.IsAbsent() {
		return []byte{}, nil
	}
	yn, err := toYAML(n)
	if err != nil {
		return nil, tristate.NewEncodeError(err)
	}
	out, err := yaml.Marshal(yn)
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

// Parse parses the first YAML document of data into a document node. An
// empty input yields the absent node.
func (h *Host) Parse(data []byte) (document.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return document.Node{}, tristate.NewDecodeError(tristate.CodeParseError, err)
	}
	return fromYAML(&root), nil
}

func marshalNode(v any) (document.Node, error) {
	var yn yaml.Node
	if err := yn.Encode(v); err != nil {
		return document.Node{}, err
	}
	if yn.Kind == yaml.ScalarNode && yn.ShortTag() == "!!null" {
		return document.Null(), nil
	}
	return document.Scalar(&yn), nil
}

func unmarshalNode(n document.Node, ptr any) error {
	yn, err := toYAML(n)
	if err != nil {
		return err
	}
	return yn.Decode(ptr)
}
