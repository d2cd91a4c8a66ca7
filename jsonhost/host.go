// Package jsonhost is a JSON serializer built on goccy/go-json that walks
// structs itself and consults member plans before writing a member. It is
// the host for the hook integration shape: registering it with tristate
// installs the Value[T] codec and the SuppressUndefined modifier.
package jsonhost

import (
	"bytes"
	"io"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
	"github.com/reoring/tristate/internal/engine"
	"github.com/reoring/tristate/internal/hostkit"
	"github.com/reoring/tristate/source/gojson"
)

// DuplicatePolicy controls repeated object keys while parsing.
type DuplicatePolicy int

const (
	DupIgnore DuplicatePolicy = iota // last occurrence wins
	DupWarn                          // last occurrence wins, logged at warn level
	DupError                         // DecodeError with CodeDuplicateKey
)

// Options configures a Host. The zero value is usable.
type Options struct {
	// TagKey is the struct tag naming members. Defaults to "json".
	TagKey string
	// Naming derives wire names for members the tags leave unnamed.
	Naming tristate.NamingPolicy
	// MatchFold matches object keys to members case-insensitively on decode.
	MatchFold bool

	DuplicateKeys DuplicatePolicy
	MaxDepth      int
	MaxBytes      int64

	Logger *slog.Logger
}

// Host is a JSON serializer. Use a *Host; it is safe for concurrent use.
type Host struct {
	hostkit.Base
	opt Options
	log *slog.Logger

	mu        sync.Mutex
	modifiers []tristate.MemberModifier
}

var _ tristate.MemberHookHost = (*Host)(nil)

// New returns a Host using opt.
func New(opt Options) *Host {
	if opt.TagKey == "" {
		opt.TagKey = "json"
	}
	h := &Host{opt: opt, log: opt.Logger}
	if h.log == nil {
		h.log = slog.New(slog.DiscardHandler)
	}
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: opt.TagKey, Naming: opt.Naming})
	h.Base = hostkit.NewBase(w, h.build)
	return h
}

// AddMemberModifier installs m. It runs once per struct type, after the
// modifiers installed before it, when the type's object codec is built.
func (h *Host) AddMemberModifier(m tristate.MemberModifier) {
	h.mu.Lock()
	h.modifiers = append(h.modifiers, m)
	h.mu.Unlock()
	h.Invalidate()
}

func (h *Host) memberModifiers() []tristate.MemberModifier {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]tristate.MemberModifier(nil), h.modifiers...)
}

// Marshal returns the JSON encoding of v. A value that encodes to nothing
// (an undefined Value[T]) yields empty output.
func (h *Host) Marshal(v any) ([]byte, error) {
	n, err := h.EncodeValue(v)
	if err != nil {
		return nil, err
	}
	if n.IsAbsent() {
		return []byte{}, nil
	}
	return appendJSON(nil, n)
}

// MarshalIndent is Marshal with each element on its own line.
func (h *Host) MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	b, err := h.Marshal(v)
	if err != nil || len(b) == 0 {
		return b, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, prefix, indent); err != nil {
		return nil, tristate.NewEncodeError(err)
	}
	return buf.Bytes(), nil
}

// Write writes the JSON encoding of v to w.
func (h *Host) Write(w io.Writer, v any) error {
	b, err := h.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Unmarshal parses data and stores the result in the value ptr points to.
func (h *Host) Unmarshal(data []byte, ptr any) error {
	n, err := h.Parse(data)
	if err != nil {
		return err
	}
	return h.DecodeValue(n, ptr)
}

// Parse parses one JSON value into a document node. Empty input yields the
// absent node; anything after the value is an error.
func (h *Host) Parse(data []byte) (document.Node, error) {
	// The token stream does not check separators, so the grammar is checked
	// up front.
	if len(bytes.Trim(data, jsonSpace)) > 0 && !json.Valid(data) {
		return document.Node{}, &tristate.DecodeError{Code: tristate.CodeParseError, Message: "malformed JSON document"}
	}
	src := engine.WrapWithEnforcement(gojson.NewBytes(data), engine.EnforceOptions{
		OnDuplicate: engine.DuplicateStrictness(h.opt.DuplicateKeys),
		MaxDepth:    h.opt.MaxDepth,
		MaxBytes:    h.opt.MaxBytes,
		IssueSink: func(si engine.SimpleIssue) {
			h.log.Warn("jsonhost: input issue", "code", si.Code, "path", si.Path, "message", si.Message)
		},
	})
	n, err := engine.BuildNode(src)
	if err != nil {
		return document.Node{}, parseError(err)
	}
	return n, nil
}

const jsonSpace = " \t\r\n"

func parseError(err error) error {
	if ie, ok := err.(engine.IssueError); ok {
		path := ie.Path
		if path == "/" {
			path = ""
		}
		return &tristate.DecodeError{Path: path, Code: ie.Code, Message: ie.Message, Cause: err}
	}
	return tristate.NewDecodeError(tristate.CodeParseError, err)
}
