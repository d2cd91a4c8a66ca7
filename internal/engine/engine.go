package engine

import (
	"errors"
	"io"

	json "github.com/goccy/go-json"

	"github.com/reoring/tristate/document"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// ErrTrailingData is returned by BuildNode when a value is followed by more
// input.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// BuildNode reads exactly one JSON value from src and returns it as a
// document node. Scalars carry their JSON text ([]byte) in Raw. An empty
// input yields the absent node.
func BuildNode(src TokenSource) (document.Node, error) {
	tok, err := src.NextToken()
	if err == io.EOF {
		return document.Absent(), nil
	}
	if err != nil {
		return document.Node{}, err
	}
	n, err := buildValue(src, tok)
	if err != nil {
		return document.Node{}, err
	}
	if _, err := src.NextToken(); err != io.EOF {
		if err == nil {
			err = ErrTrailingData
		}
		return document.Node{}, err
	}
	return n, nil
}

func buildValue(src TokenSource, tok Token) (document.Node, error) {
	switch tok.Kind {
	case KindBeginObject:
		return buildObject(src)
	case KindBeginArray:
		return buildArray(src)
	case KindString:
		b, err := json.Marshal(tok.String)
		if err != nil {
			return document.Node{}, err
		}
		return document.Scalar(b), nil
	case KindNumber:
		return document.Scalar([]byte(tok.Number)), nil
	case KindBool:
		if tok.Bool {
			return document.Scalar([]byte("true")), nil
		}
		return document.Scalar([]byte("false")), nil
	case KindNull:
		return document.Null(), nil
	default:
		return document.Node{}, io.ErrUnexpectedEOF
	}
}

func buildObject(src TokenSource) (document.Node, error) {
	fields := []document.Field{}
	for {
		tok, err := next(src)
		if err != nil {
			return document.Node{}, err
		}
		if tok.Kind == KindEndObject {
			return document.Object(fields...), nil
		}
		if tok.Kind != KindKey {
			return document.Node{}, io.ErrUnexpectedEOF
		}
		vt, err := next(src)
		if err != nil {
			return document.Node{}, err
		}
		v, err := buildValue(src, vt)
		if err != nil {
			return document.Node{}, err
		}
		fields = append(fields, document.Field{Key: tok.String, Value: v})
	}
}

func buildArray(src TokenSource) (document.Node, error) {
	items := []document.Node{}
	for {
		tok, err := next(src)
		if err != nil {
			return document.Node{}, err
		}
		if tok.Kind == KindEndArray {
			return document.Array(items...), nil
		}
		v, err := buildValue(src, tok)
		if err != nil {
			return document.Node{}, err
		}
		items = append(items, v)
	}
}

// next reads a token inside a container, where EOF means truncated input.
func next(src TokenSource) (Token, error) {
	tok, err := src.NextToken()
	if err == io.EOF {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}
