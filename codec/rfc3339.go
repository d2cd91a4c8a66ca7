// Package codec provides member codecs for jsonhost, to be installed with
// SetMemberCodec on fields whose wire form differs from the library default.
package codec

import (
	"errors"
	"reflect"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
)

var timeType = reflect.TypeFor[time.Time]()

// TimeRFC3339 returns a codec for time.Time members that writes canonical
// RFC3339 strings in UTC and accepts RFC3339 with or without fractions.
func TimeRFC3339() tristate.Codec { return rfc3339Codec{} }

type rfc3339Codec struct{}

func (rfc3339Codec) Encode(v reflect.Value) (document.Node, error) {
	if v.Type() != timeType {
		return document.Node{}, tristate.NewEncodeError(errors.New("RFC3339 codec needs time.Time, got " + v.Type().String()))
	}
	b, err := json.Marshal(formatRFC3339Canonical(v.Interface().(time.Time)))
	if err != nil {
		return document.Node{}, tristate.NewEncodeError(err)
	}
	return document.Scalar(b), nil
}

func (rfc3339Codec) Decode(n document.Node, dst reflect.Value) error {
	if n.IsAbsent() || n.IsNull() {
		return nil
	}
	raw, ok := n.Raw.([]byte)
	if n.Kind != document.KindScalar || !ok {
		return tristate.NewDecodeError(tristate.CodeInvalidType, errors.New("expected RFC3339 string"))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return tristate.NewDecodeError(tristate.CodeInvalidType, err)
	}
	t, err := parseRFC3339(s)
	if err != nil {
		return tristate.NewDecodeError(tristate.CodeInvalidFormat, err)
	}
	dst.Set(reflect.ValueOf(t))
	return nil
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
