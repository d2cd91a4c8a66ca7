package codec_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/codec"
	"github.com/reoring/tristate/jsonhost"
)

type event struct {
	At    tristate.Value[time.Time] `json:"at"`
	Title string                    `json:"title"`
}

func newHost(t *testing.T) *jsonhost.Host {
	t.Helper()
	h := jsonhost.New(jsonhost.Options{})
	h.SetMemberCodec(reflect.TypeFor[event](), "At", codec.TimeRFC3339())
	require.NoError(t, tristate.Register(h))
	return h
}

func TestTimeRFC3339_RoundTrip(t *testing.T) {
	h := newHost(t)

	jst := time.FixedZone("JST", 9*60*60)
	b, err := h.Marshal(event{At: tristate.Of(time.Date(2025, 1, 1, 9, 0, 0, 0, jst)), Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"at":"2025-01-01T00:00:00Z","title":"x"}`, string(b))

	var e event
	require.NoError(t, h.Unmarshal(b, &e))
	require.True(t, e.At.IsDefined())
	assert.True(t, e.At.Get().Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTimeRFC3339_UndefinedAndNull(t *testing.T) {
	h := newHost(t)

	b, err := h.Marshal(event{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, string(b))

	var e event
	require.NoError(t, h.Unmarshal([]byte(`{"at":null}`), &e))
	assert.True(t, e.At.IsDefined())
	assert.True(t, e.At.Get().IsZero())
}

func TestTimeRFC3339_Errors(t *testing.T) {
	h := newHost(t)

	var e event
	err := h.Unmarshal([]byte(`{"at":"yesterday"}`), &e)
	de, ok := tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeInvalidFormat, de.Code)
	assert.Equal(t, "/at", de.Path)

	err = h.Unmarshal([]byte(`{"at":5}`), &e)
	de, ok = tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeInvalidType, de.Code)
}
