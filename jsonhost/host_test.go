package jsonhost_test

import (
	"reflect"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/document"
	"github.com/reoring/tristate/jsonhost"
)

type patch struct {
	Name  tristate.Value[string]  `json:"name"`
	Email tristate.Value[*string] `json:"email"`
	Age   tristate.Value[int]     `json:"age"`
	Note  string                  `json:"note,omitempty"`
}

type account struct {
	ID      string                    `json:"id"`
	Profile tristate.Value[profile]   `json:"profile"`
	Tags    []tristate.Value[*string] `json:"tags,omitempty"`
	Secret  tristate.Value[string]    `json:"-"`
	Alias   tristate.Value[string]    `json:"alias" tristate:"name=nick"`
}

type profile struct {
	Bio tristate.Value[string] `json:"bio"`
	N   int                    `json:"n"`
}

func newHost(t *testing.T, opt jsonhost.Options, prewarm ...any) *jsonhost.Host {
	t.Helper()
	h := jsonhost.New(opt)
	require.NoError(t, tristate.Register(h, prewarm...))
	return h
}

func strp(s string) *string { return &s }

func TestSingleValue(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	b, err := h.Marshal(tristate.Undefined[int]())
	require.NoError(t, err)
	assert.Empty(t, b)

	b, err = h.Marshal(tristate.Of(5))
	require.NoError(t, err)
	assert.Equal(t, "5", string(b))

	var v tristate.Value[int]
	require.NoError(t, h.Unmarshal([]byte("5"), &v))
	assert.True(t, v.IsDefined())
	assert.Equal(t, 5, v.Get())

	var empty tristate.Value[int]
	require.NoError(t, h.Unmarshal([]byte(""), &empty))
	assert.False(t, empty.IsDefined())

	var null tristate.Value[*string]
	require.NoError(t, h.Unmarshal([]byte("null"), &null))
	assert.True(t, null.IsDefined())
	assert.Nil(t, null.Get())
}

func TestUndefinedMembersAreOmitted(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	b, err := h.Marshal(patch{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))

	b, err = h.Marshal(patch{Name: tristate.Of("a"), Email: tristate.Of[*string](nil)})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a","email":null}`, string(b))

	b, err = h.Marshal(patch{Age: tristate.Of(0), Note: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"age":0,"note":"x"}`, string(b))
}

func TestPresentMembersDecodeAsDefined(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	var p patch
	require.NoError(t, h.Unmarshal([]byte(`{"name":"bob","email":null}`), &p))
	assert.True(t, p.Name.IsDefined())
	assert.Equal(t, "bob", p.Name.Get())
	assert.True(t, p.Email.IsDefined(), "null must still define the member")
	assert.Nil(t, p.Email.Get())
	assert.False(t, p.Age.IsDefined())

	var z patch
	require.NoError(t, h.Unmarshal([]byte(`{"age":0}`), &z))
	assert.True(t, z.Age.IsDefined())
	assert.Equal(t, 0, z.Age.Get())
}

func TestCollectionDropsUndefinedElements(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	in := []tristate.Value[*string]{
		tristate.Undefined[*string](),
		tristate.Of[*string](nil),
		tristate.Of(strp("x")),
	}
	b, err := h.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `[null,"x"]`, string(b))

	var out []tristate.Value[*string]
	require.NoError(t, h.Unmarshal(b, &out))
	require.Len(t, out, 2)
	for _, v := range out {
		assert.True(t, v.IsDefined())
	}
	assert.Nil(t, out[0].Get())
	assert.Equal(t, "x", *out[1].Get())
}

func TestNestedIgnoredAndRenamedMembers(t *testing.T) {
	h := newHost(t, jsonhost.Options{}, account{})

	a := account{
		ID:      "1",
		Profile: tristate.Of(profile{N: 2}),
		Tags:    []tristate.Value[*string]{tristate.Of(strp("a")), {}},
		Secret:  tristate.Of("hidden"),
		Alias:   tristate.Of("al"),
	}
	b, err := h.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","profile":{"n":2},"tags":["a"],"nick":"al"}`, string(b))

	var got account
	require.NoError(t, h.Unmarshal([]byte(`{"id":"2","profile":{"bio":"hi"},"Secret":"x","nick":"n"}`), &got))
	assert.Equal(t, "2", got.ID)
	require.True(t, got.Profile.IsDefined())
	assert.Equal(t, "hi", got.Profile.Get().Bio.Get())
	assert.False(t, got.Secret.IsDefined())
	assert.Equal(t, "n", got.Alias.Get())
}

func TestMapDropsUndefinedValues(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	b, err := h.Marshal(map[string]tristate.Value[int]{"b": tristate.Of(2), "a": {}, "c": tristate.Of(0)})
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"c":0}`, string(b))
}

func TestMapWithIntegerKeys(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	b, err := h.Marshal(map[int]tristate.Value[string]{1: {}, 2: tristate.Of("x"), 10: tristate.Of("y")})
	require.NoError(t, err)
	assert.Equal(t, `{"10":"y","2":"x"}`, string(b))

	var out map[uint8]tristate.Value[*string]
	require.NoError(t, h.Unmarshal([]byte(`{"1":"a","3":null}`), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "a", *out[1].Get())
	assert.True(t, out[3].IsDefined())
	assert.Nil(t, out[3].Get())

	err = h.Unmarshal([]byte(`{"300":"a"}`), &out)
	de, ok := tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "/300", de.Path)
}

func TestMapWithUnsupportedKeysIsRejected(t *testing.T) {
	h := jsonhost.New(jsonhost.Options{})
	err := tristate.Register(h, map[float64]tristate.Value[string]{})
	ce, ok := tristate.AsConfigError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeNoCodec, ce.Code)
}

func TestRoundTripAllDefined(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	in := patch{Name: tristate.Of("n"), Email: tristate.Of(strp("e@x")), Age: tristate.Of(40)}
	b, err := h.Marshal(in)
	require.NoError(t, err)

	var out patch
	require.NoError(t, h.Unmarshal(b, &out))
	b2, err := h.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(b2))
	assert.Equal(t, "e@x", *out.Email.Get())
}

type versioned struct {
	Version tristate.Value[int] `json:"version"`
	Name    string              `json:"name"`
}

// versionCodec writes ints as "v<N>" strings.
type versionCodec struct{}

func (versionCodec) Encode(v reflect.Value) (document.Node, error) {
	return document.Scalar([]byte(strconv.Quote("v" + strconv.FormatInt(v.Int(), 10)))), nil
}

func (versionCodec) Decode(n document.Node, dst reflect.Value) error {
	var s string
	if err := json.Unmarshal(n.Raw.([]byte), &s); err != nil {
		return err
	}
	i, err := strconv.Atoi(strings.TrimPrefix(s, "v"))
	if err != nil {
		return err
	}
	dst.SetInt(int64(i))
	return nil
}

func TestMemberCodecAppliesToInnerValue(t *testing.T) {
	h := jsonhost.New(jsonhost.Options{})
	h.SetMemberCodec(reflect.TypeFor[versioned](), "Version", versionCodec{})
	require.NoError(t, tristate.Register(h))

	b, err := h.Marshal(versioned{Version: tristate.Of(3), Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"version":"v3","name":"x"}`, string(b))

	b, err = h.Marshal(versioned{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x"}`, string(b))

	var v versioned
	require.NoError(t, h.Unmarshal([]byte(`{"version":"v7"}`), &v))
	assert.True(t, v.Version.IsDefined())
	assert.Equal(t, 7, v.Version.Get())
}

func TestDecodeErrorsCarryPath(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	var a account
	err := h.Unmarshal([]byte(`{"profile":{"n":"x"}}`), &a)
	de, ok := tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "/profile/n", de.Path)
	assert.Equal(t, tristate.CodeInvalidType, de.Code)

	err = h.Unmarshal([]byte(`{"profile":[1]}`), &a)
	de, ok = tristate.AsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "/profile", de.Path)
}

func TestParseEnforcement(t *testing.T) {
	h := newHost(t, jsonhost.Options{DuplicateKeys: jsonhost.DupError, MaxDepth: 2})

	var p patch
	err := h.Unmarshal([]byte(`{"name":"a","name":"b"}`), &p)
	de, ok := tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeDuplicateKey, de.Code)
	assert.Equal(t, "/name", de.Path)

	var deep any
	err = h.Unmarshal([]byte(`{"a":{"b":{"c":1}}}`), &deep)
	de, ok = tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeParseError, de.Code)

	err = h.Unmarshal([]byte(`{"name":"a"} {}`), &p)
	_, ok = tristate.AsDecodeError(err)
	assert.True(t, ok, "trailing data must fail")

	for _, in := range []string{
		`{"name":"a" "age":1}`,
		`[1 2]`,
		`{"name" "a"}`,
		`{"name":"a",}`,
		`[1,]`,
		`{,"name":"a"}`,
		`[,1]`,
		`{"name":}`,
		`{"name":"a"`,
	} {
		var v any
		err := newHost(t, jsonhost.Options{}).Unmarshal([]byte(in), &v)
		de, ok := tristate.AsDecodeError(err)
		require.True(t, ok, "%s: got %v", in, err)
		assert.Equal(t, tristate.CodeParseError, de.Code, in)
	}

	lax := newHost(t, jsonhost.Options{})
	var last patch
	require.NoError(t, lax.Unmarshal([]byte(`{"name":"a","name":"b"}`), &last))
	assert.Equal(t, "b", last.Name.Get())
}

func TestMaxBytes(t *testing.T) {
	h := newHost(t, jsonhost.Options{MaxBytes: 8})

	var p patch
	err := h.Unmarshal([]byte(`{"name":"a very long name that exceeds the limit"}`), &p)
	de, ok := tristate.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeTruncated, de.Code)
}

func TestWithoutEngineUndefinedBecomesNull(t *testing.T) {
	h := jsonhost.New(jsonhost.Options{})

	b, err := h.Marshal(patch{Name: tristate.Of("a")})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a","email":null,"age":null}`, string(b))

	var p patch
	require.NoError(t, h.Unmarshal([]byte(`{"age":1}`), &p))
	assert.True(t, p.Age.IsDefined())
	assert.False(t, p.Name.IsDefined())
}

func TestFactoryWithoutHookFailsOnUndefinedMember(t *testing.T) {
	h := jsonhost.New(jsonhost.Options{})
	h.AddCodecFactory(tristate.WrapperCodecFactory)

	_, err := h.Marshal(patch{Name: tristate.Of("a")})
	var ee *tristate.EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "/email", ee.Path)
}

func TestRegisterFailsForInnerTypeWithoutCodec(t *testing.T) {
	type bad struct {
		C tristate.Value[chan int] `json:"c"`
	}
	h := jsonhost.New(jsonhost.Options{})
	err := tristate.Register(h, bad{})
	ce, ok := tristate.AsConfigError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeNoCodec, ce.Code)
	assert.ErrorIs(t, err, tristate.ErrNoCodec)
}

func TestMarshalIndent(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	b, err := h.MarshalIndent(patch{Name: tristate.Of("a")}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"a\"\n}", string(b))
}

func TestWrite(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	var sb strings.Builder
	require.NoError(t, h.Write(&sb, patch{Email: tristate.Of[*string](nil)}))
	assert.Equal(t, `{"email":null}`, sb.String())
}

func TestMatchFold(t *testing.T) {
	h := newHost(t, jsonhost.Options{MatchFold: true})

	var p patch
	require.NoError(t, h.Unmarshal([]byte(`{"NAME":"x"}`), &p))
	assert.Equal(t, "x", p.Name.Get())
}

func TestCollectPresence(t *testing.T) {
	h := newHost(t, jsonhost.Options{})

	var a account
	require.NoError(t, h.Unmarshal([]byte(`{"profile":{"bio":null},"tags":[null,"x"]}`), &a))
	pm, err := tristate.CollectPresence(h.Members(), &a)
	require.NoError(t, err)
	assert.True(t, pm.Seen("/profile"))
	assert.True(t, pm.Seen("/profile/bio"))
	assert.False(t, pm.WasNull("/profile/bio"), "string cannot hold null")
	assert.True(t, pm.WasNull("/tags/0"))
	assert.True(t, pm.Seen("/tags/1"))
	assert.False(t, pm.Seen("/nick"))
}

func BenchmarkMarshalPatch(b *testing.B) {
	h := jsonhost.New(jsonhost.Options{})
	if err := tristate.Register(h, patch{}); err != nil {
		b.Fatal(err)
	}
	p := patch{Name: tristate.Of("n"), Age: tristate.Of(3)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := h.Marshal(p); err != nil {
			b.Fatal(err)
		}
	}
}
