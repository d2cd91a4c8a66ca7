package tristate_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/tristate"
	"github.com/reoring/tristate/jsonhost"
)

type Base struct {
	ID      string `json:"id"`
	Created string `json:"created"`
}

type user struct {
	Base
	Created   tristate.Value[string] `json:"created"`
	FirstName tristate.Value[string]
	Email     string                 `json:"email,omitempty"`
	Password  string                 `json:"-"`
	Legacy    tristate.Value[int]    `tristate:"ignore"`
	Nick      tristate.Value[string] `json:"nick" tristate:"name=handle"`
	private   int
}

func wireNames(ms []tristate.Member) []string {
	var out []string
	for _, m := range ms {
		if !m.Ignored {
			out = append(out, m.WireName)
		}
	}
	return out
}

func TestWalker_Members(t *testing.T) {
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: "json", Naming: tristate.SnakeCase})
	ms, err := w.Members(reflect.TypeFor[*user]())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "created", "first_name", "email", "handle"}, wireNames(ms))

	byName := map[string]tristate.Member{}
	for _, m := range ms {
		byName[m.Name] = m
	}
	assert.True(t, byName["Password"].Ignored)
	assert.True(t, byName["Legacy"].Ignored)
	assert.True(t, byName["Email"].OmitEmpty)
	assert.True(t, byName["FirstName"].Wrapped)
	assert.Equal(t, reflect.TypeFor[string](), byName["FirstName"].Inner)
	assert.Equal(t, []int{0, 0}, byName["ID"].Index)
	assert.True(t, byName["Created"].Wrapped, "the outer field shadows the embedded one")
	_, hasPrivate := byName["private"]
	assert.False(t, hasPrivate)
}

type Left struct {
	Name tristate.Value[string]
}

type Right struct {
	Name tristate.Value[string]
}

func TestWalker_Members_OuterFieldAfterEmbeddedClash(t *testing.T) {
	type shadowed struct {
		Left
		Right
		Name tristate.Value[string]
	}
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: "json"})
	ms, err := w.Members(reflect.TypeFor[shadowed]())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, []int{2}, ms[0].Index)

	type ambiguous struct {
		Left
		Right
	}
	_, err = w.Members(reflect.TypeFor[ambiguous]())
	ce, ok := tristate.AsConfigError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, tristate.CodeInvalidMember, ce.Code)

	h := jsonhost.New(jsonhost.Options{})
	require.NoError(t, tristate.Register(h, shadowed{}))
	b, err := h.Marshal(shadowed{Left: Left{Name: tristate.Of("l")}, Name: tristate.Of("n")})
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"n"}`, string(b))
}

func TestWalker_FieldAccess(t *testing.T) {
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: "json"})
	ms, err := w.Members(reflect.TypeFor[user]())
	require.NoError(t, err)

	u := user{Base: Base{ID: "7"}}
	rv := reflect.ValueOf(&u).Elem()
	for _, m := range ms {
		switch m.Name {
		case "ID":
			assert.Equal(t, "7", m.Field(rv).Interface())
		case "Nick":
			m.Field(rv).Set(reflect.ValueOf(tristate.Of("n")))
		}
	}
	assert.Equal(t, "n", u.Nick.Get())
}

func TestWalker_Cached(t *testing.T) {
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: "json"})
	a, err := w.Members(reflect.TypeFor[user]())
	require.NoError(t, err)
	b, err := w.Members(reflect.TypeFor[user]())
	require.NoError(t, err)
	assert.Equal(t, reflect.ValueOf(a).Pointer(), reflect.ValueOf(b).Pointer())
}

func TestWalker_Errors(t *testing.T) {
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: "json"})

	_, err := w.Members(reflect.TypeFor[int]())
	ce, ok := tristate.AsConfigError(err)
	require.True(t, ok)
	assert.Equal(t, tristate.CodeInvalidMember, ce.Code)

	type clash struct {
		A string `json:"x"`
		B string `json:"x"`
	}
	_, err = w.Members(reflect.TypeFor[clash]())
	ce, ok = tristate.AsConfigError(err)
	require.True(t, ok)
	assert.Equal(t, tristate.CodeInvalidMember, ce.Code)
}

func TestNamingPolicies(t *testing.T) {
	cases := []struct {
		in, camel, snake, kebab, lower string
	}{
		{"FirstName", "firstName", "first_name", "first-name", "firstname"},
		{"Name", "name", "name", "name", "name"},
		{"EmailAddress", "emailAddress", "email_address", "email-address", "emailaddress"},
	}
	for _, c := range cases {
		assert.Equal(t, c.camel, tristate.CamelCase(c.in), c.in)
		assert.Equal(t, c.snake, tristate.SnakeCase(c.in), c.in)
		assert.Equal(t, c.kebab, tristate.KebabCase(c.in), c.in)
		assert.Equal(t, c.lower, tristate.LowerCase(c.in), c.in)
	}
	assert.Equal(t, "user_id", tristate.SnakeCase("UserID"))
	assert.Equal(t, "json-data", tristate.KebabCase("JSONData"))
}
