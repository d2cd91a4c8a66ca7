package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/tristate/document"
)

func TestAbsentAndNullAreDistinct(t *testing.T) {
	var zero document.Node
	assert.True(t, zero.IsAbsent())
	assert.False(t, zero.IsNull())
	assert.True(t, document.Null().IsNull())
	assert.False(t, document.Null().IsAbsent())
	assert.Equal(t, "absent", zero.Kind.String())
}

func TestObjectLookup(t *testing.T) {
	obj := document.Object(
		document.Field{Key: "name", Value: document.Scalar("a")},
		document.Field{Key: "email", Value: document.Null()},
		document.Field{Key: "name", Value: document.Scalar("b")},
	)

	assert.True(t, obj.Has("email"))
	assert.False(t, obj.Has("age"))

	v, ok := obj.Get("email")
	assert.True(t, ok)
	assert.True(t, v.IsNull())

	v, ok = obj.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "b", v.Raw)

	assert.Equal(t, []string{"name", "email", "name"}, obj.Keys())
	assert.Equal(t, 3, obj.Len())
}

func TestGetFold(t *testing.T) {
	obj := document.Object(
		document.Field{Key: "Name", Value: document.Scalar(1)},
		document.Field{Key: "name", Value: document.Scalar(2)},
		document.Field{Key: "EMAIL", Value: document.Scalar(3)},
	)

	v, ok := obj.GetFold("name")
	assert.True(t, ok)
	assert.Equal(t, 2, v.Raw)

	v, ok = obj.GetFold("Email")
	assert.True(t, ok)
	assert.Equal(t, 3, v.Raw)

	_, ok = obj.GetFold("missing")
	assert.False(t, ok)
}

func TestNonObjectsHaveNoKeys(t *testing.T) {
	arr := document.Array(document.Null(), document.Scalar("x"))
	assert.False(t, arr.Has("0"))
	assert.Nil(t, arr.Keys())
	assert.Equal(t, 2, arr.Len())

	_, ok := document.Scalar("x").GetFold("x")
	assert.False(t, ok)
	assert.Equal(t, 0, document.Null().Len())
}

func TestEmptyContainersAreNotNil(t *testing.T) {
	assert.NotNil(t, document.Array().Items)
	assert.NotNil(t, document.Object().Fields)
	assert.Equal(t, document.KindObject, document.Object().Kind)
}
