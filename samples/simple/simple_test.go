package simple

import (
	"context"
	"errors"
	"testing"

	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFoo(t *testing.T) (*Simple, func(name string, args ...entities.Value) (entities.Value, error)) {
	t.Helper()
	s, m, err := NewMarshaller([]entities.Value{entities.String("foo")})
	require.NoError(t, err)

	invoke := func(name string, args ...entities.Value) (entities.Value, error) {
		return m.Invoke(context.Background(), name, args)
	}
	return s, invoke
}

func TestNew(t *testing.T) {
	s, err := New([]entities.Value{entities.String("foo")})
	require.NoError(t, err)
	assert.Equal(t, "foo", s.Name())

	_, err = New(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrArityMismatch))
	assert.Contains(t, err.Error(), "constructor must be a string")

	_, err = New([]entities.Value{entities.Number(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrTypeMismatch))
}

func TestNumberTest(t *testing.T) {
	_, invoke := newFoo(t)

	v, err := invoke("numberTest", entities.Number(1.5), entities.Number(1000))
	require.NoError(t, err)
	assert.True(t, entities.Number(1001.5).Equal(v), "got %v", v)

	_, err = invoke("numberTest", entities.Number(1.5), entities.String("1000"))
	require.Error(t, err)
	var tm *domainerrors.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, 1, tm.Index)
	assert.Equal(t, entities.ParamNumber, tm.Expected)
	assert.Equal(t, entities.KindString, tm.Actual)
}

func TestNumberTest_NativeNarrowing(t *testing.T) {
	_, invoke := newFoo(t)

	// The second parameter is a long: the fractional part is truncated.
	v, err := invoke("numberTest", entities.Number(0.5), entities.Number(2.9))
	require.NoError(t, err)
	assert.True(t, entities.Number(2.5).Equal(v), "got %v", v)

	v, err = invoke("numberTest", entities.Number(0), entities.Number(-2.9))
	require.NoError(t, err)
	assert.True(t, entities.Number(-2).Equal(v), "got %v", v)
}

func TestStringTest(t *testing.T) {
	_, invoke := newFoo(t)

	v, err := invoke("stringTest", entities.String("a"), entities.String("b"), entities.String("c"))
	require.NoError(t, err)
	assert.True(t, entities.String("fooabc").Equal(v), "got %v", v)

	_, err = invoke("stringTest", entities.String("a"), entities.String("b"))
	require.Error(t, err)
	var am *domainerrors.ArityMismatchError
	require.ErrorAs(t, err, &am)
	assert.Equal(t, 3, am.Expected)
	assert.Equal(t, 2, am.Actual)
}

func TestObjectTest(t *testing.T) {
	_, invoke := newFoo(t)

	v, err := invoke("objectTest", entities.String("key"), entities.Number(5))
	require.NoError(t, err)
	require.Equal(t, entities.KindObject, v.Kind())

	got, ok := v.Get("key")
	require.True(t, ok)
	assert.True(t, entities.Number(5).Equal(got))
}

func TestNoArgTest_ExcessIgnored(t *testing.T) {
	_, invoke := newFoo(t)

	plain, err := invoke("noArgTest")
	require.NoError(t, err)
	withExcess, err := invoke("noArgTest", entities.Number(5))
	require.NoError(t, err)

	assert.True(t, entities.String("foo").Equal(plain))
	assert.True(t, plain.Equal(withExcess))
}

func TestBundle_Signatures(t *testing.T) {
	_, m, err := NewMarshaller([]entities.Value{entities.String("foo")})
	require.NoError(t, err)

	assert.Equal(t, []string{"noArgTest", "numberTest", "objectTest", "stringTest"}, m.Names())

	sig, ok := m.Signature("numberTest")
	require.True(t, ok)
	assert.Equal(t, []entities.ParamKind{entities.ParamNumber, entities.ParamNumber}, sig.Params)

	sig, ok = m.Signature("objectTest")
	require.True(t, ok)
	assert.Equal(t, []entities.ParamKind{entities.ParamString, entities.ParamNumber}, sig.Params)
}

func TestNewMarshaller_BadConstructorArgs(t *testing.T) {
	_, _, err := NewMarshaller([]entities.Value{entities.Number(3)})
	require.Error(t, err)
}
