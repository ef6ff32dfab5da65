package marshal

import (
	"context"
	"errors"
	"testing"

	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoNative(_ context.Context, args Args) (entities.Value, error) {
	return entities.Array(args...), nil
}

func TestNewMarshaller_Empty(t *testing.T) {
	m, err := NewMarshaller()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.Names())
}

func TestNewMarshaller_WithOperation(t *testing.T) {
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("echo", entities.ParamAny), echoNative),
	)
	require.NoError(t, err)

	assert.True(t, m.Has("echo"))
	assert.False(t, m.Has("nonexistent"))
	assert.Equal(t, []string{"echo"}, m.Names())
}

func TestNewMarshaller_DuplicateOperation(t *testing.T) {
	_, err := NewMarshaller(
		WithOperation(entities.NewSignature("test"), echoNative),
		WithOperation(entities.NewSignature("test"), echoNative), // duplicate
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate operation name")
}

func TestNewMarshaller_EmptyName(t *testing.T) {
	_, err := NewMarshaller(
		WithOperation(entities.NewSignature(""), echoNative),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestNewMarshaller_InvalidSignature(t *testing.T) {
	tests := []struct {
		name string
		sig  entities.Signature
	}{
		{"name with spaces", entities.NewSignature("bad name")},
		{"leading digit", entities.NewSignature("1op")},
		{"unknown param kind", entities.NewSignature("op", entities.ParamKind(99))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMarshaller(WithOperation(tt.sig, echoNative))
			require.Error(t, err)
			var cfgErr *domainerrors.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestNewMarshaller_NilNative(t *testing.T) {
	_, err := NewMarshaller(WithOperation(entities.NewSignature("op"), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no native function")
}

func TestMarshaller_Invoke(t *testing.T) {
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("pair", entities.ParamNumber, entities.ParamString), echoNative),
		WithOperation(entities.NewSignature("strictPair", entities.ParamNumber, entities.ParamString).AsStrict(), echoNative),
	)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		v, err := m.Invoke(ctx, "pair", []entities.Value{entities.Number(1), entities.String("x")})
		require.NoError(t, err)
		assert.True(t, entities.Array(entities.Number(1), entities.String("x")).Equal(v))
	})

	t.Run("excess arguments are dropped before the native call", func(t *testing.T) {
		v, err := m.Invoke(ctx, "pair", []entities.Value{entities.Number(1), entities.String("x"), entities.Bool(true)})
		require.NoError(t, err)
		assert.Equal(t, 2, v.Len())
	})

	t.Run("excess arguments are not type checked", func(t *testing.T) {
		_, err := m.Invoke(ctx, "pair", []entities.Value{entities.Number(1), entities.String("x"), entities.Undefined()})
		require.NoError(t, err)
	})

	t.Run("strict rejects excess", func(t *testing.T) {
		_, err := m.Invoke(ctx, "strictPair", []entities.Value{entities.Number(1), entities.String("x"), entities.Bool(true)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domainerrors.ErrArityMismatch))
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := m.Invoke(ctx, "unknown", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domainerrors.ErrUnknownOperation))
	})

	t.Run("too few arguments", func(t *testing.T) {
		_, err := m.Invoke(ctx, "pair", []entities.Value{entities.Number(1)})
		var am *domainerrors.ArityMismatchError
		require.ErrorAs(t, err, &am)
		assert.Equal(t, 2, am.Expected)
		assert.Equal(t, 1, am.Actual)
	})

	t.Run("first mismatch wins", func(t *testing.T) {
		_, err := m.Invoke(ctx, "pair", []entities.Value{entities.String("1"), entities.Number(2)})
		var tm *domainerrors.TypeMismatchError
		require.ErrorAs(t, err, &tm)
		assert.Equal(t, 0, tm.Index)
		assert.Equal(t, entities.ParamNumber, tm.Expected)
		assert.Equal(t, entities.KindString, tm.Actual)
	})

	t.Run("no coercion of numeric strings", func(t *testing.T) {
		_, err := m.Invoke(ctx, "pair", []entities.Value{entities.String("1000"), entities.String("x")})
		assert.True(t, errors.Is(err, domainerrors.ErrTypeMismatch))
	})
}

func TestMarshaller_Invoke_RejectedCallsNeverRunNative(t *testing.T) {
	calls := 0
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("count", entities.ParamNumber), func(_ context.Context, _ Args) (entities.Value, error) {
			calls++
			return entities.Undefined(), nil
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = m.Invoke(ctx, "count", nil)
	_, _ = m.Invoke(ctx, "count", []entities.Value{entities.String("1")})
	assert.Equal(t, 0, calls)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Invoke(canceled, "count", []entities.Value{entities.Number(1)})
	var ce *domainerrors.CanceledError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, calls)

	_, err = m.Invoke(ctx, "count", []entities.Value{entities.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "a rejected call must not affect later calls")
}

func TestMarshaller_Invoke_NativeError(t *testing.T) {
	boom := errors.New("boom")
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("fail"), func(context.Context, Args) (entities.Value, error) {
			return entities.Undefined(), boom
		}),
	)
	require.NoError(t, err)

	_, err = m.Invoke(context.Background(), "fail", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(err, domainerrors.ErrNativeFailure))
}

func TestMarshaller_Invoke_SetsCallContext(t *testing.T) {
	var captured CallContext
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("test_op", entities.ParamString), func(ctx context.Context, _ Args) (entities.Value, error) {
			captured, _ = CallContextFrom(ctx)
			return entities.Undefined(), nil
		}),
		WithRequestIDGenerator(func() string { return "generated" }),
	)
	require.NoError(t, err)

	_, err = m.Invoke(context.Background(), "test_op", []entities.Value{entities.String("x")})
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "test_op", captured.Operation())
	assert.Equal(t, "generated", captured.RequestID())
	assert.Equal(t, 1, captured.Signature().Required())

	_, err = m.Invoke(WithRequestID(context.Background(), "from-caller"), "test_op", []entities.Value{entities.String("x")})
	require.NoError(t, err)
	assert.Equal(t, "from-caller", captured.RequestID())
}

func TestMarshaller_Call(t *testing.T) {
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("echo", entities.ParamAny), echoNative),
	)
	require.NoError(t, err)

	ok := m.Call(context.Background(), entities.NewCallRequest("echo", entities.Number(1)))
	assert.True(t, ok.IsSuccess())
	assert.Equal(t, "echo", ok.Name)
	require.NotNil(t, ok.Metadata)
	assert.NotEmpty(t, ok.Metadata.RequestID)

	failed := m.Call(context.Background(), entities.NewCallRequest("echo"))
	assert.True(t, failed.IsError())
	require.NotNil(t, failed.Error)
	assert.Equal(t, "ARITY_MISMATCH", failed.Error.Code)
}

func TestMarshaller_Signatures(t *testing.T) {
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("zebra"), echoNative),
		WithOperation(entities.NewSignature("alpha", entities.ParamString), echoNative),
	)
	require.NoError(t, err)

	sigs := m.Signatures()
	require.Len(t, sigs, 2)
	assert.Equal(t, "alpha", sigs[0].Name)
	assert.Equal(t, "zebra", sigs[1].Name)

	// Returned signatures are copies.
	sigs[0].Params[0] = entities.ParamNumber
	again, ok := m.Signature("alpha")
	require.True(t, ok)
	assert.Equal(t, entities.ParamString, again.Params[0])

	_, ok = m.Signature("missing")
	assert.False(t, ok)
}

func TestMarshaller_RegisteredSignatureIsImmutable(t *testing.T) {
	sig := entities.NewSignature("op", entities.ParamString)
	m, err := NewMarshaller(WithOperation(sig, echoNative))
	require.NoError(t, err)

	sig.Params[0] = entities.ParamNumber

	_, err = m.Invoke(context.Background(), "op", []entities.Value{entities.String("still a string slot")})
	assert.NoError(t, err)
}

func TestMarshaller_Names_Sorted(t *testing.T) {
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("zebra"), echoNative),
		WithOperation(entities.NewSignature("alpha"), echoNative),
		WithOperation(entities.NewSignature("middle"), echoNative),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "middle", "zebra"}, m.Names())
}
