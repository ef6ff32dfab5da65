package marshal

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/reglet-dev/hostcall/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONMarshaller(t *testing.T) *Marshaller {
	t.Helper()
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("add", entities.ParamNumber, entities.ParamNumber),
			func(_ context.Context, args Args) (entities.Value, error) {
				return entities.Number(args.Number(0) + args.Number(1)), nil
			}),
		WithOperation(entities.NewSignature("wait"),
			func(ctx context.Context, _ Args) (entities.Value, error) {
				<-ctx.Done()
				return entities.Undefined(), ctx.Err()
			}),
		WithRequestIDGenerator(func() string { return "gen-id" }),
	)
	require.NoError(t, err)
	return m
}

func TestInvokeJSON_Success(t *testing.T) {
	m := newJSONMarshaller(t)

	resp, err := m.InvokeJSON(context.Background(), []byte(`{"name":"add","args":[1.5,1000]}`))
	require.NoError(t, err)

	var wire wireformat.CallResponseWire
	require.NoError(t, json.Unmarshal(resp, &wire))
	assert.True(t, entities.Number(1001.5).Equal(wire.Value))
	assert.Equal(t, "gen-id", wire.RequestID)
}

func TestInvokeJSON_Errors(t *testing.T) {
	m := newJSONMarshaller(t)

	tests := []struct {
		name      string
		payload   string
		wantError string
		wantCode  int
	}{
		{"invalid json", `{invalid}`, "VALIDATION_ERROR", 400},
		{"unknown operation", `{"name":"nope","args":[]}`, "NOT_FOUND", 404},
		{"too few", `{"name":"add","args":[1]}`, "ARITY_MISMATCH", 400},
		{"wrong kind", `{"name":"add","args":[1,"1000"]}`, "TYPE_MISMATCH", 400},
		{"null is not a number", `{"name":"add","args":[1,null]}`, "TYPE_MISMATCH", 400},
		{"already canceled", `{"name":"add","args":[1,2],"context":{"canceled":true}}`, "CANCELED", 499},
		{"deadline passes", `{"name":"wait","args":[],"context":{"timeout_ms":5}}`, "TIMEOUT", 504},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := m.InvokeJSON(context.Background(), []byte(tt.payload))
			require.NoError(t, err, "failures are reported in-band")

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(resp, &errResp))
			assert.Equal(t, tt.wantError, errResp.Error)
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.NotEmpty(t, errResp.Message)
		})
	}
}

func TestInvokeJSON_UnencodableResult(t *testing.T) {
	calls := 0
	m, err := NewMarshaller(
		WithOperation(entities.NewSignature("narrow", entities.ParamNumber),
			func(_ context.Context, args Args) (entities.Value, error) {
				calls++
				return entities.Number(float64(float32(args.Number(0)))), nil
			}),
	)
	require.NoError(t, err)

	v, err := m.Invoke(context.Background(), "narrow", []entities.Value{entities.Number(1e39)})
	require.NoError(t, err)
	n, ok := v.AsNumber()
	require.True(t, ok)
	assert.True(t, math.IsInf(n, 1))

	resp, err := m.InvokeJSON(context.Background(), []byte(`{"name":"narrow","args":[1e39],"context":{"request_id":"req-inf"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "the operation runs before encoding fails")

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "INTERNAL_ERROR", errResp.Error)
	assert.Equal(t, 500, errResp.Code)
	assert.Equal(t, "req-inf", errResp.RequestID)
	assert.Contains(t, errResp.Message, "no JSON representation")
}

func TestInvokeJSON_TypeMismatchDetails(t *testing.T) {
	m := newJSONMarshaller(t)

	resp, err := m.InvokeJSON(context.Background(), []byte(`{"name":"add","args":[1,"x"],"context":{"request_id":"abc"}}`))
	require.NoError(t, err)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp, &errResp))
	assert.Equal(t, "abc", errResp.RequestID)
	require.NotNil(t, errResp.Details)
	assert.EqualValues(t, 1, errResp.Details["index"])
}

func TestEncodeCall_RoundTrip(t *testing.T) {
	m := newJSONMarshaller(t)

	ctx, cancel := context.WithTimeout(WithRequestID(context.Background(), "trace-1"), time.Minute)
	defer cancel()

	payload, err := EncodeCall(ctx, "add", entities.Number(2), entities.Number(3))
	require.NoError(t, err)

	var wire wireformat.CallRequestWire
	require.NoError(t, json.Unmarshal(payload, &wire))
	assert.Equal(t, "add", wire.Name)
	assert.Equal(t, "trace-1", wire.Context.RequestID)
	assert.NotNil(t, wire.Context.Deadline)

	resp, err := m.ByteHandler()(context.Background(), payload)
	require.NoError(t, err)

	v, errResp, err := DecodeResult(resp)
	require.NoError(t, err)
	assert.Nil(t, errResp)
	assert.True(t, entities.Number(5).Equal(v))
}

func TestEncodeCall_NoArgs(t *testing.T) {
	payload, err := EncodeCall(context.Background(), "noArgTest")
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"args":[]`)
}

func TestDecodeResult(t *testing.T) {
	t.Run("error response", func(t *testing.T) {
		v, errResp, err := DecodeResult([]byte(`{"error":"NOT_FOUND","message":"unknown operation: \"x\"","code":404}`))
		require.NoError(t, err)
		require.NotNil(t, errResp)
		assert.Equal(t, "NOT_FOUND", errResp.Error)
		assert.True(t, v.IsUndefined())
	})

	t.Run("object value", func(t *testing.T) {
		v, errResp, err := DecodeResult([]byte(`{"value":{"key":5}}`))
		require.NoError(t, err)
		assert.Nil(t, errResp)
		got, ok := v.Get("key")
		require.True(t, ok)
		assert.True(t, entities.Number(5).Equal(got))
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := DecodeResult([]byte(`nope`))
		assert.Error(t, err)
	})
}

func TestDecodeValue(t *testing.T) {
	m := newJSONMarshaller(t)

	resp, err := m.InvokeJSON(context.Background(), []byte(`{"name":"add","args":[1]}`))
	require.NoError(t, err)

	_, err = DecodeValue(resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrArityMismatch))

	resp, err = m.InvokeJSON(context.Background(), []byte(`{"name":"add","args":[1,2]}`))
	require.NoError(t, err)
	v, err := DecodeValue(resp)
	require.NoError(t, err)
	assert.True(t, entities.Number(3).Equal(v))
}

func TestOperationHandler(t *testing.T) {
	m := newJSONMarshaller(t)

	resp, err := m.OperationHandler("add")(context.Background(), []byte(`{"name":"ignored","args":[2,2]}`))
	require.NoError(t, err)
	v, err := DecodeValue(resp)
	require.NoError(t, err)
	assert.True(t, entities.Number(4).Equal(v))
}
