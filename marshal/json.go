package marshal

import (
	"context"
	"encoding/json"

	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/reglet-dev/hostcall/internal/callctx"
	"github.com/reglet-dev/hostcall/wireformat"
)

// DefaultMaxRequestSize limits the size of a single JSON call payload (1MB).
const DefaultMaxRequestSize = 1 * 1024 * 1024

// ByteHandler is a function that accepts raw bytes (JSON) and returns raw bytes (JSON).
// This is the common interface that WASM runtimes and other byte-oriented
// transports can easily use.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// InvokeJSON decodes a wireformat.CallRequestWire, invokes it and encodes the
// outcome. Every outcome is in-band: a {"value":...} response or ErrorResponse
// JSON, both carrying the request ID, and the returned error is always nil.
// A result with no JSON form, such as a Number that narrowed to infinity, is
// answered with an INTERNAL_ERROR response after the operation has run.
func (m *Marshaller) InvokeJSON(ctx context.Context, payload []byte) ([]byte, error) {
	req, errResp := decodeRequest(payload)
	if errResp != nil {
		return errResp, nil
	}
	return m.invokeWire(ctx, req)
}

// OperationHandler returns a ByteHandler bound to a single operation. The
// payload has the same shape InvokeJSON accepts; its name field is ignored.
func (m *Marshaller) OperationHandler(name string) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req, errResp := decodeRequest(payload)
		if errResp != nil {
			return errResp, nil
		}
		req.Name = name
		return m.invokeWire(ctx, req)
	}
}

func decodeRequest(payload []byte) (wireformat.CallRequestWire, []byte) {
	var req wireformat.CallRequestWire
	if err := json.Unmarshal(payload, &req); err != nil {
		wireErr := &domainerrors.WireFormatError{Operation: "decode", Type: "CallRequestWire", Err: err}
		return req, NewErrorResponse(wireErr).ToJSON()
	}
	return req, nil
}

func (m *Marshaller) invokeWire(ctx context.Context, req wireformat.CallRequestWire) ([]byte, error) {
	ctx, cancel := callctx.WireToContext(ctx, req.Context)
	defer cancel()

	requestID, ok := RequestIDFrom(ctx)
	if !ok {
		requestID = m.newRequestID()
		ctx = WithRequestID(ctx, requestID)
	}

	v, err := m.Invoke(ctx, req.Name, req.Args)
	if err != nil {
		resp := NewErrorResponse(err)
		resp.RequestID = requestID
		return resp.ToJSON(), nil
	}

	data, err := json.Marshal(wireformat.CallResponseWire{Value: v, RequestID: requestID})
	if err != nil {
		wireErr := &domainerrors.WireFormatError{Operation: "encode", Type: "result of " + req.Name, Err: err}
		resp := NewInternalError(wireErr.Error())
		resp.RequestID = requestID
		return resp.ToJSON(), nil
	}
	return data, nil
}

// ByteHandler returns InvokeJSON as a ByteHandler.
func (m *Marshaller) ByteHandler() ByteHandler {
	return m.InvokeJSON
}

// EncodeCall builds the JSON payload InvokeJSON accepts, carrying ctx's
// deadline and request ID.
func EncodeCall(ctx context.Context, name string, args ...entities.Value) ([]byte, error) {
	if args == nil {
		args = []entities.Value{}
	}
	return json.Marshal(wireformat.CallRequestWire{
		Name:    name,
		Args:    args,
		Context: callctx.ContextToWire(ctx),
	})
}

// DecodeResult parses an InvokeJSON response. A failed call is returned as a
// non-nil *ErrorResponse with a zero Value.
func DecodeResult(data []byte) (entities.Value, *ErrorResponse, error) {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return entities.Value{}, nil, &domainerrors.WireFormatError{Operation: "decode", Type: "response", Err: err}
	}

	if probe.Error != nil {
		var errResp ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil {
			return entities.Value{}, nil, &domainerrors.WireFormatError{Operation: "decode", Type: "ErrorResponse", Err: err}
		}
		return entities.Value{}, &errResp, nil
	}

	var resp wireformat.CallResponseWire
	if err := json.Unmarshal(data, &resp); err != nil {
		return entities.Value{}, nil, &domainerrors.WireFormatError{Operation: "decode", Type: "CallResponseWire", Err: err}
	}
	return resp.Value, nil, nil
}

// DecodeValue is DecodeResult for callers that want failures as errors: a
// failed call is returned as a *RemoteError.
func DecodeValue(data []byte) (entities.Value, error) {
	v, errResp, err := DecodeResult(data)
	if err != nil {
		return entities.Value{}, err
	}
	if errResp != nil {
		return entities.Value{}, errResp.Err()
	}
	return v, nil
}
