// Package testutil provides common test utilities and assertions for host-side
// tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/marshal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertValue asserts that actual equals expected under Value.Equal.
func AssertValue(t *testing.T, expected, actual entities.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if expected.Equal(actual) {
		return true
	}
	return assert.Fail(t, "values differ: expected "+expected.String()+", got "+actual.String(), msgAndArgs...)
}

// RequireValueResponse decodes a wire response and requires it to carry a
// value rather than an error.
func RequireValueResponse(t *testing.T, data []byte) entities.Value {
	t.Helper()
	v, errResp, err := marshal.DecodeResult(data)
	require.NoError(t, err, "response is not valid JSON: %s", data)
	require.Nil(t, errResp, "unexpected error response: %+v", errResp)
	return v
}

// RequireErrorResponse decodes a wire response and requires it to be an
// error with the given code, such as "TYPE_MISMATCH".
func RequireErrorResponse(t *testing.T, data []byte, code string) *marshal.ErrorResponse {
	t.Helper()
	_, errResp, err := marshal.DecodeResult(data)
	require.NoError(t, err, "response is not valid JSON: %s", data)
	require.NotNil(t, errResp, "expected %s, got a value: %s", code, data)
	require.Equal(t, code, errResp.Error, errResp.Message)
	return errResp
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
