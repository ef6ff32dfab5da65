package parser

import (
	"testing"

	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScript = `
constructor: [foo]
calls:
  - name: numberTest
    args: [1.5, 1000]
    expect:
      value: 1001.5
  - name: numberTest
    args: [1.5, "1000"]
    expect:
      error: TYPE_MISMATCH
  - name: objectTest
    args: [key, 5]
    expect:
      value: {key: 5}
  - name: noArgTest
`

func TestYamlScriptParser_Parse(t *testing.T) {
	script, err := NewYamlScriptParser().Parse([]byte(sampleScript))
	require.NoError(t, err)

	require.Len(t, script.Constructor, 1)
	assert.True(t, entities.String("foo").Equal(script.Constructor[0]))
	assert.Zero(t, script.Parallel)
	require.Len(t, script.Calls, 4)

	number := script.Calls[0]
	assert.Equal(t, "numberTest", number.Request.Name)
	require.Len(t, number.Request.Args, 2)
	assert.Equal(t, entities.KindNumber, number.Request.Args[1].Kind())
	require.NotNil(t, number.Expect)
	require.NotNil(t, number.Expect.Value)
	assert.True(t, entities.Number(1001.5).Equal(*number.Expect.Value))

	quoted := script.Calls[1]
	assert.Equal(t, entities.KindString, quoted.Request.Args[1].Kind())
	assert.Equal(t, "TYPE_MISMATCH", quoted.Expect.Error)
	assert.Nil(t, quoted.Expect.Value)

	object := script.Calls[2]
	want := entities.Object(map[string]entities.Value{"key": entities.Number(5)})
	assert.True(t, want.Equal(*object.Expect.Value))

	assert.Nil(t, script.Calls[3].Expect)
	assert.Empty(t, script.Calls[3].Request.Args)
}

func TestYamlScriptParser_ExpectNull(t *testing.T) {
	script, err := NewYamlScriptParser().Parse([]byte(`
calls:
  - name: nothing
    expect:
      value: null
`))
	require.NoError(t, err)
	require.NotNil(t, script.Calls[0].Expect.Value)
	assert.True(t, script.Calls[0].Expect.Value.IsUndefined())
}

func TestYamlScriptParser_Parallel(t *testing.T) {
	script, err := NewYamlScriptParser().Parse([]byte("parallel: 4\ncalls:\n  - name: noArgTest\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, script.Parallel)
}

func TestYamlScriptParser_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantField string
		wantMsg   string
	}{
		{name: "empty", input: "", wantField: "calls"},
		{name: "no calls", input: "constructor: [foo]\n", wantField: "scriptFile.calls"},
		{name: "missing name", input: "calls:\n  - args: [1]\n", wantField: "scriptFile.calls[0].name"},
		{name: "negative parallel", input: "parallel: -1\ncalls:\n  - name: f\n", wantField: "scriptFile.parallel"},
		{name: "unknown error code", input: "calls:\n  - name: f\n    expect:\n      error: OOPS\n", wantField: "scriptFile.calls[0].expect.error"},
		{name: "unknown key", input: "calls:\n  - name: f\n    argz: [1]\n", wantMsg: "argz"},
		{name: "both value and error", input: "calls:\n  - name: f\n    expect:\n      value: 1\n      error: TYPE_MISMATCH\n", wantMsg: "both value and error"},
		{name: "bad yaml", input: "calls: [", wantMsg: "failed to parse script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYamlScriptParser().Parse([]byte(tt.input))
			require.Error(t, err)
			if tt.wantField != "" {
				var cfgErr *domainerrors.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.wantField, cfgErr.Field)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}
