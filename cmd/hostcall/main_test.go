package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/internal/testutil"
	"github.com/reglet-dev/hostcall/marshal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func invoke(t *testing.T, args ...string) result {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"bad log level", []string{"-log-level", "loud", "demo"}},
		{"bad log format", []string{"-log-format", "xml", "demo"}},
		{"run without file", []string{"run"}},
		{"demo with args", []string{"demo", "extra"}},
		{"conflicting schema flags", []string{"schema", "-script", "-request"}},
		{"wasm without guest", []string{"wasm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := invoke(t, tt.args...)
			assert.Equal(t, exitUsage, res.code)
			assert.NotEmpty(t, res.stderr)
		})
	}
}

func TestRun_Demo(t *testing.T) {
	res := invoke(t, "demo")
	require.Equal(t, exitOK, res.code, res.stderr)

	assert.Contains(t, res.stdout, `noArgTest(5) = "foo"`)
	assert.Contains(t, res.stdout, `numberTest(1.5, 1000) = 1001.5`)
	assert.Contains(t, res.stdout, `numberTest(1.5, "1000") ! TYPE_MISMATCH`)
	assert.Contains(t, res.stdout, `stringTest("a", "b", "c") = "fooabc"`)
	assert.Contains(t, res.stdout, `stringTest("a", "b") ! ARITY_MISMATCH`)
	assert.Contains(t, res.stdout, `objectTest("key", 5) = {"key":5}`)
	assert.NotContains(t, res.stdout, "FAIL")
}

func TestRun_Script(t *testing.T) {
	path := writeFile(t, "script.yaml", []byte(`
constructor: [bar]
calls:
  - name: noArgTest
    expect: {value: foo}
  - name: stringTest
    args: [x, y, z]
    expect: {value: barxyz}
`))

	res := invoke(t, "run", "-parallel", "2", path)
	assert.Equal(t, exitFailed, res.code)
	assert.Contains(t, res.stdout, `noArgTest() = "bar"  [FAIL: expected foo, got bar]`)
	assert.Contains(t, res.stdout, `stringTest("x", "y", "z") = "barxyz"`)
	assert.Contains(t, res.stderr, "1 of 2 expectations failed")
}

func TestRun_ScriptErrors(t *testing.T) {
	res := invoke(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitFailed, res.code)
	assert.Contains(t, res.stderr, "failed to read script")

	res = invoke(t, "run", writeFile(t, "bad.yaml", []byte("calls: []\n")))
	assert.Equal(t, exitFailed, res.code)
	assert.Contains(t, res.stderr, "invalid script")

	res = invoke(t, "run", writeFile(t, "ctor.yaml", []byte("constructor: [1]\ncalls:\n  - name: noArgTest\n")))
	assert.Equal(t, exitFailed, res.code)
	assert.Contains(t, res.stderr, "script failed")
}

func TestRun_Schema(t *testing.T) {
	res := invoke(t, "schema")
	require.Equal(t, exitOK, res.code, res.stderr)
	for _, name := range []string{"noArgTest", "numberTest", "stringTest", "objectTest", "prefixItems"} {
		assert.Contains(t, res.stdout, name)
	}

	res = invoke(t, "schema", "-script")
	require.Equal(t, exitOK, res.code)
	assert.Contains(t, res.stdout, "hostcall script")

	res = invoke(t, "schema", "-request")
	require.Equal(t, exitOK, res.code)
	assert.Contains(t, res.stdout, `"args"`)
}

func TestRun_Wasm(t *testing.T) {
	guest := writeFile(t, "reporter.wasm", testutil.ForwardingGuestWasm)

	payload, err := marshal.EncodeCall(context.Background(), "stringTest",
		entities.String("a"), entities.String("b"), entities.String("c"))
	require.NoError(t, err)
	input := writeFile(t, "input.json", payload)

	t.Run("granted", func(t *testing.T) {
		grants := writeFile(t, "grants.yaml", []byte("reporter: [stringTest]\n"))

		res := invoke(t, "wasm", "-grants", grants, "-input", input, "-export", "invoke", "-ctor", "baz", guest)
		require.Equal(t, exitOK, res.code, res.stderr)

		v := testutil.RequireValueResponse(t, []byte(strings.TrimSpace(res.stdout)))
		testutil.AssertValue(t, entities.String("bazabc"), v)
	})

	t.Run("denied without a terminal", func(t *testing.T) {
		grants := filepath.Join(t.TempDir(), "grants.yaml")

		res := invoke(t, "wasm", "-grants", grants, "-input", input, "-export", "invoke", guest)
		require.Equal(t, exitOK, res.code, res.stderr)
		testutil.RequireErrorResponse(t, []byte(strings.TrimSpace(res.stdout)), "FORBIDDEN")
		assert.Contains(t, res.stderr, "call denied")
		assert.Contains(t, res.stderr, grants)
	})

	t.Run("missing export", func(t *testing.T) {
		res := invoke(t, "wasm", "-grants", filepath.Join(t.TempDir(), "g.yaml"), "-export", "describe", guest)
		assert.Equal(t, exitFailed, res.code)
		assert.Contains(t, res.stderr, "guest call failed")
	})
}
