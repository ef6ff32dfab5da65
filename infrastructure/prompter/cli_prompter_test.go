package prompter_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/reglet-dev/hostcall/infrastructure/prompter"
	hostwazero "github.com/reglet-dev/hostcall/infrastructure/wazero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliPrompter_PromptForCall(t *testing.T) {
	t.Run("Grant", func(t *testing.T) {
		out := &bytes.Buffer{}
		p := prompter.NewCliPrompter(bytes.NewBufferString("y\n"), out)

		granted, always, err := p.PromptForCall("reporter", "numberTest")
		require.NoError(t, err)
		assert.True(t, granted)
		assert.False(t, always)
		assert.Contains(t, out.String(), `Guest "reporter" wants to call "numberTest"`)
	})

	t.Run("Grant Always", func(t *testing.T) {
		p := prompter.NewCliPrompter(bytes.NewBufferString("always\n"), &bytes.Buffer{})

		granted, always, err := p.PromptForCall("reporter", "numberTest")
		require.NoError(t, err)
		assert.True(t, granted)
		assert.True(t, always)
	})

	t.Run("Deny", func(t *testing.T) {
		p := prompter.NewCliPrompter(bytes.NewBufferString("n\n"), &bytes.Buffer{})

		granted, always, err := p.PromptForCall("reporter", "numberTest")
		require.NoError(t, err)
		assert.False(t, granted)
		assert.False(t, always)
	})

	t.Run("EOF", func(t *testing.T) {
		p := prompter.NewCliPrompter(bytes.NewBufferString(""), &bytes.Buffer{})

		_, _, err := p.PromptForCall("reporter", "numberTest")
		assert.True(t, errors.Is(err, io.EOF))
	})
}

func TestCliPrompter_IsInteractive(t *testing.T) {
	p := prompter.NewCliPrompter(bytes.NewBufferString(""), &bytes.Buffer{})
	assert.False(t, p.IsInteractive())
}

type memorySaver struct {
	saved hostwazero.AllowList
}

func (m *memorySaver) Save(l hostwazero.AllowList) error {
	m.saved = l
	return nil
}

func TestPolicy(t *testing.T) {
	// One answer per prompt: deny, then always.
	in := bytes.NewBufferString("n\nalways\n")
	out := &bytes.Buffer{}
	saver := &memorySaver{}
	pol := prompter.NewPolicy(hostwazero.AllowList{"reporter": {"noArgTest"}}, prompter.NewCliPrompter(in, out), saver)

	// Covered by stored grants: no prompt.
	require.NoError(t, pol.Allow("reporter", "noArgTest"))
	assert.Empty(t, out.String())

	err := pol.Allow("reporter", "numberTest")
	var denied *domainerrors.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	require.NoError(t, pol.Allow("reporter", "stringTest"))
	require.NotNil(t, saver.saved)
	assert.Contains(t, saver.saved["reporter"], "stringTest")

	// Remembered: no further input needed.
	require.NoError(t, pol.Allow("reporter", "stringTest"))
}

type failingSaver struct{}

func (failingSaver) Save(hostwazero.AllowList) error {
	return errors.New("read-only file system")
}

func TestPolicy_SaveFailureStillGrants(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	pol := prompter.NewPolicy(nil,
		prompter.NewCliPrompter(bytes.NewBufferString("always\n"), &bytes.Buffer{}),
		failingSaver{}, prompter.WithLogger(logger))

	require.NoError(t, pol.Allow("reporter", "stringTest"))
	assert.Contains(t, logs.String(), "grant not saved")
	assert.Contains(t, logs.String(), "read-only file system")

	// Kept in memory: answered without another prompt.
	require.NoError(t, pol.Allow("reporter", "stringTest"))
}

func TestFormatNonInteractiveError(t *testing.T) {
	err := prompter.FormatNonInteractiveError("g", "op", "/tmp/grants.yaml")
	assert.Contains(t, err.Error(), "/tmp/grants.yaml")
}
