package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminalRejectsNonTerminals(t *testing.T) {
	t.Parallel()
	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer func() {
		_ = devNull.Close()
	}()
	assert.False(t, isTerminal(devNull), "%s is a character device but not a terminal", os.DevNull)

	reader, writer, err := os.Pipe()
	require.NoError(t, err)
	defer func() {
		_ = reader.Close()
		_ = writer.Close()
	}()
	assert.False(t, isTerminal(writer))

	file, err := os.Create(filepath.Join(t.TempDir(), "stderr.log"))
	require.NoError(t, err)
	defer func() {
		_ = file.Close()
	}()
	assert.False(t, isTerminal(file))
}
