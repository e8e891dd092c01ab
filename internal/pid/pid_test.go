package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/camsync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camsync.pid")

	require.NoError(t, Write(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	require.NoError(t, Remove(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, Remove(path))
}

func TestWriteLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camsync.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := Write(path)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteStaleFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "garbled", content: "not a pid"},
		{name: "own pid", content: strconv.Itoa(os.Getpid())},
		{name: "negative", content: "-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "camsync.pid")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			assert.NoError(t, Write(path))
		})
	}
}
