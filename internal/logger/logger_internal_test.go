package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/camsync/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	saved := log
	log = zerolog.New(&buf)
	t.Cleanup(func() { log = saved })

	err := errors.New().WithData(errors.ErrAlreadyRunning, "/run/camsync.pid")
	ErrorWithCode(err).Str("pid_file", "/run/camsync.pid").Msg("Failed to write PID file")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "already_running", line["error_code"])
	assert.Equal(t, err.Error(), line["error_message"])
	assert.Equal(t, "/run/camsync.pid", line["pid_file"])
}
