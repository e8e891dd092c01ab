package sysutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRaiseFileLimitNeverLowers(t *testing.T) {
	var before unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_NOFILE, &before))

	got, err := RaiseFileLimit(1)
	require.NoError(t, err)
	assert.Equal(t, before.Cur, got)
}

func TestRaiseFileLimitCapsAtHard(t *testing.T) {
	var before unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_NOFILE, &before))

	got, err := RaiseFileLimit(before.Max)
	require.NoError(t, err)
	assert.Equal(t, before.Max, got)
	assert.GreaterOrEqual(t, got, before.Cur)
}
