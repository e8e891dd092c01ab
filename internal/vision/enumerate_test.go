package vision_test

import (
	"testing"

	"codeberg.org/mutker/camsync/internal/vision"
	"codeberg.org/mutker/camsync/internal/vision/emulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateVirtualOnly(t *testing.T) {
	t.Setenv(vision.EmulatorEnv, "")

	enum := vision.NewEnumerator(emulator.NewTransportLayer())

	physical, virtual, err := enum.Enumerate(3)
	require.NoError(t, err)
	assert.Empty(t, physical)
	require.Len(t, virtual, 3)

	for i, info := range virtual {
		assert.True(t, vision.IsVirtual(info.SerialNumber))
		idx, ok := vision.VirtualIndex(info.SerialNumber)
		require.True(t, ok)
		assert.Equal(t, i, idx, "index derived from serial %s", info.SerialNumber)
	}
}

func TestEnumeratePhysicalFirst(t *testing.T) {
	t.Setenv(vision.EmulatorEnv, "")

	tl := emulator.NewTransportLayer()
	tl.Attach(emulator.NewDevice("40012345", vision.PhysicalClass))
	tl.Attach(emulator.NewDevice("40012346", vision.PhysicalClass))
	enum := vision.NewEnumerator(tl)

	all, err := enum.All(2)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "40012345", all[0].SerialNumber)
	assert.Equal(t, "40012346", all[1].SerialNumber)
	assert.Equal(t, "0815-0000", all[2].SerialNumber)
	assert.Equal(t, "0815-0001", all[3].SerialNumber)

	again, err := enum.All(2)
	require.NoError(t, err)
	assert.Equal(t, all, again, "repeated enumeration keeps positions stable")
}

func TestEnumerateWithoutVirtual(t *testing.T) {
	t.Setenv(vision.EmulatorEnv, "")

	tl := emulator.NewTransportLayer()
	tl.Attach(emulator.NewDevice("40012345", vision.PhysicalClass))

	physical, virtual, err := vision.NewEnumerator(tl).Enumerate(0)
	require.NoError(t, err)
	assert.Len(t, physical, 1)
	assert.Empty(t, virtual)
}

func TestOpenUnknownDevice(t *testing.T) {
	enum := vision.NewEnumerator(emulator.NewTransportLayer())

	_, err := enum.Open(vision.DeviceInfo{SerialNumber: "nope"})
	require.Error(t, err)
}

func TestVirtualIndex(t *testing.T) {
	idx, ok := vision.VirtualIndex("0815-0007")
	assert.True(t, ok)
	assert.Equal(t, 7, idx)

	_, ok = vision.VirtualIndex("40012345")
	assert.False(t, ok)
}
