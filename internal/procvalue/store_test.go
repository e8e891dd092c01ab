package procvalue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreStartsAtZero(t *testing.T) {
	s := NewStore()

	snap := s.Snapshot()
	require.Len(t, snap, len(Keys))
	for _, k := range Keys {
		assert.Zero(t, snap[k], k)
		assert.True(t, s.UpdatedAt(k).IsZero())
	}
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	assert.True(t, s.Set(PressureAct, 2.5))
	v, ok := s.Get(PressureAct)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
	assert.Equal(t, at, s.UpdatedAt(PressureAct))

	assert.True(t, s.Fail(Speed))
	v, _ = s.Get(Speed)
	assert.Equal(t, FailValue, v)

	assert.False(t, s.Set("XYZ", 1))
	_, ok = s.Get("XYZ")
	assert.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	snap[Speed] = 99

	v, _ := s.Get(Speed)
	assert.Zero(t, v)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(Keys[(i+j)%len(Keys)], float64(j))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
}
