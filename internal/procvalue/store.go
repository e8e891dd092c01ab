// Package procvalue holds the latest reading of each process-value channel
// published by the printer and motion controllers.
package procvalue

import (
	"sync"
	"time"
)

// Key names a channel.
type Key string

const (
	CartridgeTempSet Key = "TCS"
	CartridgeTempAct Key = "TCA"
	RingTempSet      Key = "TRS"
	RingTempAct      Key = "TRA"
	PressureSet      Key = "PS"
	PressureAct      Key = "PA"
	HighVoltageSet   Key = "HVS"
	HighVoltageAct   Key = "HVA"
	Speed            Key = "S"
)

// FailValue marks a channel whose last message could not be decoded.
const FailValue = -1.0

// Keys lists every channel in display order.
var Keys = []Key{
	CartridgeTempSet, CartridgeTempAct,
	RingTempSet, RingTempAct,
	PressureSet, PressureAct,
	HighVoltageSet, HighVoltageAct,
	Speed,
}

// Valid reports whether k is a known channel.
func (k Key) Valid() bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}

	return false
}

// Store is safe for concurrent use. Readers never wait on broker I/O.
type Store struct {
	mu      sync.RWMutex
	values  map[Key]float64
	updated map[Key]time.Time
	now     func() time.Time
}

func NewStore() *Store {
	s := &Store{
		values:  make(map[Key]float64, len(Keys)),
		updated: make(map[Key]time.Time, len(Keys)),
		now:     time.Now,
	}
	for _, k := range Keys {
		s.values[k] = 0
	}

	return s
}

// Get returns the latest value of k. ok is false for unknown keys.
func (s *Store) Get(k Key) (value float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok = s.values[k]

	return value, ok
}

// Set stores v for k. Unknown keys are ignored and reported false.
func (s *Store) Set(k Key, v float64) bool {
	if !k.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[k] = v
	s.updated[k] = s.now()

	return true
}

// Fail marks k with FailValue.
func (s *Store) Fail(k Key) bool {
	return s.Set(k, FailValue)
}

// UpdatedAt returns when k was last written; the zero time if never.
func (s *Store) UpdatedAt(k Key) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated[k]
}

// Snapshot copies every channel's latest value.
func (s *Store) Snapshot() map[Key]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Key]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}
