package camera

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/camsync/internal/errors"
)

type registration struct {
	name   string
	holder int
}

// Registry is the set of names assigned to connected cameras. One Registry is
// shared by every Device of an array; it is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries []registration

	// connect is held from index selection to Register.
	connect sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Len returns the number of registered names, which is also the index the next
// connecting device receives.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// lockConnect serializes device connects and returns the unlock func.
func (r *Registry) lockConnect() func() {
	r.connect.Lock()
	return r.connect.Unlock
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}

	return names
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(name) >= 0
}

// Register assigns name to the device with index idx. A taken name is
// suffixed with the index; if the suffixed form is taken as well, Register
// fails with ErrNameConflict.
func (r *Registry) Register(name string, idx int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	assigned, err := r.resolve(name, idx)
	if err != nil {
		return "", err
	}
	r.entries = append(r.entries, registration{name: assigned, holder: idx})

	return assigned, nil
}

// Rename replaces current with proposed (or its suffixed form) atomically.
// Renaming to the name already held, directly or in suffixed form, is a no-op.
func (r *Registry) Rename(current, proposed string, idx int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if proposed == current || current == suffixed(proposed, idx) {
		return current, nil
	}

	pos := r.find(current)
	if pos < 0 {
		return "", errors.New().WithData(errors.ErrInvalidState, fmt.Sprintf("camera name %q is not registered", current))
	}

	assigned, err := r.resolve(proposed, idx)
	if err != nil {
		return "", err
	}
	r.entries[pos].name = assigned

	return assigned, nil
}

// Release removes name from the registry. Unknown names are ignored.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos := r.find(name); pos >= 0 {
		r.entries = append(r.entries[:pos], r.entries[pos+1:]...)
	}
}

// resolve picks the name to assign. Callers hold r.mu.
func (r *Registry) resolve(name string, idx int) (string, error) {
	if r.find(name) < 0 {
		return name, nil
	}

	alt := suffixed(name, idx)
	if pos := r.find(alt); pos >= 0 {
		holder := r.entries[r.find(name)].holder
		return "", errors.New().WithData(ErrNameConflict,
			fmt.Sprintf("a camera named %q already exists (index %d), and %q is taken by index %d",
				name, holder, alt, r.entries[pos].holder))
	}

	return alt, nil
}

func (r *Registry) find(name string) int {
	for i, e := range r.entries {
		if e.name == name {
			return i
		}
	}

	return -1
}

func suffixed(name string, idx int) string {
	return fmt.Sprintf("%s_%d", name, idx)
}
