package asset

import (
	"fmt"
	"sync"
)

// ID identifies a loaded asset within its typed store.
//
// The Index is a dense slot number and the Gen a per-slot generation.
// When a slot is recycled after removal its generation is bumped, so an
// ID held by a stale weak handle never compares equal to the new
// occupant's ID. A hot reload replaces the value under the same ID; it
// does not touch the generation (see Assets.Version for the reload
// counter).
type ID struct {
	Index uint32 `json:"index"`
	Gen   uint32 `json:"gen"`
}

// IsZero reports whether the ID is the zero value, which is never a
// valid asset ID (allocation starts at index 1).
func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Index, id.Gen)
}

// IDAllocator hands out process-unique IDs. Freed IDs return to a pool
// and are recycled with an incremented generation.
type IDAllocator struct {
	mu   sync.Mutex
	next uint32
	free []ID
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Alloc returns a fresh ID that compares unequal to every ID previously
// returned by this allocator, including freed ones.
func (a *IDAllocator) Alloc() ID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		id.Gen++
		return id
	}
	a.next++
	return ID{Index: a.next, Gen: 1}
}

// Free returns an ID to the pool. The caller must guarantee no live
// strong handle refers to it; weak handles are fine, the generation bump
// on reuse keeps them from aliasing.
func (a *IDAllocator) Free(id ID) {
	if id.IsZero() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, id)
}
