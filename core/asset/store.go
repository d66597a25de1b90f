package asset

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Lifecycle is the untyped face of a typed store. The server holds one
// per registered asset type and routes parsed values, reload
// replacements and refcount-driven removals through it without knowing
// the concrete type.
type Lifecycle interface {
	// TypeTag is the stable tag the store was registered under.
	TypeTag() uuid.UUID
	// ValueType is the Go type of the stored values.
	ValueType() reflect.Type
	// Commit inserts value under id, or replaces the existing value in
	// place (same ID, version incremented). Fails if the value is not
	// of the store's type.
	Commit(id ID, path Path, value any) error
	// Drop removes the value under id, reporting whether it existed.
	Drop(id ID) bool
}

type entry[T any] struct {
	value   T
	path    Path
	state   LoadState
	version uint32
}

// Assets is the typed table from ID to asset value. At most one live
// value exists per ID; a hot reload replaces the value under the same
// ID and bumps its version.
//
// Remove is only ever called by the drop-queue processor, never
// directly from a released handle.
type Assets[T any] struct {
	mu      sync.RWMutex
	entries map[ID]*entry[T]
	tag     uuid.UUID
	events  *EventQueue
}

// NewAssets creates a typed store identified by the given type tag.
// Events for inserts, replacements and removals are pushed to events,
// which may be shared across stores.
func NewAssets[T any](tag uuid.UUID, events *EventQueue) *Assets[T] {
	return &Assets[T]{
		entries: make(map[ID]*entry[T]),
		tag:     tag,
		events:  events,
	}
}

func (a *Assets[T]) TypeTag() uuid.UUID {
	return a.tag
}

func (a *Assets[T]) ValueType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Get returns the value under id. The second result is false when the
// ID is absent, which is how a weak handle observes removal.
func (a *Assets[T]) Get(id ID) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.entries[id]; ok {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Resolve returns the value behind a handle, or false when the asset
// is gone. Stale weak handles land here: a recycled slot carries a new
// generation, so their old ID is simply absent.
func (a *Assets[T]) Resolve(h *Handle) (T, bool) {
	return a.Get(h.ID())
}

// Insert stores value under id and emits an Added event. Inserting
// over an existing ID replaces it (Modified), matching Commit.
func (a *Assets[T]) Insert(id ID, path Path, value T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(id, path, value)
}

// Commit implements Lifecycle.
func (a *Assets[T]) Commit(id ID, path Path, value any) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf("store %s: value type %T does not match %s: %w",
			a.tag, value, a.ValueType(), ErrNoStore)
	}
	a.Insert(id, path, v)
	return nil
}

func (a *Assets[T]) set(id ID, path Path, value T) {
	if e, ok := a.entries[id]; ok {
		e.value = value
		e.path = path
		e.version++
		e.state = StateLoaded
		a.events.Push(Event{Kind: EventModified, ID: id, Path: path, Version: e.version})
		return
	}
	a.entries[id] = &entry[T]{value: value, path: path, state: StateLoaded, version: 1}
	a.events.Push(Event{Kind: EventAdded, ID: id, Path: path, Version: 1})
}

// Mutate applies fn to the value under id in place. The mutation bumps
// the version and emits a Modified event, same as a reload replacement.
// Returns false when the id is absent.
func (a *Assets[T]) Mutate(id ID, fn func(*T)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[id]
	if !ok {
		return false
	}
	fn(&e.value)
	e.version++
	a.events.Push(Event{Kind: EventModified, ID: id, Path: e.path, Version: e.version})
	return true
}

// Drop implements Lifecycle.
func (a *Assets[T]) Drop(id ID) bool {
	return a.Remove(id)
}

// Remove deletes the value under id and emits a Removed event.
func (a *Assets[T]) Remove(id ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[id]
	if !ok {
		return false
	}
	delete(a.entries, id)
	e.state = StateUnloaded
	a.events.Push(Event{Kind: EventRemoved, ID: id, Path: e.path, Version: e.version})
	return true
}

// Version returns the replacement counter for id: 1 after first insert,
// incremented on every in-place replacement. 0 when absent.
func (a *Assets[T]) Version(id ID) uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.entries[id]; ok {
		return e.version
	}
	return 0
}

// Len returns the number of live values.
func (a *Assets[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// IDs returns the IDs of all live values, in no particular order.
func (a *Assets[T]) IDs() []ID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]ID, 0, len(a.entries))
	for id := range a.entries {
		ids = append(ids, id)
	}
	return ids
}
