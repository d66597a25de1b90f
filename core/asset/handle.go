package asset

import (
	"sync"
	"sync/atomic"
)

// refSink receives reference-count changes from strong handles.
// RefCounts is the production implementation; the indirection keeps
// handles free of any store or server dependency.
type refSink interface {
	Incref(ID)
	Decref(ID)
}

// Handle is an ownership token over an asset ID. It carries no pointer
// to the value; holders resolve through the typed store, so a handle
// can never dangle.
//
// Strong handles participate in reference counting: the asset stays
// retained while at least one strong handle is live. Weak handles only
// observe and resolve to absent once the asset is removed.
type Handle struct {
	id       ID
	path     Path
	strong   bool
	sink     refSink
	released atomic.Bool
}

// NewStrong creates a strong handle and counts the reference. The
// caller owns the handle and must Release it.
func NewStrong(id ID, path Path, sink refSink) *Handle {
	sink.Incref(id)
	return &Handle{id: id, path: path, strong: true, sink: sink}
}

// NewWeak creates a weak handle. It holds no reference and needs no
// Release (calling Release is a harmless no-op).
func NewWeak(id ID, path Path) *Handle {
	return &Handle{id: id, path: path}
}

// ID returns the asset ID this handle refers to.
func (h *Handle) ID() ID {
	return h.id
}

// Path returns the asset path the handle was created for, when known.
func (h *Handle) Path() Path {
	return h.path
}

// IsStrong reports whether the handle holds a counted reference.
func (h *Handle) IsStrong() bool {
	return h.strong
}

// Clone returns a new handle over the same ID. Cloning a strong handle
// increments the refcount; cloning a weak one is free.
func (h *Handle) Clone() *Handle {
	if h.strong {
		return NewStrong(h.id, h.path, h.sink)
	}
	return NewWeak(h.id, h.path)
}

// Weak returns a weak handle over the same ID.
func (h *Handle) Weak() *Handle {
	return NewWeak(h.id, h.path)
}

// Release drops the handle's reference. Safe to call more than once;
// only the first call decrements. Dropping the last strong reference
// enqueues the ID for deferred removal, it never removes the value
// inline.
func (h *Handle) Release() {
	if !h.strong || h.released.Swap(true) {
		return
	}
	h.sink.Decref(h.id)
}

// RefCounts tracks strong reference counts per asset ID and queues IDs
// whose count reached zero. Removal happens when the owner calls
// TakeDrops at its synchronization point, keeping eviction ordered
// with respect to consumer reads.
type RefCounts struct {
	mu     sync.Mutex
	counts map[ID]int
	drops  []ID
}

func NewRefCounts() *RefCounts {
	return &RefCounts{counts: make(map[ID]int)}
}

// Incref increments the strong count for id.
func (r *RefCounts) Incref(id ID) {
	r.mu.Lock()
	r.counts[id]++
	r.mu.Unlock()
}

// Decref decrements the strong count for id, queuing it for removal
// when the count reaches zero.
func (r *RefCounts) Decref(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id]--
	if r.counts[id] <= 0 {
		delete(r.counts, id)
		r.drops = append(r.drops, id)
	}
}

// Count returns the current strong count for id.
func (r *RefCounts) Count(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

// TakeDrops empties the drop queue and returns the IDs whose count is
// still zero. An ID that was re-acquired between the drop and this call
// is skipped: a fresh strong handle resurrects the asset.
func (r *RefCounts) TakeDrops() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ID
	for _, id := range r.drops {
		if r.counts[id] == 0 {
			out = append(out, id)
		}
	}
	r.drops = nil
	return out
}
