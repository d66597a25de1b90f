package asset_test

import (
	"sync"
	"testing"

	"asset-pipeline/core/asset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrongHandleRefCounting(t *testing.T) {
	refs := asset.NewRefCounts()
	id := asset.ID{Index: 1, Gen: 1}

	h := asset.NewStrong(id, asset.NewPath("a.png"), refs)
	assert.Equal(t, 1, refs.Count(id))

	clone := h.Clone()
	assert.Equal(t, 2, refs.Count(id))

	h.Release()
	assert.Equal(t, 1, refs.Count(id))
	assert.Empty(t, refs.TakeDrops(), "asset still referenced")

	clone.Release()
	assert.Equal(t, 0, refs.Count(id))

	// Removal is deferred: the drop is queued, not executed.
	drops := refs.TakeDrops()
	require.Len(t, drops, 1)
	assert.Equal(t, id, drops[0])
}

func TestReleaseIsIdempotent(t *testing.T) {
	refs := asset.NewRefCounts()
	id := asset.ID{Index: 2, Gen: 1}

	h := asset.NewStrong(id, asset.Path{}, refs)
	other := h.Clone()

	h.Release()
	h.Release()
	h.Release()
	assert.Equal(t, 1, refs.Count(id), "double release must not steal the clone's reference")
	other.Release()
}

func TestWeakHandleHoldsNoReference(t *testing.T) {
	refs := asset.NewRefCounts()
	id := asset.ID{Index: 3, Gen: 1}

	strong := asset.NewStrong(id, asset.Path{}, refs)
	weak := strong.Weak()
	assert.False(t, weak.IsStrong())
	assert.Equal(t, 1, refs.Count(id))

	weak.Release() // no-op
	assert.Equal(t, 1, refs.Count(id))

	wc := weak.Clone()
	assert.False(t, wc.IsStrong())
	assert.Equal(t, 1, refs.Count(id))

	strong.Release()
	assert.Len(t, refs.TakeDrops(), 1)
}

func TestReacquireCancelsDrop(t *testing.T) {
	refs := asset.NewRefCounts()
	id := asset.ID{Index: 4, Gen: 1}

	h := asset.NewStrong(id, asset.Path{}, refs)
	h.Release()

	// A fresh strong handle taken before the drop queue is processed
	// resurrects the asset.
	h2 := asset.NewStrong(id, asset.Path{}, refs)
	assert.Empty(t, refs.TakeDrops())
	assert.Equal(t, 1, refs.Count(id))
	h2.Release()
}

func TestConcurrentCloneRelease(t *testing.T) {
	refs := asset.NewRefCounts()
	id := asset.ID{Index: 5, Gen: 1}
	root := asset.NewStrong(id, asset.Path{}, refs)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := root.Clone()
				c.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, refs.Count(id))
	assert.Empty(t, refs.TakeDrops(), "root still holds its reference")
	root.Release()
	assert.Len(t, refs.TakeDrops(), 1)
}
