package meta_test

import (
	"context"
	"errors"
	"testing"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/meta"
	"asset-pipeline/core/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*meta.Store, *source.FileIO) {
	t.Helper()
	io, err := source.NewFileIO(t.TempDir())
	require.NoError(t, err)
	reg := source.NewRegistry()
	reg.Add(asset.DefaultSource, io)
	return meta.NewStore(reg, zap.NewNop()), io
}

func TestFingerprint(t *testing.T) {
	a := meta.Fingerprint([]byte("hello"))
	b := meta.Fingerprint([]byte("hello"))
	c := meta.Fingerprint([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64, "hex-encoded 256-bit digest")
}

func TestMetaPath(t *testing.T) {
	p := meta.MetaPath(asset.ParsePath("models/chair.gltf#mesh0"))
	assert.Equal(t, "models/chair.gltf.meta", p.Path)
	assert.Empty(t, p.Label)
}

func TestPutGetRoundTrip(t *testing.T) {
	io, err := source.NewFileIO(t.TempDir())
	require.NoError(t, err)
	reg := source.NewRegistry()
	reg.Add(asset.DefaultSource, io)
	store := meta.NewStore(reg, zap.NewNop())

	ctx := context.Background()
	p := asset.ParsePath("scene.json")

	in := &meta.SourceMeta{
		Fingerprint: meta.Fingerprint([]byte("scene-bytes")),
		Produced: []meta.ProducedAsset{
			{ID: asset.ID{Index: 1, Gen: 1}, Dependencies: []string{"tex1.png", "tex2.png"}},
			{ID: asset.ID{Index: 2, Gen: 1}, Label: "mesh0"},
		},
	}
	require.NoError(t, store.Put(ctx, p, in))

	// A second store over the same registry has a cold cache, forcing
	// the sidecar read path.
	store2 := meta.NewStore(reg, zap.NewNop())
	out, err := store2.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, in.Fingerprint, out.Fingerprint)
	require.Len(t, out.Produced, 2)
	assert.Equal(t, []string{"tex1.png", "tex2.png"}, out.Produced[0].Dependencies)

	pa, ok := out.Asset("mesh0")
	require.True(t, ok)
	assert.Equal(t, asset.ID{Index: 2, Gen: 1}, pa.ID)
}

func TestGetMissing(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Get(context.Background(), asset.ParsePath("never-imported.png"))
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestGetOrImportSkipsUnchanged(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	p := asset.ParsePath("wood.png")
	data := []byte("pixels")

	calls := 0
	importFn := func() (*meta.SourceMeta, error) {
		calls++
		return &meta.SourceMeta{
			Produced: []meta.ProducedAsset{{ID: asset.ID{Index: 1, Gen: 1}}},
		}, nil
	}

	m, imported, err := store.GetOrImport(ctx, p, data, importFn)
	require.NoError(t, err)
	assert.True(t, imported)
	assert.Equal(t, 1, calls)
	assert.Equal(t, meta.Fingerprint(data), m.Fingerprint)

	// Same bytes: cached record, loader not re-invoked.
	m2, imported, err := store.GetOrImport(ctx, p, data, importFn)
	require.NoError(t, err)
	assert.False(t, imported)
	assert.Equal(t, 1, calls)
	assert.Equal(t, m, m2)

	// Changed bytes: re-import.
	_, imported, err = store.GetOrImport(ctx, p, []byte("new pixels"), importFn)
	require.NoError(t, err)
	assert.True(t, imported)
	assert.Equal(t, 2, calls)
}

func TestGetOrImportFailureLeavesRecordIntact(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	p := asset.ParsePath("wood.png")

	_, _, err := store.GetOrImport(ctx, p, []byte("v1"), func() (*meta.SourceMeta, error) {
		return &meta.SourceMeta{Produced: []meta.ProducedAsset{{ID: asset.ID{Index: 1, Gen: 1}}}}, nil
	})
	require.NoError(t, err)

	importErr := errors.New("loader exploded")
	_, imported, err := store.GetOrImport(ctx, p, []byte("v2"), func() (*meta.SourceMeta, error) {
		return nil, importErr
	})
	assert.True(t, imported)
	assert.ErrorIs(t, err, importErr)

	// The previously persisted record is untouched.
	m, err := store.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, meta.Fingerprint([]byte("v1")), m.Fingerprint)
}

type upperDeriver struct{}

func (upperDeriver) Name() string { return "upper" }

func (upperDeriver) Derive(_ context.Context, value any) (any, error) {
	s := value.(string)
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out), nil
}

func TestDerivers(t *testing.T) {
	ctx := context.Background()

	t.Run("Passthrough", func(t *testing.T) {
		d := meta.NewDerivers()
		v, name, err := d.Apply(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, name)
		assert.Equal(t, 42, v)
	})

	t.Run("Registered", func(t *testing.T) {
		d := meta.NewDerivers()
		meta.RegisterFor[string](d, upperDeriver{})
		v, name, err := d.Apply(ctx, "mesh")
		require.NoError(t, err)
		assert.Equal(t, "upper", name)
		assert.Equal(t, "MESH", v)
	})
}
