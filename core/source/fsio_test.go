package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileIO(t *testing.T) (*source.FileIO, string) {
	t.Helper()
	dir := t.TempDir()
	io, err := source.NewFileIO(dir)
	require.NoError(t, err)
	return io, dir
}

func TestNewFileIO(t *testing.T) {
	t.Run("MissingRoot", func(t *testing.T) {
		_, err := source.NewFileIO(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("RootIsFile", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		_, err := source.NewFileIO(file)
		assert.Error(t, err)
	})
}

func TestFileIOReadWrite(t *testing.T) {
	io, _ := newFileIO(t)
	ctx := context.Background()

	require.NoError(t, io.Write(ctx, "textures/wood.png", []byte("pixels")))

	data, err := io.Read(ctx, "textures/wood.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)
}

func TestFileIOReadNotFound(t *testing.T) {
	io, _ := newFileIO(t)
	_, err := io.Read(context.Background(), "missing.png")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestFileIORejectsTraversal(t *testing.T) {
	io, _ := newFileIO(t)
	_, err := io.Read(context.Background(), "../outside")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, source.ErrNotFound)
}

func TestFileIOList(t *testing.T) {
	io, _ := newFileIO(t)
	ctx := context.Background()

	require.NoError(t, io.Write(ctx, "a.png", []byte("a")))
	require.NoError(t, io.Write(ctx, "sub/b.png", []byte("b")))

	entries, err := io.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byPath := map[string]bool{}
	for _, e := range entries {
		byPath[e.Path] = e.Dir
	}
	assert.False(t, byPath["a.png"])
	assert.True(t, byPath["sub"])

	sub, err := io.List(ctx, "sub")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, "sub/b.png", sub[0].Path)
}

func TestFileIOWatch(t *testing.T) {
	io, _ := newFileIO(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := io.Watch(ctx)
	require.NoError(t, err)

	// Two rapid writes to the same file debounce into one event.
	require.NoError(t, io.Write(ctx, "scene.json", []byte("v1")))
	require.NoError(t, io.Write(ctx, "scene.json", []byte("v2")))

	select {
	case ev := <-events:
		assert.Equal(t, "scene.json", ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("no watch event received")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected second event for %q", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "channel must close on cancel")
	case <-time.After(3 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestRegistry(t *testing.T) {
	io, _ := newFileIO(t)
	reg := source.NewRegistry()
	reg.Add(asset.DefaultSource, io)
	ctx := context.Background()

	require.NoError(t, io.Write(ctx, "a.txt", []byte("hello")))

	data, err := reg.Read(ctx, asset.ParsePath("a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = reg.Read(ctx, asset.ParsePath("remote://a.txt"))
	assert.Error(t, err)

	require.NoError(t, reg.Write(ctx, asset.ParsePath("b.txt"), []byte("world")))
	data, err = io.Read(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), data)
}

type readOnly struct{}

func (readOnly) Read(context.Context, string) ([]byte, error) { return nil, source.ErrNotFound }

func TestRegistryWriteReadOnlySource(t *testing.T) {
	reg := source.NewRegistry()
	reg.Add("ro", readOnly{})
	err := reg.Write(context.Background(), asset.ParsePath("ro://x"), []byte("x"))
	assert.ErrorContains(t, err, "read-only")
}
