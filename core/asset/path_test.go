package asset_test

import (
	"testing"

	"asset-pipeline/core/asset"

	"github.com/stretchr/testify/assert"
)

func TestParsePath(t *testing.T) {
	t.Run("Bare", func(t *testing.T) {
		p := asset.ParsePath("textures/wood.png")
		assert.Equal(t, asset.DefaultSource, p.Source)
		assert.Equal(t, "textures/wood.png", p.Path)
		assert.Empty(t, p.Label)
	})

	t.Run("WithSource", func(t *testing.T) {
		p := asset.ParsePath("remote://models/chair.gltf")
		assert.Equal(t, "remote", p.Source)
		assert.Equal(t, "models/chair.gltf", p.Path)
	})

	t.Run("WithLabel", func(t *testing.T) {
		p := asset.ParsePath("models/chair.gltf#mesh0")
		assert.Equal(t, "models/chair.gltf", p.Path)
		assert.Equal(t, "mesh0", p.Label)
	})

	t.Run("SourceAndLabel", func(t *testing.T) {
		p := asset.ParsePath("remote://models/chair.gltf#mesh0")
		assert.Equal(t, "remote", p.Source)
		assert.Equal(t, "models/chair.gltf", p.Path)
		assert.Equal(t, "mesh0", p.Label)
	})
}

func TestPathString(t *testing.T) {
	cases := []string{
		"textures/wood.png",
		"remote://models/chair.gltf",
		"models/chair.gltf#mesh0",
		"remote://models/chair.gltf#mesh0",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			assert.Equal(t, s, asset.ParsePath(s).String())
		})
	}

	// Default source is elided in the string form.
	p := asset.Path{Source: asset.DefaultSource, Path: "a.png"}
	assert.Equal(t, "a.png", p.String())
}

func TestPathEquality(t *testing.T) {
	a := asset.ParsePath("models/chair.gltf#mesh0")
	b := asset.ParsePath("models/chair.gltf#mesh0")
	c := asset.ParsePath("models/chair.gltf#mesh1")
	d := asset.ParsePath("remote://models/chair.gltf#mesh0")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Equal(t, a.SourcePath(), c.SourcePath())
}

func TestPathExtension(t *testing.T) {
	assert.Equal(t, "png", asset.ParsePath("textures/wood.png").Extension())
	assert.Equal(t, "gltf", asset.ParsePath("chair.gltf#mesh0").Extension())
	assert.Empty(t, asset.ParsePath("no_extension").Extension())
}

func TestIDAllocator(t *testing.T) {
	alloc := asset.NewIDAllocator()

	a := alloc.Alloc()
	b := alloc.Alloc()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())

	// Recycled slots come back with a bumped generation, so the new ID
	// never aliases the freed one.
	alloc.Free(a)
	c := alloc.Alloc()
	assert.Equal(t, a.Index, c.Index)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a.Gen+1, c.Gen)
}
