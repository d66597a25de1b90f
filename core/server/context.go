package server

import (
	"context"
	"fmt"

	"asset-pipeline/core/asset"
)

// LoadedAsset is one value a loader produced, with the label it was
// produced under and the paths it depends on.
type LoadedAsset struct {
	Label        string
	Value        any
	Dependencies []asset.Dependency
}

// LoadContext is handed to a loader while it parses one source. It
// exposes the source path and bytes, collects the produced values, and
// allows nested raw reads (e.g. a scene format referencing a sibling
// buffer file it does not want loaded as an asset).
type LoadContext struct {
	ctx    context.Context
	server *Server
	path   asset.Path
	data   []byte

	assets []LoadedAsset
	labels map[string]struct{}
}

func newLoadContext(ctx context.Context, s *Server, path asset.Path, data []byte) *LoadContext {
	return &LoadContext{
		ctx:    ctx,
		server: s,
		path:   path,
		data:   data,
		labels: make(map[string]struct{}),
	}
}

// Path returns the source path being loaded, without label.
func (lc *LoadContext) Path() asset.Path {
	return lc.path
}

// Bytes returns the raw source bytes.
func (lc *LoadContext) Bytes() []byte {
	return lc.data
}

// SetDefault records the source's default (unlabeled) asset value and
// its dependencies.
func (lc *LoadContext) SetDefault(value any, deps ...asset.Dependency) error {
	return lc.SetLabeled("", value, deps...)
}

// SetLabeled records a labeled sub-asset. Each label, including the
// empty default, may be produced once per load.
func (lc *LoadContext) SetLabeled(label string, value any, deps ...asset.Dependency) error {
	if _, dup := lc.labels[label]; dup {
		return fmt.Errorf("label %q on %q: %w", label, lc.path, asset.ErrDuplicateAssetID)
	}
	lc.labels[label] = struct{}{}
	lc.assets = append(lc.assets, LoadedAsset{Label: label, Value: value, Dependencies: deps})
	return nil
}

// ReadPath reads raw bytes of another path through the server's source
// registry, without creating an asset. Dependencies that should be
// loaded, tracked and hot-reloaded belong in SetDefault/SetLabeled
// instead.
func (lc *LoadContext) ReadPath(p asset.Path) ([]byte, error) {
	return lc.server.sources.Read(lc.ctx, p)
}
