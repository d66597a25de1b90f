package meta

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/source"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// ProducedAsset records one asset a source import produced: its stable
// ID, the label it was produced under, and the paths it depends on.
type ProducedAsset struct {
	ID           asset.ID `json:"id"`
	Label        string   `json:"label,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// DerivedArtifact records a precomputed artifact generated from the
// source, together with the source fingerprint it was derived from. A
// fingerprint mismatch on a later import invalidates the artifact.
type DerivedArtifact struct {
	Label             string `json:"label,omitempty"`
	Path              string `json:"path"`
	SourceFingerprint string `json:"source_fingerprint"`
}

// SourceMeta is the persisted record for one source: its content
// fingerprint, the assets it produced and any derived artifacts. It is
// stored as a JSON sidecar next to the source ("<path>.meta").
type SourceMeta struct {
	Fingerprint string            `json:"fingerprint"`
	Produced    []ProducedAsset   `json:"produced"`
	Derived     []DerivedArtifact `json:"derived,omitempty"`
}

// Asset returns the produced record for the given label, if any.
func (m *SourceMeta) Asset(label string) (*ProducedAsset, bool) {
	for i := range m.Produced {
		if m.Produced[i].Label == label {
			return &m.Produced[i], true
		}
	}
	return nil, false
}

// Fingerprint returns the hex BLAKE3 digest of the source bytes. This
// is the change-detection key: an unchanged fingerprint means the
// loader is not re-invoked.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MetaPath returns the sidecar path for a source path.
func MetaPath(p asset.Path) asset.Path {
	p = p.SourcePath()
	p.Path += ".meta"
	return p
}

// Store persists SourceMeta sidecars through the source registry's
// write capability and caches them in memory. The sidecar write
// inherits the Writer contract's atomic-replace semantics, so a crash
// mid-import never leaves a record referencing a partially-produced
// asset.
type Store struct {
	sources *source.Registry
	log     *zap.Logger

	mu    sync.RWMutex
	cache map[asset.Path]*SourceMeta
}

func NewStore(sources *source.Registry, log *zap.Logger) *Store {
	return &Store{
		sources: sources,
		log:     log,
		cache:   make(map[asset.Path]*SourceMeta),
	}
}

// Get returns the metadata for a source, from cache or its sidecar.
// Returns source.ErrNotFound (wrapped) when none has been persisted.
func (s *Store) Get(ctx context.Context, p asset.Path) (*SourceMeta, error) {
	p = p.SourcePath()

	s.mu.RLock()
	if m, ok := s.cache[p]; ok {
		s.mu.RUnlock()
		return m, nil
	}
	s.mu.RUnlock()

	data, err := s.sources.Read(ctx, MetaPath(p))
	if err != nil {
		return nil, fmt.Errorf("meta for %q: %w", p, err)
	}
	var m SourceMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("meta for %q is not valid json: %w", p, err)
	}

	s.mu.Lock()
	s.cache[p] = &m
	s.mu.Unlock()
	return &m, nil
}

// Put persists the metadata sidecar and updates the cache. The write
// is atomic; on failure the previously persisted record stays intact.
func (s *Store) Put(ctx context.Context, p asset.Path, m *SourceMeta) error {
	p = p.SourcePath()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta for %q: %w", p, err)
	}
	if err := s.sources.Write(ctx, MetaPath(p), data); err != nil {
		return fmt.Errorf("persist meta for %q: %w", p, err)
	}

	s.mu.Lock()
	s.cache[p] = m
	s.mu.Unlock()
	return nil
}

// GetOrImport returns the metadata for a source whose current content
// is data. When a record exists and its fingerprint matches, the
// cached record is returned and importFn is not invoked; this is the
// skip that prevents redundant reloads of unchanged sources.
// Otherwise importFn runs; its record is fingerprinted and persisted
// only after it succeeds. The second result reports whether an import
// ran.
func (s *Store) GetOrImport(ctx context.Context, p asset.Path, data []byte, importFn func() (*SourceMeta, error)) (*SourceMeta, bool, error) {
	p = p.SourcePath()
	fp := Fingerprint(data)

	if m, err := s.Get(ctx, p); err == nil && m.Fingerprint == fp {
		return m, false, nil
	}

	m, err := importFn()
	if err != nil {
		return nil, true, err
	}
	m.Fingerprint = fp

	if err := s.Put(ctx, p, m); err != nil {
		// The import itself succeeded; the stale sidecar only costs a
		// redundant re-import later.
		s.log.Warn("failed to persist source metadata",
			zap.String("path", p.String()),
			zap.Error(err))
	}
	return m, true, nil
}

// Forget drops the cached record for a source. The sidecar, if any,
// stays on disk.
func (s *Store) Forget(p asset.Path) {
	s.mu.Lock()
	delete(s.cache, p.SourcePath())
	s.mu.Unlock()
}
