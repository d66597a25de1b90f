package server

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/meta"
	"asset-pipeline/core/source"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Load requests the asset at the given path string and returns a
// strong handle to it immediately; the load proceeds in the
// background. Concurrent and repeated calls for the same path share
// one read and one parse and resolve to the same ID.
func (s *Server) Load(path string) *asset.Handle {
	return s.LoadPath(asset.ParsePath(path))
}

// LoadUntyped is Load for callers that do not know the asset type up
// front; the type is resolved at parse time and checked when the
// handle is resolved against a typed store.
func (s *Server) LoadUntyped(path string) *asset.Handle {
	return s.LoadPath(asset.ParsePath(path))
}

// LoadPath requests the asset at p. Never blocks: the returned
// handle's load state reflects the in-progress load.
func (s *Server) LoadPath(p asset.Path) *asset.Handle {
	sp := p.SourcePath()

	s.mu.Lock()
	info := s.ensureInfoLocked(sp)
	id := s.ensureIDLocked(info, p.Label)

	// The state check and the transition to Requested happen under one
	// lock hold: this is the atomic check-and-insert on the in-flight
	// table. A request that finds non-terminal state attaches to the
	// running work; a request that finds Loaded gets the cached asset.
	start := false
	var ctx context.Context
	var version uint32
	if info.state == asset.StateUnloaded || info.state == asset.StateFailed {
		ctx, version = s.restartLocked(info)
		start = true
	}
	h := asset.NewStrong(id, p, s.refs)
	s.mu.Unlock()

	if start {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.flight.Do(sp.String(), func() (any, error) {
				s.loadSource(ctx, sp, version)
				return nil, nil
			})
		}()
	}
	return h
}

// loadSource runs the Reading stage then hands off to the shared
// pipeline tail.
func (s *Server) loadSource(ctx context.Context, sp asset.Path, version uint32) {
	if !s.setState(sp, version, asset.StateReading) {
		return
	}
	data, err := s.sources.Read(ctx, sp)
	if err != nil {
		s.failLoad(sp, version, asset.StateReading, err)
		return
	}
	s.loadSourceData(ctx, sp, version, data)
}

// loadSourceData drives Parsing → WaitingOnDeps → Loaded for bytes
// already read. Dependency edges are recorded before the Loaded
// transition, and the in-flight record stays non-terminal until the
// values are committed to their stores, so no request can slip in
// between completion and insertion.
func (s *Server) loadSourceData(ctx context.Context, sp asset.Path, version uint32, data []byte) {
	if err := ctx.Err(); err != nil {
		s.failLoad(sp, version, asset.StateReading, err)
		return
	}

	loader := s.loaderFor(sp)
	if loader == nil {
		s.failLoad(sp, version, asset.StateParsing,
			fmt.Errorf("extension %q: %w", sp.Extension(), asset.ErrLoaderNotFound))
		return
	}

	if !s.setState(sp, version, asset.StateParsing) {
		return
	}
	lc := newLoadContext(ctx, s, sp, data)
	if err := loader.Load(ctx, lc); err != nil {
		if !isTaxonomyError(err) {
			err = fmt.Errorf("loader %q: %v: %w", loader.Name(), err, asset.ErrDeserialize)
		}
		s.failLoad(sp, version, asset.StateParsing, err)
		return
	}

	produced := lc.assets

	// Derivation runs before commit so consumers only ever see the
	// derived form.
	for i := range produced {
		v, name, err := s.derivers.Apply(ctx, produced[i].Value)
		if err != nil {
			s.failLoad(sp, version, asset.StateParsing, err)
			return
		}
		if name != "" {
			produced[i].Value = v
		}
	}

	// Allocate IDs and record dependency edges. Commit order matters:
	// edges land in the graph before the source can reach Loaded.
	s.mu.Lock()
	info := s.infos[sp]
	if info == nil || info.version != version {
		s.mu.Unlock()
		return
	}
	for i := range produced {
		s.ensureIDLocked(info, produced[i].Label)
	}
	for i := range produced {
		s.graph.ClearDependencies(info.ids[produced[i].Label])
	}

	var required []asset.Path
	var all []asset.Path
	seen := make(map[asset.Path]struct{})
	var cycleErr error
edges:
	for i := range produced {
		id := info.ids[produced[i].Label]
		for _, dep := range produced[i].Dependencies {
			depInfo := s.ensureInfoLocked(dep.Path.SourcePath())
			depID := s.ensureIDLocked(depInfo, dep.Path.Label)
			if err := s.graph.AddEdge(id, depID, !dep.Optional); err != nil {
				cycleErr = err
				break edges
			}
			if _, ok := seen[dep.Path]; ok {
				continue
			}
			seen[dep.Path] = struct{}{}
			all = append(all, dep.Path)
			if !dep.Optional {
				required = append(required, dep.Path)
			}
		}
	}
	oldDeps := info.deps
	info.deps = nil
	s.mu.Unlock()

	for _, h := range oldDeps {
		h.Release()
	}
	if cycleErr != nil {
		s.failLoad(sp, version, asset.StateWaitingOnDeps, cycleErr)
		return
	}

	// Kick off (or attach to) every dependency load, pinning each with
	// a strong handle for the lifetime of this source.
	depHandles := make([]*asset.Handle, 0, len(all))
	for _, dp := range all {
		if dp.SourcePath() == sp {
			continue // sub-asset of this very source, completes with it
		}
		depHandles = append(depHandles, s.LoadPath(dp))
	}

	s.mu.Lock()
	if info.version != version {
		s.mu.Unlock()
		for _, h := range depHandles {
			h.Release()
		}
		return
	}
	info.deps = depHandles
	s.mu.Unlock()

	if !s.setState(sp, version, asset.StateWaitingOnDeps) {
		return
	}
	if err := s.waitForDeps(ctx, sp, required); err != nil {
		if s.cfg.DegradedDeps && errors.Is(err, asset.ErrDependencyFailed) {
			s.mu.Lock()
			if info.version == version {
				info.degraded = true
			}
			s.mu.Unlock()
			s.log.Warn("loading degraded, required dependency failed",
				zap.String("path", sp.String()), zap.Error(err))
		} else {
			s.failLoad(sp, version, asset.StateWaitingOnDeps, err)
			return
		}
	}

	s.commit(ctx, sp, version, data, produced)
}

// waitForDeps suspends until every required dependency is terminal,
// failing fast on the first dependency failure.
func (s *Server) waitForDeps(ctx context.Context, sp asset.Path, required []asset.Path) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range required {
		dep := dep
		if dep.SourcePath() == sp {
			continue
		}
		g.Go(func() error {
			st, err := s.waitForSource(gctx, dep.SourcePath())
			if err != nil {
				return err
			}
			if st != asset.StateLoaded {
				return fmt.Errorf("dependency %q is %s: %w", dep, st, asset.ErrDependencyFailed)
			}
			return nil
		})
	}
	return g.Wait()
}

// commit inserts the produced values into their typed stores, persists
// the source metadata and flips the source to Loaded.
func (s *Server) commit(ctx context.Context, sp asset.Path, version uint32, data []byte, produced []LoadedAsset) {
	s.mu.Lock()
	info := s.infos[sp]
	if info == nil || info.version != version {
		s.mu.Unlock()
		return
	}
	items := make([]metaItem, 0, len(produced))
	for i := range produced {
		t := reflect.TypeOf(produced[i].Value)
		store, ok := s.stores[t]
		if !ok {
			s.mu.Unlock()
			s.failLoad(sp, version, asset.StateWaitingOnDeps,
				fmt.Errorf("value type %s: %w", t, asset.ErrNoStore))
			return
		}
		id := info.ids[produced[i].Label]
		info.types[produced[i].Label] = t
		s.typeByID[id] = t
		items = append(items, metaItem{id: id, label: produced[i].Label, value: produced[i].Value, store: store})
	}
	s.mu.Unlock()

	for _, it := range items {
		if err := it.store.Commit(it.id, sp.WithLabel(it.label), it.value); err != nil {
			s.failLoad(sp, version, asset.StateWaitingOnDeps, err)
			return
		}
	}

	s.persistMeta(ctx, sp, data, produced, items)

	if s.setState(sp, version, asset.StateLoaded) {
		s.log.Info("asset loaded",
			zap.String("path", sp.String()),
			zap.Int("assets", len(items)),
			zap.Uint32("version", version))
	}
}

// metaItem pairs one produced value with its allocated identity and
// target store for the commit and persistence stages.
type metaItem struct {
	id    asset.ID
	label string
	value any
	store asset.Lifecycle
}

// persistMeta writes the source's sidecar record and, when enabled,
// serialized import artifacts. Failures are logged, never fatal: the
// load already succeeded and the sidecar write is atomic, so the worst
// case is a redundant re-import later.
func (s *Server) persistMeta(ctx context.Context, sp asset.Path, data []byte, produced []LoadedAsset, items []metaItem) {
	fp := meta.Fingerprint(data)
	record := &meta.SourceMeta{}
	for i := range produced {
		deps := make([]string, 0, len(produced[i].Dependencies))
		for _, d := range produced[i].Dependencies {
			deps = append(deps, d.Path.String())
		}
		record.Produced = append(record.Produced, meta.ProducedAsset{
			ID:           items[i].id,
			Label:        produced[i].Label,
			Dependencies: deps,
		})
	}

	if s.cfg.ImportArtifacts {
		for _, it := range items {
			ser, ok := s.serializerFor(reflect.TypeOf(it.value))
			if !ok {
				continue
			}
			blob, err := ser.Serialize(it.value)
			if err != nil {
				s.log.Warn("import artifact serialization failed",
					zap.String("path", sp.String()), zap.Error(err))
				continue
			}
			artifact := asset.Path{
				Source: sp.Source,
				Path:   s.cfg.ImportPrefix + "/" + artifactName(fp, it.label, ser),
			}
			if err := s.sources.Write(ctx, artifact, blob); err != nil {
				s.log.Warn("import artifact write failed",
					zap.String("path", artifact.String()), zap.Error(err))
				continue
			}
			record.Derived = append(record.Derived, meta.DerivedArtifact{
				Label:             it.label,
				Path:              artifact.String(),
				SourceFingerprint: fp,
			})
		}
	}

	// GetOrImport fingerprints the record and skips the write when the
	// persisted sidecar already matches this content.
	if _, _, err := s.metaDB.GetOrImport(ctx, sp, data, func() (*meta.SourceMeta, error) {
		return record, nil
	}); err != nil {
		s.log.Warn("metadata persist failed",
			zap.String("path", sp.String()), zap.Error(err))
	}
}

func artifactName(fp, label string, ser Serializer) string {
	name := fp[:16]
	if label != "" {
		name += "-" + label
	}
	return name + "." + ser.Extension()
}

// setState advances the state machine for the given load version.
// Returns false when the version was superseded (reload, unload).
func (s *Server) setState(sp asset.Path, version uint32, st asset.LoadState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.infos[sp]
	if info == nil || info.version != version {
		return false
	}
	info.state = st
	if st.Terminal() {
		// The singleflight slot must be released before waiters can
		// observe the terminal state: a restart that saw the state first
		// would join the finished call and never run.
		s.flight.Forget(sp.String())
		safeClose(info.done)
	}
	return true
}

// failLoad records a terminal failure for the load version, cleans up
// partially-recorded dependency state and releases waiters.
func (s *Server) failLoad(sp asset.Path, version uint32, stage asset.LoadState, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%v: %w", err, asset.ErrCancelled)
	}
	lerr := asset.NewLoadError(sp, stage, err)

	s.mu.Lock()
	info := s.infos[sp]
	if info == nil || info.version != version {
		s.mu.Unlock()
		return
	}
	info.state = asset.StateFailed
	info.err = lerr
	for _, id := range info.ids {
		s.graph.ClearDependencies(id)
	}
	releaseDeps := info.deps
	info.deps = nil
	s.flight.Forget(sp.String())
	safeClose(info.done)
	s.mu.Unlock()

	for _, h := range releaseDeps {
		h.Release()
	}
	s.log.Warn("asset load failed",
		zap.String("path", sp.String()),
		zap.String("stage", stage.String()),
		zap.Error(err))
}

func isTaxonomyError(err error) bool {
	return errors.Is(err, asset.ErrDeserialize) ||
		errors.Is(err, asset.ErrDuplicateAssetID) ||
		errors.Is(err, asset.ErrLoaderNotFound) ||
		errors.Is(err, asset.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}

// LoadFolder requests every file under dir (recursively) that has a
// registered loader, returning a handle per started load. The path's
// source must support listing.
func (s *Server) LoadFolder(ctx context.Context, p asset.Path) ([]*asset.Handle, error) {
	io, err := s.sources.Get(p.Source)
	if err != nil {
		return nil, err
	}
	lister, ok := io.(source.Lister)
	if !ok {
		return nil, fmt.Errorf("source %q does not support listing", p.Source)
	}

	var handles []*asset.Handle
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := lister.List(ctx, dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Dir {
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(e.Path, ".meta") {
				continue
			}
			child := asset.Path{Source: p.Source, Path: e.Path}
			if s.loaderFor(child) == nil {
				continue
			}
			handles = append(handles, s.LoadPath(child))
		}
		return nil
	}
	if err := walk(p.Path); err != nil {
		for _, h := range handles {
			h.Release()
		}
		return nil, err
	}
	return handles, nil
}
