package server

import (
	"context"
	"errors"
	"strings"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/meta"
	"asset-pipeline/core/source"

	"go.uber.org/zap"
)

// Reload re-imports the source at p if its content changed. When the
// persisted fingerprint matches the current bytes the call is a no-op:
// no loader runs, no events are emitted. After a changed source
// finishes re-importing, every transitive dependent is re-run so
// derived state is rebuilt against the new content.
//
// Reload of a path that was never loaded is ignored.
func (s *Server) Reload(ctx context.Context, p asset.Path) error {
	sp := p.SourcePath()

	s.mu.Lock()
	info, ok := s.infos[sp]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	known := info.state == asset.StateLoaded || info.state == asset.StateFailed
	s.mu.Unlock()
	if !known {
		// A load is already in flight; it will pick up the bytes as they
		// are now.
		return nil
	}

	data, err := s.sources.Read(ctx, sp)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			// Source deleted from under us. Keep the last good value;
			// an explicit Unload is the way to drop it.
			s.log.Warn("reload skipped, source gone", zap.String("path", sp.String()))
			return nil
		}
		return err
	}

	if m, merr := s.metaDB.Get(ctx, sp); merr == nil && m.Fingerprint == meta.Fingerprint(data) {
		s.mu.Lock()
		loaded := info.state == asset.StateLoaded
		s.mu.Unlock()
		if loaded {
			s.log.Debug("reload no-op, content unchanged", zap.String("path", sp.String()))
			return nil
		}
	}

	s.mu.Lock()
	if info.state != asset.StateLoaded && info.state != asset.StateFailed {
		s.mu.Unlock()
		return nil
	}
	lctx, version := s.restartLocked(info)
	primaries := make([]asset.ID, 0, len(info.ids))
	for _, id := range info.ids {
		primaries = append(primaries, id)
	}
	s.mu.Unlock()

	s.flight.Do(sp.String(), func() (any, error) {
		s.loadSourceData(lctx, sp, version, data)
		return nil, nil
	})

	if st, err := s.waitForSource(ctx, sp); err != nil {
		return err
	} else if st != asset.StateLoaded {
		return s.LoadError(sp)
	}

	s.reloadDependents(ctx, sp, primaries)
	return nil
}

// reloadDependents re-runs every source with an asset transitively
// dependent on the changed IDs. Each dependent re-imports once even
// when several of its assets are affected.
func (s *Server) reloadDependents(ctx context.Context, origin asset.Path, changed []asset.ID) {
	affected := s.graph.Affected(changed...)
	if len(affected) == 0 {
		return
	}

	s.mu.Lock()
	seen := map[asset.Path]struct{}{origin: {}}
	var paths []asset.Path
	for _, id := range affected {
		info, ok := s.byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[info.path]; dup {
			continue
		}
		seen[info.path] = struct{}{}
		paths = append(paths, info.path)
	}
	s.mu.Unlock()

	for _, dp := range paths {
		s.log.Info("reloading dependent",
			zap.String("path", dp.String()),
			zap.String("origin", origin.String()))
		if err := s.reimport(ctx, dp); err != nil {
			s.log.Warn("dependent reload failed",
				zap.String("path", dp.String()), zap.Error(err))
		}
	}
}

// reimport forces a dependent through the pipeline again regardless of
// its own fingerprint: its bytes did not change, but its dependencies
// did.
func (s *Server) reimport(ctx context.Context, p asset.Path) error {
	sp := p.SourcePath()

	s.mu.Lock()
	info, ok := s.infos[sp]
	if !ok || (!info.state.Terminal()) {
		s.mu.Unlock()
		return nil
	}
	lctx, version := s.restartLocked(info)
	s.mu.Unlock()

	s.flight.Do(sp.String(), func() (any, error) {
		s.loadSource(lctx, sp, version)
		return nil, nil
	})

	_, err := s.waitForSource(ctx, sp)
	return err
}

// Watch subscribes to change notifications from every watch-capable
// source and feeds them into Reload. Blocks until ctx is done or the
// watch channel closes; run it on its own goroutine.
//
// Sidecar writes and paths that were never loaded are filtered out, so
// the server's own metadata persistence does not echo back as reloads.
func (s *Server) Watch(ctx context.Context) error {
	events, err := s.sources.Watch(ctx)
	if err != nil {
		return err
	}
	s.log.Info("watching sources for changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if strings.HasSuffix(ev.Path, ".meta") {
				continue
			}
			sp := asset.Path{Source: ev.Source, Path: ev.Path}

			s.mu.Lock()
			_, known := s.infos[sp]
			s.mu.Unlock()
			if !known {
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.Reload(s.ctx, sp); err != nil {
					s.log.Warn("hot reload failed",
						zap.String("path", sp.String()), zap.Error(err))
				}
			}()
		}
	}
}
