package server

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/graph"
	"asset-pipeline/core/meta"
	"asset-pipeline/core/source"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// sourceInfo is the server's in-flight and bookkeeping record for one
// source path. It doubles as the in-flight table entry: its state and
// version decide whether a request attaches to running work or starts
// new work, and the decision happens under the server mutex, so
// check-and-insert is atomic.
type sourceInfo struct {
	path     asset.Path
	state    asset.LoadState
	err      error
	version  uint32
	degraded bool

	// ids maps produced label -> asset ID ("" is the default asset).
	// IDs are allocated once and survive reloads.
	ids   map[string]asset.ID
	types map[string]reflect.Type

	// done is closed when the current version reaches a terminal
	// state; waiters re-check and re-fetch it on every wakeup.
	done   chan struct{}
	cancel context.CancelFunc

	// deps pins this source's dependencies with strong handles for as
	// long as the source is loaded.
	deps []*asset.Handle
}

// Server orchestrates asset loading: it resolves paths through the
// source registry, dedupes concurrent loads, drives the per-source
// state machine, maintains the dependency graph and applies hot
// reloads.
type Server struct {
	cfg      Config
	log      *zap.Logger
	sources  *source.Registry
	metaDB   *meta.Store
	derivers *meta.Derivers
	graph    *graph.Graph
	refs     *asset.RefCounts
	events   *asset.EventQueue
	alloc    *asset.IDAllocator

	// flight serializes pipeline work per source path on top of the
	// state-machine guard, so a reload joining an in-flight load never
	// duplicates a read.
	flight singleflight.Group

	mu          sync.Mutex
	infos       map[asset.Path]*sourceInfo
	byID        map[asset.ID]*sourceInfo
	typeByID    map[asset.ID]reflect.Type
	stores      map[reflect.Type]asset.Lifecycle
	storesByTag map[uuid.UUID]asset.Lifecycle

	loaders     []Loader
	byExt       map[string]Loader
	serializers map[reflect.Type]Serializer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an asset server over the given source registry and
// metadata store. Loaders, serializers and stores are registered on
// the returned server before the first Load.
func New(cfg Config, sources *source.Registry, metaDB *meta.Store, log *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:         cfg,
		log:         log,
		sources:     sources,
		metaDB:      metaDB,
		derivers:    meta.NewDerivers(),
		graph:       graph.New(),
		refs:        asset.NewRefCounts(),
		events:      asset.NewEventQueue(),
		alloc:       asset.NewIDAllocator(),
		infos:       make(map[asset.Path]*sourceInfo),
		byID:        make(map[asset.ID]*sourceInfo),
		typeByID:    make(map[asset.ID]reflect.Type),
		stores:      make(map[reflect.Type]asset.Lifecycle),
		storesByTag: make(map[uuid.UUID]asset.Lifecycle),
		byExt:       make(map[string]Loader),
		serializers: make(map[reflect.Type]Serializer),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Derivers exposes the derivation registry.
func (s *Server) Derivers() *meta.Derivers {
	return s.derivers
}

// Sources exposes the source registry.
func (s *Server) Sources() *source.Registry {
	return s.sources
}

// Events drains and returns the buffered lifecycle events.
func (s *Server) Events() []asset.Event {
	return s.events.Drain()
}

// EventSink returns the queue typed stores push lifecycle events to.
// Pass it to asset.NewAssets when constructing stores for this server.
func (s *Server) EventSink() *asset.EventQueue {
	return s.events
}

// WaitFor blocks until the source at p reaches a terminal state and
// returns it, or returns early when ctx is done.
func (s *Server) WaitFor(ctx context.Context, p asset.Path) (asset.LoadState, error) {
	return s.waitForSource(ctx, p.SourcePath())
}

// Handle returns a new strong handle over id. The caller owns it.
func (s *Server) Handle(id asset.ID) *asset.Handle {
	s.mu.Lock()
	var p asset.Path
	if info, ok := s.byID[id]; ok {
		p = info.path
	}
	s.mu.Unlock()
	return asset.NewStrong(id, p, s.refs)
}

// GetLoadState returns the load state of a source path.
func (s *Server) GetLoadState(p asset.Path) asset.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.infos[p.SourcePath()]; ok {
		return info.state
	}
	return asset.StateUnloaded
}

// GetLoadStateID returns the load state of the source that produced id.
func (s *Server) GetLoadStateID(id asset.ID) asset.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.byID[id]; ok {
		return info.state
	}
	return asset.StateUnloaded
}

// LoadError returns the terminal failure of a source path, nil while
// it is loading or after it loaded cleanly.
func (s *Server) LoadError(p asset.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.infos[p.SourcePath()]; ok {
		return info.err
	}
	return nil
}

// IsDegraded reports whether the source completed in degraded mode
// (Loaded despite a failed required dependency; see Config.DegradedDeps).
func (s *Server) IsDegraded(p asset.Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.infos[p.SourcePath()]; ok {
		return info.degraded
	}
	return false
}

// TypeOf returns the value type committed under id.
func (s *Server) TypeOf(id asset.ID) (reflect.Type, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.typeByID[id]
	return t, ok
}

// GroupLoadState aggregates over a set of IDs: Failed if any failed,
// Loaded only if all loaded, otherwise the state of the first
// still-loading member.
func (s *Server) GroupLoadState(ids ...asset.ID) asset.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := asset.StateLoaded
	for _, id := range ids {
		info, ok := s.byID[id]
		if !ok {
			return asset.StateUnloaded
		}
		switch info.state {
		case asset.StateLoaded:
		case asset.StateFailed:
			return asset.StateFailed
		default:
			if result == asset.StateLoaded {
				result = info.state
			}
		}
	}
	return result
}

// Save serializes value with its registered serializer and writes it to
// path through the source's write capability.
func (s *Server) Save(ctx context.Context, p asset.Path, value any) error {
	ser, ok := s.serializerFor(reflect.TypeOf(value))
	if !ok {
		return fmt.Errorf("save %q (%T): %w", p, value, asset.ErrSerializerNotFound)
	}
	data, err := ser.Serialize(value)
	if err != nil {
		return fmt.Errorf("serialize %q: %w", p, err)
	}
	if err := s.sources.Write(ctx, p.SourcePath(), data); err != nil {
		return fmt.Errorf("save %q: %w", p, err)
	}
	return nil
}

// FreeUnused processes the deferred drop queue: every ID whose strong
// refcount reached zero is removed from its store, its graph node
// dropped and its slot recycled. Call at a consumer synchronization
// point (e.g. once per frame/tick). Cascading drops from a removed
// asset releasing its dependency pins are processed in the same call.
func (s *Server) FreeUnused() {
	for {
		drops := s.refs.TakeDrops()
		if len(drops) == 0 {
			return
		}
		for _, id := range drops {
			s.freeOne(id)
		}
	}
}

func (s *Server) freeOne(id asset.ID) {
	s.mu.Lock()
	info := s.byID[id]
	t, committed := s.typeByID[id]
	var store asset.Lifecycle
	if committed {
		store = s.stores[t]
	}
	delete(s.byID, id)
	delete(s.typeByID, id)

	var releaseDeps []*asset.Handle
	if info != nil {
		for label, lid := range info.ids {
			if lid == id {
				delete(info.ids, label)
				delete(info.types, label)
			}
		}
		if len(info.ids) == 0 {
			// Last asset of the source gone: tear the record down,
			// cancel any in-flight work and wake parked waiters.
			if info.cancel != nil {
				info.cancel()
			}
			info.version++
			info.state = asset.StateUnloaded
			s.flight.Forget(info.path.String())
			safeClose(info.done)
			releaseDeps = info.deps
			info.deps = nil
			delete(s.infos, info.path)
			s.metaDB.Forget(info.path)
		}
	}
	s.mu.Unlock()

	if store != nil {
		store.Drop(id)
	}
	s.graph.RemoveNode(id)
	s.alloc.Free(id)
	for _, h := range releaseDeps {
		h.Release()
	}
	if info != nil {
		s.log.Debug("freed unused asset",
			zap.String("id", id.String()),
			zap.String("path", info.path.String()))
	}
}

// Unload force-removes a source and all assets it produced, regardless
// of refcounts. In-flight work is cancelled; stale strong handles keep
// counting but resolve to absent.
func (s *Server) Unload(p asset.Path) {
	sp := p.SourcePath()

	s.mu.Lock()
	info, ok := s.infos[sp]
	if !ok {
		s.mu.Unlock()
		return
	}
	if info.cancel != nil {
		info.cancel()
	}
	// Invalidate any in-flight pipeline for this source.
	info.version++
	info.state = asset.StateUnloaded
	info.err = nil
	s.flight.Forget(sp.String())
	safeClose(info.done)

	ids := make(map[asset.ID]reflect.Type, len(info.ids))
	for _, id := range info.ids {
		ids[id] = s.typeByID[id]
		delete(s.byID, id)
		delete(s.typeByID, id)
	}
	releaseDeps := info.deps
	info.deps = nil
	delete(s.infos, sp)
	stores := s.stores
	s.mu.Unlock()

	for id, t := range ids {
		if st, ok := stores[t]; ok && t != nil {
			st.Drop(id)
		}
		s.graph.RemoveNode(id)
		s.alloc.Free(id)
	}
	for _, h := range releaseDeps {
		h.Release()
	}
	s.metaDB.Forget(sp)
	s.log.Info("unloaded source", zap.String("path", sp.String()))
}

// Close cancels every in-flight load and waits for the pipelines to
// wind down. The server must not be used afterwards.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// ensureInfoLocked returns the record for sp, creating it if needed.
// Caller holds s.mu.
func (s *Server) ensureInfoLocked(sp asset.Path) *sourceInfo {
	info, ok := s.infos[sp]
	if !ok {
		info = &sourceInfo{
			path:  sp,
			state: asset.StateUnloaded,
			ids:   make(map[string]asset.ID),
			types: make(map[string]reflect.Type),
			done:  closedChan(),
		}
		s.infos[sp] = info
	}
	return info
}

// ensureIDLocked returns the stable ID for a label of the source,
// allocating on first sight. Caller holds s.mu.
func (s *Server) ensureIDLocked(info *sourceInfo, label string) asset.ID {
	id, ok := info.ids[label]
	if !ok {
		id = s.alloc.Alloc()
		info.ids[label] = id
		s.byID[id] = info
	}
	return id
}

// restartLocked arms a new load attempt: bumps the version, resets the
// state machine and derives a cancellable context from the server
// root. Caller holds s.mu.
func (s *Server) restartLocked(info *sourceInfo) (context.Context, uint32) {
	info.version++
	info.state = asset.StateRequested
	info.err = nil
	info.degraded = false
	info.done = make(chan struct{})
	ctx, cancel := context.WithCancel(s.ctx)
	info.cancel = cancel
	return ctx, info.version
}

// waitForSource blocks until the source reaches a terminal state for
// its current version, or ctx is done.
func (s *Server) waitForSource(ctx context.Context, sp asset.Path) (asset.LoadState, error) {
	for {
		s.mu.Lock()
		info, ok := s.infos[sp]
		if !ok {
			s.mu.Unlock()
			return asset.StateUnloaded, nil
		}
		if info.state.Terminal() {
			st := info.state
			s.mu.Unlock()
			return st, nil
		}
		done := info.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return asset.StateUnloaded, ctx.Err()
		}
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func safeClose(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
