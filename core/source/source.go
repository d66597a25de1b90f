package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"asset-pipeline/core/asset"
)

// ErrNotFound is returned when a path does not exist in its source.
var ErrNotFound = errors.New("source path not found")

// IO is the read capability every source must provide.
type IO interface {
	// Read returns the raw bytes of the given relative path.
	Read(ctx context.Context, path string) ([]byte, error)
}

// Writer is the optional write capability, used for Save and for
// persisting metadata sidecars. Write must be atomic: a crash mid-write
// must never leave a partially-written object observable under path.
type Writer interface {
	Write(ctx context.Context, path string, data []byte) error
}

// Entry is one child of a listed directory.
type Entry struct {
	Path string
	Dir  bool
}

// Lister is the optional enumeration capability backing folder loads.
type Lister interface {
	List(ctx context.Context, dir string) ([]Entry, error)
}

// Event is a change notification for one path within a source. The
// Source field is filled by the registry when the watch is wired.
type Event struct {
	Source string
	Path   string
}

// Watcher is the optional change-notification capability feeding hot
// reload. The returned channel closes when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// Registry maps source namespaces to IO implementations. Namespaces
// are registered at startup and not mutated afterwards except through
// Add, which is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ios map[string]IO
}

func NewRegistry() *Registry {
	return &Registry{ios: make(map[string]IO)}
}

// Add registers io under the given namespace, replacing any previous
// registration.
func (r *Registry) Add(name string, io IO) {
	r.mu.Lock()
	r.ios[name] = io
	r.mu.Unlock()
}

// Get returns the IO registered for the namespace.
func (r *Registry) Get(name string) (IO, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	io, ok := r.ios[name]
	if !ok {
		return nil, fmt.Errorf("unknown source namespace %q: %w", name, ErrNotFound)
	}
	return io, nil
}

// Names returns the registered namespaces.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ios))
	for n := range r.ios {
		names = append(names, n)
	}
	return names
}

// Read resolves the path's namespace and reads its bytes.
func (r *Registry) Read(ctx context.Context, p asset.Path) ([]byte, error) {
	io, err := r.Get(p.Source)
	if err != nil {
		return nil, err
	}
	return io.Read(ctx, p.Path)
}

// Write resolves the path's namespace and writes through its Writer
// capability, failing when the source is read-only.
func (r *Registry) Write(ctx context.Context, p asset.Path, data []byte) error {
	io, err := r.Get(p.Source)
	if err != nil {
		return err
	}
	w, ok := io.(Writer)
	if !ok {
		return fmt.Errorf("source %q is read-only", p.Source)
	}
	return w.Write(ctx, p.Path, data)
}

// Watch starts the watcher of every namespace that has one and merges
// their events into a single channel, tagging each event with its
// namespace. The merged channel closes when ctx is done and all
// watchers have stopped.
func (r *Registry) Watch(ctx context.Context) (<-chan Event, error) {
	r.mu.RLock()
	type namedWatcher struct {
		name string
		w    Watcher
	}
	var watchers []namedWatcher
	for name, io := range r.ios {
		if w, ok := io.(Watcher); ok {
			watchers = append(watchers, namedWatcher{name: name, w: w})
		}
	}
	r.mu.RUnlock()

	out := make(chan Event)
	var wg sync.WaitGroup
	for _, nw := range watchers {
		ch, err := nw.w.Watch(ctx)
		if err != nil {
			return nil, fmt.Errorf("watch source %q: %w", nw.name, err)
		}
		wg.Add(1)
		go func(name string, ch <-chan Event) {
			defer wg.Done()
			for ev := range ch {
				ev.Source = name
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(nw.name, ch)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}
