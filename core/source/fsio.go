package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the window in which repeated change events for the
// same path collapse into one notification. Editors typically emit a
// burst of writes per save.
const DefaultDebounce = 100 * time.Millisecond

// FileIO serves a directory tree as an asset source. It implements
// Read, Write (atomic via temp file + rename), List and Watch.
type FileIO struct {
	root     string
	debounce time.Duration
}

// NewFileIO creates a filesystem source rooted at root, which must be
// an existing directory.
func NewFileIO(root string) (*FileIO, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("asset root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %q is not a directory", root)
	}
	return &FileIO{root: root, debounce: DefaultDebounce}, nil
}

// Root returns the root directory.
func (f *FileIO) Root() string {
	return f.root
}

// resolve maps a slash-separated relative path into the root, rejecting
// traversal outside it.
func (f *FileIO) resolve(path string) (string, error) {
	full := filepath.Join(f.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(f.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes asset root", path)
	}
	return full, nil
}

func (f *FileIO) Read(_ context.Context, path string) ([]byte, error) {
	full, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}

// Write persists data under path atomically: the bytes land in a
// temporary file in the same directory and are renamed over the target,
// so readers observe either the old or the new content, never a
// partial write.
func (f *FileIO) Write(_ context.Context, path string, data []byte) error {
	full, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func (f *FileIO) List(_ context.Context, dir string) ([]Entry, error) {
	full, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	children, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%q: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}

	entries := make([]Entry, 0, len(children))
	for _, c := range children {
		// Temp files from atomic writes are invisible to listings.
		if strings.HasPrefix(c.Name(), ".tmp-") {
			continue
		}
		child := c.Name()
		if dir != "" && dir != "." {
			child = dir + "/" + child
		}
		entries = append(entries, Entry{Path: child, Dir: c.IsDir()})
	}
	return entries, nil
}

// Watch emits a debounced change event per modified file. New
// directories are added to the watch as they appear. The channel closes
// when ctx is done.
func (f *FileIO) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	// Watch the whole tree; fsnotify is not recursive by itself.
	err = filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", f.root, err)
	}

	out := make(chan Event)
	go f.watchLoop(ctx, watcher, out)
	return out, nil
}

func (f *FileIO) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- Event) {
	defer close(out)
	defer watcher.Close()

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	fire := func(rel string) {
		mu.Lock()
		delete(pending, rel)
		mu.Unlock()
		select {
		case out <- Event{Path: rel}:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".tmp-") {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
					continue
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(f.root, ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			mu.Lock()
			if t, ok := pending[rel]; ok {
				t.Reset(f.debounce)
			} else {
				r := rel
				pending[rel] = time.AfterFunc(f.debounce, func() { fire(r) })
			}
			mu.Unlock()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
