package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStore is a KV backed by one JSON object on disk. Every write
// replaces the file atomically.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	values  map[string]json.RawMessage
	written []byte
	closed  bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ KV = (*FileStore)(nil)

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger for watch and reload failures.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(f *FileStore) { f.logger = l }
}

// OpenFile opens the store at path. A missing file is an empty store.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	f := &FileStore{
		path:   path,
		logger: slog.Default(),
		values: make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(f)
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	if err := f.decode(raw); err != nil {
		return nil, err
	}
	f.written = raw

	return f, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) decode(raw []byte) error {
	values := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("settings: decode %s: %w", f.path, err)
		}
	}
	f.values = values

	return nil
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", false, ErrClosed
	}

	v, ok := f.values[key]

	return string(v), ok, nil
}

func (f *FileStore) Set(key, value string) error {
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("settings: value for %q is not JSON", key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	prev, had := f.values[key]
	f.values[key] = json.RawMessage(value)

	if err := f.flushLocked(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}

		return err
	}

	return nil
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)

	if err := f.flushLocked(); err != nil {
		f.values[key] = prev

		return err
	}

	return nil
}

func (f *FileStore) Keys() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	return slices.Sorted(maps.Keys(f.values)), nil
}

func (f *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("settings: replace %s: %w", f.path, err)
	}

	f.written = raw

	return nil
}

// Reload rereads the file. It reports whether the content differs from
// what this store last read or wrote.
func (f *FileStore) Reload() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, ErrClosed
	}

	// read under the lock so a concurrent Set cannot be mistaken for an
	// external edit
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		raw, err = nil, nil
	}
	if err != nil {
		return false, fmt.Errorf("settings: read %s: %w", f.path, err)
	}
	if bytes.Equal(raw, f.written) {
		return false, nil
	}

	if err := f.decode(raw); err != nil {
		return false, err
	}
	f.written = raw

	return true, nil
}

// Watch calls onChange after another process rewrites the file. The
// directory is watched so editors that replace the file are seen too.
func (f *FileStore) Watch(onChange func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.watcher != nil {
		return nil
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()

		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}

	f.watcher = w
	f.done = make(chan struct{})

	go f.watch(w, f.done, onChange)

	return nil
}

func (f *FileStore) watch(w *fsnotify.Watcher, done <-chan struct{}, onChange func()) {
	name := filepath.Clean(f.path)

	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}

			changed, err := f.Reload()
			if err != nil {
				f.logger.Warn("settings reload failed", "path", f.path, "error", err)

				continue
			}
			if changed {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Debug("settings watcher error", "error", err)
		}
	}
}

// Close stops watching. The store rejects further use.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.watcher != nil {
		close(f.done)

		return f.watcher.Close()
	}

	return nil
}
