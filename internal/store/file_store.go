// internal/store/file_store.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the key-value map as a single JSON file. The whole
// map is rewritten on every mutation; fine for the handful of keys this
// service keeps.
type FileStore struct {
	path     string
	mu       sync.Mutex
	data     map[string]string
	watchers map[chan Change]struct{}
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:     path,
		data:     make(map[string]string),
		watchers: make(map[chan Change]struct{}),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read store file: %w", err)
		}
		return fs, nil
	}

	if err := json.Unmarshal(raw, &fs.data); err != nil {
		// A corrupt store file is treated as empty and overwritten on
		// the next write.
		fs.data = make(map[string]string)
	}

	return fs, nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	f.data[key] = value
	err := f.persistLocked()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify(key)
	return nil
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.data, key)
	err := f.persistLocked()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify(key)
	return nil
}

func (f *FileStore) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 16)
	f.mu.Lock()
	f.watchers[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.watchers, ch)
		f.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (f *FileStore) persistLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) notify(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.watchers {
		select {
		case ch <- Change{Key: key}:
		default:
		}
	}
}
