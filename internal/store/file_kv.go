package store

import (
	"context"
	"path/filepath"
	"sync"

	"secretline/internal/domain"
)

// keysFile is the single JSON document FileKV maintains under its directory.
const keysFile = "keys.json"

// FileKV stores every entry in one versioned JSON document. The file is
// loaded once and rewritten atomically on every mutation.
type FileKV struct {
	path string

	mu     sync.Mutex
	data   map[string][]byte
	loaded bool
	closed bool
}

var _ domain.KeyValueStore = (*FileKV)(nil)

// NewFileKV returns a store backed by <dir>/keys.json. The file is created on
// first write.
func NewFileKV(dir string) *FileKV {
	return &FileKV{path: filepath.Join(dir, keysFile)}
}

// load must be called with mu held.
func (s *FileKV) load(op, key string) error {
	if s.closed {
		return domain.NewStorageError(op, key, errClosed)
	}
	if s.loaded {
		return nil
	}
	m, err := readDocument(s.path)
	if err != nil {
		return domain.NewStorageError(op, key, err)
	}
	s.data, s.loaded = m, true
	return nil
}

func (s *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.NewStorageError("get", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load("get", key); err != nil {
		return nil, false, err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *FileKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("set", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load("set", key); err != nil {
		return err
	}
	prev, had := s.data[key]
	s.data[key] = append([]byte(nil), value...)
	if err := writeDocument(s.path, s.data); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return domain.NewStorageError("set", key, err)
	}
	return nil
}

func (s *FileKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("delete", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load("delete", key); err != nil {
		return err
	}
	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := writeDocument(s.path, s.data); err != nil {
		s.data[key] = prev
		return domain.NewStorageError("delete", key, err)
	}
	return nil
}

func (s *FileKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("keys", prefix, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load("keys", prefix); err != nil {
		return nil, err
	}
	return matchingKeys(s.data, prefix), nil
}

func (s *FileKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}
