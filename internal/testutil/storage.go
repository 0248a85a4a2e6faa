package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cozy-creator/product-studio/internal/services/filestorage"
)

// MemoryStorage keeps uploads in a map. FailAfter, when positive, makes the
// n-th and later uploads fail.
type MemoryStorage struct {
	FailAfter int

	mu      sync.Mutex
	files   map[string]filestorage.FileInfo
	uploads int
}

var ErrStorageUnavailable = errors.New("storage unavailable")

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: map[string]filestorage.FileInfo{}}
}

func (s *MemoryStorage) Upload(_ context.Context, file filestorage.FileInfo) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads++
	if s.FailAfter > 0 && s.uploads >= s.FailAfter {
		return "", ErrStorageUnavailable
	}

	s.files[file.Path] = file
	return "mem://" + file.Path, nil
}

func (s *MemoryStorage) GetFile(_ context.Context, path string) (*filestorage.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[path]
	if !ok {
		return nil, filestorage.ErrFileNotFound
	}
	return &file, nil
}

// Paths lists stored object keys in sorted order.
func (s *MemoryStorage) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
