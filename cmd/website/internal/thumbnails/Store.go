package thumbnails

import (
	"sync"
	"time"

	"github.com/adampresley/adamgokit/slices"
)

type Thumbnail struct {
	Data       []byte
	ModifiedAt time.Time
}

/*
Store holds encoded thumbnails keyed by picture name.
*/
type Store interface {
	Get(name string) (Thumbnail, bool, error)
	Put(name string, data []byte) error
	Stat(name string) (time.Time, bool, error)
	Prune(keep []string) (int, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Thumbnail
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: map[string]Thumbnail{},
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(name string) (Thumbnail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thumb, ok := s.items[name]
	return thumb, ok, nil
}

func (s *MemoryStore) Put(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[name] = Thumbnail{Data: data, ModifiedAt: s.now()}
	return nil
}

func (s *MemoryStore) Stat(name string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thumb, ok := s.items[name]
	return thumb.ModifiedAt, ok, nil
}

func (s *MemoryStore) Prune(keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for name := range s.items {
		if !slices.IsInSlice(name, keep) {
			delete(s.items, name)
			removed++
		}
	}

	return removed, nil
}
