package actions

import (
	"sync"

	"github.com/adampresley/picturegallery/pkg/models"
)

/*
Store is the cached picture list. It is replaced wholesale on reload and
patched only after a successful rate or comment. Readers get copies.
*/
type Store struct {
	mu       sync.RWMutex
	pictures []models.Picture
	loaded   bool
}

func NewStore() *Store {
	return &Store{
		pictures: []models.Picture{},
	}
}

func (s *Store) Replace(pictures []models.Picture) {
	copied := make([]models.Picture, 0, len(pictures))

	for _, p := range pictures {
		copied = append(copied, p.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pictures = copied
	s.loaded = true
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded
}

func (s *Store) Snapshot() []models.Picture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Picture, 0, len(s.pictures))

	for _, p := range s.pictures {
		result = append(result, p.Clone())
	}

	return result
}

func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.PictureNames(s.pictures)
}

func (s *Store) Find(name string) (models.Picture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index := s.indexOf(name); index > -1 {
		return s.pictures[index].Clone(), true
	}

	return models.Picture{}, false
}

func (s *Store) SetRating(name string, rating int) (models.Picture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOf(name)
	if index < 0 {
		return models.Picture{}, false
	}

	s.pictures[index].Rating = rating
	return s.pictures[index].Clone(), true
}

func (s *Store) AppendComment(name string, comment models.Comment) (models.Picture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOf(name)
	if index < 0 {
		return models.Picture{}, false
	}

	s.pictures[index].Comments = append(s.pictures[index].Comments, comment)
	return s.pictures[index].Clone(), true
}

func (s *Store) indexOf(name string) int {
	for index, p := range s.pictures {
		if p.Name == name {
			return index
		}
	}

	return -1
}
