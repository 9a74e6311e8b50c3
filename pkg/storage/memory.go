package storage

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/absmach/dexgate/pkg/errors"
)

type inMemoryStorage[T any] struct {
	sync.RWMutex

	data map[string]T
}

func NewInMemoryStorage[T any]() Storage[T] {
	return &inMemoryStorage[T]{
		data: make(map[string]T),
	}
}

func (s *inMemoryStorage[T]) Create(_ context.Context, key string, value T) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.data[key]; ok {
		return errors.ErrEntityExists
	}

	s.data[key] = value

	return nil
}

func (s *inMemoryStorage[T]) Get(_ context.Context, key string) (T, error) {
	var zero T
	if key == "" {
		return zero, errors.ErrEmptyKey
	}

	s.RLock()
	defer s.RUnlock()

	if val, ok := s.data[key]; ok {
		return val, nil
	}

	return zero, errors.ErrNotFound
}

// List returns the stored values in no particular order.
func (s *inMemoryStorage[T]) List(_ context.Context) ([]T, error) {
	s.RLock()
	defer s.RUnlock()

	return slices.Collect(maps.Values(s.data)), nil
}

func (s *inMemoryStorage[T]) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.data[key]; !ok {
		return errors.ErrNotFound
	}
	delete(s.data, key)

	return nil
}
