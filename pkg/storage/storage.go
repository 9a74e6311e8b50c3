package storage

import "context"

// Storage keeps values of one type under string keys.
type Storage[T any] interface {
	Create(ctx context.Context, key string, value T) error
	Get(ctx context.Context, key string) (T, error)
	List(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, key string) error
}
