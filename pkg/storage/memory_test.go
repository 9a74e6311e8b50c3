package storage_test

import (
	"context"
	"testing"

	"github.com/absmach/dexgate/pkg/errors"
	"github.com/absmach/dexgate/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := storage.NewInMemoryStorage[int]()

	require.NoError(t, s.Create(ctx, "a", 1))
	require.NoError(t, s.Create(ctx, "b", 2))
	assert.ErrorIs(t, s.Create(ctx, "a", 3), errors.ErrEntityExists)
	assert.ErrorIs(t, s.Create(ctx, "", 3), errors.ErrEmptyKey)

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = s.Get(ctx, "c")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, errors.ErrEmptyKey)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, list)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), errors.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ""), errors.ErrEmptyKey)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, list)
}
