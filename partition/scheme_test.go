package partition_test

import (
	"testing"

	"github.com/absmach/dexgate/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectScheme(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc     string
		expected int
		err      error
	}{
		{desc: "single partition", expected: 1},
		{desc: "many partitions", expected: 12},
		{desc: "zero partitions", expected: 0, err: partition.ErrConfiguration},
		{desc: "negative partitions", expected: -3, err: partition.ErrConfiguration},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			s, err := partition.NewDirectScheme(tc.expected)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, partition.Direct, s.Kind())
			assert.Equal(t, tc.expected, s.Expected())
		})
	}
}

func TestNewIndexedScheme(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc  string
		names map[int64]string
		err   error
	}{
		{desc: "two partitions", names: map[int64]string{0: "left", 1: "right"}},
		{desc: "sparse indices", names: map[int64]string{3: "x", 40: "y"}},
		{desc: "empty map", names: map[int64]string{}, err: partition.ErrConfiguration},
		{desc: "nil map", err: partition.ErrConfiguration},
		{desc: "empty name", names: map[int64]string{0: ""}, err: partition.ErrConfiguration},
		{desc: "duplicate names", names: map[int64]string{0: "a", 1: "a"}, err: partition.ErrConfiguration},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			s, err := partition.NewIndexedScheme(tc.names)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, partition.Indexed, s.Kind())
			assert.Equal(t, len(tc.names), s.Expected())
			assert.Equal(t, tc.names, s.Names())
		})
	}
}

func TestSchemeResolve(t *testing.T) {
	t.Parallel()

	direct, err := partition.NewDirectScheme(2)
	require.NoError(t, err)
	idx, err := partition.NewIndexedScheme(map[int64]string{0: "left", 1: "right"})
	require.NoError(t, err)

	cases := []struct {
		desc   string
		scheme partition.Scheme
		key    partition.Key
		name   string
		err    error
	}{
		{desc: "direct name", scheme: direct, key: partition.Key{Name: "a"}, name: "a"},
		{desc: "direct without name", scheme: direct, key: partition.Key{Index: 1}, err: partition.ErrUnknownPartition},
		{desc: "indexed lookup", scheme: idx, key: partition.Key{Index: 1}, name: "right"},
		{desc: "indexed zero index", scheme: idx, key: partition.Key{}, name: "left"},
		{desc: "indexed ignores name", scheme: idx, key: partition.Key{Name: "other", Index: 0}, name: "left"},
		{desc: "indexed unknown", scheme: idx, key: partition.Key{Index: 2}, err: partition.ErrUnknownPartition},
		{desc: "unset scheme", scheme: partition.Scheme{}, key: partition.Key{Name: "a"}, err: partition.ErrConfiguration},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			name, err := tc.scheme.Resolve(tc.key)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.name, name)
		})
	}
}
