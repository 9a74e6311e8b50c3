package partition

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

type Kind uint8

const (
	// Direct partitions carry their name in every update.
	Direct Kind = iota + 1
	// Indexed partitions carry a small integer resolved through a name map.
	Indexed
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Indexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// Key identifies the partition an update originates from.
type Key struct {
	Name  string
	Index int64
}

func (k Key) String() string {
	if k.Name != "" {
		return k.Name
	}

	return strconv.FormatInt(k.Index, 10)
}

// Scheme fixes how many distinct partitions make a round and how a key is
// resolved to a partition name. The zero value is not usable.
type Scheme struct {
	kind     Kind
	expected int
	names    map[int64]string
}

func NewDirectScheme(expected int) (Scheme, error) {
	s := Scheme{kind: Direct, expected: expected}
	if err := s.Validate(); err != nil {
		return Scheme{}, err
	}

	return s, nil
}

// NewIndexedScheme builds a scheme from an index to name map. The number of
// expected partitions is the size of the map.
func NewIndexedScheme(names map[int64]string) (Scheme, error) {
	s := Scheme{kind: Indexed, expected: len(names), names: maps.Clone(names)}
	if err := s.Validate(); err != nil {
		return Scheme{}, err
	}

	return s, nil
}

func (s Scheme) Validate() error {
	switch s.kind {
	case Direct:
		if s.expected <= 0 {
			return fmt.Errorf("%w: expected partitions must be positive, got %d", ErrConfiguration, s.expected)
		}
	case Indexed:
		if len(s.names) == 0 {
			return fmt.Errorf("%w: partition name map is empty", ErrConfiguration)
		}
		seen := make(map[string]int64, len(s.names))
		for _, idx := range slices.Sorted(maps.Keys(s.names)) {
			name := s.names[idx]
			if name == "" {
				return fmt.Errorf("%w: partition %d has an empty name", ErrConfiguration, idx)
			}
			if prev, ok := seen[name]; ok {
				return fmt.Errorf("%w: partitions %d and %d share the name %q", ErrConfiguration, prev, idx, name)
			}
			seen[name] = idx
		}
	default:
		return fmt.Errorf("%w: identifier scheme is not set", ErrConfiguration)
	}

	return nil
}

func (s Scheme) Kind() Kind {
	return s.kind
}

// Expected returns the number of distinct partitions that complete a round.
func (s Scheme) Expected() int {
	return s.expected
}

func (s Scheme) Names() map[int64]string {
	return maps.Clone(s.names)
}

// Resolve maps a key to its partition name. Indexed schemes ignore the key's
// name and always look the index up, since encoders omit a zero index.
func (s Scheme) Resolve(k Key) (string, error) {
	switch s.kind {
	case Direct:
		if k.Name == "" {
			return "", fmt.Errorf("%w: update carries no partition name", ErrUnknownPartition)
		}

		return k.Name, nil
	case Indexed:
		name, ok := s.names[k.Index]
		if !ok {
			return "", fmt.Errorf("%w: no name for index %d", ErrUnknownPartition, k.Index)
		}

		return name, nil
	default:
		return "", fmt.Errorf("%w: identifier scheme is not set", ErrConfiguration)
	}
}
