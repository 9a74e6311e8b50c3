// Package wire encodes and decodes the binary records exchanged with a
// simulation over the gateway connection. Records use the protobuf wire
// format so that simulations can produce them with generated code.
package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	partitionNameField  protowire.Number = 1
	partitionIndexField protowire.Number = 2
	timestepsField      protowire.Number = 3
	stateField          protowire.Number = 4

	valuesField protowire.Number = 1
)

var (
	ErrMalformed = errors.New("malformed record")
	ErrWireType  = errors.New("unexpected wire type")
)

// State is an ordered vector of values. It is both the payload of a
// partition update and the action sent back to the simulation.
type State struct {
	Values []float64
}

// PartitionState is one partition's update for a simulation timestep.
// Exactly one of PartitionName or PartitionIndex is meaningful, depending on
// the identifier scheme the gateway is configured with.
type PartitionState struct {
	PartitionName       string
	PartitionIndex      int64
	HasIndex            bool
	CumulativeTimesteps float64
	State               State
}

func (s State) Marshal() []byte {
	return s.appendTo(nil)
}

func (s State) appendTo(b []byte) []byte {
	if len(s.Values) == 0 {
		return b
	}
	packed := make([]byte, 0, 8*len(s.Values))
	for _, v := range s.Values {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, valuesField, protowire.BytesType)

	return protowire.AppendBytes(b, packed)
}

func (s *State) Unmarshal(b []byte) error {
	s.Values = s.Values[:0]
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if num != valuesField {
			if n = protowire.ConsumeFieldValue(num, typ, b); n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]

			continue
		}

		switch typ {
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			if len(packed)%8 != 0 {
				return fmt.Errorf("%w: packed values length %d is not a multiple of 8", ErrMalformed, len(packed))
			}
			for len(packed) > 0 {
				v, n := protowire.ConsumeFixed64(packed)
				if n < 0 {
					return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
				}
				s.Values = append(s.Values, math.Float64frombits(v))
				packed = packed[n:]
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			s.Values = append(s.Values, math.Float64frombits(v))
			b = b[n:]
		default:
			return fmt.Errorf("%w: values field has type %d", ErrWireType, typ)
		}
	}

	return nil
}

func (p PartitionState) Marshal() []byte {
	var b []byte
	if p.PartitionName != "" {
		b = protowire.AppendTag(b, partitionNameField, protowire.BytesType)
		b = protowire.AppendString(b, p.PartitionName)
	}
	if p.HasIndex {
		b = protowire.AppendTag(b, partitionIndexField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.PartitionIndex))
	}
	b = protowire.AppendTag(b, timestepsField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(p.CumulativeTimesteps))

	state := p.State.Marshal()
	b = protowire.AppendTag(b, stateField, protowire.BytesType)

	return protowire.AppendBytes(b, state)
}

func (p *PartitionState) Unmarshal(b []byte) error {
	*p = PartitionState{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case partitionNameField:
			if typ != protowire.BytesType {
				return fmt.Errorf("%w: partition_name has type %d", ErrWireType, typ)
			}
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			p.PartitionName = v
			b = b[n:]
		case partitionIndexField:
			if typ != protowire.VarintType {
				return fmt.Errorf("%w: partition_index has type %d", ErrWireType, typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			p.PartitionIndex = int64(v)
			p.HasIndex = true
			b = b[n:]
		case timestepsField:
			if typ != protowire.Fixed64Type {
				return fmt.Errorf("%w: cumulative_timesteps has type %d", ErrWireType, typ)
			}
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			p.CumulativeTimesteps = math.Float64frombits(v)
			b = b[n:]
		case stateField:
			if typ != protowire.BytesType {
				return fmt.Errorf("%w: state has type %d", ErrWireType, typ)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			if err := p.State.Unmarshal(v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return nil
}
