// Package partition accumulates partitioned simulation state into rounds and
// dispatches every complete round to a decision function.
//
// An Aggregator holds the buffer for a single data source. It is not safe for
// concurrent use: frames of one connection must be ingested sequentially, and
// the decision function runs on the caller's goroutine before Ingest returns.
package partition

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/absmach/dexgate/pkg/wire"
)

type State uint8

const (
	Accumulating State = iota
	Dispatching
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Dispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// Update is a decoded partition update.
type Update struct {
	Key       Key
	Timestamp float64
	Values    []float64
}

// ActionTaker chooses the next action from the complete state of a round.
type ActionTaker interface {
	TakeNextAction(ctx context.Context, time float64, states map[string][]float64) ([]float64, error)
}

// ActionTakerFunc adapts a plain function to ActionTaker.
type ActionTakerFunc func(ctx context.Context, time float64, states map[string][]float64) ([]float64, error)

func (f ActionTakerFunc) TakeNextAction(ctx context.Context, time float64, states map[string][]float64) ([]float64, error) {
	return f(ctx, time, states)
}

// Result reports the outcome of ingesting one update. When Complete is false
// the remaining fields are empty.
type Result struct {
	Complete  bool
	Timestamp float64
	States    map[string][]float64
	Action    []float64
	// Response is the encoded action, ready to be sent as one frame.
	Response []byte
}

type Aggregator struct {
	scheme    Scheme
	taker     ActionTaker
	entries   map[string][]float64
	timestamp float64
	state     State
	rounds    uint64
}

func NewAggregator(scheme Scheme, taker ActionTaker) (*Aggregator, error) {
	if err := scheme.Validate(); err != nil {
		return nil, err
	}
	if taker == nil {
		return nil, fmt.Errorf("%w: decision function is required", ErrConfiguration)
	}

	return &Aggregator{
		scheme:  scheme,
		taker:   taker,
		entries: make(map[string][]float64, scheme.Expected()),
	}, nil
}

// Ingest decodes a raw frame and adds it to the current round.
func (a *Aggregator) Ingest(ctx context.Context, frame []byte) (Result, error) {
	if a.state == Dispatching {
		return Result{}, ErrDispatching
	}

	var msg wire.PartitionState
	if err := msg.Unmarshal(frame); err != nil {
		return Result{}, errors.Join(ErrDecode, err)
	}

	return a.Add(ctx, Update{
		Key:       Key{Name: msg.PartitionName, Index: msg.PartitionIndex},
		Timestamp: msg.CumulativeTimesteps,
		Values:    msg.State.Values,
	})
}

// Add inserts an already decoded update. A partition sent twice within a
// round keeps only its latest values. When the update completes the round,
// the decision function is invoked and the buffer is cleared, whether or not
// the decision succeeded.
func (a *Aggregator) Add(ctx context.Context, u Update) (Result, error) {
	if a.state == Dispatching {
		return Result{}, ErrDispatching
	}

	name, err := a.scheme.Resolve(u.Key)
	if err != nil {
		return Result{}, err
	}

	a.entries[name] = u.Values
	a.timestamp = u.Timestamp

	if len(a.entries) < a.scheme.Expected() {
		return Result{}, nil
	}

	return a.dispatch(ctx)
}

func (a *Aggregator) dispatch(ctx context.Context) (Result, error) {
	a.state = Dispatching
	states := maps.Clone(a.entries)
	timestamp := a.timestamp
	defer func() {
		clear(a.entries)
		a.state = Accumulating
	}()

	action, err := a.taker.TakeNextAction(ctx, timestamp, states)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCallback, err)
	}
	a.rounds++

	return Result{
		Complete:  true,
		Timestamp: timestamp,
		States:    states,
		Action:    action,
		Response:  wire.State{Values: action}.Marshal(),
	}, nil
}

// Reset drops the in-progress round without invoking the decision function.
func (a *Aggregator) Reset() {
	clear(a.entries)
	a.timestamp = 0
}

func (a *Aggregator) State() State {
	return a.state
}

func (a *Aggregator) Scheme() Scheme {
	return a.scheme
}

// Len returns the number of distinct partitions buffered for the current round.
func (a *Aggregator) Len() int {
	return len(a.entries)
}

// Pending returns the sorted names buffered for the current round.
func (a *Aggregator) Pending() []string {
	return slices.Sorted(maps.Keys(a.entries))
}

// Rounds returns the number of rounds dispatched successfully.
func (a *Aggregator) Rounds() uint64 {
	return a.rounds
}
