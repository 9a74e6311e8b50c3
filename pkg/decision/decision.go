// Package decision provides decision functions that choose the next action
// of a simulation from the complete state of a round.
package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/dexgate/partition"
)

var (
	ErrUnknownKind = errors.New("unknown decision kind")
	ErrInvalidSize = errors.New("action size must not be negative")
)

const (
	KindZero = "zero"
	KindHTTP = "http"
	KindWasm = "wasm"
)

type zero struct {
	size int
}

// Zero returns a decision function that always answers with a zero vector of
// the given size.
func Zero(size int) (partition.ActionTaker, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	return &zero{size: size}, nil
}

func (z *zero) TakeNextAction(ctx context.Context, _ float64, _ map[string][]float64) ([]float64, error) {
	return make([]float64, z.size), nil
}

type deadline struct {
	taker   partition.ActionTaker
	timeout time.Duration
}

// WithTimeout bounds every decision with a context deadline. A decision
// function that ignores its context is not interrupted. A non-positive
// timeout returns taker unchanged.
func WithTimeout(taker partition.ActionTaker, timeout time.Duration) partition.ActionTaker {
	if timeout <= 0 {
		return taker
	}

	return &deadline{taker: taker, timeout: timeout}
}

func (d *deadline) TakeNextAction(ctx context.Context, time float64, states map[string][]float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	action, err := d.taker.TakeNextAction(ctx, time, states)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return action, nil
}
