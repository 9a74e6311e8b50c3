package middleware_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/gateway/middleware"
	"github.com/absmach/dexgate/partition"
	"github.com/absmach/dexgate/pkg/wire"
	"github.com/go-kit/kit/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type methodCounter struct {
	method string
	counts map[string]float64
}

func (c *methodCounter) With(labelValues ...string) metrics.Counter {
	return &methodCounter{method: labelValues[len(labelValues)-1], counts: c.counts}
}

func (c *methodCounter) Add(delta float64) {
	c.counts[c.method] += delta
}

type methodHistogram struct {
	method string
	counts map[string]int
}

func (h *methodHistogram) With(labelValues ...string) metrics.Histogram {
	return &methodHistogram{method: labelValues[len(labelValues)-1], counts: h.counts}
}

func (h *methodHistogram) Observe(float64) {
	h.counts[h.method]++
}

func TestMiddlewareChain(t *testing.T) {
	t.Parallel()

	scheme, err := partition.NewDirectScheme(2)
	require.NoError(t, err)
	taker := partition.ActionTakerFunc(func(context.Context, float64, map[string][]float64) ([]float64, error) {
		return []float64{1}, nil
	})
	svc, err := gateway.NewService(scheme, taker, false, nil, slog.Default())
	require.NoError(t, err)

	counter := &methodCounter{counts: map[string]float64{}}
	latency := &methodHistogram{counts: map[string]int{}}
	svc = middleware.Logging(slog.Default(), svc)
	svc = middleware.Tracing(noop.NewTracerProvider().Tracer("test"), svc)
	svc = middleware.Metrics(counter, latency, svc)

	ctx := context.Background()
	s, err := svc.Open(ctx, "addr")
	require.NoError(t, err)

	for _, name := range []string{"a", "b"} {
		msg := wire.PartitionState{PartitionName: name, CumulativeTimesteps: 1, State: wire.State{Values: []float64{1}}}
		_, err := svc.Handle(ctx, s.ID, msg.Marshal())
		require.NoError(t, err)
	}

	_, err = svc.ListSessions(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, s.ID))

	assert.Equal(t, map[string]float64{
		"open-session":   1,
		"handle-frame":   1,
		"dispatch-round": 1,
		"list-sessions":  1,
		"close-session":  1,
	}, counter.counts)
	assert.Equal(t, 1, latency.counts["dispatch-round"])
}
