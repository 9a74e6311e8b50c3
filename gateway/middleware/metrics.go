package middleware

import (
	"context"
	"time"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/partition"
	"github.com/go-kit/kit/metrics"
)

var _ gateway.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     gateway.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc gateway.Service) gateway.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Open(ctx context.Context, remoteAddr string) (gateway.Session, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "open-session").Add(1)
		mm.latency.With("method", "open-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Open(ctx, remoteAddr)
}

// Handle additionally counts dispatched rounds, so that the decision latency
// can be told apart from plain buffering.
func (mm *metricsMiddleware) Handle(ctx context.Context, sessionID string, frame []byte) (resp partition.Result, err error) {
	defer func(begin time.Time) {
		method := "handle-frame"
		if resp.Complete {
			method = "dispatch-round"
		}
		mm.counter.With("method", method).Add(1)
		mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Handle(ctx, sessionID, frame)
}

func (mm *metricsMiddleware) Reset(ctx context.Context, sessionID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "reset-session").Add(1)
		mm.latency.With("method", "reset-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Reset(ctx, sessionID)
}

func (mm *metricsMiddleware) Close(ctx context.Context, sessionID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "close-session").Add(1)
		mm.latency.With("method", "close-session").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Close(ctx, sessionID)
}

func (mm *metricsMiddleware) ListSessions(ctx context.Context) ([]gateway.Session, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-sessions").Add(1)
		mm.latency.With("method", "list-sessions").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListSessions(ctx)
}
