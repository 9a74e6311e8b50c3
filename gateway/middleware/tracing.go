package middleware

import (
	"context"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/partition"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ gateway.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    gateway.Service
}

func Tracing(tracer trace.Tracer, svc gateway.Service) gateway.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Open(ctx context.Context, remoteAddr string) (resp gateway.Session, err error) {
	ctx, span := tm.tracer.Start(ctx, "open-session", trace.WithAttributes(
		attribute.String("remote_addr", remoteAddr),
	))
	defer span.End()

	return tm.svc.Open(ctx, remoteAddr)
}

func (tm *tracing) Handle(ctx context.Context, sessionID string, frame []byte) (resp partition.Result, err error) {
	ctx, span := tm.tracer.Start(ctx, "handle-frame", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("frame_size", len(frame)),
	))
	defer func() {
		span.SetAttributes(attribute.Bool("round_complete", resp.Complete))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return tm.svc.Handle(ctx, sessionID, frame)
}

func (tm *tracing) Reset(ctx context.Context, sessionID string) error {
	ctx, span := tm.tracer.Start(ctx, "reset-session", trace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
	defer span.End()

	return tm.svc.Reset(ctx, sessionID)
}

func (tm *tracing) Close(ctx context.Context, sessionID string) error {
	ctx, span := tm.tracer.Start(ctx, "close-session", trace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
	defer span.End()

	return tm.svc.Close(ctx, sessionID)
}

func (tm *tracing) ListSessions(ctx context.Context) ([]gateway.Session, error) {
	ctx, span := tm.tracer.Start(ctx, "list-sessions")
	defer span.End()

	return tm.svc.ListSessions(ctx)
}
