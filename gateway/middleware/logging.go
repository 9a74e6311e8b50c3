package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/partition"
)

var _ gateway.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    gateway.Service
}

func Logging(logger *slog.Logger, svc gateway.Service) gateway.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Open(ctx context.Context, remoteAddr string) (resp gateway.Session, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", resp.ID),
				slog.String("remote_addr", remoteAddr),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Open session failed", args...)

			return
		}
		lm.logger.Info("Open session completed successfully", args...)
	}(time.Now())

	return lm.svc.Open(ctx, remoteAddr)
}

// Handle runs once per frame, so incomplete rounds are logged at debug level.
func (lm *loggingMiddleware) Handle(ctx context.Context, sessionID string, frame []byte) (resp partition.Result, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", sessionID),
			),
			slog.Int("frame_size", len(frame)),
		}
		switch {
		case err != nil:
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Handle frame failed", args...)
		case resp.Complete:
			args = append(args,
				slog.Float64("timestamp", resp.Timestamp),
				slog.Int("partitions", len(resp.States)),
				slog.Int("action_size", len(resp.Action)),
			)
			lm.logger.Info("Round dispatched successfully", args...)
		default:
			lm.logger.Debug("Handle frame completed successfully", args...)
		}
	}(time.Now())

	return lm.svc.Handle(ctx, sessionID, frame)
}

func (lm *loggingMiddleware) Reset(ctx context.Context, sessionID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", sessionID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Reset session failed", args...)

			return
		}
		lm.logger.Info("Reset session completed successfully", args...)
	}(time.Now())

	return lm.svc.Reset(ctx, sessionID)
}

func (lm *loggingMiddleware) Close(ctx context.Context, sessionID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("session",
				slog.String("id", sessionID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Close session failed", args...)

			return
		}
		lm.logger.Info("Close session completed successfully", args...)
	}(time.Now())

	return lm.svc.Close(ctx, sessionID)
}

func (lm *loggingMiddleware) ListSessions(ctx context.Context) (resp []gateway.Session, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List sessions failed", args...)

			return
		}
		args = append(args, slog.Int("session_count", len(resp)))
		lm.logger.Info("List sessions completed successfully", args...)
	}(time.Now())

	return lm.svc.ListSessions(ctx)
}
