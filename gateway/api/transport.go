package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/pkg/api"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MakeHandler routes simulation connections on "/" to the listener, next to
// the gateway's operational endpoints.
func MakeHandler(svc gateway.Service, ln *Listener, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(loggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/", ln.ServeHTTP)

	mux.Get("/sessions", otelhttp.NewHandler(kithttp.NewServer(
		listSessionsEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "list-sessions").ServeHTTP)

	mux.Get("/health", kithttp.NewServer(
		healthEndpoint(instanceID),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	).ServeHTTP)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func loggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		logger.Warn("HTTP request failed", slog.Any("error", err))
		enc(ctx, err, w)
	}
}
