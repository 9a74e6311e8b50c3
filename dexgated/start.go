package dexgated

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/dexgate"
	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/gateway/api"
	"github.com/absmach/dexgate/gateway/middleware"
	"github.com/absmach/dexgate/pkg/decision"
	"github.com/absmach/dexgate/pkg/mqtt"
	"github.com/absmach/dexgate/pkg/prometheus"
	"github.com/absmach/dexgate/pkg/server"
	"github.com/absmach/dexgate/pkg/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const svcName = "gateway"

// StartGateway runs the gateway until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func StartGateway(ctx context.Context, cancel context.CancelFunc, cfg dexgate.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	if cfg.InstanceID == "" {
		cfg.InstanceID = namegenerator.NewGenerator().Generate()
	}

	scheme, err := cfg.Partitions.Scheme()
	if err != nil {
		return fmt.Errorf("failed to load partition scheme: %w", err)
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := tracing.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	var notifier gateway.Notifier
	if cfg.MQTT.Address != "" {
		pubsub, err := mqtt.NewPubSub(mqtt.Config{
			Address:     cfg.MQTT.Address,
			ClientID:    cfg.InstanceID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         cfg.MQTT.QoS,
			Timeout:     cfg.MQTT.Timeout,
			StatusTopic: cfg.MQTT.Topic + "/status",
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				slog.Error("error disconnecting mqtt pubsub", slog.Any("error", err))
			}
		}()
		notifier = gateway.NewPubSubNotifier(pubsub, cfg.MQTT.Topic)
	}

	taker, closeTaker, err := decision.New(ctx, cfg.Decision)
	if err != nil {
		return fmt.Errorf("failed to initialize decision function: %w", err)
	}
	defer func() {
		if err := closeTaker(context.Background()); err != nil {
			slog.Error("error closing decision function", slog.Any("error", err))
		}
	}()

	svc, err := gateway.NewService(scheme, taker, cfg.SharedRound, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway service: %w", err)
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	logger.Info("partition scheme loaded",
		slog.String("instance_id", cfg.InstanceID),
		slog.String("kind", scheme.Kind().String()),
		slog.Int("expected", scheme.Expected()),
		slog.Bool("shared_round", cfg.SharedRound),
		slog.String("decision", cfg.Decision.Kind),
	)

	ln := api.NewListener(svc, cfg.Listener, logger)
	hs := server.NewHTTPServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, ln, logger, cfg.InstanceID), logger, ln.Shutdown)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))

		return err
	}

	return nil
}
