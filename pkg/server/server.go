package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	stopWaitTime      = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type Config struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"2112"`
}

type Server interface {
	Start() error
	Stop() error
}

type HTTPServer struct {
	ctx     context.Context
	cancel  context.CancelFunc
	name    string
	address string
	server  *http.Server
	logger  *slog.Logger
	ready   chan string
}

var _ Server = (*HTTPServer)(nil)

// NewHTTPServer creates a server for handler. Functions in onShutdown run
// when the server stops; they close connections the server no longer owns,
// such as hijacked WebSocket connections.
func NewHTTPServer(ctx context.Context, cancel context.CancelFunc, name string, cfg Config, handler http.Handler, logger *slog.Logger, onShutdown ...func()) *HTTPServer {
	address := net.JoinHostPort(cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	for _, fn := range onShutdown {
		srv.RegisterOnShutdown(fn)
	}

	return &HTTPServer{
		ctx:     ctx,
		cancel:  cancel,
		name:    name,
		address: address,
		server:  srv,
		logger:  logger,
		ready:   make(chan string, 1),
	}
}

// Ready receives the bound address once the server accepts connections.
func (s *HTTPServer) Ready() <-chan string {
	return s.ready
}

func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	addr := ln.Addr().String()
	s.logger.Info(fmt.Sprintf("%s listening", s.name), slog.String("url", "ws://"+addr))
	s.ready <- addr

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop() error {
	defer s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), stopWaitTime)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("%s service error occurred during shutdown at %s: %s", s.name, s.address, err))

		return fmt.Errorf("%s service occurred during shutdown at %s: %w", s.name, s.address, err)
	}
	s.logger.Info(fmt.Sprintf("%s service shutdown of http at %s", s.name, s.address))

	return nil
}

// StopSignalHandler stops the servers on SIGINT, SIGTERM or when ctx is done.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	var err error
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))
	case <-ctx.Done():
	}

	defer cancel()
	for _, s := range servers {
		if stopErr := s.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}

	return err
}
