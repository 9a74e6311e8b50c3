package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/partition"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	maxCloseReason  = 123
	shutdownMessage = "gateway shutting down"
)

type Config struct {
	MaxFrameSize int64 `env:"MAX_FRAME_SIZE" envDefault:"1048576"`
	// CloseOnError closes a connection whose frame cannot be decoded,
	// resolved or dispatched. When false the frame is dropped instead.
	CloseOnError bool `env:"CLOSE_ON_ERROR" envDefault:"true"`
}

// Listener serves simulation connections. Every connection is read by a
// single goroutine: a frame is fully handled, and a completed round's action
// written, before the next frame is read.
type Listener struct {
	svc      gateway.Service
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[string]*websocket.Conn
	closed bool
}

func NewListener(svc gateway.Service, cfg Config, logger *slog.Logger) *Listener {
	return &Listener{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
}

func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Error("WebSocket upgrade failed", slog.Any("error", err))

		return
	}
	if l.cfg.MaxFrameSize > 0 {
		conn.SetReadLimit(l.cfg.MaxFrameSize)
	}

	ctx := r.Context()
	sess, err := l.svc.Open(ctx, r.RemoteAddr)
	if err != nil {
		l.closeWith(conn, websocket.CloseInternalServerErr, err.Error())
		conn.Close()

		return
	}

	if !l.track(sess.ID, conn) {
		l.closeWith(conn, websocket.CloseGoingAway, shutdownMessage)
		conn.Close()
		_ = l.svc.Close(ctx, sess.ID)

		return
	}
	defer func() {
		l.untrack(sess.ID)
		conn.Close()
		if err := l.svc.Close(context.WithoutCancel(ctx), sess.ID); err != nil {
			l.logger.Warn("failed to close session", slog.String("session_id", sess.ID), slog.Any("error", err))
		}
	}()

	l.serve(ctx, conn, sess.ID)
}

func (l *Listener) serve(ctx context.Context, conn *websocket.Conn, sessionID string) {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				l.logger.Warn("Frame exceeds maximum size",
					slog.String("session_id", sessionID),
					slog.Int64("max_frame_size", l.cfg.MaxFrameSize))

				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l.logger.Warn("WebSocket error", slog.String("session_id", sessionID), slog.Any("error", err))
			}

			return
		}

		if typ != websocket.BinaryMessage {
			if l.reject(conn, sessionID, errTextFrame) {
				return
			}

			continue
		}

		res, err := l.svc.Handle(ctx, sessionID, data)
		if err != nil {
			if l.reject(conn, sessionID, err) {
				return
			}

			continue
		}
		if !res.Complete {
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, res.Response); err != nil {
			l.logger.Warn("Failed to send action to WebSocket client", slog.String("session_id", sessionID), slog.Any("error", err))

			return
		}
	}
}

var errTextFrame = errors.New("text frames are not supported")

// reject applies the error policy to a failed frame and reports whether the
// connection was closed.
func (l *Listener) reject(conn *websocket.Conn, sessionID string, err error) bool {
	if l.cfg.CloseOnError {
		l.closeWith(conn, closeCode(err), err.Error())

		return true
	}

	l.logger.Warn("Dropped frame", slog.String("session_id", sessionID), slog.Any("error", err))

	return false
}

func closeCode(err error) int {
	switch {
	case errors.Is(err, partition.ErrDecode),
		errors.Is(err, partition.ErrUnknownPartition),
		errors.Is(err, errTextFrame):
		return websocket.CloseUnsupportedData
	default:
		return websocket.CloseInternalServerErr
	}
}

func (l *Listener) closeWith(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		l.logger.Debug("failed to send close frame", slog.Any("error", err))
	}
}

func (l *Listener) track(id string, conn *websocket.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.conns[id] = conn

	return true
}

func (l *Listener) untrack(id string) {
	l.mu.Lock()
	delete(l.conns, id)
	l.mu.Unlock()
}

// Shutdown sends a close frame to every open connection and closes it. New
// connections are refused afterwards.
func (l *Listener) Shutdown() {
	l.mu.Lock()
	l.closed = true
	conns := make([]*websocket.Conn, 0, len(l.conns))
	for _, conn := range l.conns {
		conns = append(conns, conn)
	}
	l.mu.Unlock()

	for _, conn := range conns {
		l.closeWith(conn, websocket.CloseGoingAway, shutdownMessage)
		conn.Close()
	}
}
