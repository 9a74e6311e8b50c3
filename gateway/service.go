package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/absmach/dexgate/partition"
	"github.com/absmach/dexgate/pkg/storage"
	"github.com/google/uuid"
)

var _ Service = (*service)(nil)

// Session describes one open simulation connection.
type Session struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	OpenedAt   time.Time `json:"opened_at"`
	Rounds     uint64    `json:"rounds"`
	Pending    int       `json:"pending"`
}

type Service interface {
	// Open registers a connection and creates its round buffer.
	Open(ctx context.Context, remoteAddr string) (Session, error)

	// Handle ingests one inbound frame for the session. Frames of one session
	// must not be handled concurrently; the decision function runs before
	// Handle returns.
	Handle(ctx context.Context, sessionID string, frame []byte) (partition.Result, error)

	// Reset drops the session's in-progress round. A shared round is left
	// untouched, since other sessions contribute to it.
	Reset(ctx context.Context, sessionID string) error

	// Close drops the session and its round buffer.
	Close(ctx context.Context, sessionID string) error

	ListSessions(ctx context.Context) ([]Session, error)
}

type session struct {
	mu   sync.Mutex
	info Session
	agg  *partition.Aggregator
}

// sharedRound is a single round buffer fed by every connection. All
// connections' rounds serialize on its mutex.
type sharedRound struct {
	mu  sync.Mutex
	agg *partition.Aggregator
}

type service struct {
	scheme   partition.Scheme
	taker    partition.ActionTaker
	shared   *sharedRound
	notifier Notifier
	logger   *slog.Logger
	sessions storage.Storage[*session]
}

// NewService creates a gateway service. With shared set, all
// connections feed a single round buffer; otherwise every connection owns
// its own buffer. A nil notifier disables round notifications.
func NewService(scheme partition.Scheme, taker partition.ActionTaker, shared bool, notifier Notifier, logger *slog.Logger) (Service, error) {
	svc := &service{
		scheme:   scheme,
		taker:    taker,
		notifier: notifier,
		logger:   logger,
		sessions: storage.NewInMemoryStorage[*session](),
	}

	agg, err := partition.NewAggregator(scheme, taker)
	if err != nil {
		return nil, err
	}
	if shared {
		svc.shared = &sharedRound{agg: agg}
	}

	return svc, nil
}

func (svc *service) Open(ctx context.Context, remoteAddr string) (Session, error) {
	s := &session{
		info: Session{
			ID:         uuid.NewString(),
			RemoteAddr: remoteAddr,
			OpenedAt:   time.Now().UTC(),
		},
	}

	if svc.shared == nil {
		agg, err := partition.NewAggregator(svc.scheme, svc.taker)
		if err != nil {
			return Session{}, err
		}
		s.agg = agg
	}

	if err := svc.sessions.Create(ctx, s.info.ID, s); err != nil {
		return Session{}, err
	}

	return s.info, nil
}

func (svc *service) Handle(ctx context.Context, sessionID string, frame []byte) (partition.Result, error) {
	s, err := svc.session(ctx, sessionID)
	if err != nil {
		return partition.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res partition.Result
	if svc.shared != nil {
		svc.shared.mu.Lock()
		res, err = svc.shared.agg.Ingest(ctx, frame)
		svc.shared.mu.Unlock()
	} else {
		res, err = s.agg.Ingest(ctx, frame)
	}
	if err != nil {
		return partition.Result{}, err
	}

	if res.Complete {
		s.info.Rounds++
		svc.notify(ctx, sessionID, res)
	}

	return res, nil
}

func (svc *service) Reset(ctx context.Context, sessionID string) error {
	s, err := svc.session(ctx, sessionID)
	if err != nil {
		return err
	}

	// The shared round holds partitions of other sessions too.
	if svc.shared != nil {
		return nil
	}

	s.mu.Lock()
	s.agg.Reset()
	s.mu.Unlock()

	return nil
}

func (svc *service) Close(ctx context.Context, sessionID string) error {
	if err := svc.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to close session %q: %w", sessionID, err)
	}

	return nil
}

func (svc *service) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := svc.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	pending := -1
	if svc.shared != nil {
		svc.shared.mu.Lock()
		pending = svc.shared.agg.Len()
		svc.shared.mu.Unlock()
	}

	list := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		info := s.info
		if s.agg != nil {
			info.Pending = s.agg.Len()
		} else {
			info.Pending = pending
		}
		s.mu.Unlock()
		list = append(list, info)
	}

	slices.SortFunc(list, func(a, b Session) int {
		return a.OpenedAt.Compare(b.OpenedAt)
	})

	return list, nil
}

func (svc *service) session(ctx context.Context, id string) (*session, error) {
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %q: %w", id, err)
	}

	return s, nil
}

func (svc *service) notify(ctx context.Context, sessionID string, res partition.Result) {
	if svc.notifier == nil {
		return
	}

	round := Round{
		SessionID: sessionID,
		Timestamp: res.Timestamp,
		States:    res.States,
		Action:    res.Action,
	}
	if err := svc.notifier.Notify(ctx, round); err != nil {
		svc.logger.Warn("failed to publish round notification",
			slog.String("session_id", sessionID),
			slog.Float64("timestamp", res.Timestamp),
			slog.Any("error", err))
	}
}
