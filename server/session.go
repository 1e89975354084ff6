package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
)

// session is one WebSocket connection. A mediator may multiplex several
// players over one session. players is guarded by Server.mu.
type session struct {
	conn    *websocket.Conn
	cancel  context.CancelFunc
	logger  *slog.Logger
	out     chan string
	players map[string]string // player id -> group

	closed    atomic.Bool
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, cancel context.CancelFunc, logger *slog.Logger) *session {
	return &session{
		conn:    conn,
		cancel:  cancel,
		logger:  logger,
		out:     make(chan string, outboxSize),
		players: map[string]string{},
	}
}

// send queues msg unless the session is closed. A session that cannot keep
// up is closed rather than blocking the group.
func (s *session) send(msg string) {
	if s.closed.Load() {
		return
	}
	select {
	case s.out <- msg:
	default:
		s.logger.Warn("outbox full, closing session")
		s.closed.Store(true)
		go s.close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Write(wctx, websocket.MessageText, []byte(msg))
			cancel()
			if err != nil {
				s.logger.Debug("write failed", "err", err)
				s.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (s *session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.conn.Close(code, reason)
		s.cancel()
	})
}

func (s *session) playerIDs() []string {
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	return ids
}
