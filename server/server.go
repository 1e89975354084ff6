// Package server hosts a holodeck over WebSocket using the Game On room
// protocol. Every frame is "<kind>,<target>,<json>"; output for a player is
// fanned out to every session linked to that player's group.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/holodeck"
	"github.com/nathoo/holoroom/observe"
)

const (
	outboxSize   = 256
	writeTimeout = 5 * time.Second
)

// Deck is the game the server drives.
type Deck interface {
	AddPlayer(playerID, name string)
	RemovePlayer(playerID string)
	Command(playerID, text string)
}

// Options configures a Server.
type Options struct {
	// RoomID is the path segment clients connect to: /ws/<RoomID>.
	RoomID          string
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
	Metrics         *observe.Metrics
	// Metrics handler mounted at /metrics. Nil leaves the route out.
	MetricsHandler http.Handler
}

// Server is the WebSocket front end. It is also the events.Sink of the
// deck it drives.
type Server struct {
	opts    Options
	deck    Deck
	logger  *slog.Logger
	metrics *observe.Metrics
	started time.Time

	bookmark atomic.Int64

	mu       sync.Mutex
	sessions map[*session]struct{}
	groups   map[string]map[*session]struct{}
}

// New creates a server. build receives the server as the sink for the deck
// it constructs.
func New(build func(events.Sink) (Deck, error), opts Options) (*Server, error) {
	if opts.RoomID == "" {
		return nil, errors.New("server: room id is required")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		started:  time.Now(),
		sessions: map[*session]struct{}{},
		groups:   map[string]map[*session]struct{}{},
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("room", opts.RoomID)

	deck, err := build(s)
	if err != nil {
		return nil, fmt.Errorf("building deck: %w", err)
	}
	s.deck = deck
	return s, nil
}

// Handler returns the HTTP routes: the WebSocket endpoint, /healthz and,
// when configured, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room}", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}
	return mux
}

// Run serves on opts.Addr until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		s.closeSessions()
		sctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"room":           s.opts.RoomID,
		"sessions":       n,
		"uptime_seconds": time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("room") != s.opts.RoomID {
		http.NotFound(w, r)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sess := newSession(conn, cancel, s.logger.With("remote", r.RemoteAddr))
	s.addSession(sess)
	s.metrics.SessionOpened(ctx)
	defer func() {
		s.dropSession(sess)
		s.metrics.SessionClosed(context.Background())
		sess.close(websocket.StatusNormalClosure, "")
	}()

	go sess.writeLoop(ctx)
	sess.send(ackFrame)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				sess.logger.Debug("read failed", "err", err)
			}
			return
		}
		s.handleFrame(sess, string(data))
	}
}

func (s *Server) handleFrame(sess *session, msg string) {
	kind, target, body, err := parseFrame(msg)
	if err != nil {
		sess.logger.Warn("bad frame", "err", err)
		return
	}
	if target != s.opts.RoomID {
		sess.logger.Warn("frame for another room", "kind", kind, "target", target)
		return
	}
	if body.UserID == "" {
		sess.logger.Warn("frame without userId", "kind", kind)
		return
	}
	log := sess.logger.With("player", body.UserID)

	switch kind {
	case kindHello, kindJoin:
		log.Info("hello", "name", body.Username)
		s.link(sess, body.UserID)
		s.deck.AddPlayer(body.UserID, body.Username)
	case kindGoodbye, kindPart:
		log.Info("goodbye")
		s.deck.RemovePlayer(body.UserID)
		s.unlink(sess, body.UserID)
	case kindRoom:
		if strings.HasPrefix(body.Content, "/") {
			s.deck.Command(body.UserID, body.Content[1:])
			return
		}
		s.broadcast(body.UserID, chatFrame(body.Username, body.Content, s.bookmark.Add(1)))
	default:
		log.Warn("unknown frame kind", "kind", kind)
	}
}

// PlayerEvent implements events.Sink.
func (s *Server) PlayerEvent(e events.Player) {
	if e.Self == "" && e.Others == "" {
		return
	}
	s.broadcast(e.SenderID, eventFrame(e, s.bookmark.Add(1)))
}

// LocationEvent implements events.Sink.
func (s *Server) LocationEvent(e events.Location) {
	s.broadcast(e.PlayerID, locationFrame(e, s.bookmark.Add(1)))
}

// ExitEvent implements events.Sink.
func (s *Server) ExitEvent(e events.Exit) {
	s.broadcast(e.PlayerID, exitFrame(e, s.bookmark.Add(1)))
}

// broadcast sends msg once to every live session of playerID's group.
func (s *Server) broadcast(playerID, msg string) {
	group := holodeck.GroupFor(playerID)
	s.mu.Lock()
	targets := make([]*session, 0, len(s.groups[group]))
	for sess := range s.groups[group] {
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	for _, sess := range targets {
		sess.send(msg)
	}
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

// dropSession unlinks sess from every group and removes its players from
// the deck.
func (s *Server) dropSession(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	players := sess.playerIDs()
	s.mu.Unlock()

	for _, id := range players {
		s.deck.RemovePlayer(id)
		s.unlink(sess, id)
	}
}

func (s *Server) link(sess *session, playerID string) {
	group := holodeck.GroupFor(playerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.players[playerID] = group
	if s.groups[group] == nil {
		s.groups[group] = map[*session]struct{}{}
	}
	s.groups[group][sess] = struct{}{}
	sess.logger.Debug("linked", "player", playerID, "group", group)
}

// unlink removes playerID from sess. The session leaves the group once no
// other player on it belongs there.
func (s *Server) unlink(sess *session, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := sess.players[playerID]
	if !ok {
		return
	}
	delete(sess.players, playerID)
	for _, g := range sess.players {
		if g == group {
			return
		}
	}
	delete(s.groups[group], sess)
	if len(s.groups[group]) == 0 {
		delete(s.groups, group)
	}
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	all := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.Unlock()
	for _, sess := range all {
		sess.close(websocket.StatusGoingAway, "server shutting down")
	}
}
