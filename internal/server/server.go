// Package server is the WebSocket gateway. Each session socket carries one
// conversation: turn frames in, decision frames out, with widget
// register/unregister frames feeding the focus latch. A separate events
// socket streams telemetry to observers. The gateway serializes turns per
// conversation; a turn arriving while another is in flight supersedes it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
	"github.com/kmarchand/navigator/internal/store"
	"github.com/kmarchand/navigator/internal/telemetry"
)

// Endpoints served by Handler.
const (
	SessionEndpoint = "/session"
	EventsEndpoint  = "/events"
	HealthEndpoint  = "/health"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	// defaultEventReplay is how many recent telemetry events a new events
	// subscriber receives before live delivery starts.
	defaultEventReplay = 50
)

// Server hosts the gateway endpoints over a single dispatcher.
type Server struct {
	dispatcher *dispatch.Dispatcher
	bus        *telemetry.Bus
	audit      *store.Store
	flags      dialog.SessionFlags
	replay     int
	latchTTL   int
	log        zerolog.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu       sync.Mutex
	sessions map[string]*conn
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithBus attaches the telemetry bus streamed at the events endpoint.
func WithBus(b *telemetry.Bus) Option {
	return func(s *Server) { s.bus = b }
}

// WithStore attaches the decision audit log. Append failures are logged and
// ignored.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.audit = st }
}

// WithFlags sets the session flags applied to every turn.
func WithFlags(f dialog.SessionFlags) Option {
	return func(s *Server) { s.flags = f }
}

// WithLatchTTL sets how many turns a pending focus latch waits for its
// surface registration in new sessions.
func WithLatchTTL(turns int) Option {
	return func(s *Server) { s.latchTTL = turns }
}

// WithEventReplay sets how many telemetry events are replayed to a new
// events subscriber.
func WithEventReplay(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.replay = n
		}
	}
}

// New creates a gateway around the given dispatcher.
func New(d *dispatch.Dispatcher, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		replay:     defaultEventReplay,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SessionEndpoint, s.handleSession)
	mux.HandleFunc(EventsEndpoint, s.handleEvents)
	mux.HandleFunc(HealthEndpoint, s.handleHealth)
	return mux
}

// ListenAndServe blocks serving the gateway on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	s.log.Info().Str("addr", addr).Msg("gateway listening")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes all session sockets and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	for _, c := range s.sessions {
		c.stop()
	}
	s.mu.Unlock()

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

// SessionCount reports the number of live conversation sockets.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("session upgrade failed")
		return
	}

	c := newConn(s, ws)
	s.mu.Lock()
	s.sessions[c.state.ID] = c
	s.mu.Unlock()
	s.log.Info().Str("session", c.state.ID).Msg("session opened")

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.writeTicker()
	}()
	go func() {
		defer s.wg.Done()
		c.dispatchLoop()
	}()

	c.readLoop()

	s.mu.Lock()
	delete(s.sessions, c.state.ID)
	s.mu.Unlock()
	s.log.Info().Str("session", c.state.ID).Msg("session closed")
}

// handleEvents streams telemetry to an observer socket: bounded history
// first, then live events until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "telemetry disabled", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("events upgrade failed")
		return
	}
	defer ws.Close()

	var writeMu sync.Mutex
	send := func(ev telemetry.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteMessage(websocket.TextMessage, data)
	}

	for _, ev := range s.bus.Recent(s.replay) {
		if err := send(ev); err != nil {
			return
		}
	}

	sub := s.bus.Subscribe("", func(ev telemetry.Event) {
		if err := send(ev); err != nil {
			ws.Close()
		}
	})
	defer s.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for range ticker.C {
			writeMu.Lock()
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	// Drain the read side to notice disconnects.
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	ws.Close()
	<-done
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Sessions  int    `json:"sessions"`
		Telemetry int    `json:"telemetry_history"`
	}{
		Status:   "ok",
		Service:  "navigator-gateway",
		Sessions: s.SessionCount(),
	}
	if s.bus != nil {
		health.Telemetry = len(s.bus.History())
	}
	if s.audit != nil {
		if err := s.audit.Health(r.Context()); err != nil {
			health.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
