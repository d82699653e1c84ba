package server

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
	"github.com/kmarchand/navigator/internal/match"
	"github.com/kmarchand/navigator/internal/session"
	"github.com/kmarchand/navigator/internal/store"
	"github.com/kmarchand/navigator/internal/telemetry"
)

// turnJob is one queued turn. Epoch identifies it against later turns: a job
// whose epoch is no longer current is stale and its result is discarded.
type turnJob struct {
	epoch int64
	text  string
}

// conn is one conversation socket. Turns are dispatched one at a time; a new
// turn frame cancels the in-flight dispatch and supersedes its result.
type conn struct {
	srv   *Server
	ws    *websocket.Conn
	log   zerolog.Logger
	state *session.State

	stateMu sync.Mutex
	writeMu sync.Mutex

	jobs  chan turnJob
	epoch atomic.Int64

	inflightMu sync.Mutex
	inflight   context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(s *Server, ws *websocket.Conn) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	st := session.New()
	st.LatchTTL = s.latchTTL
	return &conn{
		srv:    s,
		ws:     ws,
		log:    s.log.With().Str("session", st.ID).Logger(),
		state:  st,
		jobs:   make(chan turnJob, 8),
		ctx:    ctx,
		cancel: cancel,
	}
}

// stop tears the socket down from outside the read loop.
func (c *conn) stop() {
	c.cancel()
	c.ws.Close()
}

// readLoop consumes frames until the socket dies. It is the sole sender on
// c.jobs and closes it on exit.
func (c *conn) readLoop() {
	defer func() {
		c.supersede()
		c.cancel()
		close(c.jobs)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("session read ended")
			}
			return
		}

		switch f.Type {
		case FrameTurn:
			epoch := c.epoch.Add(1)
			c.supersede()
			c.enqueue(turnJob{epoch: epoch, text: f.Text})

		case FrameWidgetRegister:
			if f.SurfaceID == "" {
				c.writeFrame(errorFrame("widget_register requires surface_id"))
				continue
			}
			c.stateMu.Lock()
			resolved := c.state.Register(f.SurfaceID, f.StableRef, f.Items)
			c.stateMu.Unlock()
			if resolved {
				c.publishLatch("pending->resolved")
			}

		case FrameWidgetUnregister:
			if f.SurfaceID == "" {
				c.writeFrame(errorFrame("widget_unregister requires surface_id"))
				continue
			}
			c.stateMu.Lock()
			cleared := c.state.Unregister(f.SurfaceID)
			c.stateMu.Unlock()
			if cleared {
				c.publishLatch("->none")
			}

		default:
			c.writeFrame(errorFrame("unknown frame type " + f.Type))
		}
	}
}

// enqueue never blocks the read loop: when the queue is full the oldest
// queued turn is dropped, it is already superseded.
func (c *conn) enqueue(job turnJob) {
	for {
		select {
		case c.jobs <- job:
			return
		default:
			select {
			case <-c.jobs:
			default:
			}
		}
	}
}

// supersede cancels the in-flight dispatch, if any.
func (c *conn) supersede() {
	c.inflightMu.Lock()
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.inflightMu.Unlock()
}

// dispatchLoop runs queued turns strictly one at a time.
func (c *conn) dispatchLoop() {
	for job := range c.jobs {
		if job.epoch != c.epoch.Load() {
			continue
		}
		c.runTurn(job)
	}
}

func (c *conn) runTurn(job turnJob) {
	c.stateMu.Lock()
	snap := c.state.Clone()
	widgets := openWidgets(c.state)
	turnNo := c.state.Turn
	c.stateMu.Unlock()

	ctx, cancel := context.WithCancel(c.ctx)
	c.inflightMu.Lock()
	c.inflight = cancel
	c.inflightMu.Unlock()

	in := dialog.TurnInput{
		Raw:     job.text,
		Widgets: widgets,
		Flags:   c.srv.flags,
	}
	dec, muts := c.srv.dispatcher.Dispatch(ctx, in, snap)
	cancel()

	if job.epoch != c.epoch.Load() {
		c.log.Debug().Int64("epoch", job.epoch).Msg("turn superseded, result discarded")
		return
	}

	c.stateMu.Lock()
	c.state.Apply(muts)
	c.stateMu.Unlock()

	c.writeFrame(decisionFrame(c.state.ID, turnNo, dec))
	c.appendAudit(job, turnNo, dec)

	if dec.Kind == dispatch.KindExecute && dec.Action != nil && dec.Action.ID == dispatch.ActionExit {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.ws.Close()
	}
}

func (c *conn) appendAudit(job turnJob, turnNo int, dec dispatch.Decision) {
	if c.srv.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.srv.audit.Append(ctx, store.Record{
		SessionID:  c.state.ID,
		Turn:       turnNo,
		RawInput:   job.text,
		Normalized: match.Normalize(job.text),
		Tier:       dec.Tier,
		Kind:       string(dec.Kind),
		Detail:     decisionDetail(dec),
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("audit append failed")
	}
}

func (c *conn) writeFrame(f Frame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(f); err != nil {
		c.log.Debug().Err(err).Msg("session write failed")
	}
}

// writeTicker keeps the socket alive with ping frames.
func (c *conn) writeTicker() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *conn) publishLatch(transition string) {
	if c.srv.bus == nil {
		return
	}
	ev := telemetry.NewEvent(telemetry.EventLatchTransition)
	ev.SessionID = c.state.ID
	ev.Transition = transition
	c.srv.bus.Publish(ev)
}

// openWidgets projects the registered surfaces into the per-turn widget
// list, ordered by surface id for determinism.
func openWidgets(st *session.State) []dialog.OpenWidget {
	if len(st.Surfaces) == 0 {
		return nil
	}
	out := make([]dialog.OpenWidget, 0, len(st.Surfaces))
	for _, reg := range st.Surfaces {
		out = append(out, dialog.OpenWidget{
			SurfaceID: reg.SurfaceID,
			StableRef: reg.StableRef,
			Items:     reg.Items,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurfaceID < out[j].SurfaceID })
	return out
}

// decisionDetail summarizes a decision for the audit log.
func decisionDetail(dec dispatch.Decision) string {
	switch dec.Kind {
	case dispatch.KindExecute:
		if dec.Action != nil {
			return dec.Action.ID
		}
	case dispatch.KindSelect:
		if dec.Option != nil {
			return dec.Option.Label
		}
		if dec.Candidate != nil {
			return dec.Candidate.Label
		}
	case dispatch.KindClarify, dispatch.KindAmbiguous:
		return dec.Prompt
	case dispatch.KindRetrieve:
		return dec.Query
	}
	return ""
}
