package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmarchand/navigator/internal/classify"
	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
	"github.com/kmarchand/navigator/internal/match"
	"github.com/kmarchand/navigator/internal/telemetry"
)

func testVocab() *match.Vocabulary {
	return match.NewVocabulary([]match.Command{
		{Noun: "settings", ActionID: "nav.settings"},
		{Noun: "export panel", ActionID: "nav.export"},
	})
}

func widgetItems() []dialog.ClarificationOption {
	return []dialog.ClarificationOption{
		{ID: "doc-1", Label: "Quarterly Report", Kind: dialog.OptionExecutable},
		{ID: "doc-2", Label: "Budget Sheet", Kind: dialog.OptionExecutable},
	}
}

func newTestServer(t *testing.T, backend classify.Classifier, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	var dopts []dispatch.Option
	if backend != nil {
		dopts = append(dopts, dispatch.WithClassifier(classify.NewGuard(backend, zerolog.Nop())))
	}
	d := dispatch.New(testVocab(), zerolog.Nop(), dopts...)

	opts = append([]Option{WithFlags(dialog.SessionFlags{RetrievalEnabled: true})}, opts...)
	srv := New(d, zerolog.Nop(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func TestTurnDecisionRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ws := dialWS(t, ts, SessionEndpoint)

	require.NoError(t, ws.WriteJSON(Frame{Type: FrameTurn, Text: "open settings"}))

	f := readFrame(t, ws)
	assert.Equal(t, FrameDecision, f.Type)
	assert.NotEmpty(t, f.SessionID)
	require.NotNil(t, f.Decision)
	assert.Equal(t, dispatch.KindExecute, f.Decision.Kind)
	require.NotNil(t, f.Decision.Action)
	assert.Equal(t, "nav.settings", f.Decision.Action.ID)
}

func TestExplicitExitClosesSession(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ws := dialWS(t, ts, SessionEndpoint)

	require.NoError(t, ws.WriteJSON(Frame{Type: FrameTurn, Text: "quit"}))

	f := readFrame(t, ws)
	require.NotNil(t, f.Decision)
	require.NotNil(t, f.Decision.Action)
	assert.Equal(t, dispatch.ActionExit, f.Decision.Action.ID)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "socket closes after the exit decision")
}

func TestWidgetFramesFeedGrounding(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ws := dialWS(t, ts, SessionEndpoint)

	require.NoError(t, ws.WriteJSON(Frame{
		Type: FrameWidgetRegister, SurfaceID: "surf-1", StableRef: "docs", Items: widgetItems(),
	}))
	require.NoError(t, ws.WriteJSON(Frame{Type: FrameTurn, Text: "Budget Sheet"}))

	f := readFrame(t, ws)
	require.NotNil(t, f.Decision)
	assert.Equal(t, dispatch.KindSelect, f.Decision.Kind)
	require.NotNil(t, f.Decision.Candidate)
	assert.Equal(t, "doc-2", f.Decision.Candidate.ID)

	// After unregistering the widget the same phrase has nothing to ground
	// against and defers to retrieval.
	require.NoError(t, ws.WriteJSON(Frame{Type: FrameWidgetUnregister, SurfaceID: "surf-1"}))
	require.NoError(t, ws.WriteJSON(Frame{Type: FrameTurn, Text: "Quarterly Report"}))

	f = readFrame(t, ws)
	require.NotNil(t, f.Decision)
	assert.Equal(t, dispatch.KindRetrieve, f.Decision.Kind)
	assert.Equal(t, "Quarterly Report", f.Decision.Query)
}

func TestNewTurnSupersedesInflight(t *testing.T) {
	backend := classify.NewScriptedClassifier().
		Respond(classify.Response{Decision: classify.DecisionSelect, ChoiceID: "doc-1", Confidence: 0.9}).
		WithDelay(300 * time.Millisecond)
	_, ts := newTestServer(t, backend)
	ws := dialWS(t, ts, SessionEndpoint)

	require.NoError(t, ws.WriteJSON(Frame{
		Type: FrameWidgetRegister, SurfaceID: "surf-1", StableRef: "docs", Items: widgetItems(),
	}))
	// The first turn needs the classifier; the second resolves
	// deterministically and must be the only decision delivered.
	require.NoError(t, ws.WriteJSON(Frame{Type: FrameTurn, Text: "pick that one"}))
	require.NoError(t, ws.WriteJSON(Frame{Type: FrameTurn, Text: "open settings"}))

	f := readFrame(t, ws)
	require.NotNil(t, f.Decision)
	assert.Equal(t, dispatch.KindExecute, f.Decision.Kind)
	require.NotNil(t, f.Decision.Action)
	assert.Equal(t, "nav.settings", f.Decision.Action.ID)

	ws.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var extra Frame
	err := ws.ReadJSON(&extra)
	assert.Error(t, err, "the superseded turn must not produce a decision")
}

func TestUnknownFrameTypeGetsError(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ws := dialWS(t, ts, SessionEndpoint)

	require.NoError(t, ws.WriteJSON(Frame{Type: "bogus"}))

	f := readFrame(t, ws)
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, f.Message, "unknown frame type")
}

func TestHealthEndpoint(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + HealthEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status   string `json:"status"`
		Service  string `json:"service"`
		Sessions int    `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "navigator-gateway", health.Service)
	assert.Equal(t, srv.SessionCount(), health.Sessions)
}

func TestEventsStreamReplaysThenFollows(t *testing.T) {
	bus := telemetry.NewBus()
	t.Cleanup(bus.Close)
	_, ts := newTestServer(t, nil, WithBus(bus), WithEventReplay(10))

	for i := 0; i < 3; i++ {
		ev := telemetry.NewEvent(telemetry.EventTierFired)
		ev.Turn = i
		bus.Publish(ev)
	}

	ws := dialWS(t, ts, EventsEndpoint)
	for i := 0; i < 3; i++ {
		ws.SetReadDeadline(time.Now().Add(3 * time.Second))
		var ev telemetry.Event
		require.NoError(t, ws.ReadJSON(&ev))
		assert.Equal(t, telemetry.EventTierFired, ev.Type)
		assert.Equal(t, i, ev.Turn)
	}

	live := telemetry.NewEvent(telemetry.EventDecision)
	live.Detail = "live"
	bus.Publish(live)

	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev telemetry.Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, telemetry.EventDecision, ev.Type)
	assert.Equal(t, "live", ev.Detail)
}

func TestEventsEndpointWithoutBus(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + EventsEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
