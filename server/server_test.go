package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawing-board/config"
	"drawing-board/hub"
	"drawing-board/protocol"
)

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *hub.Hub) {
	t.Helper()
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = config.DefaultSendBuffer
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{config.DefaultAllowedOrigin}
	}
	h := hub.New(nil)
	srv := httptest.NewServer(NewRouter(cfg, h, nil))
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func next(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := protocol.Decode(raw)
	require.NoError(t, err)
	return ev
}

func nextList(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	ev := next(t, conn)
	pl, ok := ev.(protocol.ParticipantList)
	require.True(t, ok, "want participant-list, got %T", ev)
	return pl.IDs
}

func TestParticipantListSequence(t *testing.T) {
	srv, h := newTestServer(t, config.Config{})

	a := dial(t, srv)
	assert.Len(t, nextList(t, a), 1)

	b := dial(t, srv)
	assert.Len(t, nextList(t, a), 2)
	assert.Len(t, nextList(t, b), 2)

	c := dial(t, srv)
	assert.Len(t, nextList(t, a), 3)
	assert.Len(t, nextList(t, b), 3)
	full := nextList(t, c)
	assert.Len(t, full, 3)

	require.NoError(t, b.Close())
	afterA := nextList(t, a)
	afterC := nextList(t, c)
	assert.Len(t, afterA, 2)
	assert.Equal(t, afterA, afterC)
	assert.Subset(t, full, afterA)
	assert.Equal(t, 2, h.Count())
}

func TestSegmentRelayWithoutEcho(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	a := dial(t, srv)
	nextList(t, a)
	b := dial(t, srv)
	nextList(t, a)
	nextList(t, b)

	seg := protocol.Segment{X0: 0, Y0: 0, X1: 10, Y1: 10, Color: "#000000", BrushSize: 2}
	data, err := protocol.Encode(seg)
	require.NoError(t, err)
	require.NoError(t, a.WriteMessage(websocket.TextMessage, data))

	assert.Equal(t, seg, next(t, b))

	// B answers with a clear. Any echo of A's segment would have been queued
	// for A before this clear, so the clear must be the next thing A reads.
	clear, err := protocol.Encode(protocol.Clear{})
	require.NoError(t, err)
	require.NoError(t, b.WriteMessage(websocket.TextMessage, clear))

	assert.Equal(t, protocol.Clear{}, next(t, a))
}

func TestMalformedSegmentRelayedAsIs(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	a := dial(t, srv)
	nextList(t, a)
	b := dial(t, srv)
	nextList(t, a)
	nextList(t, b)

	bad := []byte(`{"type":"segment","data":{"x0":0,"y0":0,"x1":1,"y1":1,"color":"","brushSize":-1}}`)
	require.NoError(t, a.WriteMessage(websocket.TextMessage, bad))

	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := b.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, bad, raw)
}

func TestOriginPolicy(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{AllowedOrigins: []string{"http://board.test"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://board.test"}})
	require.NoError(t, err)
	conn.Close()
}

func TestHealthAndStats(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})
	a := dial(t, srv)
	nextList(t, a)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])

	resp2, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var stats map[string]int
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stats))
	assert.Equal(t, 1, stats["participants"])
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", config.DefaultAllowedOrigin)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, config.DefaultAllowedOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}
