package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBroadcaster(t *testing.T, b *WebSocketBroadcaster) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go b.Start(ctx)
	srv := httptest.NewServer(http.HandlerFunc(b.HandleConnection))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, cancel
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocketBroadcaster_Defaults(t *testing.T) {
	b := NewWebSocketBroadcaster(BroadcasterConfig{}, nil)
	assert.Equal(t, DefaultBroadcasterConfig(), b.config)
	assert.Equal(t, 0, b.ClientCount())
}

func TestWebSocketBroadcaster_GreetingAndBroadcast(t *testing.T) {
	b := NewWebSocketBroadcaster(DefaultBroadcasterConfig(), nil)
	b.OnConnect(func() WSMessage {
		return NewSystemStatusMessage(SystemStatusData{Health: "running"})
	})
	srv, _ := startBroadcaster(t, b)

	conn := dialWS(t, srv.URL)
	assert.Equal(t, MessageTypeSystemStatus, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	b.BroadcastGenerationStarted(GenerationStartedData{ID: "g1", Style: "anime"})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeGenerationStarted, msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "g1", data["id"])
	assert.Equal(t, "anime", data["style"])
}

func TestWebSocketBroadcaster_ClientDisconnect(t *testing.T) {
	b := NewWebSocketBroadcaster(DefaultBroadcasterConfig(), nil)
	srv, _ := startBroadcaster(t, b)

	conn := dialWS(t, srv.URL)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketBroadcaster_StopClosesClients(t *testing.T) {
	b := NewWebSocketBroadcaster(DefaultBroadcasterConfig(), nil)
	srv, cancel := startBroadcaster(t, b)

	conn := dialWS(t, srv.URL)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketBroadcaster_DropsWhenBufferFull(t *testing.T) {
	b := NewWebSocketBroadcaster(BroadcasterConfig{BroadcastBufferSize: 1}, nil)

	b.BroadcastMessage(NewErrorMessage("a", "first"))
	b.BroadcastMessage(NewErrorMessage("b", "second"))

	assert.Len(t, b.broadcast, 1)
}
