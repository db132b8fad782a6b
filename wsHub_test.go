package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws", hub.HandleConnections)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(testLogger(t, "hub"))
	go hub.Run(ctx)

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, waitFor, tick)

	hub.BroadcastMessage(WsProgress{
		WsBaseMessage: WsBaseMessage{Type: WsTypeProgress},
		Progress:      0.5,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	var msg WsProgress
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, WsTypeProgress, msg.Type)
	assert.Equal(t, 0.5, msg.Progress)
}

func TestHubUnregistersClosedClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(testLogger(t, "hub"))
	go hub.Run(ctx)

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, waitFor, tick)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, waitFor, tick)
}

func TestHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(testLogger(t, "hub"))

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, waitFor, tick)

	cancel()
	<-stopped
	assert.Zero(t, hub.ClientCount())

	// Broadcasting after the hub stopped doesn't block
	hub.BroadcastMessage(WsError{WsBaseMessage: WsBaseMessage{Type: WsTypeError}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
