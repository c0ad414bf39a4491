package wled

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketListenerAppliesPushedState(t *testing.T) {
	coordinator, _ := testCoordinator(t)
	coordinator.Refresh(context.Background())
	require.True(t, coordinator.Data().Full.State.On)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		err = conn.WriteMessage(websocket.TextMessage, []byte(`{"state":{"on":false,"bri":42}}`))
		require.NoError(t, err)

		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewSocketListener(strings.TrimPrefix(server.URL, "http://"), coordinator)
	go listener.Run(ctx)

	assert.Eventually(t, func() bool {
		snap := coordinator.Data()
		return snap.Full != nil && !snap.Full.State.On && snap.Full.State.Brightness == 42
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketListenerIgnoresGarbage(t *testing.T) {
	coordinator, _ := testCoordinator(t)
	coordinator.Refresh(context.Background())

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"info":{"name":"x"}}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"state":{"bri":7}}`)))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewSocketListener(strings.TrimPrefix(server.URL, "http://"), coordinator)
	go listener.Run(ctx)

	// only the message carrying a state section is applied
	assert.Eventually(t, func() bool {
		return coordinator.Data().Full.State.Brightness == 7
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Desk", coordinator.Data().Full.Info.Name)
}
