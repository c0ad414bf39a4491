package wled

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	socketBackoffInitial = 2 * time.Second
	socketBackoffMax     = 60 * time.Second
	socketReadDeadline   = 90 * time.Second
)

// SocketListener keeps a WebSocket open to a device's /ws endpoint. WLED
// pushes its full state there on every change, which lets the bridge react
// between polls. Polling stays the source of truth; this is an accelerator.
type SocketListener struct {
	host        string
	coordinator *Coordinator
	log         *log.Entry
}

// NewSocketListener creates a listener feeding pushed states into
// coordinator.
func NewSocketListener(host string, coordinator *Coordinator) *SocketListener {
	return &SocketListener{
		host:        host,
		coordinator: coordinator,
		log:         log.WithField("wled", host),
	}
}

// Run connects and reads until ctx is cancelled, reconnecting with doubling
// backoff on any error.
func (s *SocketListener) Run(ctx context.Context) {
	url := fmt.Sprintf("ws://%s/ws", s.host)
	backoff := socketBackoffInitial

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			s.log.WithError(err).Debugf("Socket connect failed, retrying in %s", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > socketBackoffMax {
				backoff = socketBackoffMax
			}
			continue
		}

		s.log.Debug("Socket connected")
		backoff = socketBackoffInitial
		s.readLoop(ctx, conn)
	}
}

func (s *SocketListener) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			s.log.WithError(err).Debug("Socket close failed")
		}
	}()

	// Unblock ReadMessage when the bridge shuts down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(socketReadDeadline)); err != nil {
			s.log.WithError(err).Warn("Socket read deadline failed")
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.WithError(err).Debug("Socket read failed, reconnecting")
			}
			return
		}

		var push struct {
			State *State `json:"state"`
			Info  *Info  `json:"info"`
		}
		if err := json.Unmarshal(message, &push); err != nil {
			s.log.WithError(err).Debug("Ignoring unparseable socket message")
			continue
		}
		if push.State == nil {
			continue
		}

		s.coordinator.ApplyPush(*push.State, push.Info)
	}
}
