package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nmorel/lexidraft/internal/pipeline"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type watchEvent struct {
	Type  string          `json:"type"` // snapshot, error
	State *pipeline.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// watch streams pipeline snapshots to the client: the current state on
// connect, then one event per mutation until the client disconnects.
func (h *handlers) watch(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(watchPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})

	writeCh := make(chan watchEvent, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(watchPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(evt); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	snapshots, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	pushWatchEvent(writeCh, watchEvent{Type: "snapshot", State: sess.Snapshot()})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-snapshots:
				if !ok {
					return
				}
				pushWatchEvent(writeCh, watchEvent{Type: "snapshot", State: st})
			}
		}
	}()

	// Read pump: the client sends nothing but pongs; exit on close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			return
		}
	}
}

// pushWatchEvent drops the oldest buffered event rather than blocking the
// pipeline behind a slow watcher.
func pushWatchEvent(writeCh chan watchEvent, evt watchEvent) {
	select {
	case writeCh <- evt:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- evt:
	default:
	}
}
