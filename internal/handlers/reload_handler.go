package handlers

import (
	"log"
	"net/http"
	"time"

	"adventure-backend/internal/reload"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Subscriber is implemented by reload.Watcher
type Subscriber interface {
	Subscribe() (<-chan reload.Event, func())
}

// ReloadHandler pushes file change events to the browser over a websocket
type ReloadHandler struct {
	watcher      Subscriber
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func NewReloadHandler(watcher Subscriber) *ReloadHandler {
	return &ReloadHandler{
		watcher: watcher,
		// Default CheckOrigin only accepts same-host origins
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: pingInterval,
	}
}

func (h *ReloadHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Printf("[Reload] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	// Drop the server's ReadTimeout, which otherwise outlives the hijack
	conn.SetReadDeadline(time.Time{})

	events, release := h.watcher.Subscribe()
	defer release()

	// The client never sends anything; reading surfaces disconnects and
	// lets the library answer pings.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
