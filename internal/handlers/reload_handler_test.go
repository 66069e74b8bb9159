package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adventure-backend/internal/reload"

	"github.com/gorilla/websocket"
)

func TestReloadHandler_ForwardsEvents(t *testing.T) {
	w, err := reload.NewWatcher(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(NewReloadHandler(w).ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for w.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w.Broadcast(reload.Event{Type: "reload", Path: "templates/index.html"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev reload.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "reload" || ev.Path != "templates/index.html" {
		t.Errorf("event = %+v", ev)
	}

	// Stopping the watcher closes the subscription and the socket
	cancel()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after shutdown error = %v, want going away close", err)
	}
}

func TestReloadHandler_RejectsPlainHTTP(t *testing.T) {
	w, err := reload.NewWatcher(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	rec := httptest.NewRecorder()
	NewReloadHandler(w).ServeWS(rec, httptest.NewRequest(http.MethodGet, ReloadPath, nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if w.Subscribers() != 0 {
		t.Error("failed upgrade must not subscribe")
	}
}
