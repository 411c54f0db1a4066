package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"frame-monitor/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_StreamsSnapshots(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	if err := h.Publish(context.Background(), models.FrameMetrics{Sequence: 1}); err != nil {
		t.Fatalf("publish without clients: %v", err)
	}

	conn := dial(t, srv)
	defer conn.Close()
	waitClients(t, h, 1)

	want := models.FrameMetrics{Sequence: 42, InstantFPS: 59.5, State: models.StateDropped, ConsecutiveDrops: 3}
	if err := h.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got models.FrameMetrics
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Sequence != 42 || got.State != models.StateDropped || got.ConsecutiveDrops != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitClients(t, h, 1)

	h.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close after hub shutdown")
	}
	waitClients(t, h, 0)

	late := dial(t, srv)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("late client should be refused, got %v", err)
	}
}
