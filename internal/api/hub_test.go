package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/pkg/logger"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}

	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestHubBroadcastsSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.NewNop())
	go hub.Run(ctx)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	// give the register handshake a beat
	time.Sleep(50 * time.Millisecond)

	rec := &contracts.SignalRecord{
		ID:            7,
		Symbol:        "SPY",
		CombinedTrust: 0.63,
		Signal:        contracts.SignalBuy,
		Status:        contracts.StatusPendingReview,
	}
	hub.BroadcastSignal(rec)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type string                 `json:"type"`
		Data contracts.SignalRecord `json:"data"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "signal" {
		t.Errorf("type = %q, want %q", msg.Type, "signal")
	}
	if msg.Data.Symbol != "SPY" || msg.Data.ID != 7 {
		t.Errorf("got record %+v, want SPY id 7", msg.Data)
	}
}

func TestHubDropsNilRecord(t *testing.T) {
	hub := NewHub(logger.NewNop())

	// must not panic or enqueue anything
	hub.BroadcastSignal(nil)

	select {
	case <-hub.broadcast:
		t.Error("nil record should not be broadcast")
	default:
	}
}
