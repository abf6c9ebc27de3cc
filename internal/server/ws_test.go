package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjawhar/fft-analyzer/internal/capture"
	"github.com/sjawhar/fft-analyzer/internal/plan"
)

func TestHubBandsEventShape(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	bands := []float64{3, 2, 1}
	hub.BroadcastBands(capture.BlockResult{
		SessionID: "s1",
		Block:     4,
		Bands:     bands,
		DC:        0.25,
		PeakHz:    440,
		At:        time.Now().UTC(),
	})
	// The loop reuses its band buffer after the call returns.
	bands[0] = 99

	select {
	case msg := <-ch:
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if payload["type"] != "bands" {
			t.Fatalf("expected event type bands, got %#v", payload["type"])
		}
		if payload["block"] != float64(4) || payload["session_id"] != "s1" {
			t.Fatalf("unexpected payload: %s", string(msg))
		}
		got := payload["bands"].([]any)
		if len(got) != 3 || got[0] != float64(3) {
			t.Fatalf("expected bands captured at broadcast time, got %v", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
}

func TestHubSatisfiesCapture(t *testing.T) {
	var _ capture.EventBroadcaster = NewHub()
}

func TestHubDropsWhenClientIsSlow(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected full client buffer, got %d/%d", len(ch), cap(ch))
	}
}

func TestWebSocketStream(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub, apiStoreStub{}, StatusHooks{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read connection event failed: %v", err)
	}
	if hello["type"] != "connection" {
		t.Fatalf("expected connection event first, got %v", hello)
	}

	sizing := plan.Sizing{DurationMs: 1000, BlockLengthSamples: 16, SampleRateHz: 16, BytesPerSample: 2}
	bins := plan.Bins{WidthIndices: 2, Count: 3}

	// The subscription is registered after the connection event is written.
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.BroadcastSessionStarted("s1", sizing, bins)

	var started map[string]any
	if err := conn.ReadJSON(&started); err != nil {
		t.Fatalf("read session event failed: %v", err)
	}
	if started["type"] != "session_started" || started["block_samples"] != float64(16) {
		t.Fatalf("unexpected session event %v", started)
	}
	edges := started["edges_hz"].([]any)
	if len(edges) != 3 || edges[2] != float64(4) {
		t.Fatalf("unexpected edges %v", edges)
	}
}
