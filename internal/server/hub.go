package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/sjawhar/fft-analyzer/internal/capture"
	"github.com/sjawhar/fft-analyzer/internal/plan"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast never blocks; a client whose buffer is full misses the message.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastSessionStarted(sessionID string, sizing plan.Sizing, bins plan.Bins) {
	h.broadcastEvent(SessionStartedEvent{
		Event:        newEvent("session_started", time.Now().UTC()),
		SessionID:    sessionID,
		SampleRateHz: sizing.SampleRateHz,
		BlockSamples: sizing.BlockLengthSamples,
		EdgesHz:      bins.Edges(sizing),
	})
}

// BroadcastBands marshals the result before returning, so the loop may reuse
// its buffers right after.
func (h *Hub) BroadcastBands(r capture.BlockResult) {
	h.broadcastEvent(BandsEvent{
		Event:     newEvent("bands", r.At),
		SessionID: r.SessionID,
		Block:     r.Block,
		Bands:     r.Bands,
		DC:        r.DC,
		PeakHz:    r.PeakHz,
	})
}

func (h *Hub) BroadcastSessionEnded(sessionID string, status string, duration time.Duration) {
	h.broadcastEvent(SessionEndedEvent{
		Event:     newEvent("session_ended", time.Now().UTC()),
		SessionID: sessionID,
		Status:    status,
		Duration:  duration.Seconds(),
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
