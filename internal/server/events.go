package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type SessionStartedEvent struct {
	Event
	SessionID    string    `json:"session_id"`
	SampleRateHz int       `json:"sample_rate_hz"`
	BlockSamples int       `json:"block_samples"`
	EdgesHz      []float64 `json:"edges_hz"`
}

type BandsEvent struct {
	Event
	SessionID string    `json:"session_id"`
	Block     int       `json:"block"`
	Bands     []float64 `json:"bands"`
	DC        float64   `json:"dc"`
	PeakHz    float64   `json:"peak_hz"`
}

type SessionEndedEvent struct {
	Event
	SessionID string  `json:"session_id"`
	Status    string  `json:"status"`
	Duration  float64 `json:"duration"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
