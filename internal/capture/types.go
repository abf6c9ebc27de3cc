package capture

import (
	"context"
	"time"

	"github.com/sjawhar/fft-analyzer/internal/audio"
	"github.com/sjawhar/fft-analyzer/internal/plan"
)

// Device hands out raw little-endian PCM. RequestBlock may deliver fewer
// bytes than len(p), including none when nothing was ready before timeout.
// Any error is fatal for the session.
type Device interface {
	RequestBlock(ctx context.Context, p []byte, timeout time.Duration) (int, error)
	Release() error
}

// Persister stores the captured audio of one session.
type Persister interface {
	StartSession(sessionID string, header audio.Header) error
	Append(p []byte) error
	EndSession() (string, error)
}

type Store interface {
	CreateSession(id string, startedAt time.Time, sizing plan.Sizing) error
	AppendBands(sessionID string, block int, edges, values []float64) error
	EndSession(id string, endedAt time.Time, end SessionEnd) error
}

type EventBroadcaster interface {
	BroadcastSessionStarted(sessionID string, sizing plan.Sizing, bins plan.Bins)
	BroadcastBands(result BlockResult)
	BroadcastSessionEnded(sessionID string, status string, duration time.Duration)
}

// ResultSink receives every analysed block. The slices in BlockResult are
// reused by the loop, so a sink that keeps them must copy.
type ResultSink interface {
	OnBands(result BlockResult)
}

type ResultSinkFunc func(BlockResult)

func (f ResultSinkFunc) OnBands(r BlockResult) { f(r) }

// Converter turns one raw capture block into the bytes that are persisted.
type Converter func(dst, src []byte) (int, error)

type BlockResult struct {
	SessionID string    `json:"session_id"`
	Block     int       `json:"block"`
	Edges     []float64 `json:"edges"`
	Bands     []float64 `json:"bands"`
	DC        float64   `json:"dc"`
	PeakHz    float64   `json:"peak_hz"`
	At        time.Time `json:"at"`
}

// SessionEnd is what the store records when a session finishes.
type SessionEnd struct {
	Status    string
	Blocks    int
	Skipped   int
	AudioPath string
}

type Report struct {
	SessionID       string        `json:"session_id"`
	State           State         `json:"state"`
	Blocks          int           `json:"blocks"`
	Partials        int           `json:"partials"`
	Skipped         int           `json:"skipped"`
	Unpersisted     int           `json:"unpersisted"`
	SamplesConsumed int           `json:"samples_consumed"`
	Elapsed         time.Duration `json:"elapsed"`
	AudioPath       string        `json:"audio_path,omitempty"`
	LastBands       []float64     `json:"last_bands,omitempty"`
}

type State int

const (
	StateIdle State = iota
	StateCapturing
	StateAnalyzing
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateAnalyzing:
		return "analyzing"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome tags the result of a single device poll.
type Outcome int

const (
	Delivered Outcome = iota
	Partial
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Partial:
		return "partial"
	default:
		return "fatal"
	}
}
