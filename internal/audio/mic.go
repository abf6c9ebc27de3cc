package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// DefaultFramesPerBuffer matches the DMA buffer length of the I2S firmware
// this tool was first written for.
const DefaultFramesPerBuffer = 256

const micPollInterval = 2 * time.Millisecond

// Mic wraps a PortAudio mono input stream. Each RequestBlock call hands out
// at most one PortAudio buffer, so a capture block is usually filled over
// several calls.
type Mic struct {
	stream *portaudio.Stream
	buf16  []int16
	buf32  []int32
	frames int
	width  int

	releaseOnce sync.Once
	releaseErr  error
}

// NewMic opens and starts the default input device. bytesPerSample selects
// 16-bit (2) or 32-bit (4) samples.
func NewMic(sampleRate, framesPerBuffer, bytesPerSample int) (*Mic, error) {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}

	m := &Mic{frames: framesPerBuffer, width: bytesPerSample}
	var buf any
	switch bytesPerSample {
	case 2:
		m.buf16 = make([]int16, framesPerBuffer)
		buf = m.buf16
	case 4:
		m.buf32 = make([]int32, framesPerBuffer)
		buf = m.buf32
	default:
		return nil, fmt.Errorf("mic: unsupported sample width %d bytes", bytesPerSample)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream at %d Hz: %w", sampleRate, err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	m.stream = stream
	return m, nil
}

// RequestBlock waits up to timeout for one PortAudio buffer and copies as
// many whole samples as fit into p. It returns 0 with a nil error when the
// device had nothing ready in time.
func (m *Mic) RequestBlock(ctx context.Context, p []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		avail, err := m.stream.AvailableToRead()
		if err != nil {
			return 0, fmt.Errorf("query input stream: %w", err)
		}
		if avail >= m.frames {
			break
		}
		if !time.Now().Before(deadline) {
			return 0, nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(micPollInterval):
		}
	}

	if err := m.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			log.Printf("warning: mic input overflow, dropping buffer")
			return 0, nil
		}
		return 0, fmt.Errorf("read input stream: %w", err)
	}

	n := min(len(p)/m.width, m.frames)
	if m.width == 2 {
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(p[2*i:], uint16(m.buf16[i]))
		}
	} else {
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(p[4*i:], uint32(m.buf32[i]))
		}
	}
	return n * m.width, nil
}

// Release stops the stream and shuts PortAudio down. Safe to call more than once.
func (m *Mic) Release() error {
	m.releaseOnce.Do(func() {
		if err := m.stream.Stop(); err != nil {
			m.releaseErr = fmt.Errorf("stop input stream: %w", err)
		}
		if err := m.stream.Close(); err != nil && m.releaseErr == nil {
			m.releaseErr = fmt.Errorf("close input stream: %w", err)
		}
		if err := portaudio.Terminate(); err != nil && m.releaseErr == nil {
			m.releaseErr = fmt.Errorf("terminate portaudio: %w", err)
		}
	})
	return m.releaseErr
}
