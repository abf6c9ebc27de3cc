package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of a canonical PCM WAV header.
	HeaderSize = 44

	pcmFormat = 1
	fmtSize   = 16
)

// Header is a complete canonical WAV header.
type Header [HeaderSize]byte

// HeaderInfo is the decoded form of a Header.
type HeaderInfo struct {
	SampleRate    int `json:"sample_rate"`
	BitsPerSample int `json:"bits_per_sample"`
	Channels      int `json:"channels"`
	DataSize      int `json:"data_size"`
}

// Frames is the number of sample frames in the data chunk.
func (h HeaderInfo) Frames() int {
	frame := h.Channels * h.BitsPerSample / 8
	if frame == 0 {
		return 0
	}
	return h.DataSize / frame
}

// BuildHeader lays out the 44-byte PCM header for frames sample frames.
func BuildHeader(sampleRate, bitsPerSample, channels, frames int) Header {
	dataSize := frames * channels * bitsPerSample / 8
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var h Header
	le := binary.LittleEndian
	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], fmtSize)
	le.PutUint16(h[20:22], pcmFormat)
	le.PutUint16(h[22:24], uint16(channels))
	le.PutUint32(h[24:28], uint32(sampleRate))
	le.PutUint32(h[28:32], uint32(byteRate))
	le.PutUint16(h[32:34], uint16(blockAlign))
	le.PutUint16(h[34:36], uint16(bitsPerSample))
	copy(h[36:40], "data")
	le.PutUint32(h[40:44], uint32(dataSize))
	return h
}

// ParseHeader decodes a canonical PCM header.
func ParseHeader(b []byte) (HeaderInfo, error) {
	if len(b) < HeaderSize {
		return HeaderInfo{}, fmt.Errorf("%w: need %d header bytes, got %d", ErrInvalidWAV, HeaderSize, len(b))
	}

	switch {
	case string(b[0:4]) != "RIFF":
		return HeaderInfo{}, fmt.Errorf("%w: missing RIFF marker", ErrInvalidWAV)
	case string(b[8:12]) != "WAVE":
		return HeaderInfo{}, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	case string(b[12:16]) != "fmt ":
		return HeaderInfo{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	case string(b[36:40]) != "data":
		return HeaderInfo{}, fmt.Errorf("%w: data chunk is not at offset 36", ErrInvalidWAV)
	}

	le := binary.LittleEndian
	if format := le.Uint16(b[20:22]); format != pcmFormat {
		return HeaderInfo{}, fmt.Errorf("%w: audio format %d is not PCM", ErrInvalidWAV, format)
	}

	return HeaderInfo{
		Channels:      int(le.Uint16(b[22:24])),
		SampleRate:    int(le.Uint32(b[24:28])),
		BitsPerSample: int(le.Uint16(b[34:36])),
		DataSize:      int(le.Uint32(b[40:44])),
	}, nil
}

// ReadHeader reads and decodes the header at the start of r.
func ReadHeader(r io.Reader) (HeaderInfo, error) {
	var h Header
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return HeaderInfo{}, fmt.Errorf("%w: read header: %v", ErrInvalidWAV, err)
	}
	return ParseHeader(h[:])
}
