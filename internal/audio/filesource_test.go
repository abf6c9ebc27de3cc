package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeWAV(t *testing.T, bits, channels int, payload []byte) string {
	t.Helper()
	frames := len(payload) / (channels * bits / 8)
	h := BuildHeader(8000, bits, channels, frames)
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, append(h[:], payload...), 0o644); err != nil {
		t.Fatalf("write wav failed: %v", err)
	}
	return path
}

func TestFileSourceDeliversDataChunk(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	src, err := OpenFileSource(writeWAV(t, 16, 1, payload))
	if err != nil {
		t.Fatalf("OpenFileSource failed: %v", err)
	}
	defer func() { _ = src.Release() }()

	if src.Info().SampleRate != 8000 || src.Info().BitsPerSample != 16 {
		t.Fatalf("unexpected info %+v", src.Info())
	}

	ctx := context.Background()
	buf := make([]byte, 4)
	var got []byte
	for src.Remaining() > 0 {
		n, err := src.RequestBlock(ctx, buf, 0)
		if err != nil {
			t.Fatalf("RequestBlock failed: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %v, got %v", payload, got)
	}

	if _, err := src.RequestBlock(ctx, buf, 0); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected exhausted source error, got %v", err)
	}
}

func TestFileSourceHonoursCancellation(t *testing.T) {
	src, err := OpenFileSource(writeWAV(t, 16, 1, make([]byte, 8)))
	if err != nil {
		t.Fatalf("OpenFileSource failed: %v", err)
	}
	defer func() { _ = src.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.RequestBlock(ctx, make([]byte, 4), 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenFileSourceRejectsStereo(t *testing.T) {
	if _, err := OpenFileSource(writeWAV(t, 16, 2, make([]byte, 8))); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV for stereo, got %v", err)
	}
}

func TestOpenFileSourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatalf("write junk failed: %v", err)
	}
	if _, err := OpenFileSource(path); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
}
