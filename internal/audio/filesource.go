package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// FileSource replays the data chunk of a mono PCM WAV file as a capture
// device. Reads never block, so the timeout is ignored.
type FileSource struct {
	f         *os.File
	info      HeaderInfo
	remaining int64
}

func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := ReadHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if info.Channels != 1 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %d channels, only mono is supported", path, ErrInvalidWAV, info.Channels)
	}
	switch info.BitsPerSample {
	case 8, 16, 32:
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: unsupported bit depth %d", path, ErrInvalidWAV, info.BitsPerSample)
	}

	remaining := int64(info.DataSize)
	if st, err := f.Stat(); err == nil {
		if payload := st.Size() - HeaderSize; payload < remaining {
			remaining = payload
		}
	}

	return &FileSource{f: f, info: info, remaining: remaining}, nil
}

func (s *FileSource) Info() HeaderInfo { return s.info }

// Remaining is the number of data bytes not yet delivered.
func (s *FileSource) Remaining() int64 { return s.remaining }

// RequestBlock fills p from the data chunk. Running out of data is fatal:
// it returns io.ErrUnexpectedEOF.
func (s *FileSource) RequestBlock(ctx context.Context, p []byte, _ time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.remaining <= 0 {
		return 0, fmt.Errorf("wav source exhausted: %w", io.ErrUnexpectedEOF)
	}

	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	n, err := s.f.Read(p)
	s.remaining -= int64(n)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read wav data: %w", err)
	}
	return n, nil
}

func (s *FileSource) Release() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
