package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat matches sample buffers whose length does not fit the sample
	// width. The capture loop skips persisting that block and continues.
	ErrFormat = errors.New("invalid sample format")

	// ErrInvalidWAV is returned when a file does not start with a canonical
	// 44-byte PCM WAV header.
	ErrInvalidWAV = errors.New("invalid wav file")
)

type FormatError struct {
	Length int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("sample format: %d bytes: %s", e.Length, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }
