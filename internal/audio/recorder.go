package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Recorder persists one WAV file per capture session. The header is written
// when the session starts and sample bytes are appended as blocks arrive.
type Recorder struct {
	audioDir string

	mu        sync.Mutex
	sessionID string
	path      string
	file      *os.File
	written   int64
}

func NewRecorder(audioDir string) *Recorder {
	if audioDir == "" {
		audioDir = filepath.Join("data", "audio")
	}
	return &Recorder{audioDir: audioDir}
}

func (r *Recorder) StartSession(sessionID string, header Header) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.audioDir, 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}

	if r.file != nil {
		_ = r.file.Close()
	}

	path := filepath.Join(r.audioDir, sessionID+".wav")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open wav file: %w", err)
	}

	if _, err := f.Write(header[:]); err != nil {
		_ = f.Close()
		return fmt.Errorf("write wav header: %w", err)
	}

	r.sessionID = sessionID
	r.path = path
	r.file = f
	r.written = 0

	return nil
}

// Append writes sample bytes to the open session. It is a no-op when no
// session is open.
func (r *Recorder) Append(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}

	n, err := r.file.Write(data)
	r.written += int64(n)
	if err != nil {
		return fmt.Errorf("write wav payload: %w", err)
	}
	return nil
}

// EndSession closes the session file and returns its path, or "" when no
// session was open. A partially written file is left in place.
func (r *Recorder) EndSession() (string, error) {
	r.mu.Lock()
	if r.sessionID == "" || r.file == nil {
		r.mu.Unlock()
		return "", nil
	}

	path := r.path
	f := r.file

	r.sessionID = ""
	r.path = ""
	r.file = nil
	r.mu.Unlock()

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close wav file: %w", err)
	}
	return path, nil
}

// Written reports the payload bytes appended to the current session.
func (r *Recorder) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
