package storage

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sjawhar/fft-analyzer/internal/capture"
)

// Writer appends one CSV line per analysed block to a daily file:
// session, block, time, dc, peak_hz, then every band value.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Append(r capture.BlockResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	date := r.At.Format("2006-01-02")
	path := filepath.Join(w.dir, date+".csv")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	record := make([]string, 0, 5+len(r.Bands))
	record = append(record,
		r.SessionID,
		strconv.Itoa(r.Block),
		r.At.Format(time.RFC3339Nano),
		formatFloat(r.DC),
		formatFloat(r.PeakHz),
	)
	for _, v := range r.Bands {
		record = append(record, formatFloat(v))
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// OnBands lets the writer sit directly behind the capture loop.
func (w *Writer) OnBands(r capture.BlockResult) {
	if err := w.Append(r); err != nil {
		log.Printf("warning: band log: %v", err)
	}
}

func (w *Writer) CurrentPath() string {
	date := time.Now().UTC().Format("2006-01-02")
	return filepath.Join(w.dir, date+".csv")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
