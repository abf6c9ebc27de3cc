package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sjawhar/fft-analyzer/internal/capture"
)

// bandPrinter writes one line per analysed block, as text or JSON lines.
type bandPrinter struct {
	w      io.Writer
	asJSON bool
}

func (p bandPrinter) OnBands(r capture.BlockResult) {
	var err error
	if p.asJSON {
		err = json.NewEncoder(p.w).Encode(r)
	} else {
		values := make([]string, len(r.Bands))
		for i, v := range r.Bands {
			values[i] = fmt.Sprintf("%.3f", v)
		}
		_, err = fmt.Fprintf(p.w, "%s block %d  dc %.3f  peak %.1f Hz  bands [%s]\n",
			r.SessionID, r.Block, r.DC, r.PeakHz, strings.Join(values, " "))
	}
	if err != nil {
		log.Printf("warning: print block %d: %v", r.Block, err)
	}
}

func (p bandPrinter) report(r capture.Report) error {
	if p.asJSON {
		return json.NewEncoder(p.w).Encode(r)
	}
	_, err := fmt.Fprintf(p.w, "%s %s: %d blocks, %d skipped, %d partial reads in %s\n",
		r.SessionID, r.State, r.Blocks, r.Skipped, r.Partials, r.Elapsed.Round(time.Millisecond))
	return err
}

// fanout hands each block to every sink in order.
type fanout []capture.ResultSink

func (f fanout) OnBands(r capture.BlockResult) {
	for _, s := range f {
		s.OnBands(r)
	}
}
