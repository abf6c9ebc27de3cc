package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/sjawhar/fft-analyzer/internal/audio"
	"github.com/sjawhar/fft-analyzer/internal/capture"
	"github.com/sjawhar/fft-analyzer/internal/config"
	"github.com/sjawhar/fft-analyzer/internal/plan"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	missing := filepath.Join(t.TempDir(), "none.yaml")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", missing))
	err := root.Execute()
	return out.String(), err
}

func writeSineWAV(t *testing.T, rate, frames int, freq float64) string {
	t.Helper()

	header := audio.BuildHeader(rate, 16, 1, frames)
	buf := make([]byte, 0, audio.HeaderSize+2*frames)
	buf = append(buf, header[:]...)
	for i := 0; i < frames; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
	}

	path := filepath.Join(t.TempDir(), "sine.wav")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestPlanCommandText(t *testing.T) {
	out, err := runCmd(t, "plan", "--record-time-ms", "1000", "--sample-rate", "8000", "--bins", "10")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	for _, want := range []string{"4096 samples", "4096 Hz", "stable", "yes", "band"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in plan output:\n%s", want, out)
		}
	}
}

func TestPlanCommandJSONWithOverrides(t *testing.T) {
	out, err := runCmd(t, "plan", "--json",
		"--record-time-ms", "1000", "--sample-rate", "16000",
		"--bins", "4", "--aggregation", "average")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	var summary plan.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if summary.Sizing.BlockLengthSamples != 8192 || summary.Sizing.SampleRateHz != 8192 {
		t.Fatalf("unexpected sizing %+v", summary.Sizing)
	}
	if summary.Bins.Count != 4 || summary.Bins.Aggregation != plan.AggregateAverage {
		t.Fatalf("unexpected bins %+v", summary.Bins)
	}
	if len(summary.EdgesHz) != 4 {
		t.Fatalf("expected 4 band edges, got %v", summary.EdgesHz)
	}
}

func TestPlanCommandRejectsZeroBins(t *testing.T) {
	_, err := runCmd(t, "plan", "--bins", "0")
	if !errors.Is(err, plan.ErrSizing) {
		t.Fatalf("expected sizing error, got %v", err)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	// Two seconds at 8 kHz hold three whole 4096-sample blocks.
	path := writeSineWAV(t, 8000, 16000, 1000)

	out, err := runCmd(t, "analyze", path, "--json", "--record-time-ms", "1000", "--bins", "10", "--bin-width", "100")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	dec := json.NewDecoder(strings.NewReader(out))
	for block := 0; block < 3; block++ {
		var r capture.BlockResult
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode block %d: %v\n%s", block, err, out)
		}
		if r.Block != block {
			t.Fatalf("expected block %d, got %d", block, r.Block)
		}
		if math.Abs(r.PeakHz-1000) > 2 {
			t.Fatalf("block %d: expected peak near 1000 Hz, got %v", block, r.PeakHz)
		}
		if len(r.Bands) != 10 {
			t.Fatalf("block %d: expected 10 bands, got %d", block, len(r.Bands))
		}
	}

	var report map[string]any
	if err := dec.Decode(&report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report["state"] != "done" || report["blocks"] != float64(3) {
		t.Fatalf("unexpected report %v", report)
	}
}

func TestAnalyzeCommandShortFiles(t *testing.T) {
	path := writeSineWAV(t, 8000, 100, 1000)

	// 100 frames cap the record time at 12ms, which plans one 64-sample block.
	_, err := runCmd(t, "analyze", path, "--record-time-ms", "1000", "--bins", "1", "--bin-width", "200")
	if err != nil {
		t.Fatalf("analyze of a short file failed: %v", err)
	}

	empty := writeSineWAV(t, 8000, 0, 1000)
	if _, err := runCmd(t, "analyze", empty); !errors.Is(err, plan.ErrSizing) {
		t.Fatalf("expected sizing error for an empty file, got %v", err)
	}
}

func TestFlagOverridesOnlyChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("record-time-ms", 0, "")
	fs.Int("sample-rate", 0, "")
	fs.Int("bins", 0, "")
	fs.Int("blocks", 0, "")
	fs.Int("rounds", 0, "")
	fs.Float64("bin-width", 0, "")
	fs.Float64("start-hz", 0, "")
	fs.String("aggregation", "", "")
	fs.String("window", "", "")
	fs.String("source", "", "")
	fs.String("listen", "", "")
	fs.String("db", "", "")
	fs.String("audio-dir", "", "")
	fs.Bool("no-persist", false, "")

	if err := fs.Parse([]string{"--bins", "3", "--window", "hann", "--no-persist", "--listen", ":9090"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Config{RecordTimeMs: 500, Bins: 10, BinWidthHz: 100, Persist: true, DBPath: "keep.db"}
	if err := applyFlagOverrides(fs, &cfg); err != nil {
		t.Fatalf("applyFlagOverrides failed: %v", err)
	}

	if cfg.Bins != 3 || cfg.Window != "hann" || cfg.Persist || cfg.ListenAddr != ":9090" {
		t.Fatalf("expected changed flags applied, got %+v", cfg)
	}
	if cfg.RecordTimeMs != 500 || cfg.BinWidthHz != 100 || cfg.DBPath != "keep.db" {
		t.Fatalf("expected unchanged flags ignored, got %+v", cfg)
	}
}
