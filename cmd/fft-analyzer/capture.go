package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sjawhar/fft-analyzer/internal/audio"
	"github.com/sjawhar/fft-analyzer/internal/capture"
	"github.com/sjawhar/fft-analyzer/internal/config"
	"github.com/sjawhar/fft-analyzer/internal/gdrive"
	"github.com/sjawhar/fft-analyzer/internal/plan"
	"github.com/sjawhar/fft-analyzer/internal/server"
	"github.com/sjawhar/fft-analyzer/internal/spectrum"
	"github.com/sjawhar/fft-analyzer/internal/storage"
)

func newCaptureCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture and analyse blocks from the microphone or a WAV source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runCapture(ctx, bandPrinter{w: a.out, asJSON: asJSON})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print blocks and reports as JSON lines")
	return cmd
}

func (a *app) runCapture(ctx context.Context, out bandPrinter) error {
	cfg := a.cfg

	// A plan that cannot be built at the configured rate is a settings
	// problem, not a device problem. Fail before touching the device.
	if _, _, err := cfg.Plan(cfg.SampleRateHz); err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}
	defer func() { _ = store.Close() }()

	hub := server.NewHub()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := capture.NewMetrics(reg)

	var current atomic.Pointer[plan.Summary]
	if cfg.ListenAddr != "" {
		httpServer := &http.Server{
			Addr: cfg.ListenAddr,
			Handler: server.Handler(hub, store, server.StatusHooks{
				Plan: func() (plan.Summary, bool) {
					s := current.Load()
					if s == nil {
						return plan.Summary{}, false
					}
					return *s, true
				},
				Warnings: func() []string { return a.warnings },
				Gatherer: reg,
			}),
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		log.Printf("api on http://%s", cfg.ListenAddr)

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("warning: http shutdown failed: %v", err)
			}
		}()
	}

	dev, sizing, bins, err := openDevice(&cfg)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Release() }()

	summary := plan.Summarize(sizing, bins)
	current.Store(&summary)

	analyzer, err := spectrum.NewAnalyzer(spectrum.DSPTransformer{}, sizing.BlockLengthSamples, cfg.ParsedWindow())
	if err != nil {
		return err
	}

	sinks := fanout{out}
	var recorder *audio.Recorder
	var bandLog *storage.Writer
	persistBits := cfg.BitsPerSample
	if cfg.Persist {
		recorder = audio.NewRecorder(cfg.AudioDir)
		bandLog = storage.NewWriter(filepath.Join(cfg.AudioDir, "bands"))
		sinks = append(sinks, bandLog)
		if captureBits := sizing.BytesPerSample * 8; captureBits < persistBits {
			persistBits = captureBits
		}
	}

	rounds := cfg.Rounds
	if !cfg.UsesMic() && rounds > 1 {
		log.Printf("warning: wav source %s is replayed once, ignoring rounds=%d", cfg.Source, rounds)
		rounds = 1
	}

	baseID := time.Now().UTC().Format("20060102150405")
	var recordings []string
	var elapsed []time.Duration
	var runErr error

	for round := 1; round <= rounds; round++ {
		if ctx.Err() != nil {
			break
		}

		opts := capture.Options{
			SessionID:      fmt.Sprintf("%s-%02d", baseID, round),
			Sizing:         sizing,
			Bins:           bins,
			Analyzer:       analyzer,
			Device:         dev,
			Store:          store,
			Events:         hub,
			Sink:           sinks,
			Metrics:        metrics,
			Blocks:         cfg.Blocks,
			ReadTimeout:    cfg.ParsedReadTimeout(),
			SessionTimeout: cfg.ParsedSessionTimeout(),
		}
		if recorder != nil {
			opts.Persister = recorder
			opts.PersistBits = persistBits
		}

		loop, err := capture.New(opts)
		if err != nil {
			runErr = err
			break
		}

		report, err := loop.Run(ctx)
		elapsed = append(elapsed, report.Elapsed)
		if report.AudioPath != "" {
			recordings = append(recordings, report.AudioPath)
		}
		if printErr := out.report(report); printErr != nil {
			log.Printf("warning: print report: %v", printErr)
		}
		if err != nil {
			runErr = fmt.Errorf("round %d: %w", round, err)
			break
		}
	}

	logRoundTimes(elapsed)

	if cfg.GDriveFolderID != "" && cfg.GoogleCredentialsFile != "" {
		uploads := recordings
		if bandLog != nil {
			uploads = append(uploads, bandLog.CurrentPath())
		}
		uploadAll(context.Background(), cfg, uploads)
	}

	return runErr
}

// openDevice opens the configured source and returns the plan it runs at.
// The microphone is tried at every candidate rate until one opens.
func openDevice(cfg *config.Config) (capture.Device, plan.Sizing, plan.Bins, error) {
	if !cfg.UsesMic() {
		src, err := audio.OpenFileSource(cfg.Source)
		if err != nil {
			return nil, plan.Sizing{}, plan.Bins{}, err
		}
		sizing, bins, err := cfg.FilePlan(src.Info())
		if err != nil {
			_ = src.Release()
			return nil, plan.Sizing{}, plan.Bins{}, err
		}
		log.Printf("replaying %s at %d Hz", cfg.Source, sizing.SampleRateHz)
		return src, sizing, bins, nil
	}

	var lastErr error
	for _, rate := range cfg.SampleRateCandidates() {
		sizing, bins, err := cfg.Plan(rate)
		if err != nil {
			log.Printf("warning: no plan at %d Hz: %v", rate, err)
			lastErr = err
			continue
		}

		frames := min(audio.DefaultFramesPerBuffer, sizing.BlockLengthSamples)
		mic, err := audio.NewMic(sizing.SampleRateHz, frames, sizing.BytesPerSample)
		if err != nil {
			log.Printf("warning: microphone open failed at %d Hz: %v", sizing.SampleRateHz, err)
			lastErr = err
			continue
		}

		log.Printf("microphone started at %d Hz (requested %d Hz), %d-sample blocks", sizing.SampleRateHz, rate, sizing.BlockLengthSamples)
		return mic, sizing, bins, nil
	}

	return nil, plan.Sizing{}, plan.Bins{}, fmt.Errorf("microphone unavailable: %w", lastErr)
}

func logRoundTimes(elapsed []time.Duration) {
	if len(elapsed) == 0 {
		return
	}

	var total time.Duration
	for i, d := range elapsed {
		log.Printf("round %d took %s", i+1, d.Round(time.Millisecond))
		total += d
	}
	log.Printf("average round time %s over %d rounds", (total / time.Duration(len(elapsed))).Round(time.Millisecond), len(elapsed))
}

func uploadAll(ctx context.Context, cfg config.Config, paths []string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	syncer, err := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
	if err != nil {
		log.Printf("warning: gdrive upload disabled: %v", err)
		return
	}

	for _, path := range paths {
		id, err := syncer.Upload(ctx, path)
		if err != nil {
			log.Printf("gdrive upload error: %v", err)
			continue
		}
		log.Printf("uploaded %s to drive as %s", filepath.Base(path), id)
	}
}
