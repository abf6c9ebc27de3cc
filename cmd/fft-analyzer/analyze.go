package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sjawhar/fft-analyzer/internal/audio"
	"github.com/sjawhar/fft-analyzer/internal/capture"
	"github.com/sjawhar/fft-analyzer/internal/spectrum"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Run the band analysis over an existing mono PCM WAV file",
		Long: `analyze replays a recording through the capture loop at the file's own
sample rate. Every whole block in the file is analysed; a trailing partial
block is ignored. Nothing is written to disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runAnalyze(ctx, args[0], bandPrinter{w: a.out, asJSON: asJSON})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print blocks and the report as JSON lines")
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, path string, out bandPrinter) error {
	src, err := audio.OpenFileSource(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Release() }()

	sizing, bins, err := a.cfg.FilePlan(src.Info())
	if err != nil {
		return err
	}

	blocks := int(src.Remaining() / int64(sizing.BlockBytes()))
	if blocks == 0 {
		return fmt.Errorf("%s: shorter than one %d-sample block", path, sizing.BlockLengthSamples)
	}
	log.Printf("analyzing %s: %d blocks of %d samples at %d Hz", path, blocks, sizing.BlockLengthSamples, sizing.SampleRateHz)

	analyzer, err := spectrum.NewAnalyzer(spectrum.DSPTransformer{}, sizing.BlockLengthSamples, a.cfg.ParsedWindow())
	if err != nil {
		return err
	}

	loop, err := capture.New(capture.Options{
		Sizing:   sizing,
		Bins:     bins,
		Analyzer: analyzer,
		Device:   src,
		Sink:     out,
		Blocks:   blocks,
	})
	if err != nil {
		return err
	}

	report, err := loop.Run(ctx)
	if err != nil {
		return err
	}
	return out.report(report)
}
