package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sjawhar/fft-analyzer/internal/config"
)

type app struct {
	configPath string
	cfg        config.Config
	warnings   []string
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fft-analyzer",
		Short: "Banded FFT analysis of captured audio",
		Long: `fft-analyzer captures audio in power-of-two blocks, computes the
single-sided magnitude spectrum of every block and reduces it to a fixed
number of frequency bands.

The block length is derived from the record time and the sample rate, and
the sample rate is then adjusted so that one block covers the record time
exactly. Use "fft-analyzer plan" to see the resulting plan.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.loadConfig(cmd.Flags())
		},
	}

	defaultConfig := os.Getenv(config.EnvPrefix + "CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", defaultConfig, "config file")
	pf.Int("record-time-ms", 0, "record time of one block in milliseconds")
	pf.Int("sample-rate", 0, "requested sample rate in Hz")
	pf.Int("bins", 0, "number of frequency bands")
	pf.Float64("bin-width", 0, "width of one band in Hz")
	pf.Float64("start-hz", 0, "lower edge of the first band in Hz")
	pf.String("aggregation", "", "band reduction: max or average")
	pf.String("window", "", "window applied before the transform: rectangular or hann")
	pf.Int("blocks", 0, "blocks per capture session")
	pf.Int("rounds", 0, "capture sessions to run back to back")
	pf.Bool("no-persist", false, "do not write WAV files or the band log")
	pf.String("source", "", `capture source: "mic" or a path to a mono PCM .wav file`)
	pf.String("listen", "", "serve the HTTP API on this address")
	pf.String("db", "", "sqlite database path")
	pf.String("audio-dir", "", "directory for session recordings")

	root.AddCommand(newCaptureCmd(a), newAnalyzeCmd(a), newPlanCmd(a))
	return root
}

func (a *app) loadConfig(fs *pflag.FlagSet) error {
	cfg, warnings, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(fs, &cfg); err != nil {
		return err
	}

	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}
	a.cfg = cfg
	a.warnings = warnings
	return nil
}

// applyFlagOverrides copies every flag the user set onto cfg. Flags left at
// their zero default never override the file or the environment.
func applyFlagOverrides(fs *pflag.FlagSet, cfg *config.Config) error {
	ints := map[string]*int{
		"record-time-ms": &cfg.RecordTimeMs,
		"sample-rate":    &cfg.SampleRateHz,
		"bins":           &cfg.Bins,
		"blocks":         &cfg.Blocks,
		"rounds":         &cfg.Rounds,
	}
	for name, dst := range ints {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetInt(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	floats := map[string]*float64{
		"bin-width": &cfg.BinWidthHz,
		"start-hz":  &cfg.StartHz,
	}
	for name, dst := range floats {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetFloat64(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	strs := map[string]*string{
		"aggregation": &cfg.Aggregation,
		"window":      &cfg.Window,
		"source":      &cfg.Source,
		"listen":      &cfg.ListenAddr,
		"db":          &cfg.DBPath,
		"audio-dir":   &cfg.AudioDir,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	if fs.Changed("no-persist") {
		v, err := fs.GetBool("no-persist")
		if err != nil {
			return fmt.Errorf("flag --no-persist: %w", err)
		}
		cfg.Persist = !v
	}

	return nil
}
