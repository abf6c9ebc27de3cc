package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sjawhar/fft-analyzer/internal/plan"
)

func newPlanCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the block and band plan without opening a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sizing, bins, err := a.cfg.Plan(a.cfg.SampleRateHz)
			if err != nil {
				return err
			}
			summary := plan.Summarize(sizing, bins)

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return writePlan(a.out, a.cfg.SampleRateHz, summary)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

func writePlan(w io.Writer, requestedHz int, s plan.Summary) error {
	stable := "yes"
	if resized, err := s.Sizing.Resize(); err != nil || resized != s.Sizing {
		stable = "no"
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "requested rate\t%d Hz\n", requestedHz)
	fmt.Fprintf(tw, "sample rate\t%d Hz\n", s.Sizing.SampleRateHz)
	fmt.Fprintf(tw, "record time\t%s\n", s.Sizing.Duration())
	fmt.Fprintf(tw, "block length\t%d samples\n", s.Sizing.BlockLengthSamples)
	fmt.Fprintf(tw, "block bytes\t%d\n", s.BlockBytes)
	fmt.Fprintf(tw, "resolution\t%.4f Hz\n", s.ResolutionHz)
	fmt.Fprintf(tw, "stable\t%s\n", stable)
	fmt.Fprintf(tw, "bands\t%d x %d bins from bin %d, %s\n",
		s.Bins.Count, s.Bins.WidthIndices, s.Bins.StartIndex, s.Bins.Aggregation)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "band\tlow Hz")
	for i, edge := range s.EdgesHz {
		fmt.Fprintf(tw, "%d\t%.2f\n", i, edge)
	}
	return tw.Flush()
}
