// Command vessel_binarise turns a vesselness response volume into a
// binary mask. The optional --thigh flag enables two-threshold
// hysteresis; when absent, behavior reduces to simple thresholding
// at -t.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vessel "github.com/vesselness/vessel-engine"
	"github.com/vesselness/vessel-engine/volio"
)

const defaultThreshold = 4.0

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		inPath, outPath    string
		thresh, threshHigh float64
	)

	cmd := &cobra.Command{
		Use:   "vessel_binarise",
		Short: "Binarises a vesselness response volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			var hi *float64
			if cmd.Flags().Changed("thigh") {
				hi = &threshHigh
			}

			return run(inPath, outPath, thresh, hi)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&inPath, "i", "i", "", "input vesselness response path (required)")
	flags.StringVarP(&outPath, "o", "o", "", "output mask path (required)")
	flags.Float64VarP(&thresh, "t", "t", defaultThreshold, "low threshold")
	flags.Float64Var(&threshHigh, "thigh", defaultThreshold, "high threshold (defaults to -t, preserving single-threshold behavior)")
	_ = cmd.MarkFlagRequired("i")
	_ = cmd.MarkFlagRequired("o")

	return cmd
}

func run(inPath, outPath string, thresh float64, threshHigh *float64) error {
	r, err := volio.Read(inPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	m, err := vessel.Binarize(r, thresh, threshHigh)
	if err != nil {
		return fmt.Errorf("binarizing: %w", err)
	}

	if err := volio.WriteMask(volio.WithDefaultExt(outPath), m); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}
