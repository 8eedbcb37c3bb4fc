// Command vessel_filter applies the Sato multi-scale vesselness filter
// to a volume, with optional mask gating and CT-specific handling.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	vessel "github.com/vesselness/vessel-engine"
	"github.com/vesselness/vessel-engine/mask"
	"github.com/vesselness/vessel-engine/scale"
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volio"
	"github.com/vesselness/vessel-engine/volume"
)

const (
	defaultMin    = 1.0
	defaultMax    = 3.09375
	defaultAlpha1 = 0.5
	defaultAlpha2 = 2.0
	ctMinScale    = 0.775438
	// defaultScaleCount is the scale-sampler N between --min and --max;
	// min==max collapses to a single scale.
	defaultScaleCount = 5
	// boneThresholdHU is the bone-rejection cap for Hounsfield-unit CT
	// (air/soft tissue already offset negative, so bone starts near 400).
	boneThresholdHU = 400.0
	// boneThresholdRaw is the cap for CT volumes with no negative voxels
	// observed (never rescaled to HU; the whole range sits higher).
	boneThresholdRaw = 1324.0
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		inPath, outPath, maskPath string
		min, max, alpha1, alpha2  float64
		mod                       int
		isCT, cast                bool
	)

	cmd := &cobra.Command{
		Use:   "vessel_filter",
		Short: "Applies Sato vesselness filter to a volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(runOptions{
				inPath:      inPath,
				outPath:     outPath,
				maskPath:    maskPath,
				min:         min,
				max:         max,
				minExplicit: cmd.Flags().Changed("min"),
				alpha1:      alpha1,
				alpha2:      alpha2,
				mod:         mod,
				isCT:        isCT,
				cast:        cast,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&inPath, "i", "i", "", "input volume path (required)")
	flags.StringVarP(&outPath, "o", "o", "", "output volume path (required)")
	flags.StringVarP(&maskPath, "b", "b", "", "mask volume path")
	flags.Float64Var(&min, "min", defaultMin, "minimum scale value")
	flags.Float64Var(&max, "max", defaultMax, "maximum scale value (set equal to min for single scale)")
	flags.Float64Var(&alpha1, "aone", defaultAlpha1, "Sato alpha one")
	flags.Float64Var(&alpha2, "atwo", defaultAlpha2, "Sato alpha two")
	flags.IntVar(&mod, "mod", 0, "scale schedule mode: 0=linear, 1=exponential")
	flags.BoolVar(&isCT, "ct", false, "treat input as CT: apply bone rejection and mask erosion")
	flags.BoolVar(&cast, "cast", false, "cast output into the unsigned 16-bit range before writing")
	_ = cmd.MarkFlagRequired("i")
	_ = cmd.MarkFlagRequired("o")

	return cmd
}

type runOptions struct {
	inPath, outPath, maskPath string
	min, max                  float64
	minExplicit               bool
	alpha1, alpha2            float64
	mod                       int
	isCT, cast                bool
}

func run(o runOptions) error {
	v, err := volio.Read(o.inPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	gatingMask, useMask, err := loadGatingMask(o, v)
	if err != nil {
		return err
	}

	min := o.min
	if o.isCT && !o.minExplicit {
		min = ctMinScale
	}
	spacingX, _, _ := v.Spacing()
	if min < spacingX {
		min = spacingX
	}

	max := o.max
	n := defaultScaleCount
	if max <= min {
		max, n = min, 1
	}

	mode := scale.Linear
	if o.mod == 1 {
		mode = scale.Exponential
	}
	sched, err := scale.NewSchedule(min, max, n, mode)
	if err != nil {
		return fmt.Errorf("building scale schedule: %w", err)
	}

	p := vessel.NewParams(vessel.WithSatoAlphas(o.alpha1, o.alpha2))

	r, err := vessel.Vesselness(context.Background(), v, p, sched, gatingMask)
	if err != nil {
		if errors.Is(err, vesselerr.ErrInvalidParameter) || errors.Is(err, vesselerr.ErrShapeMismatch) {
			return fmt.Errorf("invalid parameters: %w", err)
		}

		return fmt.Errorf("running vesselness: %w", err)
	}

	if useMask && o.isCT {
		if err := mask.ApplyBoneRejection(r, v, boneThreshold(v)); err != nil {
			return fmt.Errorf("applying bone rejection: %w", err)
		}
	}

	if o.cast {
		castToUint16Range(r)
	}

	outPath := volio.WithDefaultExt(o.outPath)
	if err := volio.Write(outPath, r); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// loadGatingMask loads and morphologically conditions the mask named by
// o.maskPath (erode for CT, dilate otherwise). A shape mismatch against
// v disables the mask with a warning rather than aborting.
func loadGatingMask(o runOptions, v *volume.Volume) (*volume.Mask, bool, error) {
	if o.maskPath == "" {
		return nil, false, nil
	}

	loaded, err := volio.ReadMask(o.maskPath)
	if err != nil {
		return nil, false, fmt.Errorf("reading mask: %w", err)
	}
	if !v.SameShape(loaded.Volume()) {
		fmt.Fprintln(os.Stderr, "warning: mask and input have different dimensions, ignoring mask")

		return nil, false, nil
	}

	modality := mask.OtherModality
	if o.isCT {
		modality = mask.CT
	}
	cond, err := mask.Condition(loaded, modality)
	if err != nil {
		return nil, false, fmt.Errorf("conditioning mask: %w", err)
	}

	return cond, true, nil
}

// boneThreshold picks the Hounsfield-unit or raw CT bone-rejection cap
// depending on whether v carries any negative (already HU-offset) voxel.
func boneThreshold(v *volume.Volume) float64 {
	for _, val := range v.Data() {
		if val < 0 {
			return boneThresholdHU
		}
	}

	return boneThresholdRaw
}

func castToUint16Range(v *volume.Volume) {
	data := v.Data()
	for i, val := range data {
		rounded := math.Round(val)
		if rounded < 0 {
			rounded = 0
		}
		if rounded > 65535 {
			rounded = 65535
		}
		data[i] = rounded
	}
}
