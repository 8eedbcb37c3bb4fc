// Package reducer is the multi-scale orchestrator: for every sigma in a
// scale.Schedule it builds the Gaussian-smoothed Hessian field, decomposes
// it voxel by voxel, evaluates the vesselness response, and folds the
// result into a running per-voxel maximum.
//
// The per-scale voxel sweep is partitioned across goroutines with
// errgroup.Group. Partitions are disjoint Z slabs, so there is no shared
// mutable state between goroutines within a scale and the result does
// not depend on how many workers ran.
//
// Cancellation is checked only between scales; a cancelled run returns
// whatever R has accumulated so far, never a torn mid-scale voxel.
package reducer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vesselness/vessel-engine/eigen"
	"github.com/vesselness/vessel-engine/gaussian"
	"github.com/vesselness/vessel-engine/hessian"
	"github.com/vesselness/vessel-engine/mask"
	"github.com/vesselness/vessel-engine/scale"
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/vesselness"
	"github.com/vesselness/vessel-engine/volume"
)

// Config bundles everything one Run needs beyond the input volume and
// schedule.
type Config struct {
	Params vesselness.Params
	Family vesselness.ResponseFamily
	Order  eigen.OrderPolicy
	// Gaussian is the derivative-engine options (boundary policy,
	// scale normalization) applied at every scale.
	Gaussian gaussian.Options
	// TrackScaleOfMax requests the second return value.
	TrackScaleOfMax bool
	// TrackEigen requests the third return value.
	TrackEigen bool
	// ComputeVectors additionally resolves eigenvectors (not just
	// eigenvalues) into the tracked eigen Volume. Ignored when TrackEigen
	// is false.
	ComputeVectors bool
	// Mask, if non-nil, is applied to R after the scale loop completes.
	Mask *volume.Mask
}

// Stats carries the run's non-fatal outcomes: how many voxel/scale
// evaluations hit a degenerate (non-finite) tensor, and whether
// cancellation cut the schedule short. Neither condition is an error;
// both are typed return values per the no-exceptions-at-boundaries rule.
type Stats struct {
	Degeneracies uint64
	Cancelled    bool
}

// Run reduces v across every scale in sched, returning the per-voxel
// maximum response R, optionally the sigma that produced each voxel's
// max, optionally the eigendecomposition at that max, and Stats.
//
// Failure: v nil, sched empty, cfg.Mask shape mismatch, or cfg.Params
// invalid for cfg.Family -> ErrInvalidParameter/ErrShapeMismatch, before
// any volume is allocated. A cfg.Mask shape mismatch matches both
// ErrShapeMismatch and ErrInvalidParameter.
func Run(ctx context.Context, v *volume.Volume, cfg Config, sched scale.Schedule) (r *volume.Volume, scaleOfMax *volume.Volume, eigenVol *eigen.Volume, stats Stats, err error) {
	if v == nil {
		return nil, nil, nil, Stats{}, vesselerr.Tag("reducer.Run", vesselerr.ErrInvalidParameter)
	}
	if sched.Len() < 1 {
		return nil, nil, nil, Stats{}, vesselerr.Tag("reducer.Run", vesselerr.ErrInvalidParameter)
	}
	if cfg.Mask != nil && !v.SameShape(cfg.Mask.Volume()) {
		return nil, nil, nil, Stats{}, vesselerr.Tag("reducer.Run", fmt.Errorf("%w: %w", vesselerr.ErrShapeMismatch, vesselerr.ErrInvalidParameter))
	}
	if err := vesselness.ValidateParams(cfg.Family, cfg.Params); err != nil {
		return nil, nil, nil, Stats{}, err
	}

	nx, ny, nz := v.Dim()
	sx, sy, sz := v.Spacing()

	r, err = volume.New(nx, ny, nz, sx, sy, sz)
	if err != nil {
		return nil, nil, nil, Stats{}, err
	}
	if cfg.TrackScaleOfMax {
		scaleOfMax, err = volume.New(nx, ny, nz, sx, sy, sz)
		if err != nil {
			return nil, nil, nil, Stats{}, err
		}
		scaleOfMax.Fill(sched.At(0))
	}
	if cfg.TrackEigen {
		eigenVol = eigen.NewVolume(nx, ny, nz)
	}

	var degeneracies uint64

	for _, sigma := range sched.Sigmas() {
		if ctx.Err() != nil {
			stats.Cancelled = true

			break
		}

		ixx, iyy, izz, ixy, ixz, iyz, err := gaussian.SecondPartials(v, sigma, cfg.Gaussian)
		if err != nil {
			return nil, nil, nil, Stats{}, err
		}
		field, err := hessian.Assemble(ixx, iyy, izz, ixy, ixz, iyz)
		if err != nil {
			return nil, nil, nil, Stats{}, err
		}

		degAtScale, err := reduceScale(r, scaleOfMax, eigenVol, field, sigma, cfg)
		if err != nil {
			return nil, nil, nil, Stats{}, err
		}
		degeneracies += degAtScale
	}

	stats.Degeneracies = degeneracies

	if cfg.Mask != nil {
		if err := mask.Apply(r, cfg.Mask); err != nil {
			return nil, nil, nil, Stats{}, err
		}
	}

	return r, scaleOfMax, eigenVol, stats, nil
}

// reduceScale folds one scale's Hessian field into r (and, optionally,
// scaleOfMax/eigenVol), partitioning the Z range across workers. Each
// worker owns a disjoint slab, so there is nothing to synchronize besides
// waiting for every worker to finish.
func reduceScale(r, scaleOfMax *volume.Volume, eigenVol *eigen.Volume, field *hessian.Field, sigma float64, cfg Config) (uint64, error) {
	_, _, nz := field.Dim()
	workers := runtime.GOMAXPROCS(0)
	if workers > nz {
		workers = nz
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (nz + workers - 1) / workers

	degCounts := make([]uint64, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		zStart := w * chunk
		zEnd := zStart + chunk
		if zEnd > nz {
			zEnd = nz
		}
		if zStart >= zEnd {
			continue
		}

		g.Go(func() error {
			return reduceSlab(r, scaleOfMax, eigenVol, field, sigma, cfg, zStart, zEnd, &degCounts[w])
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total uint64
	for _, c := range degCounts {
		total += c
	}

	return total, nil
}

func reduceSlab(r, scaleOfMax *volume.Volume, eigenVol *eigen.Volume, field *hessian.Field, sigma float64, cfg Config, zStart, zEnd int, degCount *uint64) error {
	nx, ny, _ := field.Dim()

	for k := zStart; k < zEnd; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				t := field.At(i, j, k)
				tr, degenerate := eigen.Symmetric3x3(t, cfg.Order, cfg.TrackEigen && cfg.ComputeVectors)
				if degenerate {
					*degCount++
				}

				resp, err := vesselness.Respond(cfg.Family, tr.Lambda1, tr.Lambda2, tr.Lambda3, cfg.Params)
				if err != nil {
					return err
				}

				if resp > r.MustAt(i, j, k) {
					r.MustSet(i, j, k, resp)
					if scaleOfMax != nil {
						scaleOfMax.MustSet(i, j, k, sigma)
					}
					if eigenVol != nil {
						eigenVol.Set(i, j, k, tr)
					}
				}
			}
		}
	}

	return nil
}
