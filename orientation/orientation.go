// Package orientation implements the cross-image orientation-similarity
// response (the per-scale |<e1,e2>| cosine between principal vessel
// directions of two co-registered volumes) and the fractional-anisotropy
// response over the three eigenvalues.
//
// The package standardizes on magnitude ordering throughout, for
// eigenvalues and eigenvectors alike; callers get one consistent
// convention.
package orientation

import (
	"context"
	"math"

	"github.com/vesselness/vessel-engine/eigen"
	"github.com/vesselness/vessel-engine/gaussian"
	"github.com/vesselness/vessel-engine/hessian"
	"github.com/vesselness/vessel-engine/scale"
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

// faConstant is sqrt(3/2), the normalization that maps a fully
// anisotropic eigenvalue triplet to an FA of 1.
const faConstant = 1.22474487139

// FA computes the fractional-anisotropy measure of a magnitude-sorted
// eigenvalue triplet: K * sqrt(sum((li-mean)^2)) / sqrt(sum(li^2)).
// Returns 0 when all three eigenvalues are zero (isotropic/degenerate).
func FA(l1, l2, l3 float64) float64 {
	mean := (l1 + l2 + l3) / 3
	num := (l1-mean)*(l1-mean) + (l2-mean)*(l2-mean) + (l3-mean)*(l3-mean)
	den := l1*l1 + l2*l2 + l3*l3
	if den < 1e-300 {
		return 0
	}

	return faConstant * math.Sqrt(num/den)
}

// Similarity returns the absolute cosine of the angle between two unit
// principal directions, |<e1,e2>|.
func Similarity(e1, e2 eigen.Vec3) float64 {
	dot := e1[0]*e2[0] + e1[1]*e2[1] + e1[2]*e2[2]
	if dot < 0 {
		dot = -dot
	}
	if dot > 1 {
		dot = 1
	}

	return dot
}

// Options configures Run.
type Options struct {
	// UseFA multiplies the orientation similarity by the FA response of
	// v1's eigenvalues at each scale, forming a joint structure-tensor-
	// style score. When false, the response is the similarity alone.
	UseFA bool
	// Boundary is the Gaussian derivative boundary policy (shared with
	// package gaussian, repeated here since Run drives that package
	// directly).
	Boundary gaussian.Boundary
}

// Run computes, for every voxel and every scale in sched, the principal
// (smallest-magnitude-eigenvalue) direction of v1 and v2's Hessians, and
// the absolute cosine between them (optionally weighted by v1's FA).
// The per-voxel result is the maximum of that product over all scales.
//
// Failure: v1, v2 nil, shape mismatch, or any scale failing with
// ErrInvalidParameter -> that error, before partial allocation at that
// scale.
func Run(ctx context.Context, v1, v2 *volume.Volume, sched scale.Schedule, opts Options) (*volume.Volume, error) {
	if v1 == nil || v2 == nil {
		return nil, vesselerr.Tag("orientation.Run", vesselerr.ErrInvalidParameter)
	}
	if !v1.SameShape(v2) {
		return nil, vesselerr.Tag("orientation.Run", vesselerr.ErrShapeMismatch)
	}

	nx, ny, nz := v1.Dim()
	sx, sy, sz := v1.Spacing()
	out, err := volume.New(nx, ny, nz, sx, sy, sz)
	if err != nil {
		return nil, err
	}

	gopts := gaussian.Options{ScaleNormalized: true, Boundary: opts.Boundary}

	for _, sigma := range sched.Sigmas() {
		if err := ctx.Err(); err != nil {
			return out, nil
		}

		field1, err := buildField(v1, sigma, gopts)
		if err != nil {
			return nil, err
		}
		field2, err := buildField(v2, sigma, gopts)
		if err != nil {
			return nil, err
		}

		out.ForEachVoxel(func(i, j, k int) {
			t1 := field1.At(i, j, k)
			t2 := field2.At(i, j, k)

			tr1, _ := eigen.Symmetric3x3(t1, eigen.OrderByMagnitude, true)
			tr2, _ := eigen.Symmetric3x3(t2, eigen.OrderByMagnitude, true)

			score := Similarity(tr1.Vectors[0], tr2.Vectors[0])
			if opts.UseFA {
				score *= FA(tr1.Lambda1, tr1.Lambda2, tr1.Lambda3)
			}

			if score > out.MustAt(i, j, k) {
				out.MustSet(i, j, k, score)
			}
		})
	}

	return out, nil
}

func buildField(v *volume.Volume, sigma float64, gopts gaussian.Options) (*hessian.Field, error) {
	ixx, iyy, izz, ixy, ixz, iyz, err := gaussian.SecondPartials(v, sigma, gopts)
	if err != nil {
		return nil, err
	}

	return hessian.Assemble(ixx, iyy, izz, ixy, ixz, iyz)
}
