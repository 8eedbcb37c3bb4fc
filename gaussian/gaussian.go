// Package gaussian implements the separable recursive Gaussian smoother
// and the first/second derivative operators it composes into, scale
// normalized in physical units.
//
// Contract:
//   - given a Volume V and a scale sigma (physical units), SecondPartials
//     produces the six second partials of V convolved with the isotropic
//     Gaussian of standard deviation sigma, respecting per-axis spacing.
//
// Determinism & Performance:
//   - one recursive IIR pass per axis (forward sweep then backward sweep,
//     Young-van Vliet third-order recursive approximation of the Gaussian),
//     composed across the three axes to realize each second partial.
//   - the differentiated axis (or axes, for a mixed partial) additionally
//     carries a fixed 3-tap central-difference stencil applied to the
//     recursively smoothed line — the discrete-derivative-of-smoothed-signal
//     technique used throughout scale-space literature, kept here instead
//     of a fully time-varying IIR derivative filter so the recursion
//     coefficients depend only on sigma, never on derivative order.
//   - boundary policy (reflect or extend-edge) is a single constant for
//     all six second partials of one scale, per the package's own
//     invariant.
//
// AI-Hints:
//   - clamp sigma/spacing >= 0.5 before deriving coefficients; the
//     Young-van Vliet rational approximation diverges below that ratio.
//   - pass ScaleNormalized=true to make responses comparable across scales.
package gaussian

import (
	"fmt"
	"math"

	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

// Boundary selects how a 1D line is extended past its ends to prime the
// recursive filter's forward and backward sweeps.
type Boundary int

const (
	// Reflect mirrors the line about its first/last sample: index -1 maps
	// to index 1, -2 to 2, and so on.
	Reflect Boundary = iota
	// Extend replicates the edge sample for any out-of-range index.
	Extend
)

// minSigmaRatio is the smallest sigma/spacing ratio the Young-van Vliet
// coefficient derivation is stable for; smaller ratios are clamped up to
// it, per the package's documented failure-avoidance policy.
const minSigmaRatio = 0.5

// Coefficients holds the recursive (IIR) Gaussian smoothing coefficients
// derived from a single sigma/spacing ratio, shared by the forward and
// backward sweeps of one axis pass.
type Coefficients struct {
	B          float64 // feedforward gain
	B1, B2, B3 float64 // feedback weights (applied as b/b0 below)
	b0         float64 // feedback normalizer
}

// DeriveCoefficients computes the Young-van Vliet third-order recursive
// Gaussian coefficients for the given sigma expressed in voxels
// (sigma/spacing). Values below minSigmaRatio are clamped up to it.
//
// Failure: sigmaVoxels <= 0 is an InvalidParameter; the 0.5 floor is a
// clamp, not a rejection.
func DeriveCoefficients(sigmaVoxels float64) (Coefficients, error) {
	if sigmaVoxels <= 0 || math.IsNaN(sigmaVoxels) || math.IsInf(sigmaVoxels, 0) {
		return Coefficients{}, vesselerr.Tag("gaussian.DeriveCoefficients", vesselerr.ErrInvalidParameter)
	}
	if sigmaVoxels < minSigmaRatio {
		sigmaVoxels = minSigmaRatio
	}

	var q float64
	if sigmaVoxels >= 2.5 {
		q = 0.98711*sigmaVoxels - 0.96330
	} else {
		q = 3.97156 - 4.14554*math.Sqrt(1-0.26891*sigmaVoxels)
	}

	b0 := 1.57825 + 2.44413*q + 1.4281*q*q + 0.422205*q*q*q
	b1 := 2.44413*q + 2.85619*q*q + 1.26661*q*q*q
	b2 := -(1.4281*q*q + 1.26661*q*q*q)
	b3 := 0.422205 * q * q * q
	gain := 1 - (b1+b2+b3)/b0

	return Coefficients{B: gain, B1: b1, B2: b2, B3: b3, b0: b0}, nil
}

// SmoothLine1D applies the forward sweep followed by the backward sweep
// of the recursive Gaussian filter to in, returning a new slice of the
// same length. The boundary policy primes both sweeps' recursion history.
func SmoothLine1D(in []float64, coef Coefficients, boundary Boundary) []float64 {
	n := len(in)
	if n == 0 {
		return nil
	}

	idx := extender(n, boundary)
	at := func(buf []float64, i int) float64 {
		j := idx(i)

		return buf[j]
	}

	// Forward (causal) sweep. Out-of-range history is primed with the
	// boundary-extended input itself: the recursion has unity DC gain, so
	// its steady-state output for a locally constant signal equals that
	// signal, and this priming keeps constants exactly invariant.
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		var wm1, wm2, wm3 float64
		if i-1 >= 0 {
			wm1 = w[i-1]
		} else {
			wm1 = at(in, i-1)
		}
		if i-2 >= 0 {
			wm2 = w[i-2]
		} else {
			wm2 = at(in, i-2)
		}
		if i-3 >= 0 {
			wm3 = w[i-3]
		} else {
			wm3 = at(in, i-3)
		}
		w[i] = coef.B*in[i] + (coef.B1*wm1+coef.B2*wm2+coef.B3*wm3)/coef.b0
	}

	// Backward (anticausal) sweep over the forward result, primed the
	// same way from the extended forward output.
	y := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		var yp1, yp2, yp3 float64
		if i+1 < n {
			yp1 = y[i+1]
		} else {
			yp1 = at(w, i+1)
		}
		if i+2 < n {
			yp2 = y[i+2]
		} else {
			yp2 = at(w, i+2)
		}
		if i+3 < n {
			yp3 = y[i+3]
		} else {
			yp3 = at(w, i+3)
		}
		y[i] = coef.B*w[i] + (coef.B1*yp1+coef.B2*yp2+coef.B3*yp3)/coef.b0
	}

	return y
}

// extender returns a function mapping any integer index (including
// out-of-[0,n) ones) to a valid in-range index, per the boundary policy.
func extender(n int, boundary Boundary) func(int) int {
	return func(i int) int {
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			switch boundary {
			case Extend:
				if i < 0 {
					i = 0
				} else {
					i = n - 1
				}
			default: // Reflect
				if i < 0 {
					i = -i
				} else if i >= n {
					i = 2*(n-1) - i
				}
			}
		}

		return i
	}
}

// Order selects how a smoothed line is further differentiated.
type Order int

const (
	Order0 Order = iota // smoothing only
	Order1              // first derivative
	Order2              // second derivative
)

// differentiate applies a 3-tap central-difference stencil to a
// recursively smoothed line, scaled by the physical spacing along that
// axis. Order0 returns smoothed unchanged.
func differentiate(smoothed []float64, order Order, spacing float64) []float64 {
	n := len(smoothed)
	if order == Order0 || n == 0 {
		return smoothed
	}

	out := make([]float64, n)
	idx := extender(n, Reflect)
	switch order {
	case Order1:
		inv := 1.0 / (2 * spacing)
		for i := 0; i < n; i++ {
			out[i] = (smoothed[idx(i+1)] - smoothed[idx(i-1)]) * inv
		}
	case Order2:
		inv := 1.0 / (spacing * spacing)
		for i := 0; i < n; i++ {
			out[i] = (smoothed[idx(i+1)] - 2*smoothed[i] + smoothed[idx(i-1)]) * inv
		}
	}

	return out
}

// axisPass runs SmoothLine1D (and, for order>0, differentiate) over
// every 1D line parallel to the given axis (0=X, 1=Y, 2=Z) of v, at the
// physical scale sigma, returning a new Volume of the same shape.
func axisPass(v *volume.Volume, axis int, sigma float64, order Order, boundary Boundary) (*volume.Volume, error) {
	nx, ny, nz := v.Dim()
	sx, sy, sz := v.Spacing()
	spacing := [3]float64{sx, sy, sz}[axis]

	coef, err := DeriveCoefficients(sigma / spacing)
	if err != nil {
		return nil, err
	}

	out, err := volume.New(nx, ny, nz, sx, sy, sz)
	if err != nil {
		return nil, err
	}

	switch axis {
	case 0: // X-lines: one per (j,k)
		line := make([]float64, nx)
		for k := 0; k < nz; k++ {
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					line[i] = v.MustAt(i, j, k)
				}
				s := SmoothLine1D(line, coef, boundary)
				s = differentiate(s, order, spacing)
				for i := 0; i < nx; i++ {
					out.MustSet(i, j, k, s[i])
				}
			}
		}
	case 1: // Y-lines: one per (i,k)
		line := make([]float64, ny)
		for k := 0; k < nz; k++ {
			for i := 0; i < nx; i++ {
				for j := 0; j < ny; j++ {
					line[j] = v.MustAt(i, j, k)
				}
				s := SmoothLine1D(line, coef, boundary)
				s = differentiate(s, order, spacing)
				for j := 0; j < ny; j++ {
					out.MustSet(i, j, k, s[j])
				}
			}
		}
	case 2: // Z-lines: one per (i,j)
		line := make([]float64, nz)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				for k := 0; k < nz; k++ {
					line[k] = v.MustAt(i, j, k)
				}
				s := SmoothLine1D(line, coef, boundary)
				s = differentiate(s, order, spacing)
				for k := 0; k < nz; k++ {
					out.MustSet(i, j, k, s[k])
				}
			}
		}
	default:
		return nil, vesselerr.Tag("gaussian.axisPass", fmt.Errorf("bad axis %d: %w", axis, vesselerr.ErrInvalidParameter))
	}

	return out, nil
}

// orders3 is the per-axis (X,Y,Z) derivative order triple for one of the
// six second partials.
type orders3 struct{ x, y, z Order }

var partialOrders = map[string]orders3{
	"xx": {Order2, Order0, Order0},
	"yy": {Order0, Order2, Order0},
	"zz": {Order0, Order0, Order2},
	"xy": {Order1, Order1, Order0},
	"xz": {Order1, Order0, Order1},
	"yz": {Order0, Order1, Order1},
}

// buildPartial composes the three axis passes for one second partial,
// applied in a fixed Z->Y->X pass order so that identical inputs always
// produce identical intermediate rounding (determinism).
func buildPartial(v *volume.Volume, sigma float64, o orders3, boundary Boundary) (*volume.Volume, error) {
	step, err := axisPass(v, 2, sigma, o.z, boundary)
	if err != nil {
		return nil, err
	}
	step, err = axisPass(step, 1, sigma, o.y, boundary)
	if err != nil {
		return nil, err
	}

	return axisPass(step, 0, sigma, o.x, boundary)
}

// Options configures SecondPartials.
type Options struct {
	// ScaleNormalized multiplies each second partial by sigma^2 (gamma
	// normalization with gamma=1), required to compare responses across
	// scales.
	ScaleNormalized bool
	// Boundary is the single boundary policy shared by all six partials.
	Boundary Boundary
}

// SecondPartials computes the six second partial derivatives of v
// convolved with the isotropic Gaussian of standard deviation sigma
// (physical units).
//
// Failure: sigma <= 0 or any spacing <= 0 -> ErrInvalidParameter.
func SecondPartials(v *volume.Volume, sigma float64, opts Options) (ixx, iyy, izz, ixy, ixz, iyz *volume.Volume, err error) {
	if v == nil || sigma <= 0 {
		return nil, nil, nil, nil, nil, nil, vesselerr.Tag("gaussian.SecondPartials", vesselerr.ErrInvalidParameter)
	}

	results := make(map[string]*volume.Volume, 6)
	for name, o := range partialOrders {
		r, buildErr := buildPartial(v, sigma, o, opts.Boundary)
		if buildErr != nil {
			return nil, nil, nil, nil, nil, nil, buildErr
		}
		if opts.ScaleNormalized {
			scale := sigma * sigma
			data := r.Data()
			for i := range data {
				data[i] *= scale
			}
		}
		results[name] = r
	}

	return results["xx"], results["yy"], results["zz"], results["xy"], results["xz"], results["yz"], nil
}
