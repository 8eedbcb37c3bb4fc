// Package eigen computes the closed-form symmetric eigendecomposition of
// the 3x3 tensors produced by package hessian.
//
// Algorithm: the trace/deviator reduction (Smith's method). Compute the
// deviatoric part of the tensor, reduce to a single angle via acos of its
// normalized determinant, and read the three roots off a cosine triple.
// This is a direct closed form, not an iterative sweep; an iterative
// Jacobi solver is the right tool for an arbitrary n x n symmetric
// matrix, but a fixed 3x3 tensor warrants the cheaper closed form. A
// 3x3 Jacobi transcription (viaJacobi) is kept alongside it as an
// independent cross-check exercised by the package's tests.
//
// Failure handling: a tensor with any non-finite entry never reaches the
// trigonometric reduction. Symmetric3x3 returns the zero triple with
// identity eigenvectors and degenerate=true; it is the caller's job
// (package reducer) to count these occurrences, never abort on them.
package eigen

import (
	"math"

	"github.com/vesselness/vessel-engine/vesselerr"
)

// degeneracyEps bounds how small the off-diagonal energy p1 must be
// before a tensor is treated as already diagonal, sidestepping a
// division by a near-zero p in the trigonometric reduction.
const degeneracyEps = 1e-300

// OrderPolicy selects how the three roots of Symmetric3x3 are sorted.
type OrderPolicy int

const (
	// OrderByMagnitude sorts so |Lambda1| <= |Lambda2| <= |Lambda3|.
	// This is the ordering the vesselness response functions expect.
	OrderByMagnitude OrderPolicy = iota
	// OrderByValue sorts so Lambda1 <= Lambda2 <= Lambda3.
	OrderByValue
)

// Vec3 is a plain 3-vector, used only for eigenvectors.
type Vec3 [3]float64

// Triple is one voxel's ordered eigendecomposition.
type Triple struct {
	Lambda1, Lambda2, Lambda3 float64
	// Vectors holds the eigenvectors as columns, Vectors[k] corresponding
	// to the k-th ordered eigenvalue. Populated only when requested.
	Vectors [3]Vec3
}

func dot(a, b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func scale(a Vec3, s float64) Vec3 { return Vec3{a[0] * s, a[1] * s, a[2] * s} }

func sub(a, b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func norm(a Vec3) float64 { return math.Sqrt(dot(a, a)) }

func normalize(a Vec3) Vec3 {
	n := norm(a)
	if n < 1e-15 {
		return Vec3{}
	}

	return scale(a, 1/n)
}

// identityVectors is the fallback eigenvector basis for degenerate input
// and for directions the closed form cannot resolve (repeated roots).
var identityVectors = [3]Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func finite3(xx, xy, xz, yy, yz, zz float64) bool {
	for _, v := range [...]float64{xx, xy, xz, yy, yz, zz} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// tensorLike is the minimal surface Symmetric3x3 needs, matched
// structurally against hessian.Tensor so this package never imports it
// (hessian already imports volume; eigen stays a leaf alongside it).
type tensorLike interface {
	At(row, col int) float64
	Trace() float64
}

// Symmetric3x3 decomposes a symmetric 3x3 tensor into an ordered eigen
// Triple. The second return is true iff t carried a non-finite entry, in
// which case the Triple is the all-zero/identity degenerate result.
func Symmetric3x3(t tensorLike, policy OrderPolicy, computeVectors bool) (Triple, bool) {
	xx, xy, xz := t.At(0, 0), t.At(0, 1), t.At(0, 2)
	yy, yz := t.At(1, 1), t.At(1, 2)
	zz := t.At(2, 2)

	if !finite3(xx, xy, xz, yy, yz, zz) {
		return Triple{Vectors: identityVectors}, true
	}

	q := t.Trace() / 3
	p1 := xy*xy + xz*xz + yz*yz

	var raw [3]float64
	if p1 <= degeneracyEps {
		// Already diagonal: roots are the diagonal entries themselves.
		raw = [3]float64{xx, yy, zz}
	} else {
		p2 := (xx-q)*(xx-q) + (yy-q)*(yy-q) + (zz-q)*(zz-q) + 2*p1
		p := math.Sqrt(p2 / 6)

		bxx, byy, bzz := (xx-q)/p, (yy-q)/p, (zz-q)/p
		bxy, bxz, byz := xy/p, xz/p, yz/p
		detB := bxx*(byy*bzz-byz*byz) - bxy*(bxy*bzz-byz*bxz) + bxz*(bxy*byz-byy*bxz)

		r := detB / 2
		if r < -1 {
			r = -1
		} else if r > 1 {
			r = 1
		}
		phi := math.Acos(r) / 3

		lambda1 := q + 2*p*math.Cos(phi)
		lambda3 := q + 2*p*math.Cos(phi+2*math.Pi/3)
		lambda2 := 3*q - lambda1 - lambda3
		raw = [3]float64{lambda1, lambda2, lambda3}
	}

	order := orderIndices(raw, policy)
	out := Triple{
		Lambda1: raw[order[0]],
		Lambda2: raw[order[1]],
		Lambda3: raw[order[2]],
	}

	if computeVectors {
		out.Vectors = eigenvectors(t, [3]float64{out.Lambda1, out.Lambda2, out.Lambda3})
	}

	return out, false
}

// orderIndices returns the permutation of {0,1,2} that sorts raw
// ascending under policy, with ties broken by the original index so the
// result is deterministic regardless of floating-point noise.
func orderIndices(raw [3]float64, policy OrderPolicy) [3]int {
	key := func(i int) float64 {
		if policy == OrderByMagnitude {
			return math.Abs(raw[i])
		}

		return raw[i]
	}

	idx := [3]int{0, 1, 2}
	// Insertion sort over 3 elements: stable, so equal keys keep their
	// original relative order (the documented tie-break).
	for i := 1; i < 3; i++ {
		j := i
		for j > 0 && key(idx[j-1]) > key(idx[j]) {
			idx[j-1], idx[j] = idx[j], idx[j-1]
			j--
		}
	}

	return idx
}

// eigenvectors returns an orthonormal basis with Vectors[k] the
// eigenvector for lambdas[k]. The first two directions come from the
// cross-product-of-rows trick on (T - lambda*I); the third is forced to
// their cross product so the basis stays orthonormal even when two
// eigenvalues coincide and the trick alone cannot separate them.
func eigenvectors(t tensorLike, lambdas [3]float64) [3]Vec3 {
	v0 := vectorFor(t, lambdas[0])
	v1 := vectorFor(t, lambdas[1])

	if norm(v0) < 1e-12 {
		v0 = identityVectors[0]
	}
	v1 = orthogonalize(v1, v0)
	if norm(v1) < 1e-12 {
		v1 = pickOrthogonal(v0)
	}
	v2 := normalize(cross(v0, v1))
	if norm(v2) < 1e-12 {
		v2 = identityVectors[2]
	}
	// Re-orthogonalize v1 against the finalized v0/v2 pair so the triple
	// is exactly orthonormal even after the fallbacks above.
	v1 = normalize(cross(v2, v0))

	return [3]Vec3{v0, v1, v2}
}

// vectorFor solves (T - lambda*I)x = 0 by taking the cross product of
// whichever two rows of the shifted matrix are least parallel.
func vectorFor(t tensorLike, lambda float64) Vec3 {
	r0 := Vec3{t.At(0, 0) - lambda, t.At(0, 1), t.At(0, 2)}
	r1 := Vec3{t.At(1, 0), t.At(1, 1) - lambda, t.At(1, 2)}
	r2 := Vec3{t.At(2, 0), t.At(2, 1), t.At(2, 2) - lambda}

	candidates := [3]Vec3{cross(r0, r1), cross(r0, r2), cross(r1, r2)}
	best, bestNorm := candidates[0], norm(candidates[0])
	for _, c := range candidates[1:] {
		if n := norm(c); n > bestNorm {
			best, bestNorm = c, n
		}
	}
	if bestNorm < 1e-12 {
		return Vec3{}
	}

	return normalize(best)
}

// orthogonalize removes v's component along axis, then renormalizes.
func orthogonalize(v, axis Vec3) Vec3 {
	return normalize(sub(v, scale(axis, dot(v, axis))))
}

// pickOrthogonal returns a unit vector orthogonal to axis, used when the
// cross-product trick degenerates (repeated eigenvalues).
func pickOrthogonal(axis Vec3) Vec3 {
	ref := Vec3{1, 0, 0}
	if math.Abs(axis[0]) > 0.9 {
		ref = Vec3{0, 1, 0}
	}

	return orthogonalize(ref, axis)
}

// viaJacobi decomposes a symmetric 3x3 tensor by classical Jacobi
// rotations: pick the largest off-diagonal entry, rotate it to zero,
// repeat until every off-diagonal entry drops below tol. It is the
// general-purpose iterative algorithm, kept alongside the closed form as
// an independent cross-check; the pipeline itself always goes through
// Symmetric3x3. Pivot selection scans the upper triangle in fixed order,
// so the rotation sequence is deterministic.
//
// Returns the (unordered) eigenvalues and the eigenvectors as columns of
// the accumulated rotation.
//
// Failure: the off-diagonal residual still exceeds tol after maxIter
// rotations -> ErrEigenNotConverged.
func viaJacobi(t tensorLike, tol float64, maxIter int) ([3]float64, [3]Vec3, error) {
	var a [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			a[r][c] = t.At(r, c)
		}
	}
	rot := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for iter := 0; iter < maxIter; iter++ {
		p, q, maxOff := 0, 1, 0.0
		for i := 0; i < 3; i++ {
			for j := i + 1; j < 3; j++ {
				if off := math.Abs(a[i][j]); off > maxOff {
					p, q, maxOff = i, j, off
				}
			}
		}
		if maxOff < tol {
			return jacobiResult(a, rot)
		}

		app, aqq, apq := a[p][p], a[q][q], a[p][q]
		theta := (aqq - app) / (2 * apq)
		tau := math.Copysign(1/(math.Abs(theta)+math.Sqrt(theta*theta+1)), theta)
		c := 1 / math.Sqrt(tau*tau+1)
		s := tau * c

		for i := 0; i < 3; i++ {
			if i == p || i == q {
				continue
			}
			aip, aiq := a[i][p], a[i][q]
			a[i][p], a[p][i] = c*aip-s*aiq, c*aip-s*aiq
			a[i][q], a[q][i] = s*aip+c*aiq, s*aip+c*aiq
		}
		a[p][p] = c*c*app - 2*c*s*apq + s*s*aqq
		a[q][q] = s*s*app + 2*c*s*apq + c*c*aqq
		a[p][q], a[q][p] = 0, 0

		for i := 0; i < 3; i++ {
			rip, riq := rot[i][p], rot[i][q]
			rot[i][p] = c*rip - s*riq
			rot[i][q] = s*rip + c*riq
		}
	}

	// One last residual check so a tensor that converged exactly on the
	// final rotation is not misreported.
	maxOff := 0.0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if off := math.Abs(a[i][j]); off > maxOff {
				maxOff = off
			}
		}
	}
	if maxOff < tol {
		return jacobiResult(a, rot)
	}

	return [3]float64{}, identityVectors, vesselerr.Tag("eigen.viaJacobi", vesselerr.ErrEigenNotConverged)
}

func jacobiResult(a, rot [3][3]float64) ([3]float64, [3]Vec3, error) {
	vals := [3]float64{a[0][0], a[1][1], a[2][2]}
	var vecs [3]Vec3
	for k := 0; k < 3; k++ {
		vecs[k] = Vec3{rot[0][k], rot[1][k], rot[2][k]}
	}

	return vals, vecs, nil
}

// Volume is a dense per-voxel field of eigen Triples, the eigen-side
// counterpart of volume.Volume, returned by the reducer/facade when a
// caller asks for the eigendecomposition alongside the scalar response.
type Volume struct {
	nx, ny, nz int
	data       []Triple
}

// NewVolume allocates a zero-valued eigen Volume of the given dimensions.
func NewVolume(nx, ny, nz int) *Volume {
	return &Volume{nx: nx, ny: ny, nz: nz, data: make([]Triple, nx*ny*nz)}
}

// Dim returns the voxel-grid dimensions.
func (v *Volume) Dim() (int, int, int) { return v.nx, v.ny, v.nz }

func (v *Volume) flatIndex(i, j, k int) int { return (k*v.ny+j)*v.nx + i }

// At returns the Triple stored at (i,j,k).
func (v *Volume) At(i, j, k int) Triple { return v.data[v.flatIndex(i, j, k)] }

// Set stores tr at (i,j,k).
func (v *Volume) Set(i, j, k int, tr Triple) { v.data[v.flatIndex(i, j, k)] = tr }
