package eigen_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselness/vessel-engine/eigen"
	"github.com/vesselness/vessel-engine/hessian"
	"github.com/vesselness/vessel-engine/vesselerr"
)

func TestSymmetric3x3_DiagonalMatrix(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: 1, Yy: 2, Zz: 3}
	tr, degenerate := eigen.Symmetric3x3(tensor, eigen.OrderByValue, false)
	require.False(t, degenerate)
	assert.InDelta(t, 1, tr.Lambda1, 1e-9)
	assert.InDelta(t, 2, tr.Lambda2, 1e-9)
	assert.InDelta(t, 3, tr.Lambda3, 1e-9)
}

func TestSymmetric3x3_DiagonalMatrix_EigenvectorsArePermutationOfIdentity(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: 1, Yy: 2, Zz: 3}
	tr, degenerate := eigen.Symmetric3x3(tensor, eigen.OrderByValue, true)
	require.False(t, degenerate)

	for _, v := range tr.Vectors {
		n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		assert.InDelta(t, 1, n, 1e-9)
		// A unit vector whose largest component is +-1 is a signed axis.
		assert.InDelta(t, 1, math.Max(math.Abs(v[0]), math.Max(math.Abs(v[1]), math.Abs(v[2]))), 1e-9)
	}
	// Orthonormal: pairwise dot products vanish.
	assert.InDelta(t, 0, dot(tr.Vectors[0], tr.Vectors[1]), 1e-9)
	assert.InDelta(t, 0, dot(tr.Vectors[0], tr.Vectors[2]), 1e-9)
	assert.InDelta(t, 0, dot(tr.Vectors[1], tr.Vectors[2]), 1e-9)
}

func dot(a, b eigen.Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func TestSymmetric3x3_OrderByMagnitude(t *testing.T) {
	t.Parallel()

	// Constructed so value order and magnitude order disagree.
	tensor := hessian.Tensor{Xx: -5, Yy: 1, Zz: 2}
	tr, degenerate := eigen.Symmetric3x3(tensor, eigen.OrderByMagnitude, false)
	require.False(t, degenerate)
	assert.LessOrEqual(t, math.Abs(tr.Lambda1), math.Abs(tr.Lambda2))
	assert.LessOrEqual(t, math.Abs(tr.Lambda2), math.Abs(tr.Lambda3))
}

func TestSymmetric3x3_ReconstructsOriginalTensor(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: 4, Xy: 1, Xz: 0.5, Yy: 3, Yz: -0.25, Zz: 2}
	tr, degenerate := eigen.Symmetric3x3(tensor, eigen.OrderByValue, true)
	require.False(t, degenerate)

	lambdas := [3]float64{tr.Lambda1, tr.Lambda2, tr.Lambda3}
	// Reconstruct Q diag(lambda) Q^T and compare entrywise to tensor.
	var recon [3][3]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += tr.Vectors[k][row] * lambdas[k] * tr.Vectors[k][col]
			}
			recon[row][col] = sum
		}
	}

	assert.InDelta(t, tensor.Xx, recon[0][0], 1e-6)
	assert.InDelta(t, tensor.Xy, recon[0][1], 1e-6)
	assert.InDelta(t, tensor.Xz, recon[0][2], 1e-6)
	assert.InDelta(t, tensor.Yy, recon[1][1], 1e-6)
	assert.InDelta(t, tensor.Yz, recon[1][2], 1e-6)
	assert.InDelta(t, tensor.Zz, recon[2][2], 1e-6)
}

func TestSymmetric3x3_NonFiniteIsDegenerate(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: math.NaN()}
	tr, degenerate := eigen.Symmetric3x3(tensor, eigen.OrderByMagnitude, true)
	require.True(t, degenerate)
	assert.Equal(t, eigen.Triple{Vectors: [3]eigen.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}, tr)
}

// The closed-form solver and the iterative Jacobi transcription must
// agree on a dense symmetric tensor: same eigenvalues once both sets
// are sorted ascending.
func TestViaJacobi_CrossChecksClosedForm(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: 4, Xy: 1, Xz: 0.5, Yy: 3, Yz: -0.25, Zz: 2}

	tr, degenerate := eigen.Symmetric3x3(tensor, eigen.OrderByValue, false)
	require.False(t, degenerate)

	vals, vecs, err := eigen.ViaJacobi(tensor, 1e-12, 64)
	require.NoError(t, err)

	sorted := []float64{vals[0], vals[1], vals[2]}
	sort.Float64s(sorted)
	assert.InDelta(t, tr.Lambda1, sorted[0], 1e-9)
	assert.InDelta(t, tr.Lambda2, sorted[1], 1e-9)
	assert.InDelta(t, tr.Lambda3, sorted[2], 1e-9)

	for _, v := range vecs {
		assert.InDelta(t, 1, math.Sqrt(dot(v, v)), 1e-9)
	}
	assert.InDelta(t, 0, dot(vecs[0], vecs[1]), 1e-9)
	assert.InDelta(t, 0, dot(vecs[0], vecs[2]), 1e-9)
	assert.InDelta(t, 0, dot(vecs[1], vecs[2]), 1e-9)
}

func TestViaJacobi_DiagonalConvergesImmediately(t *testing.T) {
	t.Parallel()

	vals, _, err := eigen.ViaJacobi(hessian.Tensor{Xx: 1, Yy: 2, Zz: 3}, 1e-12, 1)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, vals)
}

func TestViaJacobi_ReportsNonConvergence(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: 4, Xy: 1, Xz: 0.5, Yy: 3, Yz: -0.25, Zz: 2}
	_, _, err := eigen.ViaJacobi(tensor, 1e-12, 0)
	require.ErrorIs(t, err, vesselerr.ErrEigenNotConverged)
}

func TestSymmetric3x3_TieBreakIsDeterministic(t *testing.T) {
	t.Parallel()

	tensor := hessian.Tensor{Xx: 2, Yy: 2, Zz: 2}
	tr1, _ := eigen.Symmetric3x3(tensor, eigen.OrderByValue, false)
	tr2, _ := eigen.Symmetric3x3(tensor, eigen.OrderByValue, false)
	assert.Equal(t, tr1, tr2)
	assert.InDelta(t, 2, tr1.Lambda1, 1e-9)
	assert.InDelta(t, 2, tr1.Lambda2, 1e-9)
	assert.InDelta(t, 2, tr1.Lambda3, 1e-9)
}
