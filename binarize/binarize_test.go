package binarize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselness/vessel-engine/binarize"
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

func line1D(t *testing.T, values []float64) *volume.Volume {
	t.Helper()
	v, err := volume.New(len(values), 1, 1, 1, 1, 1)
	require.NoError(t, err)
	for i, val := range values {
		require.NoError(t, v.Set(i, 0, 0, val))
	}

	return v
}

func maskValues(t *testing.T, m *volume.Mask, n int) []float64 {
	t.Helper()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if m.At(i, 0, 0) {
			out[i] = 1
		}
	}

	return out
}

func TestBinarize_HysteresisProfile(t *testing.T) {
	t.Parallel()

	r := line1D(t, []float64{5, 3, 0, 0, 3, 5})

	hi := 4.0
	m, err := binarize.Binarize(r, 2, &hi)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 0, 1, 1}, maskValues(t, m, 6))

	hi2 := 2.0
	m2, err := binarize.Binarize(r, 2, &hi2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 0, 1, 1}, maskValues(t, m2, 6))

	m3, err := binarize.Binarize(r, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 1}, maskValues(t, m3, 6))
}

func TestBinarize_ZeroThresholdIsPositivityTest(t *testing.T) {
	t.Parallel()

	r := line1D(t, []float64{0, 0.001, 0, -0.001, 1})
	m, err := binarize.Binarize(r, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 0, 1}, maskValues(t, m, 5))
}

func TestBinarize_RejectsHighBelowLow(t *testing.T) {
	t.Parallel()

	r := line1D(t, []float64{1, 2, 3})
	hi := 1.0
	_, err := binarize.Binarize(r, 2, &hi)
	require.ErrorIs(t, err, vesselerr.ErrInvalidParameter)
}

func TestBinarize_PropagationOrderIndependent(t *testing.T) {
	t.Parallel()

	v, err := volume.New(5, 5, 5, 1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, v.Set(0, 0, 0, 10))
	require.NoError(t, v.Set(4, 4, 4, 10))
	require.NoError(t, v.Set(2, 2, 2, 1))

	hi := 5.0
	m, err := binarize.Binarize(v, 0.5, &hi)
	require.NoError(t, err)
	// The two seeds are not mutually reachable through the low-threshold
	// corridor, and the low voxel at the center touches neither seed, so
	// only the seeds themselves get labeled regardless of traversal order.
	assert.True(t, m.At(0, 0, 0))
	assert.True(t, m.At(4, 4, 4))
	assert.False(t, m.At(1, 1, 1))
	assert.False(t, m.At(2, 2, 2))
}

func TestBinarize_Idempotence(t *testing.T) {
	t.Parallel()

	r := line1D(t, []float64{5, 3, 0, 0, 3, 5})
	hi := 4.0
	once, err := binarize.Binarize(r, 2, &hi)
	require.NoError(t, err)

	scaled := once.Volume().Clone()
	for i := 0; i < scaled.Len(); i++ {
		scaled.Data()[i] *= 3
	}
	twice, err := binarize.Binarize(scaled, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, maskValues(t, once, 6), maskValues(t, twice, 6))
}
