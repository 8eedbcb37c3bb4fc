package orientation_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselness/vessel-engine/eigen"
	"github.com/vesselness/vessel-engine/orientation"
	"github.com/vesselness/vessel-engine/scale"
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

func TestFA_ZeroForIsotropicEigenvalues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, orientation.FA(0, 0, 0))
	assert.InDelta(t, 0, orientation.FA(2, 2, 2), 1e-9)
}

func TestFA_PositiveForAnisotropicEigenvalues(t *testing.T) {
	t.Parallel()

	fa := orientation.FA(0, -1, -5)
	assert.Greater(t, fa, 0.0)
}

func TestSimilarity_Properties(t *testing.T) {
	t.Parallel()

	x := eigen.Vec3{1, 0, 0}
	y := eigen.Vec3{0, 1, 0}
	negX := eigen.Vec3{-1, 0, 0}

	assert.InDelta(t, 1, orientation.Similarity(x, x), 1e-12)
	assert.InDelta(t, 1, orientation.Similarity(x, negX), 1e-12)
	assert.InDelta(t, 0, orientation.Similarity(x, y), 1e-12)
}

func TestRun_RejectsShapeMismatch(t *testing.T) {
	t.Parallel()

	v1, err := volume.New(4, 4, 4, 1, 1, 1)
	require.NoError(t, err)
	v2, err := volume.New(5, 5, 5, 1, 1, 1)
	require.NoError(t, err)
	sched, err := scale.NewSchedule(1, 1, 1, scale.Linear)
	require.NoError(t, err)

	_, err = orientation.Run(context.Background(), v1, v2, sched, orientation.Options{})
	require.ErrorIs(t, err, vesselerr.ErrShapeMismatch)
}

func TestRun_IdenticalVolumesGiveHighSimilarity(t *testing.T) {
	t.Parallel()

	v1, err := volume.New(9, 9, 9, 1, 1, 1)
	require.NoError(t, err)
	v1.ForEachVoxel(func(i, j, k int) {
		if k == 4 {
			require.NoError(t, v1.Set(i, j, k, 1))
		}
	})
	v2 := v1.Clone()

	sched, err := scale.NewSchedule(1, 1, 1, scale.Linear)
	require.NoError(t, err)

	r, err := orientation.Run(context.Background(), v1, v2, sched, orientation.Options{})
	require.NoError(t, err)

	center, err := r.At(4, 4, 4)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(center))
	assert.GreaterOrEqual(t, center, 0.0)
	assert.LessOrEqual(t, center, 1.0+1e-9)
	assert.InDelta(t, 1.0, center, 1e-9)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	t.Parallel()

	v1, err := volume.New(4, 4, 4, 1, 1, 1)
	require.NoError(t, err)
	v2 := v1.Clone()
	sched, err := scale.NewSchedule(1, 2, 3, scale.Linear)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := orientation.Run(ctx, v1, v2, sched, orientation.Options{})
	require.NoError(t, err)
	require.NotNil(t, r)
}
