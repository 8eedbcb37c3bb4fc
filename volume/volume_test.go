package volume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

func TestNew_ValidatesShapeAndSpacing(t *testing.T) {
	t.Parallel()

	_, err := volume.New(-1, 2, 2, 1, 1, 1)
	require.ErrorIs(t, err, vesselerr.ErrInvalidParameter)

	_, err = volume.New(2, 2, 2, 0, 1, 1)
	require.ErrorIs(t, err, vesselerr.ErrDegenerateSpacing)

	v, err := volume.New(2, 3, 4, 1, 1, 1)
	require.NoError(t, err)
	nx, ny, nz := v.Dim()
	assert.Equal(t, [3]int{2, 3, 4}, [3]int{nx, ny, nz})
	assert.Equal(t, 24, v.Len())
}

func TestAtSet_RoundTripAndBounds(t *testing.T) {
	t.Parallel()

	v, err := volume.New(3, 3, 3, 1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, v.Set(1, 1, 1, 42))
	got, err := v.At(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	_, err = v.At(3, 0, 0)
	require.ErrorIs(t, err, vesselerr.ErrOutOfRange)
	require.ErrorIs(t, v.Set(-1, 0, 0, 1), vesselerr.ErrOutOfRange)
}

func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	v, err := volume.New(2, 2, 2, 1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, v.Set(0, 0, 0, 1))

	c := v.Clone()
	require.NoError(t, c.Set(0, 0, 0, 99))

	orig, _ := v.At(0, 0, 0)
	cloned, _ := c.At(0, 0, 0)
	assert.Equal(t, 1.0, orig)
	assert.Equal(t, 99.0, cloned)
}

func TestForEachVoxel_VisitsEveryIndexOnce(t *testing.T) {
	t.Parallel()

	v, err := volume.New(2, 2, 2, 1, 1, 1)
	require.NoError(t, err)

	visited := make(map[[3]int]bool)
	v.ForEachVoxel(func(i, j, k int) {
		visited[[3]int{i, j, k}] = true
	})
	assert.Len(t, visited, 8)
}

func TestSameShape(t *testing.T) {
	t.Parallel()

	a, _ := volume.New(2, 3, 4, 1, 1, 1)
	b, _ := volume.New(2, 3, 4, 2, 2, 2)
	c, _ := volume.New(2, 3, 5, 1, 1, 1)

	assert.True(t, a.SameShape(b))
	assert.False(t, a.SameShape(c))
	assert.False(t, a.SameShape(nil))
}

func TestMask_At(t *testing.T) {
	t.Parallel()

	v, _ := volume.New(2, 2, 2, 1, 1, 1)
	require.NoError(t, v.Set(0, 0, 0, 1))
	m := volume.NewMask(v)

	assert.True(t, m.At(0, 0, 0))
	assert.False(t, m.At(1, 0, 0))
	assert.False(t, m.At(5, 5, 5))
}
