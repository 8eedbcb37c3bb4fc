package vesselness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/vesselness"
)

func TestSatoResponse_RejectsInvalidAlphas(t *testing.T) {
	t.Parallel()

	p := vesselness.DefaultParams()
	p.Alpha1 = 0
	_, err := vesselness.SatoResponse(-1, -2, -3, p)
	require.ErrorIs(t, err, vesselerr.ErrInvalidParameter)
}

func TestSatoResponse_ZeroWhenNvNonPositive(t *testing.T) {
	t.Parallel()

	p := vesselness.DefaultParams()
	// l2 positive => nv = min(-l2,-l1) can't be positive for a bright tube.
	r, err := vesselness.SatoResponse(0, 1, 2, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestSatoResponse_PositiveForBrightTubeEigenvalues(t *testing.T) {
	t.Parallel()

	p := vesselness.DefaultParams()
	r, err := vesselness.SatoResponse(0, -5, -5, p)
	require.NoError(t, err)
	assert.Greater(t, r, 0.0)
}

func TestSatoResponse_OverwriteEmphasisMatchesLiteralFormula(t *testing.T) {
	t.Parallel()

	p := vesselness.DefaultParams()
	p.Emphasis = vesselness.SatoEmphasisOverwrite
	r, err := vesselness.SatoResponse(-1, -2, -5, p)
	require.NoError(t, err)
	assert.InDelta(t, 1*(5-2), r, 1e-12)
}

func TestFrangiResponse_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	p := vesselness.Params{Alpha: 0.5, Beta: 0.5, Gamma: 0}
	_, err := vesselness.FrangiResponse(-1, -2, -3, p)
	require.ErrorIs(t, err, vesselerr.ErrInvalidParameter)
}

func TestFrangiResponse_ZeroOnFailedSignTest(t *testing.T) {
	t.Parallel()

	p := vesselness.Params{Alpha: 0.5, Beta: 0.5, Gamma: 15, BrightVessels: true}
	r, err := vesselness.FrangiResponse(-1, 2, 3, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestFrangiResponse_PositiveForBrightTube(t *testing.T) {
	t.Parallel()

	p := vesselness.Params{Alpha: 0.5, Beta: 0.5, Gamma: 15, BrightVessels: true}
	r, err := vesselness.FrangiResponse(-1, -5, -5, p)
	require.NoError(t, err)
	assert.Greater(t, r, 0.0)
}

func TestFrangiResponse_ScaleVesselnessMeasureScalesByLambda3(t *testing.T) {
	t.Parallel()

	p := vesselness.Params{Alpha: 0.5, Beta: 0.5, Gamma: 15, BrightVessels: true}
	unscaled, err := vesselness.FrangiResponse(-1, -5, -5, p)
	require.NoError(t, err)

	p.ScaleVesselnessMeasure = true
	scaled, err := vesselness.FrangiResponse(-1, -5, -5, p)
	require.NoError(t, err)

	assert.InDelta(t, unscaled*5, scaled, 1e-9)
}

func TestRespond_RejectsFAOrientation(t *testing.T) {
	t.Parallel()

	_, err := vesselness.Respond(vesselness.FAOrientation, 1, 2, 3, vesselness.DefaultParams())
	require.ErrorIs(t, err, vesselerr.ErrInvalidParameter)
}

func TestResponses_AreNeverNegative(t *testing.T) {
	t.Parallel()

	p := vesselness.DefaultParams()
	for _, l3 := range []float64{-10, -1, 0, 1, 10} {
		r, err := vesselness.SatoResponse(0, -3, l3, p)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r, 0.0)
	}
}
