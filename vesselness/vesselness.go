// Package vesselness maps an ordered triplet of Hessian eigenvalues to a
// scalar vesselness response. Two families are provided: Sato-style
// (expects magnitude-ascending eigenvalues, asymmetric exponential
// penalty) and Frangi-style (expects value-ascending eigenvalues, the
// RA/RB/S combination).
package vesselness

import (
	"math"

	"github.com/vesselness/vessel-engine/vesselerr"
)

// ResponseFamily selects which response function Respond evaluates.
type ResponseFamily int

const (
	// Sato is the asymmetric-penalty line measure (default).
	Sato ResponseFamily = iota
	// Frangi is the RA/RB/S combination.
	Frangi
	// FAOrientation is handled entirely by package orientation; Respond
	// rejects it so a caller never silently gets the wrong eigen ordering.
	FAOrientation
)

// SatoEmphasis selects the Sato final-assignment behavior: the envelope
// formula lineMeasure*nv, or the alternative emphasis term
// |lambda1|*(|lambda3|-|lambda2|). Both are in circulation; this package
// exposes both and defaults to the envelope.
type SatoEmphasis int

const (
	// SatoEmphasisEnvelope is lineMeasure * nv.
	SatoEmphasisEnvelope SatoEmphasis = iota
	// SatoEmphasisOverwrite replaces the envelope with
	// |lambda1|*(|lambda3|-|lambda2|).
	SatoEmphasisOverwrite
)

// Params bundles every tunable the two response families read. Zero
// value is not valid; use DefaultParams and override as needed.
type Params struct {
	// Alpha1, Alpha2 are the Sato asymmetric-penalty controls (alpha1
	// applies when lambda3 <= 0, alpha2 otherwise). Must be > 0.
	Alpha1, Alpha2 float64
	// Alpha, Beta, Gamma are the Frangi plate/blob/background controls.
	// Must be > 0.
	Alpha, Beta, Gamma float64
	// BrightVessels selects the sign test: true requires lambda2,lambda3
	// <= 0 (bright structure on dark background); false requires the
	// mirrored dark-on-bright test, lambda2,lambda3 >= 0.
	BrightVessels bool
	// ScaleVesselnessMeasure multiplies the Frangi response by |lambda3|.
	ScaleVesselnessMeasure bool
	// Emphasis selects the Sato final-assignment behavior.
	Emphasis SatoEmphasis
}

// DefaultParams returns the documented defaults: alpha1=0.5, alpha2=2.0,
// brightVessels=true, SatoEmphasisEnvelope. Frangi's alpha/beta/gamma
// have no single canonical default and must be set explicitly before
// calling FrangiResponse.
func DefaultParams() Params {
	return Params{
		Alpha1:        0.5,
		Alpha2:        2.0,
		BrightVessels: true,
		Emphasis:      SatoEmphasisEnvelope,
	}
}

func clampNonNegativeFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}

	return v
}

// SatoResponse evaluates the Sato-style line measure. l1, l2, l3 must be
// magnitude-ascending (|l1| <= |l2| <= |l3|), the ordering
// eigen.OrderByMagnitude produces.
//
// Failure: Alpha1 <= 0 or Alpha2 <= 0 -> ErrInvalidParameter.
func SatoResponse(l1, l2, l3 float64, p Params) (float64, error) {
	if p.Alpha1 <= 0 || p.Alpha2 <= 0 {
		return 0, vesselerr.Tag("vesselness.SatoResponse", vesselerr.ErrInvalidParameter)
	}
	if math.IsNaN(l1) || math.IsNaN(l2) || math.IsNaN(l3) {
		return 0, nil
	}

	nv := math.Min(-l2, -l1)
	if nv <= 0 {
		return 0, nil
	}

	alpha := p.Alpha1
	if l3 > 0 {
		alpha = p.Alpha2
	}
	lineMeasure := math.Exp(-0.5 * (l3 / (alpha * nv)) * (l3 / (alpha * nv)))

	var response float64
	switch p.Emphasis {
	case SatoEmphasisOverwrite:
		response = math.Abs(l1) * (math.Abs(l3) - math.Abs(l2))
	default:
		response = lineMeasure * nv
	}

	return clampNonNegativeFinite(response), nil
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return 0
		}

		return math.MaxFloat64
	}

	return num / den
}

// FrangiResponse evaluates the Frangi-style combination. l1, l2, l3 must
// be value-ascending (l1 <= l2 <= l3), the ordering eigen.OrderByValue
// produces.
//
// Failure: Alpha <= 0, Beta <= 0, or Gamma <= 0 -> ErrInvalidParameter.
func FrangiResponse(l1, l2, l3 float64, p Params) (float64, error) {
	if p.Alpha <= 0 || p.Beta <= 0 || p.Gamma <= 0 {
		return 0, vesselerr.Tag("vesselness.FrangiResponse", vesselerr.ErrInvalidParameter)
	}
	if math.IsNaN(l1) || math.IsNaN(l2) || math.IsNaN(l3) {
		return 0, nil
	}

	if p.BrightVessels {
		if l2 > 0 || l3 > 0 {
			return 0, nil
		}
	} else if l2 < 0 || l3 < 0 {
		return 0, nil
	}

	ra := safeRatio(math.Abs(l2), math.Abs(l3))
	rb := safeRatio(math.Abs(l1), math.Sqrt(math.Abs(l2*l3)))
	s := math.Sqrt(l1*l1 + l2*l2 + l3*l3)

	v := (1 - math.Exp(-(ra*ra)/(2*p.Alpha*p.Alpha))) *
		math.Exp(-(rb*rb)/(2*p.Beta*p.Beta)) *
		(1 - math.Exp(-(s*s)/(2*p.Gamma*p.Gamma)))

	if p.ScaleVesselnessMeasure {
		v *= math.Abs(l3)
	}

	return clampNonNegativeFinite(v), nil
}

// ValidateParams checks p against the parameters family actually reads,
// without evaluating a response. Callers that loop a response over many
// voxels (package reducer) validate once up front with this instead of
// paying the same check on every voxel.
//
// Failure: the family's required alphas are <= 0 -> ErrInvalidParameter.
func ValidateParams(family ResponseFamily, p Params) error {
	switch family {
	case Sato:
		if p.Alpha1 <= 0 || p.Alpha2 <= 0 {
			return vesselerr.Tag("vesselness.ValidateParams", vesselerr.ErrInvalidParameter)
		}
	case Frangi:
		if p.Alpha <= 0 || p.Beta <= 0 || p.Gamma <= 0 {
			return vesselerr.Tag("vesselness.ValidateParams", vesselerr.ErrInvalidParameter)
		}
	default:
		return vesselerr.Tag("vesselness.ValidateParams", vesselerr.ErrInvalidParameter)
	}

	return nil
}

// Respond dispatches to the response named by family. FAOrientation is
// intentionally rejected here: it needs a second aligned volume and
// belongs to package orientation's Run, not this single-tensor surface.
func Respond(family ResponseFamily, l1, l2, l3 float64, p Params) (float64, error) {
	switch family {
	case Sato:
		return SatoResponse(l1, l2, l3, p)
	case Frangi:
		return FrangiResponse(l1, l2, l3, p)
	default:
		return 0, vesselerr.Tag("vesselness.Respond", vesselerr.ErrInvalidParameter)
	}
}
