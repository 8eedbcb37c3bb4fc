// SPDX-License-Identifier: MIT

// Package vessel is the module's public facade: thin, well-documented
// entry points over volume/gaussian/hessian/eigen/vesselness/scale/
// reducer/orientation/binarize/mask. Every facade here delegates to the
// package that actually owns the computation; none duplicates logic.
package vessel

import (
	"context"

	"github.com/vesselness/vessel-engine/binarize"
	"github.com/vesselness/vessel-engine/eigen"
	"github.com/vesselness/vessel-engine/gaussian"
	"github.com/vesselness/vessel-engine/orientation"
	"github.com/vesselness/vessel-engine/reducer"
	"github.com/vesselness/vessel-engine/scale"
	"github.com/vesselness/vessel-engine/vesselness"
	"github.com/vesselness/vessel-engine/volume"
)

// Documented defaults, the single source of truth for Params' zero value.
const (
	DefaultAlpha1              = 0.5
	DefaultAlpha2              = 2.0
	DefaultBrightVessels       = true
	DefaultScaleNormalized     = true
	DefaultComputeEigenVectors = false
)

// DefaultOrderPolicy and DefaultResponseFamily are the non-numeric
// defaults, broken out of the const block since their type isn't
// untyped-constant-friendly.
var (
	DefaultOrderPolicy    = eigen.OrderByMagnitude
	DefaultResponseFamily = vesselness.Sato
)

const (
	panicAlphaInvalid = "vessel: alpha-family parameter must be > 0"
)

// Params bundles every tunable the facade functions read: the Sato/Frangi
// response parameters, the eigen ordering/vector policy, and the Gaussian
// boundary policy. Construct with NewParams and zero or more With...
// options; the zero value of Params itself is not meaningful.
type Params struct {
	alpha1, alpha2         float64
	alpha, beta, gamma     float64
	brightVessels          bool
	scaleNormalized        bool
	computeEigenVectors    bool
	scaleVesselnessMeasure bool
	orderPolicy            eigen.OrderPolicy
	responseFamily         vesselness.ResponseFamily
	emphasis               vesselness.SatoEmphasis
	boundary               gaussian.Boundary
}

// Option mutates a Params under construction. Safe to apply repeatedly.
type Option func(*Params)

// NewParams returns a Params seeded with the documented defaults, with
// opts applied in order.
func NewParams(opts ...Option) Params {
	p := Params{
		alpha1:          DefaultAlpha1,
		alpha2:          DefaultAlpha2,
		brightVessels:   DefaultBrightVessels,
		scaleNormalized: DefaultScaleNormalized,
		orderPolicy:     DefaultOrderPolicy,
		responseFamily:  DefaultResponseFamily,
		emphasis:        vesselness.SatoEmphasisEnvelope,
	}
	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithSatoAlphas sets the Sato asymmetric-penalty controls. Panics if
// either is <= 0.
func WithSatoAlphas(alpha1, alpha2 float64) Option {
	if alpha1 <= 0 || alpha2 <= 0 {
		panic(panicAlphaInvalid)
	}

	return func(p *Params) { p.alpha1, p.alpha2 = alpha1, alpha2 }
}

// WithSatoEmphasis selects the Sato final-assignment behavior.
func WithSatoEmphasis(e vesselness.SatoEmphasis) Option {
	return func(p *Params) { p.emphasis = e }
}

// WithFrangi sets the Frangi plate/blob/background controls. Panics if
// any is <= 0.
func WithFrangi(alpha, beta, gamma float64) Option {
	if alpha <= 0 || beta <= 0 || gamma <= 0 {
		panic(panicAlphaInvalid)
	}

	return func(p *Params) { p.alpha, p.beta, p.gamma = alpha, beta, gamma }
}

// WithScaleVesselnessMeasure toggles multiplying the Frangi response by
// |lambda3|.
func WithScaleVesselnessMeasure(on bool) Option {
	return func(p *Params) { p.scaleVesselnessMeasure = on }
}

// WithBrightVessels selects the sign test: true for bright-on-dark
// structures, false for dark-on-bright.
func WithBrightVessels(bright bool) Option {
	return func(p *Params) { p.brightVessels = bright }
}

// WithScaleNormalized toggles gamma-normalization (sigma^2 scaling) of
// the Gaussian second partials.
func WithScaleNormalized(on bool) Option {
	return func(p *Params) { p.scaleNormalized = on }
}

// WithComputeEigenVectors toggles whether VesselnessWithEigen also
// resolves eigenvectors (not just eigenvalues) at every voxel.
func WithComputeEigenVectors(on bool) Option {
	return func(p *Params) { p.computeEigenVectors = on }
}

// WithOrderPolicy selects the eigenvalue/eigenvector ordering.
func WithOrderPolicy(policy eigen.OrderPolicy) Option {
	return func(p *Params) { p.orderPolicy = policy }
}

// WithResponseFamily selects Sato or Frangi for Vesselness and
// VesselnessWithEigen. FAOrientation is rejected by those two; use
// OrientationSimilarity instead.
func WithResponseFamily(family vesselness.ResponseFamily) Option {
	return func(p *Params) { p.responseFamily = family }
}

// WithBoundary sets the Gaussian derivative boundary policy.
func WithBoundary(b gaussian.Boundary) Option {
	return func(p *Params) { p.boundary = b }
}

func (p Params) vesselnessParams() vesselness.Params {
	return vesselness.Params{
		Alpha1:                 p.alpha1,
		Alpha2:                 p.alpha2,
		Alpha:                  p.alpha,
		Beta:                   p.beta,
		Gamma:                  p.gamma,
		BrightVessels:          p.brightVessels,
		ScaleVesselnessMeasure: p.scaleVesselnessMeasure,
		Emphasis:               p.emphasis,
	}
}

func (p Params) gaussianOptions() gaussian.Options {
	return gaussian.Options{ScaleNormalized: p.scaleNormalized, Boundary: p.boundary}
}

// Vesselness runs the full multi-scale reduction over v and returns the
// per-voxel maximum response, gated by m when non-nil.
//
// Failure: v nil, schedule empty, m shape mismatch, or p invalid for its
// responseFamily -> the underlying ErrInvalidParameter/ErrShapeMismatch.
func Vesselness(ctx context.Context, v *volume.Volume, p Params, s scale.Schedule, m *volume.Mask) (*volume.Volume, error) {
	cfg := reducer.Config{
		Params:   p.vesselnessParams(),
		Family:   p.responseFamily,
		Order:    p.orderPolicy,
		Gaussian: p.gaussianOptions(),
		Mask:     m,
	}

	r, _, _, _, err := reducer.Run(ctx, v, cfg, s)

	return r, err
}

// VesselnessWithEigen is Vesselness plus the eigendecomposition at the
// scale that produced each voxel's maximum response. Eigenvectors are
// populated only when p was built with WithComputeEigenVectors(true).
func VesselnessWithEigen(ctx context.Context, v *volume.Volume, p Params, s scale.Schedule) (*volume.Volume, *eigen.Volume, error) {
	cfg := reducer.Config{
		Params:         p.vesselnessParams(),
		Family:         p.responseFamily,
		Order:          p.orderPolicy,
		Gaussian:       p.gaussianOptions(),
		TrackEigen:     true,
		ComputeVectors: p.computeEigenVectors,
	}

	r, _, eigenVol, _, err := reducer.Run(ctx, v, cfg, s)

	return r, eigenVol, err
}

// OrientationSimilarity runs the cross-image orientation-similarity
// response of v1 against v2 across every scale in s. When p's
// responseFamily is FAOrientation, each scale's similarity is weighted by
// v1's fractional anisotropy; any other responseFamily yields plain
// |<e1,e2>| similarity.
func OrientationSimilarity(ctx context.Context, v1, v2 *volume.Volume, p Params, s scale.Schedule) (*volume.Volume, error) {
	opts := orientation.Options{
		UseFA:    p.responseFamily == vesselness.FAOrientation,
		Boundary: p.boundary,
	}

	return orientation.Run(ctx, v1, v2, s, opts)
}

// Binarize applies two-threshold hysteresis to r. highThresh nil means
// simple single-threshold binarization at lowThresh.
func Binarize(r *volume.Volume, lowThresh float64, highThresh *float64) (*volume.Mask, error) {
	return binarize.Binarize(r, lowThresh, highThresh)
}
