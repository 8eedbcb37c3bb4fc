// Package scale builds the deterministic sigma schedule the multi-scale
// reducer iterates: a finite, non-decreasing sequence of positive standard
// deviations between sigmaMin and sigmaMax (strictly increasing when
// sigmaMax > sigmaMin; all equal when the two endpoints coincide).
package scale

import (
	"fmt"
	"math"

	"github.com/vesselness/vessel-engine/vesselerr"
)

// Mode selects how intermediate sigmas are interpolated between the
// schedule's endpoints.
type Mode int

const (
	// Linear spaces sigmas evenly: sigma_k = min + k*(max-min)/(n-1).
	Linear Mode = iota
	// Exponential spaces sigmas geometrically: sigma_k = min*(max/min)^(k/(n-1)).
	Exponential
)

// Schedule is a finite ordered sequence of strictly positive sigma values.
type Schedule struct {
	sigmas []float64
}

// NewSchedule derives a Schedule from (sigmaMin, sigmaMax, n, mode).
//
// Failure: sigmaMin <= 0, sigmaMax < sigmaMin, or n < 1 -> ErrInvalidParameter.
func NewSchedule(sigmaMin, sigmaMax float64, n int, mode Mode) (Schedule, error) {
	if sigmaMin <= 0 || sigmaMax < sigmaMin || n < 1 {
		return Schedule{}, vesselerr.Tag("scale.NewSchedule", vesselerr.ErrInvalidParameter)
	}

	sigmas := make([]float64, n)
	if n == 1 {
		sigmas[0] = sigmaMin

		return Schedule{sigmas: sigmas}, nil
	}

	switch mode {
	case Linear:
		step := (sigmaMax - sigmaMin) / float64(n-1)
		for k := 0; k < n; k++ {
			sigmas[k] = sigmaMin + float64(k)*step
		}
	case Exponential:
		ratio := sigmaMax / sigmaMin
		for k := 0; k < n; k++ {
			exponent := float64(k) / float64(n-1)
			sigmas[k] = sigmaMin * math.Pow(ratio, exponent)
		}
	default:
		return Schedule{}, vesselerr.Tag("scale.NewSchedule", fmt.Errorf("unknown mode %d: %w", mode, vesselerr.ErrInvalidParameter))
	}
	// Pin the endpoints exactly, sidestepping any accumulated pow()
	// rounding on the last step.
	sigmas[0] = sigmaMin
	sigmas[n-1] = sigmaMax

	return Schedule{sigmas: sigmas}, nil
}

// Sigmas returns the schedule's values in order. The returned slice is
// owned by the Schedule; callers must not mutate it.
func (s Schedule) Sigmas() []float64 { return s.sigmas }

// Len returns the number of scales in the schedule.
func (s Schedule) Len() int { return len(s.sigmas) }

// At returns the k-th scale.
func (s Schedule) At(k int) float64 { return s.sigmas[k] }

// Reversed returns a new Schedule with the same sigma set in reverse
// order. Per the scale-fusion max rule, running a reversed schedule
// through the reducer leaves R unchanged (max is commutative).
func (s Schedule) Reversed() Schedule {
	out := make([]float64, len(s.sigmas))
	for i, v := range s.sigmas {
		out[len(out)-1-i] = v
	}

	return Schedule{sigmas: out}
}
