// Package binarize turns a vesselness volume into a {0,1} mask via
// two-threshold hysteresis: seed at the high threshold, grow through the
// 26-connected neighborhood to any voxel clearing the low threshold.
// The propagation is a visited-array-guarded BFS flood fill over the
// dense grid, growing from a high-confidence seed set through a
// low-confidence boundary.
package binarize

import (
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

// neighborOffsets26 enumerates every non-zero (dx,dy,dz) with each
// component in {-1,0,1}: the full 26-connected neighborhood.
var neighborOffsets26 = func() [26][3]int {
	var out [26][3]int
	n := 0
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out[n] = [3]int{dx, dy, dz}
				n++
			}
		}
	}

	return out
}()

// Binarize seeds every voxel with R[x] >= highThresh (lowThresh when
// highThresh is nil), then grows the seed set through the 26-connected
// neighborhood to any voxel with R[x] >= lowThresh. A threshold of 0 is a
// strict positivity test (R[x] > 0), not R[x] >= 0. The set of reached
// voxels is the unique result of the reachability relation: propagation
// order never affects it.
//
// Failure: r == nil, lowThresh < 0, or a supplied highThresh < lowThresh
// -> ErrInvalidParameter.
func Binarize(r *volume.Volume, lowThresh float64, highThresh *float64) (*volume.Mask, error) {
	if r == nil || lowThresh < 0 {
		return nil, vesselerr.Tag("binarize.Binarize", vesselerr.ErrInvalidParameter)
	}

	hi := lowThresh
	if highThresh != nil {
		hi = *highThresh
	}
	if hi < lowThresh {
		return nil, vesselerr.Tag("binarize.Binarize", vesselerr.ErrInvalidParameter)
	}

	// clears reports whether val passes threshold th; a zero threshold is
	// a strict positivity test.
	clears := func(val, th float64) bool {
		if th == 0 {
			return val > 0
		}

		return val >= th
	}

	nx, ny, nz := r.Dim()
	out, err := volume.New(nx, ny, nz, 1, 1, 1)
	if err != nil {
		return nil, vesselerr.Tag("binarize.Binarize", err)
	}

	inBounds := func(i, j, k int) bool { return i >= 0 && i < nx && j >= 0 && j < ny && k >= 0 && k < nz }

	visited := make([]bool, nx*ny*nz)
	flat := func(i, j, k int) int { return (k*ny+j)*nx + i }

	var queue [][3]int
	r.ForEachVoxel(func(i, j, k int) {
		if clears(r.MustAt(i, j, k), hi) {
			idx := flat(i, j, k)
			if !visited[idx] {
				visited[idx] = true
				queue = append(queue, [3]int{i, j, k})
			}
		}
	})

	for head := 0; head < len(queue); head++ {
		i, j, k := queue[head][0], queue[head][1], queue[head][2]
		out.MustSet(i, j, k, 1)

		for _, d := range neighborOffsets26 {
			ni, nj, nk := i+d[0], j+d[1], k+d[2]
			if !inBounds(ni, nj, nk) {
				continue
			}
			idx := flat(ni, nj, nk)
			if visited[idx] {
				continue
			}
			if !clears(r.MustAt(ni, nj, nk), lowThresh) {
				continue
			}
			visited[idx] = true
			queue = append(queue, [3]int{ni, nj, nk})
		}
	}

	return volume.NewMask(out), nil
}
