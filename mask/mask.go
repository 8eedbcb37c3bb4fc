// Package mask implements the optional mask coupling around the
// multi-scale reducer: zeroing the vesselness response outside a mask,
// an optional CT bone-rejection intensity cap, and morphological
// conditioning (erosion for CT, dilation otherwise) of the mask itself.
//
// Erosion/dilation reuse the same bounded-neighbor-sweep idea as package
// binarize's 26-connected flood fill, generalized from a fixed 1-ring
// neighborhood to a precomputed ball of arbitrary radius.
package mask

import (
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

// Modality selects the structuring-element radius and operation applied
// by Condition: CT erodes by a radius-1 ball, every other modality
// dilates by a radius-8 ball.
type Modality int

const (
	// CT erodes the mask by a radius-1 ball.
	CT Modality = iota
	// OtherModality dilates the mask by a radius-8 ball.
	OtherModality
)

// ballOffsets returns every integer offset (dx,dy,dz), including the
// zero offset, within Euclidean distance radius of the origin.
func ballOffsets(radius int) [][3]int {
	var out [][3]int
	r2 := radius * radius
	for dz := -radius; dz <= radius; dz++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy+dz*dz <= r2 {
					out = append(out, [3]int{dx, dy, dz})
				}
			}
		}
	}

	return out
}

func binaryAt(v *volume.Volume, i, j, k int) bool {
	if !v.InBounds(i, j, k) {
		return false
	}

	return v.MustAt(i, j, k) != 0
}

// erode returns a mask that is 1 at (i,j,k) only if every voxel within
// the ball (out-of-bounds treated as background) is also 1.
func erode(m *volume.Mask, radius int) *volume.Mask {
	src := m.Volume()
	nx, ny, nz := src.Dim()
	sx, sy, sz := src.Spacing()
	out, _ := volume.New(nx, ny, nz, sx, sy, sz)
	offsets := ballOffsets(radius)

	out.ForEachVoxel(func(i, j, k int) {
		if !binaryAt(src, i, j, k) {
			return
		}
		all := true
		for _, d := range offsets {
			if !binaryAt(src, i+d[0], j+d[1], k+d[2]) {
				all = false

				break
			}
		}
		if all {
			out.MustSet(i, j, k, 1)
		}
	})

	return volume.NewMask(out)
}

// dilate returns a mask that is 1 at (i,j,k) if any voxel within the
// ball is 1.
func dilate(m *volume.Mask, radius int) *volume.Mask {
	src := m.Volume()
	nx, ny, nz := src.Dim()
	sx, sy, sz := src.Spacing()
	out, _ := volume.New(nx, ny, nz, sx, sy, sz)
	offsets := ballOffsets(radius)

	out.ForEachVoxel(func(i, j, k int) {
		any := false
		for _, d := range offsets {
			if binaryAt(src, i+d[0], j+d[1], k+d[2]) {
				any = true

				break
			}
		}
		if any {
			out.MustSet(i, j, k, 1)
		}
	})

	return volume.NewMask(out)
}

// Condition morphologically conditions m per the modality: erosion by a
// 1-voxel ball for CT, dilation by an 8-voxel ball otherwise.
func Condition(m *volume.Mask, modality Modality) (*volume.Mask, error) {
	if m == nil {
		return nil, vesselerr.Tag("mask.Condition", vesselerr.ErrInvalidParameter)
	}

	switch modality {
	case CT:
		return erode(m, 1), nil
	default:
		return dilate(m, 8), nil
	}
}

// Apply zeros r outside the mask, in place.
//
// Failure: r and m.Volume() shape mismatch -> ErrShapeMismatch.
func Apply(r *volume.Volume, m *volume.Mask) error {
	if r == nil || m == nil {
		return nil
	}
	if !r.SameShape(m.Volume()) {
		return vesselerr.Tag("mask.Apply", vesselerr.ErrShapeMismatch)
	}

	r.ForEachVoxel(func(i, j, k int) {
		if !m.At(i, j, k) {
			r.MustSet(i, j, k, 0)
		}
	})

	return nil
}

// ApplyBoneRejection zeros r wherever the original CT intensity at that
// voxel meets or exceeds boneCap, the bone-rejection exclusion for CT
// inputs. The caller supplies boneCap explicitly; detecting whether a
// volume is in Hounsfield units is an I/O-layer concern outside this
// package's scope.
//
// Failure: r and original shape mismatch -> ErrShapeMismatch.
func ApplyBoneRejection(r *volume.Volume, original *volume.Volume, boneCap float64) error {
	if r == nil || original == nil {
		return vesselerr.Tag("mask.ApplyBoneRejection", vesselerr.ErrInvalidParameter)
	}
	if !r.SameShape(original) {
		return vesselerr.Tag("mask.ApplyBoneRejection", vesselerr.ErrShapeMismatch)
	}

	r.ForEachVoxel(func(i, j, k int) {
		if original.MustAt(i, j, k) >= boneCap {
			r.MustSet(i, j, k, 0)
		}
	})

	return nil
}
