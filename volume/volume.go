// Package volume provides a dense 3D scalar array with spacing metadata
// and bounds-checked element access.
//
// Volume is the row-major analogue of a Dense matrix generalized from
// two axes to three: a single flat []float64 backs the whole grid, and
// indices are addressed in X-fastest, then Y, then Z order.
//
// Contract:
//   - dim = (Nx, Ny, Nz), all non-negative.
//   - spacing = (sx, sy, sz), all strictly positive.
//   - len(data) == Nx*Ny*Nz.
//
// Complexity: At/Set/InBounds are O(1). Clone is O(Nx*Ny*Nz).
package volume

import (
	"fmt"

	"github.com/vesselness/vessel-engine/vesselerr"
)

// Volume is a dense row-major 3D scalar field.
type Volume struct {
	nx, ny, nz int
	sx, sy, sz float64
	data       []float64
}

// New allocates a zero-filled Volume of the given dimensions and spacing.
//
// Stage 1 (Validate): dims non-negative, spacing strictly positive.
// Stage 2 (Prepare): allocate flat backing slice of size nx*ny*nz.
func New(nx, ny, nz int, sx, sy, sz float64) (*Volume, error) {
	if nx < 0 || ny < 0 || nz < 0 {
		return nil, vesselerr.Tag("volume.New", fmt.Errorf("negative dimension: %w", vesselerr.ErrInvalidParameter))
	}
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return nil, vesselerr.Tag("volume.New", vesselerr.ErrDegenerateSpacing)
	}

	return &Volume{
		nx: nx, ny: ny, nz: nz,
		sx: sx, sy: sy, sz: sz,
		data: make([]float64, nx*ny*nz),
	}, nil
}

// Dim returns (Nx, Ny, Nz).
func (v *Volume) Dim() (int, int, int) { return v.nx, v.ny, v.nz }

// Spacing returns (sx, sy, sz) in physical units.
func (v *Volume) Spacing() (float64, float64, float64) { return v.sx, v.sy, v.sz }

// Len returns the total number of voxels, Nx*Ny*Nz.
func (v *Volume) Len() int { return len(v.data) }

// InBounds reports whether (i,j,k) is a valid index.
func (v *Volume) InBounds(i, j, k int) bool {
	return i >= 0 && i < v.nx && j >= 0 && j < v.ny && k >= 0 && k < v.nz
}

func (v *Volume) index(i, j, k int) int { return (k*v.ny+j)*v.nx + i }

// FlatIndex exposes the row-major flat index for (i,j,k), for callers
// that want to drive the backing slice directly (see Data).
func (v *Volume) FlatIndex(i, j, k int) int { return v.index(i, j, k) }

// At retrieves the value at (i,j,k). Returns ErrOutOfRange on an invalid index.
func (v *Volume) At(i, j, k int) (float64, error) {
	if !v.InBounds(i, j, k) {
		return 0, vesselerr.Tag("Volume.At", vesselerr.ErrOutOfRange)
	}

	return v.data[v.index(i, j, k)], nil
}

// MustAt is At without an error return, for hot inner loops where the
// caller already knows the index is valid (e.g. iterating InBounds ranges).
func (v *Volume) MustAt(i, j, k int) float64 { return v.data[v.index(i, j, k)] }

// Set assigns val at (i,j,k). Returns ErrOutOfRange on an invalid index.
func (v *Volume) Set(i, j, k int, val float64) error {
	if !v.InBounds(i, j, k) {
		return vesselerr.Tag("Volume.Set", vesselerr.ErrOutOfRange)
	}
	v.data[v.index(i, j, k)] = val

	return nil
}

// MustSet mirrors MustAt for writes.
func (v *Volume) MustSet(i, j, k int, val float64) { v.data[v.index(i, j, k)] = val }

// Data exposes the flat backing slice directly. Callers that need the
// fast path (no per-voxel bounds checks) operate on this slice using
// FlatIndex; mutating it mutates the Volume.
func (v *Volume) Data() []float64 { return v.data }

// Clone returns a deep, independent copy of v.
func (v *Volume) Clone() *Volume {
	out := &Volume{nx: v.nx, ny: v.ny, nz: v.nz, sx: v.sx, sy: v.sy, sz: v.sz}
	out.data = make([]float64, len(v.data))
	copy(out.data, v.data)

	return out
}

// SameShape reports whether v and other share identical dimensions.
// It does not compare spacing: callers that require matching physical
// units should compare Spacing() explicitly.
func (v *Volume) SameShape(other *Volume) bool {
	return other != nil && v.nx == other.nx && v.ny == other.ny && v.nz == other.nz
}

// Fill sets every voxel to val.
func (v *Volume) Fill(val float64) {
	for i := range v.data {
		v.data[i] = val
	}
}

// ForEachVoxel calls fn(i,j,k) for every valid index in a fixed,
// deterministic Z->Y->X traversal order.
func (v *Volume) ForEachVoxel(fn func(i, j, k int)) {
	for k := 0; k < v.nz; k++ {
		for j := 0; j < v.ny; j++ {
			for i := 0; i < v.nx; i++ {
				fn(i, j, k)
			}
		}
	}
}

// Region describes the largest valid index range of a Volume: a
// half-open box [0,Nx)x[0,Ny)x[0,Nz).
type Region struct {
	Nx, Ny, Nz int
}

// LargestRegion returns the Volume's full index range.
func (v *Volume) LargestRegion() Region {
	return Region{Nx: v.nx, Ny: v.ny, Nz: v.nz}
}

// Mask is a same-shape {0,1}-valued companion volume gating computation
// and/or final output. It is input-immutable once constructed.
type Mask struct {
	vol *Volume
}

// NewMask wraps a Volume as a Mask. Values are expected to be 0 or 1;
// NewMask does not itself validate this (callers such as mask.Condition
// enforce it where it matters).
func NewMask(v *Volume) *Mask { return &Mask{vol: v} }

// Volume exposes the mask's underlying {0,1} volume.
func (m *Mask) Volume() *Volume { return m.vol }

// At reports whether (i,j,k) is set (non-zero) in the mask.
func (m *Mask) At(i, j, k int) bool {
	v, err := m.vol.At(i, j, k)

	return err == nil && v != 0
}
