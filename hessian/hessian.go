// Package hessian assembles per-voxel symmetric 3x3 Hessian tensors from
// the six second-partial-derivative volumes produced by package gaussian.
package hessian

import (
	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

// Tensor is a symmetric 3x3 matrix of second partial derivatives, stored
// as its six distinct entries. Hxy == Hyx etc. by construction.
type Tensor struct {
	Xx, Xy, Xz float64
	Yy, Yz     float64
	Zz         float64
}

// At returns tensor entry (row, col), 0-indexed, honoring symmetry.
func (t Tensor) At(row, col int) float64 {
	if row > col {
		row, col = col, row
	}
	switch {
	case row == 0 && col == 0:
		return t.Xx
	case row == 0 && col == 1:
		return t.Xy
	case row == 0 && col == 2:
		return t.Xz
	case row == 1 && col == 1:
		return t.Yy
	case row == 1 && col == 2:
		return t.Yz
	default:
		return t.Zz
	}
}

// Trace returns Xx+Yy+Zz.
func (t Tensor) Trace() float64 { return t.Xx + t.Yy + t.Zz }

// Field is a Volume-shaped dense array of Tensor values, produced
// atomically per scale by Assemble.
type Field struct {
	nx, ny, nz int
	data       []Tensor
}

// Dim returns (Nx, Ny, Nz).
func (f *Field) Dim() (int, int, int) { return f.nx, f.ny, f.nz }

// At returns the tensor at (i,j,k). Panics on out-of-range index, since
// Field is only ever built with dimensions matching its source volumes
// and walked by callers that already respect those bounds (see
// Assemble's invariant).
func (f *Field) At(i, j, k int) Tensor {
	return f.data[(k*f.ny+j)*f.nx+i]
}

// Assemble packs six second-partial volumes into one Field. All six
// inputs must share identical shape; the tensor at each voxel is formed
// atomically so a Field is never observed half-built.
//
// Contract: Ixx, Iyy, Izz, Ixy, Ixz, Iyz non-nil and same shape.
func Assemble(ixx, iyy, izz, ixy, ixz, iyz *volume.Volume) (*Field, error) {
	vols := []*volume.Volume{ixx, iyy, izz, ixy, ixz, iyz}
	for _, v := range vols {
		if v == nil {
			return nil, vesselerr.Tag("hessian.Assemble", vesselerr.ErrInvalidParameter)
		}
	}
	for _, v := range vols[1:] {
		if !ixx.SameShape(v) {
			return nil, vesselerr.Tag("hessian.Assemble", vesselerr.ErrShapeMismatch)
		}
	}

	nx, ny, nz := ixx.Dim()
	f := &Field{nx: nx, ny: ny, nz: nz, data: make([]Tensor, nx*ny*nz)}

	dXx, dYy, dZz := ixx.Data(), iyy.Data(), izz.Data()
	dXy, dXz, dYz := ixy.Data(), ixz.Data(), iyz.Data()
	for idx := range f.data {
		f.data[idx] = Tensor{
			Xx: dXx[idx], Yy: dYy[idx], Zz: dZz[idx],
			Xy: dXy[idx], Xz: dXz[idx], Yz: dYz[idx],
		}
	}

	return f, nil
}
