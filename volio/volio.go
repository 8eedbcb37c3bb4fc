// Package volio is a minimal volume codec for the cmd/ tools: just enough
// to round-trip a *volume.Volume to disk for tests and local runs. Full
// NIfTI/MetaImage reader/writer support is an external-collaborator
// concern the core leaves out; this package only recognizes the
// extensions those formats would use (.nii, .mhd) for the CLI's
// output-extension fallback, without attempting to speak either wire
// format.
package volio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vesselness/vessel-engine/vesselerr"
	"github.com/vesselness/vessel-engine/volume"
)

// magic identifies this package's own minimal container format. It is
// not a NIfTI or MetaImage magic number; this codec does not claim
// compatibility with either.
const magic = "VSLV0001"

// recognizedExt reports whether path already carries an extension the
// volume writer recognizes (.nii or .mhd).
func recognizedExt(path string) bool {
	lower := strings.ToLower(path)

	return strings.Contains(lower, ".nii") || strings.Contains(lower, ".mhd")
}

// WithDefaultExt appends ".nii" to path when it carries neither a .nii
// nor a .mhd extension.
func WithDefaultExt(path string) string {
	if recognizedExt(path) {
		return path
	}

	return path + ".nii"
}

// Read loads a volume previously written by Write.
//
// Failure: the file is missing, truncated, or not in this package's
// format -> ErrInvalidParameter (reported to the caller as an IoFailure
// at the cmd/ boundary).
func Read(path string) (*volume.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vesselerr.Tag("volio.Read", fmt.Errorf("%s: %w", err, vesselerr.ErrInvalidParameter))
	}
	defer f.Close()

	r := bufio.NewReader(f)

	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil || string(gotMagic) != magic {
		return nil, vesselerr.Tag("volio.Read", vesselerr.ErrInvalidParameter)
	}

	var nx, ny, nz int64
	var sx, sy, sz float64
	for _, dst := range []interface{}{&nx, &ny, &nz, &sx, &sy, &sz} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, vesselerr.Tag("volio.Read", vesselerr.ErrInvalidParameter)
		}
	}

	v, err := volume.New(int(nx), int(ny), int(nz), sx, sy, sz)
	if err != nil {
		return nil, vesselerr.Tag("volio.Read", err)
	}

	data := v.Data()
	for i := range data {
		if err := binary.Read(r, binary.LittleEndian, &data[i]); err != nil {
			return nil, vesselerr.Tag("volio.Read", vesselerr.ErrInvalidParameter)
		}
	}

	return v, nil
}

// Write persists v to path in this package's own minimal format.
//
// Failure: v nil, or the file cannot be created/written -> ErrInvalidParameter.
func Write(path string, v *volume.Volume) error {
	if v == nil {
		return vesselerr.Tag("volio.Write", vesselerr.ErrInvalidParameter)
	}

	f, err := os.Create(path)
	if err != nil {
		return vesselerr.Tag("volio.Write", fmt.Errorf("%s: %w", err, vesselerr.ErrInvalidParameter))
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(magic); err != nil {
		return vesselerr.Tag("volio.Write", vesselerr.ErrInvalidParameter)
	}

	nx, ny, nz := v.Dim()
	sx, sy, sz := v.Spacing()
	for _, field := range []interface{}{int64(nx), int64(ny), int64(nz), sx, sy, sz} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return vesselerr.Tag("volio.Write", vesselerr.ErrInvalidParameter)
		}
	}

	for _, val := range v.Data() {
		if err := binary.Write(w, binary.LittleEndian, val); err != nil {
			return vesselerr.Tag("volio.Write", vesselerr.ErrInvalidParameter)
		}
	}

	return w.Flush()
}

// ReadMask loads a mask volume written by WriteMask: any non-zero sample
// is true.
func ReadMask(path string) (*volume.Mask, error) {
	v, err := Read(path)
	if err != nil {
		return nil, err
	}

	return volume.NewMask(v), nil
}

// WriteMask persists m as a 0/1-valued volume via Write.
func WriteMask(path string, m *volume.Mask) error {
	if m == nil {
		return vesselerr.Tag("volio.WriteMask", vesselerr.ErrInvalidParameter)
	}

	return Write(path, m.Volume())
}
