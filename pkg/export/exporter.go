// Package export writes NIfTI slices as 8-bit grayscale images.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"niftislice/pkg/nifti"
)

// Mode selects how float values are mapped onto 8 bits.
type Mode string

const (
	// ModeMinMax stretches [min, max] of the slice onto [0, 255].
	ModeMinMax Mode = "minmax"
	// ModeZScore clamps to mean ± K standard deviations first.
	ModeZScore Mode = "zscore"
)

// DefaultZScoreK is the clamp width used by ModeZScore when K is unset.
const DefaultZScoreK = 3.0

// ErrNotFloat is wrapped by the error Export returns for slices that were
// not converted with nifti.CopyAsFloat first.
var ErrNotFloat = errors.New("slice must be float32")

// Exporter normalizes float32 slices and hands the pixels to an Encoder. The
// zero value writes min-max images through ImagingEncoder.
type Exporter struct {
	Encoder Encoder
	Quality int
	Mode    Mode
	// K is the number of standard deviations kept by ModeZScore
	K       float64
}

// New returns a min-max exporter writing through imaging at DefaultQuality.
func New() *Exporter {
	return &Exporter{
		Encoder: ImagingEncoder{},
		Quality: DefaultQuality,
		Mode:    ModeMinMax,
		K:       DefaultZScoreK,
	}
}

// Export writes s to path. s must hold float32 values; the encoder is not
// called otherwise.
func (e *Exporter) Export(path string, s nifti.Slice) error {
	if dt := s.DataType(); dt != nifti.Float32 {
		return &nifti.DataTypeError{Type: dt, Op: "export", Err: ErrNotFloat}
	}

	values, err := s.Float32s()
	if err != nil {
		return err
	}

	pix, err := e.normalize(values)
	if err != nil {
		return err
	}

	enc := e.Encoder
	if enc == nil {
		enc = ImagingEncoder{}
	}

	return enc.Encode(path, s.Width(), s.Height(), 1, pix, e.Quality)
}

func (e *Exporter) normalize(values []float32) ([]uint8, error) {
	switch e.Mode {
	case ModeMinMax, "":
		return Normalize(values), nil
	case ModeZScore:
		k := e.K
		if k <= 0 {
			k = DefaultZScoreK
		}
		return NormalizeZScore(values, k), nil
	}
	return nil, fmt.Errorf("unknown normalization mode %q", e.Mode)
}

// ExportSequence converts every axial plane of the first frame of v and
// writes it to outputDir as <prefix>_z000<ext>, <prefix>_z001<ext> and so on.
// A missing leading dot on ext is added. It returns the written paths.
func (e *Exporter) ExportSequence(v *nifti.Volume, outputDir, prefix, ext string) ([]string, error) {
	if v.Released() {
		return nil, nifti.ErrReleased
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	depth := v.Depth()
	paths := make([]string, 0, depth)

	for z := 0; z < depth; z++ {
		view, ok := v.SliceAt(z)
		if !ok {
			return paths, fmt.Errorf("slice %d not available", z)
		}

		buf, err := nifti.CopyAsFloat(view)
		if err != nil {
			return paths, fmt.Errorf("failed to convert slice %d: %w", z, err)
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_z%03d%s", prefix, z, ext))
		err = e.Export(filename, buf)
		buf.Release()
		if err != nil {
			return paths, fmt.Errorf("failed to export slice %d: %w", z, err)
		}

		logrus.WithFields(logrus.Fields{"z": z, "path": filename}).Debug("Exported slice")
		paths = append(paths, filename)
	}

	return paths, nil
}
