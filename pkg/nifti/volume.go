package nifti

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"niftislice/internal/layout"
	"niftislice/pkg/stats"
)

// Volume owns a decoded header and the raw voxel buffer that follows it.
//
// A Volume has a single owner. Free releases the buffer; SliceView values
// borrowed from the volume stop working once the buffer is released or
// replaced.
type Volume struct {
	Header *Header

	order  binary.ByteOrder
	layout layout.Layout
	data   []byte

	// gen changes whenever data is released or replaced so borrowed views can
	// detect that they outlived their buffer
	gen   uint64
	lossy int
}

// Load reads a single-file NIfTI-1 volume from path. Files ending in .gz are
// decompressed on the fly. The file is closed before Load returns.
func Load(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	avail := int64(-1)
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &FileError{Op: "open gzip", Path: path, Err: err}
		}
		defer gz.Close()
		r = gz
	} else if fi, err := f.Stat(); err == nil {
		avail = fi.Size()
	}

	v, err := decode(r, avail)
	if err != nil {
		if fe, ok := err.(*FileError); ok && fe.Path == "" {
			fe.Path = path
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"path":     path,
		"datatype": v.Header.DataType,
		"dims":     v.Dims(),
		"bytes":    len(v.data),
	}).Debug("Loaded NIfTI-1 volume")

	return v, nil
}

// LoadAsFloat loads path and converts every voxel to float32.
func LoadAsFloat(path string) (*Volume, error) {
	v, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := v.ToFloat(); err != nil {
		return nil, err
	}

	return v, nil
}

// Decode reads a volume from r, which must be positioned at the start of the
// header. Extension bytes between the header and vox_offset are skipped.
func Decode(r io.Reader) (*Volume, error) {
	return decode(r, -1)
}

// readChunk bounds the up-front allocation for voxel data so a header that
// claims more than the source holds fails with a short read.
const readChunk = 1 << 20

// decode reads a volume from r. avail is the total size of the source in
// bytes, or -1 when unknown.
func decode(r io.Reader, avail int64) (*Volume, error) {
	h, order, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}

	l, err := h.Layout()
	if err != nil {
		return nil, err
	}

	size := l.Size()
	if avail >= 0 && int64(size) > avail-h.DataOffset() {
		return nil, &FileError{Op: "read voxel data", Err: io.ErrUnexpectedEOF}
	}

	if skip := h.DataOffset() - HeaderSize; skip > 0 {
		if err := discard(r, skip); err != nil {
			return nil, &FileError{Op: "seek voxel data", Err: err}
		}
	}

	var buf bytes.Buffer
	buf.Grow(min(size, readChunk))
	n, err := buf.ReadFrom(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, &FileError{Op: "read voxel data", Err: err}
	}
	if n < int64(size) {
		return nil, &FileError{Op: "read voxel data", Err: io.ErrUnexpectedEOF}
	}
	data := buf.Bytes()

	return &Volume{
		Header: h,
		order:  order,
		layout: l,
		data:   data,
	}, nil
}

func discard(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}

	copied, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF && copied < n {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ToFloat replaces the voxel buffer with little-endian float32 values and sets
// the datatype to Float32. Voxels whose type has no float conversion become 0
// and are counted by Lossy. Views taken before the call are invalidated.
func (v *Volume) ToFloat() error {
	if v.data == nil {
		return ErrReleased
	}

	if v.Header.DataType == Float32 && v.order == binary.LittleEndian {
		return nil
	}

	count := v.layout.Count()
	dst, lossy, err := convertToFloat32(v.Header.DataType, v.order, v.data, count)
	if err != nil {
		return err
	}

	l, err := v.layout.WithElemSize(4)
	if err != nil {
		return err
	}

	if lossy > 0 {
		log.WithFields(logrus.Fields{
			"datatype": v.Header.DataType,
			"voxels":   lossy,
		}).Warn("Datatype has no float conversion, voxels set to 0")
	}

	v.data = dst
	v.layout = l
	v.order = binary.LittleEndian
	v.Header.DataType = Float32
	v.Header.BitPix = 32
	v.lossy += lossy
	v.gen++

	return nil
}

// Free releases the voxel buffer. Calling Free more than once is a no-op.
func (v *Volume) Free() {
	if v.data == nil {
		return
	}
	v.data = nil
	v.gen++
}

// Released reports whether Free has been called.
func (v *Volume) Released() bool {
	return v.data == nil
}

// Bytes returns the raw voxel buffer, or nil once the volume is released.
// The buffer remains owned by the volume.
func (v *Volume) Bytes() []byte {
	return v.data
}

// DataType returns the datatype of the voxel buffer.
func (v *Volume) DataType() DataType {
	return v.Header.DataType
}

// ByteOrder returns the byte order of the voxel buffer.
func (v *Volume) ByteOrder() binary.ByteOrder {
	return v.order
}

// Layout returns the layout of the voxel buffer.
func (v *Volume) Layout() layout.Layout {
	return v.layout
}

// Dims returns the extents of the populated dimensions.
func (v *Volume) Dims() []int {
	dims := make([]int, len(v.layout.Extents))
	copy(dims, v.layout.Extents)
	return dims
}

// VoxelCount returns the number of voxels in the volume.
func (v *Volume) VoxelCount() int {
	return v.layout.Count()
}

// SlabSize returns the bytes in one step along the outermost dimension.
func (v *Volume) SlabSize() int {
	return v.layout.SlabSize()
}

// Depth returns the number of axial planes (dim[3]).
func (v *Volume) Depth() int {
	return v.layout.Extent(2)
}

// Frames returns the number of time points (dim[4]).
func (v *Volume) Frames() int {
	return v.layout.Extent(3)
}

// Lossy returns how many voxels were replaced by 0 during float conversion.
func (v *Volume) Lossy() int {
	return v.lossy
}

// Float32At converts the voxel with linear index i to float32.
func (v *Volume) Float32At(i int) (float32, error) {
	if v.data == nil {
		return 0, ErrReleased
	}

	size := v.layout.ElemSize
	raw, ok := layout.Window(v.data, i*size, size)
	if !ok {
		return 0, layout.ErrOutOfRange
	}

	return v.Header.DataType.Float32(raw, v.order)
}

// ComputeMetrics returns the mean and standard deviation of every voxel using
// the historical naive formula.
func ComputeMetrics(v *Volume) (stats.Metrics, error) {
	return ComputeMetricsWith(v, stats.NewNaive(v.VoxelCount()))
}

// ComputeMetricsWith feeds every voxel, converted to float32, to acc.
// Voxels without a float conversion are fed as 0.
func ComputeMetricsWith(v *Volume, acc stats.Accumulator) (stats.Metrics, error) {
	if v.data == nil {
		return stats.Metrics{}, ErrReleased
	}

	count := v.layout.Count()
	size := v.layout.ElemSize

	dec, ok := v.Header.DataType.floatDecoder(v.order)
	if !ok {
		log.WithField("datatype", v.Header.DataType).Warn("Datatype has no float conversion, metrics computed over zeros")
		for i := 0; i < count; i++ {
			acc.Add(0)
		}
		return acc.Metrics(), nil
	}

	for i := 0; i < count; i++ {
		acc.Add(dec(v.data[i*size : i*size+size]))
	}

	return acc.Metrics(), nil
}
