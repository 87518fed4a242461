package nifti

import (
	"encoding/binary"
	"errors"
	"math"

	"niftislice/internal/layout"
)

// ErrEmptySlice is returned when reading from the zero SliceView, the value
// SliceAt produces for an out-of-range index.
var ErrEmptySlice = errors.New("nifti: empty slice")

// Slice is a 2D axial plane of voxels. It is implemented by SliceView, which
// borrows its values from a Volume, and *SliceBuffer, which owns them.
type Slice interface {
	DataType() DataType
	ByteOrder() binary.ByteOrder
	Width() int
	Height() int
	// Spacing returns the physical pixel size along x and y
	Spacing() (x, y float32)
	// Z returns the index along dim[3] the slice was taken at
	Z() int
	// Bytes returns the raw values, width*height elements of DataType
	Bytes() ([]byte, error)
	// Float32s decodes the values of a Float32 slice
	Float32s() ([]float32, error)

	info() sliceInfo
}

type sliceInfo struct {
	dt     DataType
	order  binary.ByteOrder
	width  int
	height int
	dx, dy float32
	z      int
}

func (s sliceInfo) DataType() DataType          { return s.dt }
func (s sliceInfo) ByteOrder() binary.ByteOrder { return s.order }
func (s sliceInfo) Width() int                  { return s.width }
func (s sliceInfo) Height() int                 { return s.height }
func (s sliceInfo) Spacing() (float32, float32) { return s.dx, s.dy }
func (s sliceInfo) Z() int                      { return s.z }
func (s sliceInfo) info() sliceInfo             { return s }

func (s sliceInfo) pixels() int { return s.width * s.height }

// SliceView is a window into a Volume's buffer. It owns nothing and has no
// release operation; once the parent volume is freed or converted, every
// accessor returns ErrReleased instead of touching stale memory.
type SliceView struct {
	sliceInfo

	vol    *Volume
	gen    uint64
	offset int
	length int
}

// SliceAt returns a view of the axial plane z of the first frame. It returns
// the zero SliceView and false when z is outside [0, dim[3]) or the volume has
// been released.
//
// z steps by one dim[1]*dim[2] plane, not by SlabSize. The two agree for 3D
// volumes; for 4D volumes SliceAt stays within frame 0 and SliceAtFrame
// selects other frames.
func (v *Volume) SliceAt(z int) (SliceView, bool) {
	return v.SliceAtFrame(z, 0)
}

// SliceAtFrame returns a view of the axial plane z of frame t in a 4D volume.
func (v *Volume) SliceAtFrame(z, t int) (SliceView, bool) {
	if v.data == nil || z < 0 || z >= v.layout.Extent(2) || t < 0 || t >= v.layout.Extent(3) {
		return SliceView{}, false
	}

	idx := []int{0, 0, z, t}
	if n := v.layout.NDim(); n < len(idx) {
		idx = idx[:n]
	}
	offset, err := v.layout.Offset(idx...)
	if err != nil {
		return SliceView{}, false
	}

	length := v.layout.PlaneSize()
	if _, ok := layout.Window(v.data, offset, length); !ok {
		return SliceView{}, false
	}

	return SliceView{
		sliceInfo: sliceInfo{
			dt:     v.Header.DataType,
			order:  v.order,
			width:  v.layout.Extent(0),
			height: v.layout.Extent(1),
			dx:     v.Header.PixDim[1],
			dy:     v.Header.PixDim[2],
			z:      z,
		},
		vol:    v,
		gen:    v.gen,
		offset: offset,
		length: length,
	}, true
}

// Valid reports whether the view refers to a plane of a volume.
func (s SliceView) Valid() bool {
	return s.vol != nil
}

// Bytes returns the borrowed plane. The returned slice aliases the volume's
// buffer and must not be retained past the volume's lifetime.
func (s SliceView) Bytes() ([]byte, error) {
	if s.vol == nil {
		return nil, ErrEmptySlice
	}
	if s.vol.data == nil || s.vol.gen != s.gen {
		return nil, ErrReleased
	}

	b, ok := layout.Window(s.vol.data, s.offset, s.length)
	if !ok {
		return nil, layout.ErrOutOfRange
	}
	return b, nil
}

func (s SliceView) Float32s() ([]float32, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	return decodeFloat32s(s.sliceInfo, b)
}

// SliceBuffer is an independently allocated plane. Release drops the buffer.
type SliceBuffer struct {
	sliceInfo

	data  []byte
	lossy int
}

func (s *SliceBuffer) Bytes() ([]byte, error) {
	if s.data == nil {
		return nil, ErrReleased
	}
	return s.data, nil
}

func (s *SliceBuffer) Float32s() ([]float32, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	return decodeFloat32s(s.sliceInfo, b)
}

// Lossy returns how many pixels were replaced by 0 because their datatype has
// no float conversion.
func (s *SliceBuffer) Lossy() int {
	return s.lossy
}

// Release drops the owned buffer. Calling Release more than once is a no-op.
func (s *SliceBuffer) Release() {
	s.data = nil
}

// Copy duplicates the values of s into an owned buffer of the same datatype.
func Copy(s Slice) (*SliceBuffer, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}

	info := s.info()
	size, err := info.dt.Size()
	if err != nil {
		return nil, err
	}

	n := info.pixels() * size
	if len(b) < n {
		return nil, layout.ErrOutOfRange
	}

	data := make([]byte, n)
	copy(data, b)

	return &SliceBuffer{sliceInfo: info, data: data}, nil
}

// CopyAsFloat converts the values of s to float32 into an owned buffer.
// Pixels whose datatype has no float conversion are written as 0 and counted
// by the result's Lossy.
func CopyAsFloat(s Slice) (*SliceBuffer, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}

	info := s.info()
	data, lossy, err := convertToFloat32(info.dt, info.order, b, info.pixels())
	if err != nil {
		return nil, err
	}

	if lossy > 0 {
		log.WithField("datatype", info.dt).Warn("Datatype has no float conversion, pixels set to 0")
	}

	info.dt = Float32
	info.order = binary.LittleEndian

	return &SliceBuffer{sliceInfo: info, data: data, lossy: lossy}, nil
}

// PixelAt returns the value at column x, row y of s converted to float32.
func PixelAt(s Slice, x, y int) (float32, error) {
	if x < 0 || y < 0 || x >= s.Width() || y >= s.Height() {
		return 0, layout.ErrOutOfRange
	}

	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}

	size, err := s.DataType().Size()
	if err != nil {
		return 0, err
	}

	raw, ok := layout.Window(b, (y*s.Width()+x)*size, size)
	if !ok {
		return 0, layout.ErrOutOfRange
	}

	return s.DataType().Float32(raw, s.ByteOrder())
}

func decodeFloat32s(info sliceInfo, b []byte) ([]float32, error) {
	if info.dt != Float32 {
		return nil, &DataTypeError{Type: info.dt, Op: "read float32 values"}
	}

	n := info.pixels()
	if len(b) < n*4 {
		return nil, layout.ErrOutOfRange
	}

	values := make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(info.order.Uint32(b[i*4:]))
	}
	return values, nil
}
