package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"niftislice/internal/layout"
)

// HeaderSize is the size of the fixed NIfTI-1 header in bytes.
const HeaderSize = 348

// MaxVoxOffset is the largest vox_offset accepted.
const MaxVoxOffset = math.MaxInt32

// Magic terminates a single-file NIfTI-1 header.
var Magic = [4]byte{'n', '+', '1', 0}

// Header mirrors the 348-byte on-disk NIfTI-1 header field for field.
type Header struct {
	SizeOfHdr int32

	// Analyze 7.5 fields kept only to preserve the layout
	DataTypeName [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte

	DimInfo byte

	// Dim[0] is the number of populated dimensions, Dim[1..Dim[0]] their extents
	Dim [8]int16

	IntentP1   float32
	IntentP2   float32
	IntentP3   float32
	IntentCode int16

	DataType   DataType
	BitPix     int16
	SliceStart int16

	// PixDim[1..] holds the grid spacing along each dimension
	PixDim [8]float32

	// VoxOffset is the byte offset of the voxel data in the file
	VoxOffset float32
	SclSlope  float32
	SclInter  float32

	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	GLMax         int32
	GLMin         int32

	Descrip [80]byte
	AuxFile [24]byte

	QFormCode int16
	SFormCode int16
	QuaternB  float32
	QuaternC  float32
	QuaternD  float32
	QOffsetX  float32
	QOffsetY  float32
	QOffsetZ  float32

	// Rows of the sform affine transform
	SRowX [4]float32
	SRowY [4]float32
	SRowZ [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

// DecodeHeader reads exactly HeaderSize bytes from r and validates them.
//
// The byte order is inferred from dim[0]: the header is decoded little-endian
// first and re-decoded big-endian when dim[0] is outside [1, 7].
func DecodeHeader(r io.Reader) (*Header, binary.ByteOrder, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, nil, &FileError{Op: "read header", Err: err}
	}

	var order binary.ByteOrder = binary.LittleEndian
	h, err := parseHeader(buf, order)
	if err != nil {
		return nil, nil, err
	}

	if !validNDim(h.Dim[0]) {
		order = binary.BigEndian
		if h, err = parseHeader(buf, order); err != nil {
			return nil, nil, err
		}
	}

	if err := h.validate(); err != nil {
		return nil, nil, err
	}

	log.WithFields(logrus.Fields{
		"byteOrder": order,
		"datatype":  h.DataType,
		"dims":      h.Dims(),
	}).Debug("Decoded NIfTI-1 header")

	return h, order, nil
}

func parseHeader(buf []byte, order binary.ByteOrder) (*Header, error) {
	h := &Header{}
	if err := binary.Read(bytes.NewReader(buf), order, h); err != nil {
		return nil, &FileError{Op: "parse header", Err: err}
	}
	return h, nil
}

func validNDim(n int16) bool {
	return n >= 1 && n <= layout.MaxDims
}

func (h *Header) validate() error {
	if !validNDim(h.Dim[0]) {
		return &ValidationError{Field: "dim[0]", Got: h.Dim[0]}
	}

	if h.Magic != Magic {
		got := make([]byte, len(h.Magic))
		copy(got, h.Magic[:])
		return &ValidationError{Field: "magic", Got: got}
	}

	if _, err := h.DataType.Size(); err != nil {
		return err
	}

	for i := 1; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] < 1 {
			return &ValidationError{Field: fmt.Sprintf("dim[%d]", i), Got: h.Dim[i]}
		}
	}

	off := float64(h.VoxOffset)
	if math.IsNaN(off) || math.IsInf(off, 0) || off > MaxVoxOffset {
		return &ValidationError{Field: "vox_offset", Got: h.VoxOffset}
	}

	return nil
}

// NDim returns the number of populated dimensions.
func (h *Header) NDim() int {
	return int(h.Dim[0])
}

// Dims returns the extents of the populated dimensions.
func (h *Header) Dims() []int {
	n := h.NDim()
	if !validNDim(h.Dim[0]) {
		return nil
	}
	dims := make([]int, n)
	for i := range dims {
		dims[i] = int(h.Dim[i+1])
	}
	return dims
}

// Layout returns the buffer layout described by the header's dimensions and datatype.
func (h *Header) Layout() (layout.Layout, error) {
	size, err := h.DataType.Size()
	if err != nil {
		return layout.Layout{}, err
	}

	l, err := layout.New(size, h.Dims())
	if err != nil {
		return layout.Layout{}, &ValidationError{Field: "dim", Got: err.Error()}
	}

	return l, nil
}

// SlabSize returns size(datatype) multiplied by every extent but the last:
// the bytes in one step along the outermost populated dimension.
func (h *Header) SlabSize() (uint64, error) {
	size, err := h.DataType.Size()
	if err != nil {
		return 0, err
	}

	slab := uint64(size)
	for i := 1; i < h.NDim(); i++ {
		slab *= uint64(h.Dim[i])
	}

	return slab, nil
}

// DataOffset returns the offset of the first voxel, never inside the header.
// Decoded headers have a finite VoxOffset no larger than MaxVoxOffset.
func (h *Header) DataOffset() int64 {
	off := int64(h.VoxOffset)
	if off < HeaderSize {
		return HeaderSize
	}
	return off
}

// Description returns the descrip field without trailing NULs.
func (h *Header) Description() string {
	return cString(h.Descrip[:])
}

// AuxFileName returns the aux_file field without trailing NULs.
func (h *Header) AuxFileName() string {
	return cString(h.AuxFile[:])
}

// Intent returns the intent_name field without trailing NULs.
func (h *Header) Intent() string {
	return cString(h.IntentName[:])
}

// Affine returns the sform transform from voxel indices to world coordinates.
func (h *Header) Affine() [4][4]float32 {
	return [4][4]float32{
		h.SRowX,
		h.SRowY,
		h.SRowZ,
		{0, 0, 0, 1},
	}
}

// String renders the header in a human readable form.
func (h *Header) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "header size: %d\n", h.SizeOfHdr)
	fmt.Fprintf(&b, "dim info: %d\n", h.DimInfo)
	fmt.Fprintf(&b, "ndims: %d, dims: %v\n", h.Dim[0], h.Dim[1:])
	fmt.Fprintf(&b, "datatype: %s (bitpix %d)\n", h.DataType, h.BitPix)
	fmt.Fprintf(&b, "slice code: %d\n", h.SliceCode)
	fmt.Fprintf(&b, "slice start: %d, slice end: %d\n", h.SliceStart, h.SliceEnd)
	fmt.Fprintf(&b, "pixdim: %g, %v\n", h.PixDim[0], h.PixDim[1:])
	fmt.Fprintf(&b, "voxel offset: %g\n", h.VoxOffset)
	fmt.Fprintf(&b, "units: spatial %s, temporal %s\n", h.SpatialUnit(), h.TemporalUnit())
	fmt.Fprintf(&b, "description: %s\n", h.Description())
	fmt.Fprintf(&b, "aux file: %s\n", h.AuxFileName())
	b.WriteString("affine:\n")
	for _, row := range h.Affine() {
		fmt.Fprintf(&b, "[%.3f, %.3f, %.3f, %.3f]\n", row[0], row[1], row[2], row[3])
	}
	fmt.Fprintf(&b, "magic: %q", cString(h.Magic[:]))

	return b.String()
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
