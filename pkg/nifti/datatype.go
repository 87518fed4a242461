package nifti

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// DataType is the NIfTI-1 voxel datatype code stored in the header.
type DataType uint16

// NIfTI-1 datatype codes.
const (
	Unknown    DataType = 0
	Bool       DataType = 1
	Uint8      DataType = 2
	Int16      DataType = 4
	Int32      DataType = 8
	Float32    DataType = 16
	Complex64  DataType = 32
	Float64    DataType = 64
	RGB24      DataType = 128
	All        DataType = 255
	Int8       DataType = 256
	Uint16     DataType = 512
	Uint32     DataType = 768
	Int64      DataType = 1024
	Uint64     DataType = 1280
	Float128   DataType = 1536
	Complex128 DataType = 1792
	Complex256 DataType = 2048
	RGBA32     DataType = 2304
)

// DataTypes lists every code the registry knows about, in code order.
var DataTypes = []DataType{
	Unknown, Bool, Uint8, Int16, Int32, Float32, Complex64, Float64, RGB24, All,
	Int8, Uint16, Uint32, Int64, Uint64, Float128, Complex128, Complex256, RGBA32,
}

// Known reports whether dt is one of the defined codes.
func (dt DataType) Known() bool {
	switch dt {
	case Unknown, Bool, Uint8, Int16, Int32, Float32, Complex64, Float64, RGB24, All,
		Int8, Uint16, Uint32, Int64, Uint64, Float128, Complex128, Complex256, RGBA32:
		return true
	}
	return false
}

// String returns the display name of dt. Codes outside the table render as
// "DataType(n)" so corrupt headers stay printable.
func (dt DataType) String() string {
	switch dt {
	case Unknown:
		return "unknown"
	case Bool:
		return "bool"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Complex64:
		return "complex64"
	case Float64:
		return "float64"
	case RGB24:
		return "rgb24"
	case All:
		return "all"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float128:
		return "float128"
	case Complex128:
		return "complex128"
	case Complex256:
		return "complex256"
	case RGBA32:
		return "rgba32"
	}
	return fmt.Sprintf("DataType(%d)", uint16(dt))
}

// Size returns the number of bytes per voxel. Unknown, All and codes outside
// the table have no size.
func (dt DataType) Size() (int, error) {
	switch dt {
	case Bool, Uint8, Int8:
		return 1, nil
	case Int16, Uint16:
		return 2, nil
	case RGB24:
		return 3, nil
	case Int32, Uint32, Float32, RGBA32:
		return 4, nil
	case Int64, Uint64, Float64, Complex64:
		return 8, nil
	case Float128, Complex128:
		return 16, nil
	case Complex256:
		return 32, nil
	case Unknown, All:
	}
	return 0, &DataTypeError{Type: dt, Op: "size", Err: ErrUnsupportedType}
}

// CanFloat reports whether voxels of type dt can be widened or narrowed to float32.
func (dt DataType) CanFloat() bool {
	_, ok := dt.floatDecoder(binary.LittleEndian)
	return ok
}

// Float32 converts a single raw element of type dt to float32. Types without a
// conversion yield 0 and an error wrapping ErrUnsupportedType; raw is not read
// in that case. Int64 and Uint64 values beyond 2^24 lose precision.
func (dt DataType) Float32(raw []byte, order binary.ByteOrder) (float32, error) {
	dec, ok := dt.floatDecoder(order)
	if !ok {
		return 0, &DataTypeError{Type: dt, Op: "convert", Err: ErrUnsupportedType}
	}

	size, _ := dt.Size()
	if len(raw) < size {
		return 0, &DataTypeError{Type: dt, Op: "convert", Err: io.ErrUnexpectedEOF}
	}

	return dec(raw), nil
}

type floatDecoder func(raw []byte) float32

// floatDecoder resolves the per-element conversion for dt once so bulk
// conversions do not switch per voxel. The caller guarantees len(raw) >= size.
func (dt DataType) floatDecoder(order binary.ByteOrder) (floatDecoder, bool) {
	switch dt {
	case Uint8:
		return func(b []byte) float32 { return float32(b[0]) }, true
	case Int8:
		return func(b []byte) float32 { return float32(int8(b[0])) }, true
	case Int16:
		return func(b []byte) float32 { return float32(int16(order.Uint16(b))) }, true
	case Uint16:
		return func(b []byte) float32 { return float32(order.Uint16(b)) }, true
	case Int32:
		return func(b []byte) float32 { return float32(int32(order.Uint32(b))) }, true
	case Uint32, RGBA32:
		return func(b []byte) float32 { return float32(order.Uint32(b)) }, true
	case Int64:
		return func(b []byte) float32 { return float32(int64(order.Uint64(b))) }, true
	case Uint64:
		return func(b []byte) float32 { return float32(order.Uint64(b)) }, true
	case Float32:
		return func(b []byte) float32 { return math.Float32frombits(order.Uint32(b)) }, true
	case Float64:
		return func(b []byte) float32 { return float32(math.Float64frombits(order.Uint64(b))) }, true
	case Unknown, Bool, Complex64, RGB24, All, Float128, Complex128, Complex256:
	}
	return nil, false
}

// convertToFloat32 decodes count elements of type dt from src into a new
// little-endian float32 buffer. Elements without a conversion are written as 0
// and counted in lossy.
func convertToFloat32(dt DataType, order binary.ByteOrder, src []byte, count int) (dst []byte, lossy int, err error) {
	dst = make([]byte, count*4)

	dec, ok := dt.floatDecoder(order)
	if !ok {
		if _, err := dt.Size(); err != nil {
			return nil, 0, err
		}
		return dst, count, nil
	}

	size, _ := dt.Size()
	if len(src) < count*size {
		return nil, 0, &DataTypeError{Type: dt, Op: "convert", Err: io.ErrUnexpectedEOF}
	}

	for i := 0; i < count; i++ {
		v := dec(src[i*size : i*size+size])
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}

	return dst, 0, nil
}
