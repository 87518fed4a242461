package nifti

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dt   DataType
		size int
	}{
		{Bool, 1},
		{Uint8, 1},
		{Int16, 2},
		{Int32, 4},
		{Float32, 4},
		{Complex64, 8},
		{Float64, 8},
		{RGB24, 3},
		{Int8, 1},
		{Uint16, 2},
		{Uint32, 4},
		{Int64, 8},
		{Uint64, 8},
		{Float128, 16},
		{Complex128, 16},
		{Complex256, 32},
		{RGBA32, 4},
	}

	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			size, err := tt.dt.Size()
			require.NoError(t, err)
			require.Equal(t, tt.size, size)
		})
	}
}

func TestDataTypeSizeUnsupported(t *testing.T) {
	for _, dt := range []DataType{Unknown, All, DataType(3), DataType(9999)} {
		_, err := dt.Size()
		require.Error(t, err, dt.String())
		require.ErrorIs(t, err, ErrUnsupportedType)
		require.ErrorIs(t, err, ErrDataType)

		var dtErr *DataTypeError
		require.True(t, errors.As(err, &dtErr))
		require.Equal(t, dt, dtErr.Type)
	}
}

func TestDataTypeTotal(t *testing.T) {
	require.Len(t, DataTypes, 19)

	for _, dt := range DataTypes {
		require.True(t, dt.Known(), dt.String())
		require.NotContains(t, dt.String(), "DataType(")

		// every tag either has a size or reports unsupported, never panics
		if _, err := dt.Size(); err != nil {
			require.Contains(t, []DataType{Unknown, All}, dt)
		}

		raw := make([]byte, 32)
		_, err := dt.Float32(raw, binary.LittleEndian)
		if dt.CanFloat() {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrUnsupportedType)
		}
	}

	require.False(t, DataType(7).Known())
	require.Equal(t, "DataType(7)", DataType(7).String())
}

func TestDataTypeCanFloat(t *testing.T) {
	supported := map[DataType]bool{
		Uint8: true, Int8: true, Int16: true, Uint16: true, Int32: true, Uint32: true,
		Int64: true, Uint64: true, Float32: true, Float64: true, RGBA32: true,
	}

	for _, dt := range DataTypes {
		require.Equal(t, supported[dt], dt.CanFloat(), dt.String())
	}
}

func TestFloat32Conversion(t *testing.T) {
	le := binary.LittleEndian
	be := binary.BigEndian

	f32 := make([]byte, 4)
	le.PutUint32(f32, math.Float32bits(-3.25))
	f64 := make([]byte, 8)
	be.PutUint64(f64, math.Float64bits(1234.5))
	i64 := make([]byte, 8)
	n := int64(-70000)
	le.PutUint64(i64, uint64(n))

	tests := []struct {
		name  string
		dt    DataType
		order binary.ByteOrder
		raw   []byte
		want  float32
	}{
		{"uint8", Uint8, le, []byte{200}, 200},
		{"int8", Int8, le, []byte{0xff}, -1},
		{"int16 le", Int16, le, []byte{0x18, 0xfc}, -1000},
		{"int16 be", Int16, be, []byte{0xfc, 0x18}, -1000},
		{"uint16", Uint16, le, []byte{0xff, 0xff}, 65535},
		{"int32", Int32, le, []byte{0x00, 0x00, 0x00, 0x80}, math.MinInt32},
		{"uint32", Uint32, le, []byte{0x01, 0x00, 0x01, 0x00}, 65537},
		{"rgba32 packed", RGBA32, le, []byte{0x01, 0x02, 0x00, 0x00}, 513},
		{"int64", Int64, le, i64, -70000},
		{"uint64", Uint64, le, []byte{0x10, 0, 0, 0, 0, 0, 0, 0}, 16},
		{"float32", Float32, le, f32, -3.25},
		{"float64 be", Float64, be, f64, 1234.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dt.Float32(tt.raw, tt.order)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFloat32Unsupported(t *testing.T) {
	for _, dt := range []DataType{Bool, Complex64, RGB24, Float128, Complex128, Complex256, Unknown, All} {
		// a nil buffer proves the raw bytes are never read
		got, err := dt.Float32(nil, binary.LittleEndian)
		require.ErrorIs(t, err, ErrUnsupportedType, dt.String())
		require.Zero(t, got)
	}
}

func TestFloat32ShortInput(t *testing.T) {
	_, err := Int32.Float32([]byte{1, 2}, binary.LittleEndian)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.ErrorIs(t, err, ErrDataType)
}

func TestConvertToFloat32(t *testing.T) {
	src := int16Payload(binary.BigEndian, 1, -2, 300)

	dst, lossy, err := convertToFloat32(Int16, binary.BigEndian, src, 3)
	require.NoError(t, err)
	require.Zero(t, lossy)
	require.Len(t, dst, 12)
	require.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(dst[4:])))
	require.Equal(t, float32(300), math.Float32frombits(binary.LittleEndian.Uint32(dst[8:])))

	dst, lossy, err = convertToFloat32(Complex64, binary.LittleEndian, make([]byte, 16), 2)
	require.NoError(t, err)
	require.Equal(t, 2, lossy)
	require.Equal(t, make([]byte, 8), dst)

	_, _, err = convertToFloat32(All, binary.LittleEndian, nil, 1)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, _, err = convertToFloat32(Int32, binary.LittleEndian, make([]byte, 7), 2)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUnits(t *testing.T) {
	h := Header{XYZTUnits: byte(UnitMicron) | byte(UnitMillisecond)}
	require.Equal(t, UnitMicron, h.SpatialUnit())
	require.Equal(t, UnitMillisecond, h.TemporalUnit())
	require.Equal(t, "um", h.SpatialUnit().String())
	require.Equal(t, "ms", h.TemporalUnit().String())

	h.XYZTUnits = byte(UnitMeter) | byte(UnitRadPerSec)
	require.Equal(t, "m", h.SpatialUnit().String())
	require.Equal(t, "rad/s", h.TemporalUnit().String())

	require.Equal(t, "Unit(5)", Unit(5).String())
}
