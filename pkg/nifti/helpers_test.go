package nifti

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dt        DataType
	dims      []int16
	order     binary.ByteOrder
	voxOffset float32
	payload   []byte
}

func newHeader(dt DataType, dims []int16) Header {
	h := Header{
		SizeOfHdr: HeaderSize,
		DataType:  dt,
		VoxOffset: 352,
		SclSlope:  1,
		XYZTUnits: byte(UnitMillimeter) | byte(UnitSecond),
		Magic:     Magic,
	}
	h.Dim[0] = int16(len(dims))
	for i, d := range dims {
		h.Dim[i+1] = d
	}
	for i := 1; i < len(h.Dim); i++ {
		if h.Dim[i] == 0 {
			h.Dim[i] = 1
		}
	}
	h.PixDim = [8]float32{1, 0.5, 0.75, 2, 1, 1, 1, 1}
	h.SRowX = [4]float32{0.5, 0, 0, -10}
	h.SRowY = [4]float32{0, 0.75, 0, -20}
	h.SRowZ = [4]float32{0, 0, 2, -30}
	copy(h.Descrip[:], "synthetic")
	return h
}

// encode renders a header followed by padding up to voxOffset and the payload.
func encode(t *testing.T, h Header, order binary.ByteOrder, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, order, &h))
	require.Equal(t, HeaderSize, buf.Len())

	if off := int(h.VoxOffset); off > buf.Len() {
		buf.Write(make([]byte, off-buf.Len()))
	}
	buf.Write(payload)

	return buf.Bytes()
}

func (f fixture) bytes(t *testing.T) []byte {
	t.Helper()

	order := f.order
	if order == nil {
		order = binary.LittleEndian
	}

	h := newHeader(f.dt, f.dims)
	if f.voxOffset != 0 {
		h.VoxOffset = f.voxOffset
	}

	return encode(t, h, order, f.payload)
}

func (f fixture) write(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	data := f.bytes(t)

	if filepath.Ext(name) == ".gz" {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		data = buf.Bytes()
	}

	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func int16Payload(order binary.ByteOrder, values ...int16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		order.PutUint16(b[2*i:], uint16(v))
	}
	return b
}
