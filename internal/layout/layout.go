// Package layout describes how the voxels of a volume sit in a flat byte buffer.
// It replaces pointer arithmetic with explicit extents and strides so every
// window into the buffer can be bounds-checked.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// MaxDims is the largest number of populated dimensions a layout can carry.
const MaxDims = 7

var (
	// ErrOutOfRange is returned when an index or window falls outside the layout.
	ErrOutOfRange = errors.New("index out of range")
	// ErrTooLarge is returned when the layout cannot be addressed with an int.
	ErrTooLarge = errors.New("layout exceeds addressable size")
)

// Layout is a dense, column-major layout: dimension 0 varies fastest.
type Layout struct {
	// ElemSize is the size of one element in bytes
	ElemSize int

	// Extents holds the number of elements along each populated dimension
	Extents []int

	// Strides holds the byte distance between neighbours along each dimension
	Strides []int
}

// New builds a layout for elements of elemSize bytes with the given extents.
// Every extent must be at least 1.
func New(elemSize int, extents []int) (Layout, error) {
	if elemSize <= 0 {
		return Layout{}, fmt.Errorf("invalid element size %d", elemSize)
	}
	if len(extents) == 0 || len(extents) > MaxDims {
		return Layout{}, fmt.Errorf("invalid dimension count %d", len(extents))
	}

	l := Layout{
		ElemSize: elemSize,
		Extents:  make([]int, len(extents)),
		Strides:  make([]int, len(extents)),
	}

	stride := uint64(elemSize)
	for i, n := range extents {
		if n < 1 {
			return Layout{}, fmt.Errorf("dimension %d has extent %d", i+1, n)
		}
		l.Extents[i] = n
		l.Strides[i] = int(stride)
		if stride > uint64(math.MaxInt)/uint64(n) {
			return Layout{}, ErrTooLarge
		}
		stride *= uint64(n)
	}

	return l, nil
}

// NDim returns the number of populated dimensions.
func (l Layout) NDim() int {
	return len(l.Extents)
}

// Extent returns the extent of dimension i. Unpopulated dimensions have extent 1.
func (l Layout) Extent(i int) int {
	if i < 0 || i >= len(l.Extents) {
		return 1
	}
	return l.Extents[i]
}

// Count returns the total number of elements.
func (l Layout) Count() int {
	n := 1
	for _, e := range l.Extents {
		n *= e
	}
	return n
}

// Size returns the total number of bytes.
func (l Layout) Size() int {
	return l.Count() * l.ElemSize
}

// SlabSize returns the bytes in one step along the outermost populated dimension.
func (l Layout) SlabSize() int {
	if len(l.Strides) == 0 {
		return 0
	}
	return l.Strides[len(l.Strides)-1]
}

// PlaneSize returns the bytes of one plane spanned by dimensions 0 and 1.
func (l Layout) PlaneSize() int {
	return l.ElemSize * l.Extent(0) * l.Extent(1)
}

// Offset returns the byte offset of the element at idx. Missing trailing
// indices are treated as 0.
func (l Layout) Offset(idx ...int) (int, error) {
	if len(idx) > len(l.Extents) {
		return 0, fmt.Errorf("%w: %d indices for %d dimensions", ErrOutOfRange, len(idx), len(l.Extents))
	}

	off := 0
	for i, v := range idx {
		if v < 0 || v >= l.Extents[i] {
			return 0, fmt.Errorf("%w: index %d on dimension %d (extent %d)", ErrOutOfRange, v, i+1, l.Extents[i])
		}
		off += v * l.Strides[i]
	}

	return off, nil
}

// Window returns buf[offset:offset+length] if that range lies inside buf.
func Window(buf []byte, offset, length int) ([]byte, bool) {
	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		return nil, false
	}
	return buf[offset : offset+length : offset+length], true
}

// WithElemSize returns the same extents re-laid for a different element size.
func (l Layout) WithElemSize(elemSize int) (Layout, error) {
	return New(elemSize, l.Extents)
}
