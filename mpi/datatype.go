package mpi

import (
	"fmt"
)

// Datatype describes which elements of a []float64 buffer take part in a
// message. It is the equivalent of an MPI vector type: Count blocks of
// BlockLength contiguous elements whose starts are Stride elements apart.
//
// The first element of the described region is always buf[0], so callers
// point a Datatype at a sub-region by slicing the buffer (buf[offset:]).
type Datatype struct {
	Count, BlockLength, Stride int
}

// Contiguous returns a Datatype describing n adjacent elements.
func Contiguous(n int) Datatype {
	return Datatype{Count: 1, BlockLength: n, Stride: n}
}

// Vector returns a Datatype describing count blocks of blockLength elements
// spaced stride elements apart. A column of a row-major matrix with w columns
// is Vector(rows, 1, w).
func Vector(count, blockLength, stride int) Datatype {
	return Datatype{Count: count, BlockLength: blockLength, Stride: stride}
}

// Len returns the number of elements transmitted.
func (dt Datatype) Len() int { return dt.Count * dt.BlockLength }

// Extent returns the minimum buffer length needed to hold the region.
func (dt Datatype) Extent() int {
	if dt.Count == 0 || dt.BlockLength == 0 {
		return 0
	}
	return (dt.Count-1)*dt.Stride + dt.BlockLength
}

// Valid returns an error if the Datatype cannot describe a region.
func (dt Datatype) Valid() error {
	switch {
	case dt.Count < 0:
		return fmt.Errorf("negative block count %d", dt.Count)
	case dt.BlockLength < 0:
		return fmt.Errorf("negative block length %d", dt.BlockLength)
	case dt.Count > 1 && dt.Stride < dt.BlockLength:
		return fmt.Errorf(
			"stride %d is smaller than block length %d",
			dt.Stride, dt.BlockLength,
		)
	}
	return nil
}

// Pack copies the region of src described by dt into the contiguous buffer
// dst, which must hold at least dt.Len() elements.
func (dt Datatype) Pack(dst, src []float64) {
	if dt.Count == 1 {
		copy(dst[:dt.BlockLength], src[:dt.BlockLength])
		return
	}
	for k := 0; k < dt.Count; k++ {
		s := k * dt.Stride
		copy(dst[k*dt.BlockLength:(k+1)*dt.BlockLength], src[s:s+dt.BlockLength])
	}
}

// Unpack is the inverse of Pack: it scatters the contiguous buffer src into
// the region of dst described by dt.
func (dt Datatype) Unpack(dst, src []float64) {
	if dt.Count == 1 {
		copy(dst[:dt.BlockLength], src[:dt.BlockLength])
		return
	}
	for k := 0; k < dt.Count; k++ {
		d := k * dt.Stride
		copy(dst[d:d+dt.BlockLength], src[k*dt.BlockLength:(k+1)*dt.BlockLength])
	}
}
