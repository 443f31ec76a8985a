// Package transcoder implements the stride-aware array layout
// converter: it normalizes an arbitrary caller-strided view into
// column-major on-disk order (and back), and computes the content
// checksum on write. It is pure: no I/O, no shared mutable state. It
// mirrors BinarySerializer in the reference serializer.
package transcoder

import (
	"github.com/gridfield/serialbox/internal/checksum"
	"github.com/gridfield/serialbox/pkg/errors"
)

// Shape describes the dimensions and byte strides of a caller's array
// view. Strides may be zero when the corresponding dimension is
// degenerate (size 1).
type Shape struct {
	BytesPerElement int
	I, J, K, L      int
	Si, Sj, Sk, Sl   int
}

// Size returns the number of elements described by the shape.
func (s Shape) Size() int { return s.I * s.J * s.K * s.L }

// DataSize returns the number of bytes in the linearized, column-major
// buffer this shape describes.
func (s Shape) DataSize() int { return s.BytesPerElement * s.Size() }

// Write linearizes the strided source buffer into a freshly allocated
// column-major buffer (L slowest: linear index ((l*K+k)*J+j)*I+i) and
// returns it along with the checksum of the full result.
//
// src must be large enough to contain every element addressed by
// i*Si + j*Sj + k*Sk + l*Sl for the shape's extents; callers own that
// guarantee, the same way the reference implementation trusts its
// caller's pointer arithmetic.
func Write(src []byte, shape Shape) ([]byte, string, error) {
	if shape.BytesPerElement <= 0 || shape.I <= 0 || shape.J <= 0 || shape.K <= 0 || shape.L <= 0 {
		return nil, "", errors.New(errors.ParseError, "transcoder shape has a non-positive dimension")
	}

	bpe := shape.BytesPerElement
	out := make([]byte, shape.DataSize())

	for l := 0; l < shape.L; l++ {
		for k := 0; k < shape.K; k++ {
			for j := 0; j < shape.J; j++ {
				for i := 0; i < shape.I; i++ {
					linear := ((l*shape.K+k)*shape.J + j) * shape.I + i
					srcOff := i*shape.Si + j*shape.Sj + k*shape.Sk + l*shape.Sl
					copy(out[linear*bpe:(linear+1)*bpe], src[srcOff:srcOff+bpe])
				}
			}
		}
	}

	return out, checksum.Of(out), nil
}

// Read scatters a contiguous column-major buffer (produced by Write,
// or read back from disk) into dst using the shape's strides. dst must
// be pre-allocated by the caller; no checksum is computed on read.
func Read(buf []byte, dst []byte, shape Shape) error {
	if len(buf) != shape.DataSize() {
		return errors.New(errors.ParseError, "transcoder input buffer length mismatch").
			WithDetail("expected", shape.DataSize()).
			WithDetail("actual", len(buf))
	}

	bpe := shape.BytesPerElement
	for l := 0; l < shape.L; l++ {
		for k := 0; k < shape.K; k++ {
			for j := 0; j < shape.J; j++ {
				for i := 0; i < shape.I; i++ {
					linear := ((l*shape.K+k)*shape.J + j) * shape.I + i
					dstOff := i*shape.Si + j*shape.Sj + k*shape.Sk + l*shape.Sl
					copy(dst[dstOff:dstOff+bpe], buf[linear*bpe:(linear+1)*bpe])
				}
			}
		}
	}
	return nil
}
