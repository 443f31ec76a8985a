package transcoder

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// columnMajorShape builds the Shape for a 4x3 array of doubles laid out
// contiguously in column-major order: i fastest, then j.
func columnMajorShape() Shape {
	return Shape{BytesPerElement: 8, I: 4, J: 3, K: 1, L: 1, Si: 8, Sj: 32, Sk: 0, Sl: 0}
}

func sequentialDoubles(n int) []byte {
	buf := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(i))
	}
	return buf
}

func TestWriteReadRoundTrip(t *testing.T) {
	shape := columnMajorShape()
	src := sequentialDoubles(12)

	linear, checksum, err := Write(src, shape)
	require.NoError(t, err)
	assert.NotEmpty(t, checksum)

	dst := make([]byte, len(src))
	require.NoError(t, Read(linear, dst, shape))
	assert.Equal(t, src, dst)
}

func TestColumnMajorIdentity(t *testing.T) {
	shape := columnMajorShape()
	src := sequentialDoubles(12)

	linear, _, err := Write(src, shape)
	require.NoError(t, err)
	assert.Equal(t, src, linear)
}

func TestArbitraryStrideInvariance(t *testing.T) {
	colShape := columnMajorShape()
	colSrc := sequentialDoubles(12)
	colLinear, colChecksum, err := Write(colSrc, colShape)
	require.NoError(t, err)

	// Row-major source: j fastest, i slowest. Lay out the same logical
	// matrix (value at (i,j) == i + j*4, matching the column-major
	// source's linear index i + 4*j) under different strides.
	rowShape := Shape{BytesPerElement: 8, I: 4, J: 3, K: 1, L: 1, Si: 24, Sj: 8, Sk: 0, Sl: 0}
	rowSrc := make([]byte, 12*8)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			val := uint64(i + j*4)
			off := i*24 + j*8
			binary.LittleEndian.PutUint64(rowSrc[off:], val)
		}
	}

	rowLinear, rowChecksum, err := Write(rowSrc, rowShape)
	require.NoError(t, err)

	assert.Equal(t, colLinear, rowLinear)
	assert.Equal(t, colChecksum, rowChecksum)
}

func TestWriteRejectsNonPositiveDimension(t *testing.T) {
	shape := Shape{BytesPerElement: 8, I: 0, J: 1, K: 1, L: 1}
	_, _, err := Write(make([]byte, 8), shape)
	require.Error(t, err)
}

func TestReadRejectsWrongBufferLength(t *testing.T) {
	shape := columnMajorShape()
	err := Read(make([]byte, 10), make([]byte, 96), shape)
	require.Error(t, err)
}
