package metainfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfield/serialbox/pkg/errors"
)

func TestValueAsIntExactFloat(t *testing.T) {
	v := Double(4.0)
	n, err := v.AsInt()
	require.NoError(t, err)
	assert.Equal(t, int32(4), n)
}

func TestValueAsIntRejectsFraction(t *testing.T) {
	v := Double(4.5)
	_, err := v.AsInt()
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.NotExact))
}

func TestValueTypeCode(t *testing.T) {
	assert.Equal(t, -1, Bool(true).TypeCode())
	assert.Equal(t, -2, Int(1).TypeCode())
	assert.Equal(t, -3, Float(1).TypeCode())
	assert.Equal(t, -4, Double(1).TypeCode())
	assert.Equal(t, 5, String("hello").TypeCode())
}

func TestValueCompareCrossKind(t *testing.T) {
	assert.Equal(t, -1, Bool(true).Compare(Int(0)))
	assert.Equal(t, 1, String("a").Compare(Double(1)))
}

func TestValueEqualDistinguishesKind(t *testing.T) {
	assert.False(t, Int(1).Equal(Float(1)))
}
