package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfield/serialbox/internal/metainfo"
)

func TestNewComputesRank(t *testing.T) {
	d := New("T", Double, 8, Sizes{I: 4, J: 3, K: 1, L: 1}, Halos{})
	assert.Equal(t, 2, d.Rank)
	assert.Equal(t, 96, d.DataSize())
}

func TestSameShapeIgnoresMetainfo(t *testing.T) {
	a := New("T", Double, 8, Sizes{I: 4, J: 3, K: 1, L: 1}, Halos{})
	b := New("T", Double, 8, Sizes{I: 4, J: 3, K: 1, L: 1}, Halos{})
	require.NoError(t, b.Metainfo.Add("units", metainfo.String("K")))

	assert.True(t, a.SameShape(b))
	assert.False(t, a.Equal(b))
}

func TestSameShapeRejectsDifferentType(t *testing.T) {
	a := New("rho", Float, 4, Sizes{I: 10, J: 10, K: 1, L: 1}, Halos{})
	b := New("rho", Double, 8, Sizes{I: 10, J: 10, K: 1, L: 1}, Halos{})
	assert.False(t, a.SameShape(b))
}

func TestToJSONOmitsDegenerateLDimension(t *testing.T) {
	d := New("T", Double, 8, Sizes{I: 4, J: 3, K: 1, L: 1}, Halos{})
	raw, err := d.ToJSON(0)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "__lsize")
	assert.Contains(t, string(raw), `"__id":0`)
}

func TestToJSONIncludesLDimensionWhenPresent(t *testing.T) {
	d := New("T", Double, 8, Sizes{I: 4, J: 3, K: 2, L: 5}, Halos{})
	raw, err := d.ToJSON(-1)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"__lsize":5`)
	assert.NotContains(t, string(raw), "__id")
}

func TestFromJSONRoundTrip(t *testing.T) {
	original := New("T", Double, 8, Sizes{I: 4, J: 3, K: 1, L: 1}, Halos{IMinus: 1, IPlus: 1})
	require.NoError(t, original.Metainfo.Add("units", metainfo.String("K")))

	raw, err := original.ToJSON(2)
	require.NoError(t, err)

	restored, err := FromJSON(raw)
	require.NoError(t, err)

	assert.True(t, original.SameShape(restored))
	assert.True(t, original.Metainfo.Equal(restored.Metainfo))
}

func TestFromJSONDefaultsMissingDimensions(t *testing.T) {
	raw := []byte(`{"__name":"bare","__elementtype":"int","__bytesperelement":4}`)
	d, err := FromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, Sizes{I: 1, J: 1, K: 1, L: 1}, d.Sizes)
	assert.Equal(t, Halos{}, d.Halos)
}

func TestFromJSONRequiresName(t *testing.T) {
	_, err := FromJSON([]byte(`{"__elementtype":"int"}`))
	require.Error(t, err)
}

func TestFromJSONFoldsUnknownKeysIntoMetainfo(t *testing.T) {
	raw := []byte(`{"__name":"T","units":"K"}`)
	d, err := FromJSON(raw)
	require.NoError(t, err)
	v, err := d.Metainfo.AsString("units")
	require.NoError(t, err)
	assert.Equal(t, "K", v)
}
