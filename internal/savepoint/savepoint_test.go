package savepoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfield/serialbox/internal/metainfo"
)

func TestEqualComparesNameAndMetainfo(t *testing.T) {
	a := New("t")
	require.NoError(t, a.Metainfo.Add("step", metainfo.Int(1)))

	b := New("t")
	require.NoError(t, b.Metainfo.Add("step", metainfo.Int(1)))

	assert.True(t, a.Equal(b))

	c := New("t")
	require.NoError(t, c.Metainfo.Add("step", metainfo.Int(2)))
	assert.False(t, a.Equal(c))
}

func TestCompareOrdersByNameThenMetainfo(t *testing.T) {
	a := New("a")
	b := New("b")
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(New("a")))
}

func TestToStringIncludesNameAndMetainfo(t *testing.T) {
	sp := New("t")
	require.NoError(t, sp.Metainfo.Add("step", metainfo.Int(1)))
	assert.Equal(t, "t[ step=1 ]", sp.ToString())
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	sp := New("t")
	require.NoError(t, sp.Metainfo.Add("step", metainfo.Int(3)))
	require.NoError(t, sp.Metainfo.Add("label", metainfo.String("x")))

	raw, err := sp.ToJSON(2)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"__name"`)
	assert.Contains(t, string(raw), `"__id"`)

	restored, err := FromJSON(raw)
	require.NoError(t, err)
	assert.True(t, sp.Equal(restored))
}

func TestFromJSONRequiresName(t *testing.T) {
	_, err := FromJSON([]byte(`{"step": 1}`))
	require.Error(t, err)
}

func TestFromJSONSkipsReservedKeys(t *testing.T) {
	sp, err := FromJSON([]byte(`{"__name":"t","__id":0,"__offsets":{},"step":1}`))
	require.NoError(t, err)
	assert.Equal(t, "t", sp.Name)
	assert.True(t, sp.Metainfo.Has("step"))
	assert.False(t, sp.Metainfo.Has("__offsets"))
}

func TestToJSONOmitsIDWhenNegative(t *testing.T) {
	sp := New("t")
	raw, err := sp.ToJSON(-1)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"__id"`)
}
