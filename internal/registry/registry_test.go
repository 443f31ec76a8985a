package registry

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfield/serialbox/internal/field"
	"github.com/gridfield/serialbox/pkg/errors"
)

func TestRegisterAndFind(t *testing.T) {
	r := New(Config{})
	d := field.New("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})
	require.NoError(t, r.Register(d))

	found, err := r.Find("T")
	require.NoError(t, err)
	assert.Same(t, d, found)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := New(Config{})
	d := field.New("T", field.Double, 8, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})
	require.NoError(t, r.Register(d))

	err := r.Register(d)
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.AlreadyRegistered))
}

func TestFindUnknownField(t *testing.T) {
	r := New(Config{})
	_, err := r.Find("missing")
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.UnknownField))
}

func TestNamesSorted(t *testing.T) {
	r := New(Config{})
	require.NoError(t, r.Register(field.New("zeta", field.Int, 4, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})))
	require.NoError(t, r.Register(field.New("alpha", field.Int, 4, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestRegistryJSONRoundTrip(t *testing.T) {
	r := New(Config{})
	require.NoError(t, r.Register(field.New("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})))
	require.NoError(t, r.Register(field.New("U", field.Float, 4, field.Sizes{I: 2, J: 2, K: 1, L: 1}, field.Halos{})))

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	restored := New(Config{})
	require.NoError(t, json.Unmarshal(raw, restored))

	assert.Equal(t, r.Names(), restored.Names())
	for _, name := range r.Names() {
		orig, _ := r.Find(name)
		rest, _ := restored.Find(name)
		assert.True(t, orig.SameShape(rest))
	}
}
