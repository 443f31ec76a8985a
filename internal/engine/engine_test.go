package engine

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridfield/serialbox/internal/field"
	"github.com/gridfield/serialbox/internal/metainfo"
	"github.com/gridfield/serialbox/internal/savepoint"
	"github.com/gridfield/serialbox/pkg/errors"
)

// panicOnFatalLogger behaves like a no-op logger except Fatalw panics
// instead of calling os.Exit, so the fatal path can be observed in a
// test without killing the test binary.
func panicOnFatalLogger() *zap.SugaredLogger {
	return zap.New(zapcore.NewNopCore(), zap.OnFatal(zapcore.WriteThenPanic)).Sugar()
}

func doublesLE(vals ...float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func columnMajorStrides() Strides {
	return Strides{I: 8, J: 32, K: 0, L: 0}
}

func rowMajorStrides() Strides {
	return Strides{I: 24, J: 8, K: 0, L: 0}
}

func openEngine(t *testing.T, dir string, mode Mode) *Engine {
	t.Helper()
	e, err := New(context.Background(), Config{Directory: dir, Prefix: "test", Mode: mode})
	require.NoError(t, err)
	return e
}

func spWithStep(t *testing.T, name string, step int32) *savepoint.Savepoint {
	t.Helper()
	sp := savepoint.New(name)
	require.NoError(t, sp.Metainfo.Add("step", metainfo.Int(step)))
	return sp
}

func TestSmallWriteReadRank2(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)

	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	src := make([]byte, 96)
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint64(src[i*8:], math.Float64bits(float64(i)))
	}

	require.NoError(t, e.WriteField("T", spWithStep(t, "t", 1), src, columnMajorStrides()))

	dst := make([]byte, 96)
	require.NoError(t, e.ReadField("T", spWithStep(t, "t", 1), dst, columnMajorStrides(), false))
	assert.Equal(t, src, dst)

	info, err := os.Stat(dir + "/test_T.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(96), info.Size())
}

func TestStridePermutationEquivalence(t *testing.T) {
	dir1 := t.TempDir()
	e1 := openEngine(t, dir1, Write)
	_, err := e1.RegisterField("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	colSrc := make([]byte, 96)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint64(colSrc[i*8+j*32:], math.Float64bits(float64(i+4*j)))
		}
	}
	require.NoError(t, e1.WriteField("T", spWithStep(t, "t", 1), colSrc, columnMajorStrides()))

	dir2 := t.TempDir()
	e2 := openEngine(t, dir2, Write)
	_, err = e2.RegisterField("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	rowSrc := make([]byte, 96)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint64(rowSrc[i*24+j*8:], math.Float64bits(float64(i+4*j)))
		}
	}
	require.NoError(t, e2.WriteField("T", spWithStep(t, "t", 1), rowSrc, rowMajorStrides()))

	data1, err := os.ReadFile(dir1 + "/test_T.dat")
	require.NoError(t, err)
	data2, err := os.ReadFile(dir2 + "/test_T.dat")
	require.NoError(t, err)
	assert.Equal(t, data1, data2)
}

func TestDedupAcrossSavepoints(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)
	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	src := make([]byte, 96)
	require.NoError(t, e.WriteField("T", spWithStep(t, "t", 1), src, columnMajorStrides()))
	require.NoError(t, e.WriteField("T", spWithStep(t, "t", 2), src, columnMajorStrides()))

	info, err := os.Stat(dir + "/test_T.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(96), info.Size())

	sp2 := spWithStep(t, "t", 2)
	assert.Equal(t, []string{"T"}, e.FieldsAt(sp2))
}

func TestAlsoPreviousFallback(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)
	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)
	_, err = e.RegisterField("U", field.Double, 8, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	a := savepoint.New("A")
	b := savepoint.New("B")

	src := doublesLE(42)
	require.NoError(t, e.WriteField("T", a, src, Strides{}))
	require.NoError(t, e.WriteField("U", a, src, Strides{}))
	require.NoError(t, e.WriteField("T", b, src, Strides{}))

	dst := make([]byte, 8)
	require.NoError(t, e.ReadField("U", b, dst, Strides{}, true))
	assert.Equal(t, src, dst)

	err = e.ReadField("U", b, dst, Strides{}, false)
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.FieldNotAtSavepoint))
}

func TestSchemaConflictLeavesOriginalUnchanged(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)

	_, err := e.RegisterField("rho", field.Float, 4, field.Sizes{I: 10, J: 10, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	_, err = e.RegisterField("rho", field.Double, 8, field.Sizes{I: 10, J: 10, K: 1, L: 1}, field.Halos{})
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.SchemaConflict))

	d, err := e.FindField("rho")
	require.NoError(t, err)
	assert.Equal(t, field.Float, d.Type)

	assert.NoFileExists(t, dir+"/test_rho.dat")
}

func TestReopenInReadMode(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)
	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 4, J: 3, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	src := make([]byte, 96)
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint64(src[i*8:], math.Float64bits(float64(i)))
	}
	sp := spWithStep(t, "t", 1)
	require.NoError(t, e.WriteField("T", sp, src, columnMajorStrides()))
	require.NoError(t, e.Close())

	e2 := openEngine(t, dir, Read)
	assert.Equal(t, []string{"T"}, e2.Fields())
	require.Len(t, e2.Savepoints(), 1)
	assert.True(t, e2.Savepoints()[0].Equal(sp))

	dst := make([]byte, 96)
	require.NoError(t, e2.ReadField("T", sp, dst, columnMajorStrides(), false))
	assert.Equal(t, src, dst)
}

func TestDuplicateFieldAtSavepointRejected(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)
	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	sp := savepoint.New("t")
	src := doublesLE(1)
	require.NoError(t, e.WriteField("T", sp, src, Strides{}))

	err = e.WriteField("T", sp, src, Strides{})
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.DuplicateFieldAtSavepoint))
}

func TestClosedEngineRejectsOperations(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)
	require.NoError(t, e.Close())

	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})
	require.ErrorIs(t, err, ErrEngineClosed)

	err = e.Close()
	require.ErrorIs(t, err, ErrEngineClosed)
}

func TestNewWriteModeTerminatesOnMalformedIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/test.json", []byte("not json"), 0o644))

	assert.Panics(t, func() {
		_, _ = New(context.Background(), Config{Directory: dir, Prefix: "test", Mode: Write, Logger: panicOnFatalLogger()})
	})
}

func TestDisabledSerializationNoops(t *testing.T) {
	dir := t.TempDir()
	e := openEngine(t, dir, Write)
	_, err := e.RegisterField("T", field.Double, 8, field.Sizes{I: 1, J: 1, K: 1, L: 1}, field.Halos{})
	require.NoError(t, err)

	Disable()
	defer Enable()

	require.NoError(t, e.WriteField("T", savepoint.New("t"), doublesLE(1), Strides{}))
	assert.Empty(t, e.Savepoints())
}
