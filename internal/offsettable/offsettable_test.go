package offsettable

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfield/serialbox/internal/savepoint"
	"github.com/gridfield/serialbox/pkg/errors"
)

func TestAddSavepointAssignsSequentialIDs(t *testing.T) {
	tbl := New(Config{})
	id0, err := tbl.AddSavepoint(savepoint.New("a"), -1)
	require.NoError(t, err)
	assert.Equal(t, 0, id0)

	id1, err := tbl.AddSavepoint(savepoint.New("b"), -1)
	require.NoError(t, err)
	assert.Equal(t, 1, id1)
}

func TestAddSavepointRejectsDuplicate(t *testing.T) {
	tbl := New(Config{})
	sp := savepoint.New("a")
	_, err := tbl.AddSavepoint(sp, -1)
	require.NoError(t, err)

	_, err = tbl.AddSavepoint(savepoint.New("a"), -1)
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.DuplicateSavepoint))
}

func TestAddSavepointRejectsIDMismatch(t *testing.T) {
	tbl := New(Config{})
	_, err := tbl.AddSavepoint(savepoint.New("a"), 5)
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.IDMismatch))
}

func TestAddRecordAndOffset(t *testing.T) {
	tbl := New(Config{})
	id, err := tbl.AddSavepoint(savepoint.New("a"), -1)
	require.NoError(t, err)

	require.NoError(t, tbl.AddRecord(id, "T", Record{Offset: 0, Checksum: "ABC"}))

	rec, ok, err := tbl.Offset(id, "T")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), rec.Offset)
}

func TestOffsetUnknownSavepointID(t *testing.T) {
	tbl := New(Config{})
	_, _, err := tbl.Offset(0, "T")
	require.Error(t, err)
	assert.True(t, errors.Has(err, errors.UnknownSavepoint))
}

func TestAlreadySerializedFavorsMostRecent(t *testing.T) {
	tbl := New(Config{})
	id0, err := tbl.AddSavepoint(savepoint.New("a"), -1)
	require.NoError(t, err)
	require.NoError(t, tbl.AddRecord(id0, "T", Record{Offset: 0, Checksum: "Y"}))

	id1, err := tbl.AddSavepoint(savepoint.New("b"), -1)
	require.NoError(t, err)
	require.NoError(t, tbl.AddRecord(id1, "T", Record{Offset: 96, Checksum: "Y"}))

	offset, found := tbl.AlreadySerialized("T", "Y")
	require.True(t, found)
	assert.Equal(t, uint64(96), offset)

	_, found = tbl.AlreadySerialized("T", "Z")
	assert.False(t, found)
}

func TestFieldsAtUnknownSavepointReturnsEmpty(t *testing.T) {
	tbl := New(Config{})
	fields := tbl.FieldsAt(savepoint.New("ghost"))
	assert.Empty(t, fields)
}

func TestTableJSONRoundTrip(t *testing.T) {
	tbl := New(Config{})
	id, err := tbl.AddSavepoint(savepoint.New("t"), -1)
	require.NoError(t, err)
	require.NoError(t, tbl.AddRecord(id, "T", Record{Offset: 0, Checksum: "ABCDEF"}))

	raw, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "__offsets")

	restored := New(Config{})
	require.NoError(t, json.Unmarshal(raw, restored))

	assert.Equal(t, tbl.Size(), restored.Size())
	rec, ok, err := restored.Offset(0, "T")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), rec.Offset)
	assert.Equal(t, "ABCDEF", rec.Checksum)
}

func TestTableJSONAcceptsLegacyOffsetsKey(t *testing.T) {
	raw := []byte(`[{"__name":"t","__id":0,"Offsets":{"T":[0,"ABCDEF"]}}]`)
	restored := New(Config{})
	require.NoError(t, json.Unmarshal(raw, restored))

	rec, ok, err := restored.Offset(0, "T")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), rec.Offset)
}
