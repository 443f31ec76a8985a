// Package offsettable implements the savepoint-indexed offset table:
// an ordered list of savepoints paired with per-field offset/checksum
// records, the content-dedup probe, and the JSON wire view. It mirrors
// OffsetTable in the reference serializer.
package offsettable

import (
	"sort"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/gridfield/serialbox/internal/savepoint"
	"github.com/gridfield/serialbox/pkg/errors"
)

// Record is a single (offset, checksum) pair for one field at one
// savepoint.
type Record struct {
	Offset   uint64
	Checksum string
}

// Config configures a Table.
type Config struct {
	Logger *zap.SugaredLogger
}

// Table holds the savepoint sequence and, in parallel, each
// savepoint's field→record map. A savepoint's id is its index in
// savepoints, immutable once assigned.
type Table struct {
	log        *zap.SugaredLogger
	savepoints []*savepoint.Savepoint
	entries    []map[string]Record
}

// New creates an empty table.
func New(config Config) *Table {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Table{log: log}
}

// Size returns the number of savepoints in the table.
func (t *Table) Size() int { return len(t.savepoints) }

// Savepoints returns the savepoint sequence in id order.
func (t *Table) Savepoints() []*savepoint.Savepoint { return t.savepoints }

// Reset clears the table.
func (t *Table) Reset() {
	t.savepoints = nil
	t.entries = nil
}

// AddSavepoint appends sp to the table. If requestedID is >= 0, it
// must equal the position the savepoint would be assigned, else
// IdMismatch. A savepoint already present (by Equal) is DuplicateSavepoint.
func (t *Table) AddSavepoint(sp *savepoint.Savepoint, requestedID int) (int, error) {
	if id := t.SavepointID(sp); id >= 0 {
		return 0, errors.New(errors.DuplicateSavepoint, "savepoint already indexed").WithSavepoint(sp.ToString())
	}

	newID := len(t.savepoints)
	if requestedID >= 0 && requestedID != newID {
		return 0, errors.New(errors.IDMismatch, "requested savepoint id does not match assigned position").
			WithSavepoint(sp.ToString()).
			WithDetail("requested", requestedID).
			WithDetail("assigned", newID)
	}

	t.savepoints = append(t.savepoints, sp)
	t.entries = append(t.entries, make(map[string]Record))
	t.log.Infow("savepoint indexed", "savepoint", sp.ToString(), "id", newID)
	return newID, nil
}

// SavepointID returns the id of sp, or -1 if it is not present.
func (t *Table) SavepointID(sp *savepoint.Savepoint) int {
	for i, existing := range t.savepoints {
		if existing.Equal(sp) {
			return i
		}
	}
	return -1
}

// AddRecordBySavepoint sets or overwrites the record for field at sp.
// Fails with UnknownSavepoint if sp isn't indexed.
func (t *Table) AddRecordBySavepoint(sp *savepoint.Savepoint, field string, rec Record) error {
	id := t.SavepointID(sp)
	if id < 0 {
		return errors.New(errors.UnknownSavepoint, "savepoint is not indexed").WithSavepoint(sp.ToString())
	}
	return t.AddRecord(id, field, rec)
}

// AddRecord sets or overwrites the record for field at the savepoint
// with the given id. Fails with UnknownSavepoint if id is out of range.
func (t *Table) AddRecord(id int, field string, rec Record) error {
	if id < 0 || id >= len(t.entries) {
		return errors.New(errors.UnknownSavepoint, "savepoint id out of range").WithField(field)
	}
	t.entries[id][field] = rec
	return nil
}

// OffsetBySavepoint returns the record for field at sp, and whether it
// was found. Fails with UnknownSavepoint if sp isn't indexed at all.
func (t *Table) OffsetBySavepoint(sp *savepoint.Savepoint, field string) (Record, bool, error) {
	id := t.SavepointID(sp)
	if id < 0 {
		return Record{}, false, errors.New(errors.UnknownSavepoint, "savepoint is not indexed").WithSavepoint(sp.ToString())
	}
	return t.Offset(id, field)
}

// Offset returns the record for field at the savepoint with the given
// id, and whether it was found. Fails with UnknownSavepoint if id is
// out of range.
func (t *Table) Offset(id int, field string) (Record, bool, error) {
	if id < 0 || id >= len(t.entries) {
		return Record{}, false, errors.New(errors.UnknownSavepoint, "savepoint id out of range").WithField(field)
	}
	rec, ok := t.entries[id][field]
	return rec, ok, nil
}

// AlreadySerialized scans savepoints in reverse insertion order,
// returning the offset of the first record matching (field, checksum).
// Reverse order favors the most recently written instance as the dedup
// alias target, per spec.
func (t *Table) AlreadySerialized(field, checksum string) (uint64, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		rec, ok := t.entries[i][field]
		if ok && rec.Checksum == checksum {
			return rec.Offset, true
		}
	}
	return 0, false
}

// FieldsAt returns the field names recorded at sp in natural name
// order, or an empty slice if sp is unknown (no error).
func (t *Table) FieldsAt(sp *savepoint.Savepoint) []string {
	id := t.SavepointID(sp)
	if id < 0 {
		return nil
	}
	names := make([]string, 0, len(t.entries[id]))
	for name := range t.entries[id] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// offsetsKey is the child name the writer always emits; Offsets is the
// legacy name some historical index files carry instead, accepted on
// read per spec's documented open question.
const (
	offsetsKey       = "__offsets"
	legacyOffsetsKey = "Offsets"
)

// recordPair is the two-element [offset, checksum] wire form of a
// single field's record.
type recordPair [2]json.RawMessage

// MarshalJSON renders the table as an array; each element is a
// savepoint's JSON view extended with an __offsets child mapping field
// name to [offset, checksum].
func (t *Table) MarshalJSON() ([]byte, error) {
	nodes := make([]json.RawMessage, 0, len(t.savepoints))
	for i, sp := range t.savepoints {
		spRaw, err := sp.ToJSON(i)
		if err != nil {
			return nil, err
		}

		var flat map[string]json.RawMessage
		if err := json.Unmarshal(spRaw, &flat); err != nil {
			return nil, err
		}

		offsets := map[string]recordPair{}
		for field, rec := range t.entries[i] {
			offRaw, err := json.Marshal(rec.Offset)
			if err != nil {
				return nil, err
			}
			sumRaw, err := json.Marshal(rec.Checksum)
			if err != nil {
				return nil, err
			}
			offsets[field] = recordPair{offRaw, sumRaw}
		}
		offsetsRaw, err := json.Marshal(offsets)
		if err != nil {
			return nil, err
		}
		flat[offsetsKey] = offsetsRaw

		merged, err := json.Marshal(flat)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, merged)
	}
	return json.Marshal(nodes)
}

// UnmarshalJSON clears the table and reloads it from the wire form
// produced by MarshalJSON, accepting either __offsets or the legacy
// Offsets child name.
func (t *Table) UnmarshalJSON(data []byte) error {
	var nodes []json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return errors.Wrap(err, errors.ParseError, "malformed offset table JSON")
	}

	t.Reset()
	for _, raw := range nodes {
		var flat map[string]json.RawMessage
		if err := json.Unmarshal(raw, &flat); err != nil {
			return errors.Wrap(err, errors.ParseError, "malformed savepoint entry in offset table")
		}

		// The legacy Offsets child carries no reserved prefix, so it is
		// stripped before the savepoint parser sees the node.
		spRaw := raw
		if _, ok := flat[legacyOffsetsKey]; ok {
			stripped := make(map[string]json.RawMessage, len(flat))
			for k, v := range flat {
				if k != legacyOffsetsKey {
					stripped[k] = v
				}
			}
			var err error
			if spRaw, err = json.Marshal(stripped); err != nil {
				return err
			}
		}

		sp, err := savepoint.FromJSON(spRaw)
		if err != nil {
			return err
		}

		var idVal int = -1
		if idRaw, ok := flat["__id"]; ok {
			if err := json.Unmarshal(idRaw, &idVal); err != nil {
				return errors.Wrap(err, errors.ParseError, "offset table entry __id is not a number")
			}
		}

		id, err := t.AddSavepoint(sp, idVal)
		if err != nil {
			return err
		}

		offsetsRaw, ok := flat[offsetsKey]
		if !ok {
			offsetsRaw, ok = flat[legacyOffsetsKey]
		}
		if !ok {
			continue
		}

		var offsets map[string]recordPair
		if err := json.Unmarshal(offsetsRaw, &offsets); err != nil {
			return errors.Wrap(err, errors.ParseError, "malformed offsets child in offset table")
		}

		for field, pair := range offsets {
			var offset uint64
			if err := json.Unmarshal(pair[0], &offset); err != nil {
				return errors.Wrap(err, errors.ParseError, "offset table record offset is not a number").WithField(field)
			}
			var checksum string
			if err := json.Unmarshal(pair[1], &checksum); err != nil {
				return errors.Wrap(err, errors.ParseError, "offset table record checksum is not a string").WithField(field)
			}
			if err := t.AddRecord(id, field, Record{Offset: offset, Checksum: checksum}); err != nil {
				return err
			}
		}
	}
	return nil
}
