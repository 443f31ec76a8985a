// Package savepoint implements the named checkpoint record that keys
// the offset table: a name plus a metainfo set, totally ordered so it
// can serve as a map key surrogate.
package savepoint

import (
	json "github.com/goccy/go-json"

	"github.com/gridfield/serialbox/internal/metainfo"
	"github.com/gridfield/serialbox/pkg/errors"
)

// Savepoint is a named record plus a metainfo set, mirroring the
// reference Savepoint class.
type Savepoint struct {
	Name     string
	Metainfo *metainfo.Set
}

// New creates a savepoint with an empty metainfo set.
func New(name string) *Savepoint {
	return &Savepoint{Name: name, Metainfo: metainfo.NewSet()}
}

// Equal reports whether two savepoints share both name and metainfo.
func (s *Savepoint) Equal(other *Savepoint) bool {
	return s.Name == other.Name && s.Metainfo.Equal(other.Metainfo)
}

// Compare gives the total order used to key the savepoint→id index:
// name first, then metainfo set ordering. It carries no semantic
// meaning beyond being stable.
func (s *Savepoint) Compare(other *Savepoint) int {
	if s.Name != other.Name {
		if s.Name < other.Name {
			return -1
		}
		return 1
	}
	return s.Metainfo.Compare(other.Metainfo)
}

// ToString renders "name[ meta... ]", the debug form used in error
// messages (spec §7's "names... the savepoint").
func (s *Savepoint) ToString() string {
	return s.Name + s.Metainfo.ToString()
}

// ToJSON renders the savepoint's wire form: __name, an optional __id,
// then the metainfo entries flattened in.
func (s *Savepoint) ToJSON(id int) ([]byte, error) {
	flat := map[string]json.RawMessage{}

	nameRaw, err := json.Marshal(s.Name)
	if err != nil {
		return nil, err
	}
	flat["__name"] = nameRaw

	if id >= 0 {
		idRaw, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		flat["__id"] = idRaw
	}

	metaRaw, err := json.Marshal(s.Metainfo)
	if err != nil {
		return nil, err
	}
	var metaNodes []map[string]json.RawMessage
	if err := json.Unmarshal(metaRaw, &metaNodes); err != nil {
		return nil, err
	}
	for _, node := range metaNodes {
		for k, v := range node {
			flat[k] = v
		}
	}

	return json.Marshal(flat)
}

// FromJSON parses a savepoint's wire form. A node lacking __name is
// rejected; every other key not starting with the two-underscore
// reserved prefix becomes a metainfo entry. Keys reserved for other
// structural uses within the same object (e.g. __offsets, attached by
// the offset table) are skipped here, not folded into metainfo.
func FromJSON(raw []byte) (*Savepoint, error) {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, errors.Wrap(err, errors.ParseError, "malformed savepoint JSON")
	}

	nameRaw, ok := flat["__name"]
	if !ok {
		return nil, errors.New(errors.ParseError, "savepoint JSON missing __name")
	}

	sp := New("")
	if err := json.Unmarshal(nameRaw, &sp.Name); err != nil {
		return nil, errors.Wrap(err, errors.ParseError, "savepoint __name is not a string")
	}

	for key, raw := range flat {
		if key == "__name" || isReservedKey(key) {
			continue
		}
		if err := sp.Metainfo.AddNode(key, raw); err != nil {
			return nil, err
		}
	}

	return sp, nil
}

func isReservedKey(key string) bool {
	return len(key) >= 2 && key[0] == '_' && key[1] == '_'
}
