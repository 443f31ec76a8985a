package metainfo

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/gridfield/serialbox/pkg/errors"
)

// Set is an ordered collection of named scalar values, attached to
// both field descriptors and savepoints. It plays the role of the
// reference implementation's MetainfoSet, backed there by a
// std::map<std::string, boost::any>; here by a plain Go map plus a
// sorted key view, since Go maps don't preserve insertion or sort
// order on iteration.
type Set struct {
	data map[string]Value
}

// NewSet returns an empty metainfo set.
func NewSet() *Set {
	return &Set{data: make(map[string]Value)}
}

// Add inserts a new key/value pair. It is an error to add a key that
// already exists; use a fresh Set or delete semantics are not exposed,
// mirroring the reference AddMetainfo's "each key set once" contract.
func (s *Set) Add(key string, value Value) error {
	if _, exists := s.data[key]; exists {
		return errors.New(errors.DuplicateKey, "metainfo key already present").WithDetail("key", key)
	}
	s.data[key] = value
	return nil
}

// Has reports whether key is present.
func (s *Set) Has(key string) bool {
	_, ok := s.data[key]
	return ok
}

// Extract returns the raw Value stored under key.
func (s *Set) Extract(key string) (Value, error) {
	v, ok := s.data[key]
	if !ok {
		return Value{}, errors.New(errors.MissingKey, "metainfo key not found").WithDetail("key", key)
	}
	return v, nil
}

// AsBool extracts key and coerces it to bool.
func (s *Set) AsBool(key string) (bool, error) {
	v, err := s.Extract(key)
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

// AsInt extracts key and coerces it to int32.
func (s *Set) AsInt(key string) (int32, error) {
	v, err := s.Extract(key)
	if err != nil {
		return 0, err
	}
	return v.AsInt()
}

// AsFloat extracts key and coerces it to float32.
func (s *Set) AsFloat(key string) (float32, error) {
	v, err := s.Extract(key)
	if err != nil {
		return 0, err
	}
	return v.AsFloat()
}

// AsDouble extracts key and coerces it to float64.
func (s *Set) AsDouble(key string) (float64, error) {
	v, err := s.Extract(key)
	if err != nil {
		return 0, err
	}
	return v.AsDouble()
}

// AsString extracts key and renders its canonical string form.
func (s *Set) AsString(key string) (string, error) {
	v, err := s.Extract(key)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// Size returns the number of entries in the set.
func (s *Set) Size() int { return len(s.data) }

// Reset clears every entry, used when the driver cleans its tables
// after removing the index and data files.
func (s *Set) Reset() {
	clear(s.data)
}

// Keys returns the set's keys in natural sorted order, matching the
// iteration order a std::map<std::string, ...> gives the reference
// implementation.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Types returns, for each key in Keys() order, the type code
// (Value.TypeCode) of its value.
func (s *Set) Types() []int {
	keys := s.Keys()
	types := make([]int, len(keys))
	for i, k := range keys {
		types[i] = s.data[k].TypeCode()
	}
	return types
}

// ToString renders the canonical "[ key=value key=value ]" form used
// in error messages and savepoint/field text representations.
func (s *Set) ToString() string {
	keys := s.Keys()
	var b strings.Builder
	b.WriteString("[ ")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.data[k].String())
		b.WriteByte(' ')
	}
	b.WriteString("]")
	return b.String()
}

// Equal reports whether two sets have identical key sets and, for
// every key, Equal values. Size is compared first as a fast rejection,
// the same short-circuit the reference operator== performs.
func (s *Set) Equal(other *Set) bool {
	if s.Size() != other.Size() {
		return false
	}
	for k, v := range s.data {
		ov, ok := other.data[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Compare gives the total order used by Savepoint comparison: sets
// compare first by size, then by the first differing key and, if the
// keys tie, its value.
func (s *Set) Compare(other *Set) int {
	if s.Size() != other.Size() {
		if s.Size() < other.Size() {
			return -1
		}
		return 1
	}

	keys := s.Keys()
	otherKeys := other.Keys()
	for i := range keys {
		if keys[i] != otherKeys[i] {
			return strings.Compare(keys[i], otherKeys[i])
		}
		if c := s.data[keys[i]].Compare(other.data[otherKeys[i]]); c != 0 {
			return c
		}
	}
	return 0
}

// jsonNode is the wire shape of a single metainfo entry: a JSON object
// with one member named by the key, whose value is either the scalar
// itself or (reserved for future container types) left as raw JSON.
type jsonNode map[string]json.RawMessage

// MarshalJSON renders the set as an array of single-key objects, one
// per entry in Keys() order, matching GenerateNodes() in the reference
// implementation.
func (s *Set) MarshalJSON() ([]byte, error) {
	keys := s.Keys()
	nodes := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, map[string]any{k: rawValue(s.data[k])})
	}
	return json.Marshal(nodes)
}

func rawValue(v Value) any {
	switch v.Kind() {
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindInt:
		i, _ := v.AsInt()
		return i
	case KindFloat:
		f, _ := v.AsFloat()
		return f
	case KindDouble:
		d, _ := v.AsDouble()
		return d
	default:
		return v.AsString()
	}
}

// AddNode decodes one JSON value under the given key and inserts it,
// choosing the narrowest numeric Kind that represents it exactly: a
// JSON number with no fractional part becomes an int, otherwise a
// double, matching AddNode's JSON_NUMBER handling in the reference
// MetainfoSet.
func (s *Set) AddNode(key string, raw json.RawMessage) error {
	var asBool bool
	if err := json.Unmarshal(raw, &asBool); err == nil {
		return s.Add(key, Bool(asBool))
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		if asFloat == float64(int32(asFloat)) {
			return s.Add(key, Int(int32(asFloat)))
		}
		return s.Add(key, Double(asFloat))
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return s.Add(key, String(asString))
	}

	return errors.New(errors.ParseError, "unsupported metainfo JSON node").WithDetail("key", key)
}

// UnmarshalJSON parses the array-of-single-key-objects wire form
// produced by MarshalJSON.
func (s *Set) UnmarshalJSON(data []byte) error {
	var nodes []jsonNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}

	s.data = make(map[string]Value, len(nodes))
	for _, node := range nodes {
		for k, raw := range node {
			if err := s.AddNode(k, raw); err != nil {
				return err
			}
		}
	}
	return nil
}
