// Package registry implements the field registry: the schema of known
// fields and their shapes, keyed by name, rejecting re-registration
// with a conflicting shape. It mirrors FieldsTable in the reference
// serializer and borrows the logger-carrying Config shape of the
// teacher package's internal/index.
package registry

import (
	"sort"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/gridfield/serialbox/internal/field"
	"github.com/gridfield/serialbox/pkg/errors"
)

// Config configures a Registry.
type Config struct {
	Logger *zap.SugaredLogger
}

// Registry holds descriptors by name; wire output and Names() list
// them in sorted name order.
type Registry struct {
	log  *zap.SugaredLogger
	data map[string]*field.Descriptor
}

// New creates an empty registry. A nil Logger falls back to a no-op
// logger, so callers that don't care about observability can omit it.
func New(config Config) *Registry {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{log: log, data: make(map[string]*field.Descriptor)}
}

// Register inserts descriptor under its name. It fails with
// AlreadyRegistered if the name is already present; the engine is
// responsible for deciding whether that is a hard failure or an
// idempotent no-op (spec §4.I: sameness of shape decides that, which
// the engine checks before calling Register).
func (r *Registry) Register(d *field.Descriptor) error {
	if _, exists := r.data[d.Name]; exists {
		return errors.New(errors.AlreadyRegistered, "field already registered").WithField(d.Name)
	}
	r.data[d.Name] = d
	r.log.Infow("field registered", "field", d.Name, "rank", d.Rank)
	return nil
}

// Find looks up a descriptor by name, failing with UnknownField if
// absent.
func (r *Registry) Find(name string) (*field.Descriptor, error) {
	d, ok := r.data[name]
	if !ok {
		return nil, errors.New(errors.UnknownField, "field is not registered").WithField(name)
	}
	return d, nil
}

// Names returns every registered field name in natural sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.data))
	for name := range r.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears every registered descriptor, used before reloading from
// a persisted index.
func (r *Registry) Reset() {
	clear(r.data)
}

// MarshalJSON renders the registry as an array of field-descriptor
// wire views, assigned sequential ids in name order, matching
// FieldsTable::TableToJSON.
func (r *Registry) MarshalJSON() ([]byte, error) {
	names := r.Names()
	nodes := make([]json.RawMessage, 0, len(names))
	for i, name := range names {
		raw, err := r.data[name].ToJSON(i)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, raw)
	}
	return json.Marshal(nodes)
}

// UnmarshalJSON clears the registry and reloads every descriptor from
// the array wire form, matching FieldsTable::TableFromJSON.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var nodes []json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return errors.Wrap(err, errors.ParseError, "malformed fields table JSON")
	}

	r.Reset()
	for _, raw := range nodes {
		d, err := field.FromJSON(raw)
		if err != nil {
			return err
		}
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
