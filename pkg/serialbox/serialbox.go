// Package serialbox is the public entry point to the scientific-field
// serialization engine: a thin, typed wrapper over internal/engine that
// mirrors the reference ignite package's pkg/ignite.Instance shape
// (a functional-options constructor plus pass-through methods) while
// exposing the programmatic surface spec.md §6 enumerates.
package serialbox

import (
	"context"

	"github.com/gridfield/serialbox/internal/engine"
	"github.com/gridfield/serialbox/internal/field"
	"github.com/gridfield/serialbox/internal/metainfo"
	"github.com/gridfield/serialbox/internal/savepoint"
	"github.com/gridfield/serialbox/pkg/logger"
	"github.com/gridfield/serialbox/pkg/options"
)

// Re-exported so callers never need to import internal packages.
type (
	Mode        = engine.Mode
	ElementType = field.ElementType
	Sizes       = field.Sizes
	Halos       = field.Halos
	Strides     = engine.Strides
	Descriptor  = field.Descriptor
	Savepoint   = savepoint.Savepoint
	Value       = metainfo.Value
)

const (
	Read   = engine.Read
	Write  = engine.Write
	Append = engine.Append

	Int    = field.Int
	Float  = field.Float
	Double = field.Double
)

// Metainfo value constructors, re-exported for convenience.
var (
	Bool        = metainfo.Bool
	IntValue    = metainfo.Int
	FloatValue  = metainfo.Float
	DoubleValue = metainfo.Double
	String      = metainfo.String
)

// NewSavepoint builds a savepoint with an empty metainfo set.
func NewSavepoint(name string) *Savepoint { return savepoint.New(name) }

// Instance is the serialization engine, opened against one
// (directory, prefix) pair for one of Read, Write or Append.
type Instance struct {
	engine *engine.Engine
}

// Open builds and opens an Instance, applying opts over the package
// defaults exactly the way the reference ignite package's NewInstance
// layers functional options over WithDefaultOptions.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log, err := logger.New(service)
	if err != nil {
		return nil, err
	}

	cfg := options.Options{}
	options.WithDefaultOptions()(&cfg)
	for _, opt := range opts {
		opt(&cfg)
	}

	eng, err := engine.New(ctx, engine.Config{
		Directory: cfg.Directory,
		Prefix:    cfg.Prefix,
		Mode:      cfg.Mode,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng}, nil
}

// RegisterField registers name's shape, returning true if this call
// performed a fresh registration.
func (i *Instance) RegisterField(name string, elemType ElementType, bytesPerElement int, sizes Sizes, halos Halos) (bool, error) {
	return i.engine.RegisterField(name, elemType, bytesPerElement, sizes, halos)
}

// FindField resolves a field's descriptor by name.
func (i *Instance) FindField(name string) (*Descriptor, error) {
	return i.engine.FindField(name)
}

// Fields returns every registered field name.
func (i *Instance) Fields() []string { return i.engine.Fields() }

// Savepoints returns the savepoint sequence in id order.
func (i *Instance) Savepoints() []*Savepoint { return i.engine.Savepoints() }

// FieldsAt returns the field names recorded at sp.
func (i *Instance) FieldsAt(sp *Savepoint) []string { return i.engine.FieldsAt(sp) }

// AddGlobalMeta adds a key to the engine-wide metainfo set.
func (i *Instance) AddGlobalMeta(key string, value Value) error {
	return i.engine.AddGlobalMeta(key, value)
}

// AddFieldMeta adds a key to a specific field's metainfo set.
func (i *Instance) AddFieldMeta(fieldName, key string, value Value) error {
	return i.engine.AddFieldMeta(fieldName, key, value)
}

// WriteField serializes src (laid out per strides) under fieldName at sp.
func (i *Instance) WriteField(fieldName string, sp *Savepoint, src []byte, strides Strides) error {
	return i.engine.WriteField(fieldName, sp, src, strides)
}

// ReadField scatters the data recorded for fieldName at sp into dest.
// If alsoPrevious is set and the field has no record at sp, earlier
// savepoints are tried in reverse id order.
func (i *Instance) ReadField(fieldName string, sp *Savepoint, dest []byte, strides Strides, alsoPrevious bool) error {
	return i.engine.ReadField(fieldName, sp, dest, strides, alsoPrevious)
}

// Close marks the instance unusable.
func (i *Instance) Close() error { return i.engine.Close() }

// EnableSerialization forces serialization on, process-wide.
func EnableSerialization() { engine.Enable() }

// DisableSerialization forces serialization off, process-wide.
func DisableSerialization() { engine.Disable() }
