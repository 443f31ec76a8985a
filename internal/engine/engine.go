// Package engine implements the coordinator: the public-facing state
// machine that orchestrates the field registry, the offset table, the
// transcoder and the file format driver into register/write/read
// operations. It mirrors Serializer in the reference implementation,
// following the teacher package's subsystem-orchestration shape
// (internal/engine in the reference ignite package) and its
// Config-struct, atomic-closed-flag construction idiom.
package engine

import (
	"context"
	stdErrors "errors"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gridfield/serialbox/internal/field"
	"github.com/gridfield/serialbox/internal/format"
	"github.com/gridfield/serialbox/internal/metainfo"
	"github.com/gridfield/serialbox/internal/offsettable"
	"github.com/gridfield/serialbox/internal/registry"
	"github.com/gridfield/serialbox/internal/savepoint"
	"github.com/gridfield/serialbox/internal/transcoder"
	"github.com/gridfield/serialbox/pkg/errors"
)

// ErrEngineClosed is returned when attempting to perform operations on
// a closed engine.
var ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")

// Mode selects how an Engine may be used.
type Mode int

const (
	Read Mode = iota
	Write
	Append
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	case Append:
		return "append"
	default:
		return "unknown"
	}
}

// formatKey is the global metainfo key the engine reserves to record
// the format name.
const formatKey = "__format"

// Strides packages the per-dimension byte strides a caller's buffer
// uses, in i/j/k/l order.
type Strides struct {
	I, J, K, L int
}

// --- process-global enable flag -------------------------------------------------

type enableState int32

const (
	stateUninitialized enableState = iota
	stateEnabled
	stateDisabled
)

var (
	globalEnable     atomic.Int32
	globalEnableOnce sync.Once
)

// ensureGlobalEnableInitialized performs the spec's "first init reads
// STELLA_SERIALIZATION_DISABLED" behavior exactly once per process.
func ensureGlobalEnableInitialized() {
	globalEnableOnce.Do(func() {
		disabled := false
		if v := os.Getenv("STELLA_SERIALIZATION_DISABLED"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				disabled = true
			}
		}
		if disabled {
			globalEnable.CompareAndSwap(int32(stateUninitialized), int32(stateDisabled))
		} else {
			globalEnable.CompareAndSwap(int32(stateUninitialized), int32(stateEnabled))
		}
	})
}

// Enable forces serialization on, process-wide, overriding whatever
// the environment variable set.
func Enable() { globalEnable.Store(int32(stateEnabled)) }

// Disable forces serialization off, process-wide.
func Disable() { globalEnable.Store(int32(stateDisabled)) }

func isGloballyEnabled() bool {
	return enableState(globalEnable.Load()) != stateDisabled
}

// --- Engine ----------------------------------------------------------------

// Config holds the parameters needed to open an Engine.
type Config struct {
	Directory string
	Prefix    string
	Mode      Mode
	Logger    *zap.SugaredLogger
}

// Engine is the public-facing coordinator. One Engine is bound to one
// (directory, prefix) pair for its lifetime; there is no reopen
// transition once Closed.
type Engine struct {
	log      *zap.SugaredLogger
	mode     Mode
	closed   atomic.Bool
	driver   *format.Driver
	registry *registry.Registry
	offsets  *offsettable.Table
	global   *metainfo.Set
}

// New opens an Engine. Write mode cleans any existing tables on disk
// before seeding the format marker; Read and Append import the
// existing index, seeding the format marker only if it is missing. A
// malformed existing index is fatal and terminates the process, per
// spec: continuing past a corrupted index risks silent data loss.
func New(ctx context.Context, config Config) (*Engine, error) {
	ensureGlobalEnableInitialized()

	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if config.Mode != Read && config.Mode != Write && config.Mode != Append {
		return nil, errors.New(errors.WrongMode, "unrecognized engine mode").WithOperation("init")
	}

	driver, err := format.New(format.Config{Directory: config.Directory, Prefix: config.Prefix, Logger: log})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:      log,
		mode:     config.Mode,
		driver:   driver,
		registry: registry.New(registry.Config{Logger: log}),
		offsets:  offsettable.New(offsettable.Config{Logger: log}),
		global:   metainfo.NewSet(),
	}

	switch config.Mode {
	case Write:
		if err := e.driver.CleanTables(e.registry, e.offsets, e.global); err != nil {
			if k, ok := errors.KindOf(err); ok && k.Fatal() {
				log.Fatalw("index is corrupted, terminating", "directory", config.Directory, "prefix", config.Prefix, "error", err)
			}
			return nil, err
		}
		if err := e.seedFormat(); err != nil {
			return nil, err
		}
	case Read, Append:
		if err := e.driver.ImportTables(e.registry, e.offsets, e.global); err != nil {
			if k, ok := errors.KindOf(err); ok && k.Fatal() {
				log.Fatalw("index is corrupted, terminating", "directory", config.Directory, "prefix", config.Prefix, "error", err)
			}
			return nil, err
		}
		if err := e.seedFormat(); err != nil {
			return nil, err
		}
	}

	log.Infow("engine opened", "directory", config.Directory, "prefix", config.Prefix, "mode", config.Mode.String())
	return e, nil
}

func (e *Engine) seedFormat() error {
	if e.global.Has(formatKey) {
		return nil
	}
	return e.global.Add(formatKey, metainfo.String(format.Name))
}

// Close marks the engine unusable. There is nothing to flush: every
// write already persisted the index before returning.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}
	e.log.Infow("engine closed")
	return nil
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

// RegisterField validates and registers a field's shape. It returns
// true if this call performed a fresh registration, false if the field
// was already registered with an identical shape (an idempotent
// no-op). A size below 1 is rejected as a schema conflict: every valid
// shape requires positive sizes, so a non-positive size can never
// match an existing or future registration.
func (e *Engine) RegisterField(name string, elemType field.ElementType, bytesPerElement int, sizes field.Sizes, halos field.Halos) (bool, error) {
	if err := e.checkOpen(); err != nil {
		return false, err
	}

	for _, s := range []int{sizes.I, sizes.J, sizes.K, sizes.L} {
		if s < 1 {
			return false, errors.New(errors.SchemaConflict, "field dimension sizes must be >= 1").WithField(name)
		}
	}

	d := field.New(name, elemType, bytesPerElement, sizes, halos)

	existing, err := e.registry.Find(name)
	if err == nil {
		if !existing.SameShape(d) {
			return false, errors.New(errors.SchemaConflict, "field re-registered with a different shape").WithField(name)
		}
		return false, nil
	}

	if err := e.registry.Register(d); err != nil {
		return false, err
	}
	return true, nil
}

// FindField resolves a field's descriptor by name.
func (e *Engine) FindField(name string) (*field.Descriptor, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.Find(name)
}

// Fields returns every registered field name in natural order.
func (e *Engine) Fields() []string {
	return e.registry.Names()
}

// Savepoints returns the savepoint sequence in id order.
func (e *Engine) Savepoints() []*savepoint.Savepoint {
	return e.offsets.Savepoints()
}

// FieldsAt returns the field names recorded at sp.
func (e *Engine) FieldsAt(sp *savepoint.Savepoint) []string {
	return e.offsets.FieldsAt(sp)
}

// AddGlobalMeta adds a key to the engine-wide metainfo set.
func (e *Engine) AddGlobalMeta(key string, value metainfo.Value) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.global.Add(key, value)
}

// AddFieldMeta adds a key to a specific field's metainfo set.
func (e *Engine) AddFieldMeta(fieldName, key string, value metainfo.Value) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	d, err := e.registry.Find(fieldName)
	if err != nil {
		return err
	}
	return d.Metainfo.Add(key, value)
}

// WriteField serializes src (laid out per strides) under fieldName at
// sp, deduplicating by content checksum against every prior record for
// this field.
func (e *Engine) WriteField(fieldName string, sp *savepoint.Savepoint, src []byte, strides Strides) error {
	if !isGloballyEnabled() {
		return nil
	}
	if err := e.checkOpen(); err != nil {
		return err
	}
	if e.mode != Write && e.mode != Append {
		return errors.New(errors.WrongMode, "engine is not open for writing").WithOperation("write_field").WithField(fieldName)
	}

	d, err := e.registry.Find(fieldName)
	if err != nil {
		return err
	}

	sid := e.offsets.SavepointID(sp)
	if sid < 0 {
		sid, err = e.offsets.AddSavepoint(sp, -1)
		if err != nil {
			return err
		}
	}

	if _, ok, err := e.offsets.Offset(sid, fieldName); err != nil {
		return err
	} else if ok {
		return errors.New(errors.DuplicateFieldAtSavepoint, "field already has a record at this savepoint").
			WithField(fieldName).WithSavepoint(sp.ToString())
	}

	shape := transcoder.Shape{
		BytesPerElement: d.BytesPerElement,
		I:               d.Sizes.I, J: d.Sizes.J, K: d.Sizes.K, L: d.Sizes.L,
		Si: strides.I, Sj: strides.J, Sk: strides.K, Sl: strides.L,
	}
	linear, checksum, err := transcoder.Write(src, shape)
	if err != nil {
		return err
	}

	offset, found := e.offsets.AlreadySerialized(fieldName, checksum)
	if !found {
		f, endOffset, err := e.driver.OpenAppend(fieldName)
		if err != nil {
			return err
		}
		_, writeErr := f.Write(linear)
		closeErr := f.Close()
		if writeErr != nil {
			return errors.ClassifyIOError(writeErr, "write_field", fieldName)
		}
		if closeErr != nil {
			return errors.ClassifyIOError(closeErr, "write_field", fieldName)
		}
		offset = endOffset
	}

	if err := e.offsets.AddRecord(sid, fieldName, offsettable.Record{Offset: offset, Checksum: checksum}); err != nil {
		return err
	}

	return e.driver.WriteTables(e.registry, e.offsets, e.global)
}

// ReadField scatters the data recorded for fieldName at sp into dest,
// laid out per strides. If alsoPrevious is set and the field has no
// record at sp, earlier savepoints are tried in reverse id order.
func (e *Engine) ReadField(fieldName string, sp *savepoint.Savepoint, dest []byte, strides Strides, alsoPrevious bool) error {
	if !isGloballyEnabled() {
		return nil
	}
	if err := e.checkOpen(); err != nil {
		return err
	}

	d, err := e.registry.Find(fieldName)
	if err != nil {
		return err
	}

	sid := e.offsets.SavepointID(sp)
	if sid < 0 {
		return errors.New(errors.UnknownSavepoint, "savepoint is not known").WithSavepoint(sp.ToString())
	}

	if alsoPrevious {
		for {
			_, ok, err := e.offsets.Offset(sid, fieldName)
			if err != nil {
				return err
			}
			if ok {
				break
			}
			sid--
			if sid < 0 {
				return errors.New(errors.NeverSerialized, "field was never serialized at or before this savepoint").WithField(fieldName)
			}
		}
	}

	buf, err := e.driver.OpenRead(e.offsets, sid, fieldName, d.DataSize())
	if err != nil {
		return err
	}

	shape := transcoder.Shape{
		BytesPerElement: d.BytesPerElement,
		I:               d.Sizes.I, J: d.Sizes.J, K: d.Sizes.K, L: d.Sizes.L,
		Si: strides.I, Sj: strides.J, Sk: strides.K, Sl: strides.L,
	}
	return transcoder.Read(buf, dest, shape)
}
