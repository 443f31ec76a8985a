// Package format implements the file format driver: it persists and
// restores the global metainfo, registry and offset table as a single
// JSON index file, and opens per-field binary data files for append
// and positioned read. It mirrors CentralizedFileFormat in the
// reference serializer, adapted onto the teacher package's
// directory/segment-file handling idiom (internal/storage).
package format

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/gridfield/serialbox/internal/metainfo"
	"github.com/gridfield/serialbox/internal/offsettable"
	"github.com/gridfield/serialbox/internal/registry"
	"github.com/gridfield/serialbox/pkg/errors"
	"github.com/gridfield/serialbox/pkg/filesys"
)

// Name is the sole driver implementation required by the spec.
const Name = "centralized"

// Config configures a Driver.
type Config struct {
	Directory string
	Prefix    string
	Logger    *zap.SugaredLogger
}

// Driver is the "centralized" file format: one JSON index file named
// {prefix}.json plus one binary data file per field, {prefix}_{field}.dat.
type Driver struct {
	directory string
	prefix    string
	log       *zap.SugaredLogger
}

// New builds a driver. The directory is normalized to carry exactly
// one trailing path separator, matching the spec's requirement on the
// configured path, and is created (with any missing parents) if it
// does not already exist.
func New(config Config) (*Driver, error) {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	directory := normalizeDir(config.Directory)
	if err := filesys.CreateDir(directory, 0o755, true); err != nil {
		return nil, errors.ClassifyIOError(err, "init", directory)
	}

	return &Driver{
		directory: directory,
		prefix:    config.Prefix,
		log:       log,
	}, nil
}

// Name returns the driver's format name.
func (d *Driver) Name() string { return Name }

func normalizeDir(dir string) string {
	clean := filepath.Clean(dir)
	return clean + string(filepath.Separator)
}

func (d *Driver) indexPath() string {
	return d.directory + d.prefix + ".json"
}

func (d *Driver) dataPath(field string) string {
	return d.directory + d.prefix + "_" + field + ".dat"
}

func (d *Driver) legacyDataPath() string {
	return d.directory + d.prefix + ".dat"
}

// wireIndex is the top-level shape of the index file: three siblings,
// GlobalMetainfo, FieldsTable, OffsetTable.
type wireIndex struct {
	GlobalMetainfo *metainfo.Set        `json:"GlobalMetainfo"`
	FieldsTable    *registry.Registry   `json:"FieldsTable"`
	OffsetTable    *offsettable.Table   `json:"OffsetTable"`
}

// ImportTables reads and parses the index file into reg, offsets and
// global. A missing or empty file yields empty tables and is not an
// error. A parse failure is fatal: it returns a MalformedIndex error
// that the engine must treat as unrecoverable.
func (d *Driver) ImportTables(reg *registry.Registry, offsets *offsettable.Table, global *metainfo.Set) error {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.ClassifyIOError(err, "import_tables", d.indexPath())
	}
	if len(data) == 0 {
		return nil
	}

	wire := wireIndex{GlobalMetainfo: global, FieldsTable: reg, OffsetTable: offsets}
	if err := json.Unmarshal(data, &wire); err != nil {
		d.log.Errorw("index file is malformed, cannot continue", "path", d.indexPath(), "error", err)
		return errors.Wrap(err, errors.MalformedIndex, "index file could not be parsed").WithDetail("path", d.indexPath())
	}

	d.log.Infow("index imported", "path", d.indexPath(), "fields", len(reg.Names()), "savepoints", offsets.Size())
	return nil
}

// WriteTables rewrites the index file in full from reg, offsets and
// global. Both tables are always written completely; there is no
// incremental update.
func (d *Driver) WriteTables(reg *registry.Registry, offsets *offsettable.Table, global *metainfo.Set) error {
	wire := wireIndex{GlobalMetainfo: global, FieldsTable: reg, OffsetTable: offsets}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ParseError, "failed to encode index")
	}

	if err := os.WriteFile(d.indexPath(), data, 0o644); err != nil {
		return errors.ClassifyIOError(err, "write_tables", d.indexPath())
	}
	return nil
}

// CleanTables discovers the field list by importing whatever index
// already exists, removes every associated data file plus the legacy
// {prefix}.dat and the index file itself, then clears the in-memory
// tables passed in.
func (d *Driver) CleanTables(reg *registry.Registry, offsets *offsettable.Table, global *metainfo.Set) error {
	if err := d.ImportTables(reg, offsets, global); err != nil {
		return err
	}

	for _, name := range reg.Names() {
		if err := removeIfExists(d.dataPath(name)); err != nil {
			return errors.ClassifyIOError(err, "clean_tables", d.dataPath(name))
		}
	}
	if err := removeIfExists(d.legacyDataPath()); err != nil {
		return errors.ClassifyIOError(err, "clean_tables", d.legacyDataPath())
	}
	if err := removeIfExists(d.indexPath()); err != nil {
		return errors.ClassifyIOError(err, "clean_tables", d.indexPath())
	}

	reg.Reset()
	offsets.Reset()
	global.Reset()

	d.log.Infow("tables cleaned", "directory", d.directory, "prefix", d.prefix)
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OpenAppend opens the field's data file in append mode, creating it
// if absent, and returns the current end-of-file position (the offset
// the next Write will occupy).
func (d *Driver) OpenAppend(field string) (*os.File, uint64, error) {
	path := d.dataPath(field)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, 0, errors.ClassifyIOError(err, "open_append", path)
	}

	offset, err := f.Seek(0, os.SEEK_END)
	if err != nil {
		f.Close()
		return nil, 0, errors.ClassifyIOError(err, "open_append", path)
	}
	return f, uint64(offset), nil
}

// OpenRead resolves field's offset at the savepoint with the given id
// via offsets, failing with FieldNotAtSavepoint if the lookup returns
// nothing, then reads exactly size bytes starting there.
func (d *Driver) OpenRead(offsets *offsettable.Table, savepointID int, field string, size int) ([]byte, error) {
	rec, ok, err := offsets.Offset(savepointID, field)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.FieldNotAtSavepoint, "field was not serialized at this savepoint").WithField(field)
	}

	path := d.dataPath(field)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyIOError(err, "open_read", path)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(rec.Offset)); err != nil {
		return nil, errors.ClassifyIOError(err, "open_read", path)
	}
	return buf, nil
}
