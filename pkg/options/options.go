// Package options configures how a serialbox Engine is opened: the
// storage directory, the file prefix, and the read/write/append mode.
// It keeps the teacher package's functional-options shape (OptionFunc
// over a mutable Options struct) adapted onto this engine's three
// configuration knobs instead of segment/compaction tuning.
package options

import (
	"strings"

	"github.com/gridfield/serialbox/internal/engine"
)

// Options holds the configuration needed to open an Engine.
type Options struct {
	// Directory is the base path the centralized format driver reads
	// and writes the index file and per-field data files under.
	Directory string

	// Prefix names the index file ({Prefix}.json) and, combined with
	// each field name, its data file ({Prefix}_{field}.dat).
	Prefix string

	// Mode selects Read, Write or Append.
	Mode engine.Mode
}

// OptionFunc mutates an Options in place.
type OptionFunc func(*Options)

// WithDefaultOptions applies the package defaults.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		defaults := NewDefaultOptions()
		o.Directory = defaults.Directory
		o.Prefix = defaults.Prefix
		o.Mode = defaults.Mode
	}
}

// WithDirectory sets the storage directory. A blank value is ignored.
func WithDirectory(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.Directory = directory
		}
	}
}

// WithPrefix sets the file prefix. A blank value is ignored.
func WithPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.Prefix = prefix
		}
	}
}

// WithMode sets the engine's open mode.
func WithMode(mode engine.Mode) OptionFunc {
	return func(o *Options) {
		o.Mode = mode
	}
}
