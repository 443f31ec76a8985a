package options

import "github.com/gridfield/serialbox/internal/engine"

const (
	// DefaultDirectory is the base path used when no directory is supplied.
	DefaultDirectory = "/var/lib/serialbox"

	// DefaultPrefix names the index file and per-field data files when
	// no prefix is supplied.
	DefaultPrefix = "field"
)

// defaultOptions holds the package defaults.
var defaultOptions = Options{
	Directory: DefaultDirectory,
	Prefix:    DefaultPrefix,
	Mode:      engine.Read,
}

// NewDefaultOptions returns a copy of the package defaults.
func NewDefaultOptions() Options {
	return defaultOptions
}
