// Package cliutil holds the small pieces of parsing logic shared by
// cmd/fbxdump and cmd/fbxcompare: dimension bound parsing and the
// directory/prefix/field inference from a file path, both grounded on
// tools/shared.h in the reference implementation.
package cliutil

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Bounds is an inclusive [Lower, Upper] range over one array dimension.
type Bounds struct {
	Lower, Upper int
}

// ParseBounds parses a "-i" style flag value: "a" (a single index),
// "a:b" (an inclusive range), ":b", "a:" or ":" (open on one or both
// ends). An empty or all-open spec yields [0, math.MaxInt32].
func ParseBounds(spec string) Bounds {
	b := Bounds{Lower: 0, Upper: math.MaxInt32}
	if spec == "" {
		return b
	}

	colon := strings.IndexByte(spec, ':')
	if colon < 0 {
		if v, err := strconv.Atoi(spec); err == nil {
			b.Lower, b.Upper = v, v
		}
		return b
	}

	if lower := spec[:colon]; lower != "" {
		if v, err := strconv.Atoi(lower); err == nil {
			b.Lower = v
		}
	}
	if upper := spec[colon+1:]; upper != "" {
		if v, err := strconv.Atoi(upper); err == nil {
			b.Upper = v
		}
	}

	if b.Upper < b.Lower {
		b.Lower, b.Upper = b.Upper, b.Lower
	}
	return b
}

// Clamp restricts b to [0, size-1].
func (b Bounds) Clamp(size int) Bounds {
	lower, upper := b.Lower, b.Upper
	if lower < 0 {
		lower = 0
	}
	if upper > size-1 {
		upper = size - 1
	}
	return Bounds{Lower: lower, Upper: upper}
}

// SplitFilePath infers (directory, prefix, field) from a path to either
// the index file ({prefix}.json) or a field data file
// ({prefix}_{field}.dat), walking back through "_"-separated segments
// of the basename until a matching {prefix}.json is found on disk, the
// same probing splitFilePath in the reference tools performs.
func SplitFilePath(path string) (directory, prefix, field string, ok bool) {
	if _, err := os.Stat(path); err != nil {
		return "", "", "", false
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if strings.HasSuffix(base, ".json") {
		return dir, strings.TrimSuffix(base, ".json"), "", true
	}

	if !strings.HasSuffix(base, ".dat") {
		return "", "", "", false
	}

	stem := strings.TrimSuffix(base, ".dat")
	full := stem
	for {
		idx := strings.LastIndexByte(stem, '_')
		if idx < 0 {
			return "", "", "", false
		}
		candidatePrefix := stem[:idx]
		if _, err := os.Stat(filepath.Join(dir, candidatePrefix+".json")); err == nil {
			return dir, candidatePrefix, full[idx+1:], true
		}
		stem = stem[:idx]
	}
}
