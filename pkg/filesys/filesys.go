// Package filesys provides the small set of directory helpers the
// format driver needs to bootstrap a fresh storage directory.
package filesys

import (
	"errors"
	"os"
)

var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir ensures dirPath exists as a directory, creating it (and any
// parents) with permission if absent. If the path already exists as a
// file rather than a directory, it fails with ErrIsNotDir regardless of
// force. If force is false, an existing directory is returned as
// success without calling MkdirAll, and a stat failure other than
// not-exist is returned as is; with force, MkdirAll is attempted anyway.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}
	if !force && !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dirPath, permission)
}

// Exists reports whether a file or directory exists at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
