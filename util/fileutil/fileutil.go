package fileutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

// IsDir returns whether this path is a directory
func IsDir(path string) bool {
	f, err := os.Stat(path)
	if err != nil {
		return false
	}
	return f.Mode()&os.ModeDir != 0
}

func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errors.WithStack(err)
	}
	return !errors.Is(err, os.ErrNotExist), nil
}

// Cleanup removes the file or directory and logs a warning on failure.
// Setting SKIP_CLEANUP keeps staged report files around for debugging.
func Cleanup(path string) {
	if os.Getenv("SKIP_CLEANUP") != "" {
		return
	}

	err := os.RemoveAll(path)
	if err != nil {
		log.Warnf("%+v", errors.WithStack(err))
	}
}

// PrettifyPath shortens paths below the working directory for log
// messages. Other paths are returned unchanged.
func PrettifyPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, filepath.FromSlash("../")) {
		return path
	}
	return rel
}

// IsBelow returns true if path lies below or is root. Both must be
// absolute or both relative.
func IsBelow(path string, root string) (bool, error) {
	if filepath.IsAbs(path) != filepath.IsAbs(root) {
		return false, errors.Errorf("arguments to IsBelow must either both be relative or both be absolute, got: %q and %q", path, root)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		// paths on separate Windows drives
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, filepath.FromSlash("../")), nil
}

// SearchFileBackwards searches for a file by going upwards from start.
// For `/foo/bar` the order of search is
//  1. /foo/bar
//  2. /foo/
//  3. /
func SearchFileBackwards(start, filename string) (string, error) {
	currentDir := start
	for {
		filePath := filepath.Join(currentDir, filename)
		exists, err := Exists(filePath)
		if err != nil {
			return "", errors.WithStack(err)
		}
		if exists {
			return filePath, nil
		}

		// if the root directory is reached stop the search
		if currentDir == filepath.Dir(currentDir) {
			break
		}

		// step one dir up
		currentDir = filepath.Dir(currentDir)
	}

	return "", os.ErrNotExist
}
