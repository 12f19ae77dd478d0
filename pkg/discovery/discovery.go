// Package discovery enumerates the compiled artifacts below the classes
// directory and filters out the ones matching an exclusion pattern.
package discovery

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/internal/errs"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

// Entry is a file found below the root.
type Entry struct {
	Path string
	// Rel is the slash separated path relative to the root
	Rel string
}

// Result of a discovery. It must not be modified.
type Result struct {
	Artifacts []string
	Excluded  []string
	Warnings  []error
}

// Walk returns a lazy depth-first traversal of the files below root in
// directory listing order. Symlinks to directories are followed, a
// directory reached twice through links is only listed once. For every
// directory which can't be listed it yields a *errs.DiscoveryError and
// continues with the siblings. Every call starts a new traversal.
func Walk(root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		visited := map[string]bool{}
		if target, err := filepath.EvalSymlinks(root); err == nil {
			visited[target] = true
		}
		walk(root, "", visited, yield)
	}
}

func walk(dir, rel string, visited map[string]bool, yield func(Entry, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return yield(Entry{}, errs.WrapDiscoveryError(dir, err))
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		entryRel := e.Name()
		if rel != "" {
			entryRel = rel + "/" + e.Name()
		}

		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				// dangling link
				log.Debugf("Skipping %s: %v", path, err)
				continue
			}
			isDir = info.IsDir()
		}
		if isDir {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				if !yield(Entry{}, errs.WrapDiscoveryError(path, err)) {
					return false
				}
				continue
			}
			if visited[target] {
				log.Debugf("Skipping %s, %s was already visited", path, target)
				continue
			}
			visited[target] = true
			if !walk(path, entryRel, visited, yield) {
				return false
			}
			continue
		}
		if !yield(Entry{Path: path, Rel: entryRel}, nil) {
			return false
		}
	}
	return true
}

// Discover returns all files below root which don't match m. Directories
// themselves are never excluded, only the files in them.
func Discover(root string, m *Matcher) (*Result, error) {
	err := CheckRoot(root)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for entry, err := range Walk(root) {
		if err != nil {
			log.Warnf("Skipping directory: %v", err)
			res.Warnings = append(res.Warnings, err)
			continue
		}
		if pattern, ok := m.MatchingPattern(entry.Rel); ok {
			log.Debugf("Excluding %s (matches %s)", entry.Rel, pattern)
			res.Excluded = append(res.Excluded, entry.Path)
			continue
		}
		res.Artifacts = append(res.Artifacts, entry.Path)
	}
	log.Debugf("Discovered %d artifacts, excluded %d", len(res.Artifacts), len(res.Excluded))
	return res, nil
}

// CheckRoot returns a *errs.ConfigurationError if root is missing or
// not a directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errs.NewConfigurationError("classes directory", "%s does not exist", root)
		}
		return errs.WrapConfigurationError("classes directory", err)
	}
	if !info.IsDir() {
		return errs.NewConfigurationError("classes directory", "%s is not a directory", root)
	}
	return nil
}
