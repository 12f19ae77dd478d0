package report

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/uriel-frankel/android-code-coverage/pkg/log"
	"github.com/uriel-frankel/android-code-coverage/util/fileutil"
)

// SourceLocator finds the source of a class for line highlighting.
type SourceLocator interface {
	// Lookup returns the lines of the source file fileName in the
	// package packageName (slash separated), with tabs expanded. It
	// returns nil and no error if the file doesn't exist.
	Lookup(packageName, fileName string) ([]string, error)
	TabWidth() int
}

// DirectorySourceLocator looks up source files below a directory. A
// file which isn't found at its package path is searched for by name
// in the whole directory.
type DirectorySourceLocator struct {
	dir      string
	encoding encoding.Encoding
	tabWidth int

	indexOnce sync.Once
	index     map[string][]string
}

// NewDirectorySourceLocator creates a locator for the sources in dir
// which are encoded with the named encoding, e.g. "utf-8" or
// "iso-8859-1".
func NewDirectorySourceLocator(dir, encodingName string, tabWidth int) (*DirectorySourceLocator, error) {
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported source encoding %q", encodingName)
	}
	if tabWidth <= 0 {
		return nil, errors.Errorf("invalid tab width %d", tabWidth)
	}
	return &DirectorySourceLocator{dir: dir, encoding: enc, tabWidth: tabWidth}, nil
}

func (l *DirectorySourceLocator) TabWidth() int {
	return l.tabWidth
}

func (l *DirectorySourceLocator) Lookup(packageName, fileName string) ([]string, error) {
	p := l.find(packageName, fileName)
	if p == "" {
		return nil, nil
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	b, err = l.encoding.NewDecoder().Bytes(b)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", p)
	}
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = ExpandTabs(strings.TrimSuffix(line, "\r"), l.tabWidth)
	}
	return lines, nil
}

func (l *DirectorySourceLocator) find(packageName, fileName string) string {
	rel := path.Join(packageName, fileName)
	p := filepath.Join(l.dir, filepath.FromSlash(rel))
	if below, err := fileutil.IsBelow(p, l.dir); err != nil || !below {
		return ""
	}
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p
	}

	candidates := l.byName()[fileName]
	if len(candidates) == 0 {
		return ""
	}
	// prefer the candidate whose path ends with the package path
	for _, c := range candidates {
		if strings.HasSuffix(filepath.ToSlash(c), "/"+rel) {
			return c
		}
	}
	log.Debugf("Using %s as source of %s", candidates[0], rel)
	return candidates[0]
}

// byName returns an index of all files below the directory by base
// name. It's built on first use.
func (l *DirectorySourceLocator) byName() map[string][]string {
	l.indexOnce.Do(func() {
		l.index = map[string][]string{}
		if !fileutil.IsDir(l.dir) {
			return
		}
		matches, err := zglob.Glob(filepath.Join(l.dir, "**", "*"))
		if err != nil {
			log.Debugf("Failed to search source files in %s: %v", l.dir, err)
			return
		}
		sort.Strings(matches)
		for _, m := range matches {
			if fileutil.IsDir(m) {
				continue
			}
			name := filepath.Base(m)
			l.index[name] = append(l.index[name], m)
		}
	})
	return l.index
}

// ExpandTabs replaces tabs by spaces up to the next multiple of
// tabWidth columns.
func ExpandTabs(line string, tabWidth int) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var sb strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col++
	}
	return sb.String()
}
