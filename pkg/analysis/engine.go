package analysis

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/classfile"
	"github.com/uriel-frankel/android-code-coverage/pkg/coverage"
	"github.com/uriel-frankel/android-code-coverage/pkg/execdata"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

// Engine turns an artifact and the execution data into analyzed
// classes. Artifacts the engine doesn't support result in no classes
// and no error.
type Engine interface {
	Analyze(store *execdata.Store, artifact string, r io.Reader) ([]*coverage.Class, error)
}

var archiveExtensions = []string{".jar", ".zip", ".aar"}

// ClassFileEngine analyzes class files and archives of class files.
//
// Probes are assigned per method in the order of the methods in the
// class file: one probe for each distinct source line, in order of the
// first instruction on that line, and a single probe for methods
// without line information. Synthetic methods get no probes, except for
// lambda bodies. A line is covered if its probe was hit.
type ClassFileEngine struct{}

func NewClassFileEngine() *ClassFileEngine {
	return &ClassFileEngine{}
}

func (e *ClassFileEngine) Analyze(store *execdata.Store, artifact string, r io.Reader) ([]*coverage.Class, error) {
	ext := strings.ToLower(filepath.Ext(artifact))
	isArchive := false
	for _, archiveExt := range archiveExtensions {
		if ext == archiveExt {
			isArchive = true
		}
	}
	if ext != ".class" && !isArchive {
		log.Debugf("Skipping %s, unsupported file type", artifact)
		return nil, nil
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if isArchive {
		return e.analyzeArchive(store, b)
	}
	c, err := e.analyzeClass(store, b)
	if err != nil || c == nil {
		return nil, err
	}
	return []*coverage.Class{c}, nil
}

func (e *ClassFileEngine) analyzeArchive(store *execdata.Store, b []byte) ([]*coverage.Class, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var classes []*coverage.Class
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".class" && ext != ".jar" {
			continue
		}
		entryBytes, err := readZipEntry(f)
		if err != nil {
			return nil, err
		}
		// Android archives contain the classes in a nested classes.jar
		if ext == ".jar" {
			nested, err := e.analyzeArchive(store, entryBytes)
			if err != nil {
				return nil, errors.WithMessagef(err, "in %s", f.Name)
			}
			classes = append(classes, nested...)
			continue
		}
		c, err := e.analyzeClass(store, entryBytes)
		if err != nil {
			return nil, errors.WithMessagef(err, "in %s", f.Name)
		}
		if c != nil {
			classes = append(classes, c)
		}
	}
	return classes, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", f.Name)
	}
	return b, nil
}

type probe struct {
	line int
}

func (e *ClassFileEngine) analyzeClass(store *execdata.Store, b []byte) (*coverage.Class, error) {
	cf, err := classfile.Parse(b)
	if err != nil {
		return nil, err
	}
	// module and package descriptors have no code
	if strings.HasSuffix(cf.Name, "module-info") || strings.HasSuffix(cf.Name, "package-info") {
		return nil, nil
	}

	type methodProbes struct {
		method *classfile.Method
		probes []probe
	}
	var methods []methodProbes
	probeCount := 0
	for _, m := range cf.Methods {
		if !m.HasCode() {
			continue
		}
		if m.IsSynthetic() && !strings.HasPrefix(m.Name, "lambda$") {
			continue
		}
		probes := methodLineProbes(m)
		probeCount += len(probes)
		methods = append(methods, methodProbes{method: m, probes: probes})
	}
	if probeCount == 0 {
		return nil, nil
	}

	id := classfile.ClassID(b)
	var hits []bool
	noMatch := false
	if data := store.Get(id); data != nil {
		if data.Name != cf.Name {
			return nil, errors.Errorf("execution data for class id %016x is recorded for %s, not %s", id, data.Name, cf.Name)
		}
		if len(data.Probes) != probeCount {
			return nil, errors.Errorf("incompatible execution data for class %s with id %016x: %d probes recorded, %d expected",
				cf.Name, id, len(data.Probes), probeCount)
		}
		hits = data.Probes
	} else if len(store.ByName(cf.Name)) > 0 {
		noMatch = true
	}

	c := coverage.NewClass(id, cf.Name, cf.SourceFile, noMatch)
	probeIndex := 0
	for _, mp := range methods {
		method := coverage.NewMethod(mp.method.Name, mp.method.Descriptor)
		for _, p := range mp.probes {
			counter := coverage.Counter{Missed: 1}
			if hits != nil && hits[probeIndex] {
				counter = coverage.Counter{Covered: 1}
			}
			method.Increment(counter, coverage.Counter{}, p.line)
			probeIndex++
		}
		c.AddMethod(method)
	}
	return c, nil
}

// methodLineProbes returns one probe per distinct line in order of the
// first instruction on each line.
func methodLineProbes(m *classfile.Method) []probe {
	if len(m.Lines) == 0 {
		return []probe{{line: 0}}
	}
	seen := map[uint16]bool{}
	var probes []probe
	for _, l := range m.Lines {
		if seen[l.Line] {
			continue
		}
		seen[l.Line] = true
		probes = append(probes, probe{line: int(l.Line)})
	}
	return probes
}
