package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/pkg/log"
	"github.com/uriel-frankel/android-code-coverage/util/fileutil"
)

// MultiOutput is the output of a multi-file report. Files are written
// to a staging directory and only copied to the report directory by
// Publish, so a failed render leaves no partial report behind.
type MultiOutput struct {
	dir     string
	staging string
}

func NewMultiOutput(dir string) *MultiOutput {
	return &MultiOutput{dir: dir}
}

// Dir returns the report directory.
func (o *MultiOutput) Dir() string {
	return o.dir
}

// Create creates the file at the slash separated path rel in the
// staging directory.
func (o *MultiOutput) Create(rel string) (io.WriteCloser, error) {
	if o.staging == "" {
		staging, err := os.MkdirTemp("", "coverage-report-")
		if err != nil {
			return nil, errors.WithStack(err)
		}
		o.staging = staging
	}
	path := filepath.Join(o.staging, filepath.FromSlash(rel))
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// Publish copies the staged files to the report directory. Pages of
// a previous report in that directory are removed first, other files
// are left alone.
func (o *MultiOutput) Publish() error {
	if o.staging == "" {
		return nil
	}
	defer fileutil.Cleanup(o.staging)
	err := os.MkdirAll(o.dir, 0o755)
	if err != nil {
		return errors.WithStack(err)
	}
	err = o.removePreviousReport()
	if err != nil {
		return err
	}
	err = copy.Copy(o.staging, o.dir)
	if err != nil {
		return errors.Wrapf(err, "failed to publish report to %s", o.dir)
	}
	log.Debugf("Published report to %s", o.dir)
	o.staging = ""
	return nil
}

// removePreviousReport removes the top level entries of the report
// directory which belong to a report: staged names, HTML pages and
// directories with an index page.
func (o *MultiOutput) removePreviousReport() error {
	entries, err := os.ReadDir(o.dir)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, e := range entries {
		path := filepath.Join(o.dir, e.Name())
		staged, err := fileutil.Exists(filepath.Join(o.staging, e.Name()))
		if err != nil {
			return err
		}
		isPage := !e.IsDir() && filepath.Ext(e.Name()) == ".html"
		if e.IsDir() && !staged {
			isPage, err = fileutil.Exists(filepath.Join(path, "index.html"))
			if err != nil {
				return err
			}
		}
		if !staged && !isPage {
			continue
		}
		log.Debugf("Removing %s of the previous report", path)
		err = os.RemoveAll(path)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Abort removes the staged files.
func (o *MultiOutput) Abort() error {
	if o.staging == "" {
		return nil
	}
	err := os.RemoveAll(o.staging)
	o.staging = ""
	return errors.WithStack(err)
}

// SingleOutput is the output of a single file report. It's written to
// a temporary file next to the target which is renamed by Publish.
type SingleOutput struct {
	path string
	file *os.File
}

func NewSingleOutput(path string) *SingleOutput {
	return &SingleOutput{path: path}
}

func (o *SingleOutput) Path() string {
	return o.path
}

// Open creates the temporary file.
func (o *SingleOutput) Open() (io.Writer, error) {
	if o.file != nil {
		return nil, errors.Errorf("output %s is already open", o.path)
	}
	err := os.MkdirAll(filepath.Dir(o.path), 0o755)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	f, err := os.Create(o.path + ".tmp")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	o.file = f
	return f, nil
}

// Publish closes the temporary file and moves it to the target path.
func (o *SingleOutput) Publish() error {
	if o.file == nil {
		return errors.Errorf("output %s was never opened", o.path)
	}
	tmp := o.file.Name()
	err := o.file.Close()
	o.file = nil
	if err != nil {
		fileutil.Cleanup(tmp)
		return errors.WithStack(err)
	}
	err = os.Rename(tmp, o.path)
	if err != nil {
		fileutil.Cleanup(tmp)
		return errors.WithStack(err)
	}
	log.Debugf("Wrote report %s", o.path)
	return nil
}

// Abort closes and removes the temporary file.
func (o *SingleOutput) Abort() error {
	if o.file == nil {
		return nil
	}
	tmp := o.file.Name()
	_ = o.file.Close()
	o.file = nil
	return errors.WithStack(os.Remove(tmp))
}
