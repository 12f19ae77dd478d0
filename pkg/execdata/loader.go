package execdata

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/uriel-frankel/android-code-coverage/internal/errs"
	"github.com/uriel-frankel/android-code-coverage/pkg/log"
)

// Loader merges exec files into one execution data store and one
// session info store.
type Loader struct {
	store    *Store
	sessions *SessionInfoStore
	frozen   bool
}

// Snapshot is the merged, read-only result of a Loader.
type Snapshot struct {
	Store    *Store
	Sessions []SessionInfo
}

func NewLoader() *Loader {
	return &Loader{
		store:    NewStore(),
		sessions: &SessionInfoStore{},
	}
}

// LoadAll loads the given exec files in order. The first file which
// can't be loaded aborts with a FatalIOError, a report based on a part
// of the execution data would be misleading.
func (l *Loader) LoadAll(paths []string) error {
	for _, path := range paths {
		err := l.Load(path)
		if err != nil {
			return err
		}
	}
	return nil
}

// Load reads a single exec file and merges it into the stores.
func (l *Loader) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.WrapFatalIOError("merge", path, errors.WithStack(err))
	}
	defer f.Close()

	err = l.LoadReader(f)
	if err != nil {
		return errs.WrapFatalIOError("merge", path, err)
	}
	log.Debugf("Loaded execution data from %s", path)
	return nil
}

// LoadReader merges the exec data read from r. Session infos are only
// added once the whole stream was read successfully.
func (l *Loader) LoadReader(r io.Reader) error {
	if l.frozen {
		panic("execdata: Load after Freeze")
	}

	var sessions []SessionInfo
	var data []*ExecutionData
	reader := NewReader(r)
	reader.OnSessionInfo = func(info SessionInfo) error {
		sessions = append(sessions, info)
		return nil
	}
	reader.OnExecutionData = func(d *ExecutionData) error {
		data = append(data, d)
		return nil
	}
	err := reader.Read()
	if err != nil {
		return err
	}

	for _, d := range data {
		err = l.store.Put(d)
		if err != nil {
			return err
		}
	}
	for _, s := range sessions {
		l.sessions.Add(s)
	}
	return nil
}

// Save writes the merged session infos and execution data to path.
// The file is written next to its destination first and renamed when
// complete.
func (l *Loader) Save(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return errors.WithStack(err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(tmpPath)

	err = WriteTo(f, l.sessions.Infos(), l.store)
	if err != nil {
		f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpPath, path))
}

// WriteTo serializes the given sessions and store contents to w.
func WriteTo(w io.Writer, sessions []SessionInfo, store *Store) error {
	writer := NewWriter(w)
	for _, info := range sessions {
		err := writer.WriteSessionInfo(info)
		if err != nil {
			return err
		}
	}
	for _, data := range store.Contents() {
		err := writer.WriteExecutionData(data)
		if err != nil {
			return err
		}
	}
	return writer.Flush()
}

// Freeze stops the loader from accepting more data and returns the
// merged stores.
func (l *Loader) Freeze() *Snapshot {
	l.frozen = true
	l.store.freeze()
	return &Snapshot{
		Store:    l.store,
		Sessions: l.sessions.Infos(),
	}
}

func (l *Loader) Store() *Store {
	return l.store
}

func (l *Loader) Sessions() *SessionInfoStore {
	return l.sessions
}
