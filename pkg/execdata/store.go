package execdata

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// ExecutionData holds the probe hit flags recorded for one class. The
// class is identified by the CRC64 checksum of its class file.
type ExecutionData struct {
	ID     uint64
	Name   string
	Probes []bool
}

// HasHits returns true if at least one probe was hit.
func (d *ExecutionData) HasHits() bool {
	for _, p := range d.Probes {
		if p {
			return true
		}
	}
	return false
}

func (d *ExecutionData) String() string {
	return fmt.Sprintf("%s (%016x)", d.Name, d.ID)
}

// Store maps class ids to their execution data. Putting data for an id
// which is already present merges the probes with a logical OR, which
// makes merging commutative and idempotent.
type Store struct {
	mu      sync.RWMutex
	entries map[uint64]*ExecutionData
	frozen  bool
}

func NewStore() *Store {
	return &Store{entries: make(map[uint64]*ExecutionData)}
}

// Put adds data to the store. Data for an id already in the store must
// have the same class name and the same number of probes, otherwise an
// error is returned and the store is left unchanged.
func (s *Store) Put(data *ExecutionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		panic("execdata: Put on a frozen store")
	}

	entry, exists := s.entries[data.ID]
	if !exists {
		s.entries[data.ID] = &ExecutionData{
			ID:     data.ID,
			Name:   data.Name,
			Probes: append([]bool(nil), data.Probes...),
		}
		return nil
	}

	if entry.Name != data.Name {
		return errors.Errorf("different class names %s and %s for id %016x", entry.Name, data.Name, data.ID)
	}
	if len(entry.Probes) != len(data.Probes) {
		return errors.Errorf("incompatible execution data for class %s with id %016x: %d probes vs %d probes",
			data.Name, data.ID, len(entry.Probes), len(data.Probes))
	}
	for i, hit := range data.Probes {
		if hit {
			entry.Probes[i] = true
		}
	}
	return nil
}

// Get returns the execution data for the given class id or nil.
func (s *Store) Get(id uint64) *ExecutionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// ByName returns all entries recorded for the given class name. There
// is more than one if different versions of the class were executed.
func (s *Store) ByName(name string) []*ExecutionData {
	var result []*ExecutionData
	for _, data := range s.Contents() {
		if data.Name == name {
			result = append(result, data)
		}
	}
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Contents returns all entries sorted by class name and id.
func (s *Store) Contents() []*ExecutionData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contents := maps.Values(s.entries)
	sort.Slice(contents, func(i, j int) bool {
		if contents[i].Name != contents[j].Name {
			return contents[i].Name < contents[j].Name
		}
		return contents[i].ID < contents[j].ID
	})
	return contents
}

func (s *Store) freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

// SessionInfo describes the recording session an exec file came from.
type SessionInfo struct {
	ID    string
	Start time.Time
	Dump  time.Time
}

// SessionInfoStore keeps session infos in the order they were added,
// which is the order the exec files were merged in.
type SessionInfoStore struct {
	mu    sync.Mutex
	infos []SessionInfo
}

func (s *SessionInfoStore) Add(info SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, info)
}

// Infos returns a copy of the session infos in insertion order.
func (s *SessionInfoStore) Infos() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SessionInfo(nil), s.infos...)
}

func (s *SessionInfoStore) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.infos) == 0
}

// Merged returns a single session spanning all sessions in the store,
// with the earliest start and the latest dump time.
func (s *SessionInfoStore) Merged(id string) SessionInfo {
	merged := SessionInfo{ID: id}
	for _, info := range s.Infos() {
		if merged.Start.IsZero() || info.Start.Before(merged.Start) {
			merged.Start = info.Start
		}
		if info.Dump.After(merged.Dump) {
			merged.Dump = info.Dump
		}
	}
	return merged
}
