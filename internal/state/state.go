// Package state implements the durable, write-through StateManager: the
// arbiter of full-vs-incremental run semantics and the single source of
// truth for each target's terminal status.
package state

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/siliconkit/repack/internal/kit"
)

var header = []string{"id", "status"}

// Manager is a durable target_id -> Status store, persisted as CSV. All
// methods are safe for concurrent use: executor completion callbacks may
// invoke Set from multiple goroutines at once.
type Manager struct {
	path string

	mu    sync.Mutex
	state map[string]kit.Status
}

// New returns a Manager backed by the CSV file at path. The file is not
// read until Initialize is called.
func New(path string) *Manager {
	return &Manager{path: path}
}

// Initialize reconciles persisted state with allTargets and reports whether
// the run is incremental:
//
//  1. If the status file is missing or unparseable, the run is full:
//     in-memory state is cleared, cleanHook (if non-nil) is invoked to wipe
//     output directories, and every target starts PENDING.
//  2. Otherwise the run is incremental: each persisted row is loaded
//     (unknown statuses degrade to PENDING), and every allTargets id not
//     already present is added as PENDING. Ids present in the file but not
//     in allTargets are retained, preserving history across runs that grow
//     or shrink their target set; orphaned rows are never purged.
//
// The reconciled state is flushed to disk before Initialize returns.
func (m *Manager) Initialize(allTargets []kit.Target, cleanHook func()) (incremental bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded, err := m.load()
	if err == nil {
		incremental = true
		m.state = loaded
	} else {
		// Missing or corrupt status file is treated the same way: "no prior
		// state", triggering a full run.
		incremental = false
		if cleanHook != nil {
			cleanHook()
		}
		m.state = make(map[string]kit.Status)
	}

	for _, t := range allTargets {
		id := t.ID()
		if _, ok := m.state[id]; !ok {
			m.state[id] = kit.Pending
		}
	}

	if err := m.flushLocked(); err != nil {
		return incremental, xerrors.Errorf("flushing initial state: %w", err)
	}
	return incremental, nil
}

// load reads and parses the status file. A missing, unreadable or corrupt
// file is reported as an error; Initialize treats any such error as "no
// prior state" (full run).
func (m *Manager) load() (map[string]kit.Status, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 2 || records[0][0] != header[0] || records[0][1] != header[1] {
		return nil, xerrors.New("status file missing id,status header")
	}

	loaded := make(map[string]kit.Status, len(records)-1)
	for _, row := range records[1:] {
		if len(row) < 2 {
			continue
		}
		loaded[row[0]] = kit.ParseStatus(row[1])
	}
	return loaded, nil
}

// Get returns the status of target id, defaulting to Pending when absent.
func (m *Manager) Get(id string) kit.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.state[id]; ok {
		return s
	}
	return kit.Pending
}

// Set records status for target id and persists it synchronously before
// returning, so a crash immediately after Set never loses the update.
func (m *Manager) Set(id string, status kit.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]kit.Status)
	}
	m.state[id] = status
	if err := m.flushLocked(); err != nil {
		return xerrors.Errorf("persisting %s=%s: %w", id, status, err)
	}
	return nil
}

// flushLocked rewrites the entire status file, atomically, while m.mu is
// held. Using renameio.WriteFile means every call either lands a complete,
// well-formed CSV or leaves the previous one in place — no reader ever
// observes a torn file, the same "one complete file or the previous one"
// guarantee distri's cmd/autobuilder relies on renameio for when persisting
// build stamps.
func (m *Manager) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return err
	}
	for id, status := range m.state {
		if err := w.Write([]string{id, status.String()}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return renameio.WriteFile(m.path, []byte(sb.String()), 0644)
}
