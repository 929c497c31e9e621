package executor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// FakeBackend is an in-memory Backend double so Cluster's dependency and
// polling logic can be exercised in tests without a real LSF install,
// mirroring how distri's internal/distritest wraps subprocess-based
// integration points behind a small fake for testing.
type FakeBackend struct {
	mu     sync.Mutex
	status map[string]string
	argv   map[string][]string
	seq    int64
}

// NewFakeBackend returns an empty FakeBackend; every submitted job starts
// PEND until SetStatus is called.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{status: make(map[string]string), argv: make(map[string][]string)}
}

// Submit assigns the next backend id and records the job as PEND.
func (b *FakeBackend) Submit(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", xerrors.New("empty submission argv")
	}
	id := atomic.AddInt64(&b.seq, 1)
	backendID := fmt.Sprintf("%d", id)
	b.mu.Lock()
	b.status[backendID] = "PEND"
	b.argv[backendID] = append([]string(nil), argv...)
	b.mu.Unlock()
	return backendID, nil
}

// Argv returns the submission argv recorded for backendID, for test
// assertions on how Cluster constructs a submission line.
func (b *FakeBackend) Argv(backendID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.argv[backendID]
}

// Status returns the recorded status for backendID, or UNKNOWN if it was
// never submitted.
func (b *FakeBackend) Status(backendID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.status[backendID]
	if !ok {
		return "UNKNOWN", nil
	}
	return s, nil
}

// SetStatus sets backendID's status, as if the scheduler had transitioned
// it (e.g. to RUN, DONE, or EXIT).
func (b *FakeBackend) SetStatus(backendID, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[backendID] = status
}
