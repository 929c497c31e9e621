package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/siliconkit/repack/internal/trace"
)

// jobRecord tracks one submitted job's bookkeeping: its pending dependency
// set, the single-assignment latch (done, closed exactly once) that
// resolves when the job reaches a terminal state, and the other jobs
// waiting on it.
//
// In the Python original (original_source/repack/executor/local.py) this
// latch is a concurrent.futures.Future; Go's standard library has no
// directly equivalent type, so here it is a channel closed exactly once
// under the executor's lock, giving the same single-assignment, broadcast-
// to-all-waiters semantics with the primitive Go actually offers for it.
type jobRecord struct {
	job      Job
	callback OnComplete

	done    chan struct{}
	success bool

	callbackDone chan struct{} // closed once callback (if any) has returned

	pendingDeps map[string]struct{}
	waiters     []string // job ids with this record as an unresolved dependency
}

func (r *jobRecord) terminal() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Local is an in-process, bounded-concurrency worker pool, the reference
// Executor implementation. Its N workers are modeled as N interchangeable
// slot tokens rather than a fixed goroutine-per-worker pull
// loop (distri's internal/batch.scheduler approach): a job's goroutine
// acquires a slot, runs, and returns it, which also gives each concurrently
// running job a stable small integer for trace/status display. Dispatch
// goroutines are tracked with an errgroup.Group, the same primitive
// internal/batch.scheduler.run uses for its worker goroutines, so Shutdown
// can drain them with a single Wait.
type Local struct {
	slots chan int

	mu   sync.Mutex
	jobs map[string]*jobRecord
	eg   errgroup.Group // tracks in-flight dispatch goroutines, for Shutdown

	statusMu sync.Mutex
	status   []string
	isTTY    bool
}

// NewLocal returns a Local executor with n concurrent worker slots.
func NewLocal(n int) *Local {
	if n < 1 {
		n = 1
	}
	slots := make(chan int, n)
	for i := 0; i < n; i++ {
		slots <- i
	}
	return &Local{
		slots:  slots,
		jobs:   make(map[string]*jobRecord),
		status: make([]string, n),
		isTTY:  isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Submit implements Executor: record the job, resolve already-terminal
// dependencies immediately, register completion hooks for in-flight ones,
// and dispatch right away if nothing is left pending.
func (e *Local) Submit(job Job, depIDs []string, onComplete OnComplete) error {
	rec := &jobRecord{
		job:          job,
		callback:     onComplete,
		done:         make(chan struct{}),
		callbackDone: make(chan struct{}),
		pendingDeps:  make(map[string]struct{}),
	}

	e.mu.Lock()
	e.jobs[job.ID] = rec

	preFailed := false
	for _, depID := range depIDs {
		dep, ok := e.jobs[depID]
		if !ok {
			// Unknown dependency: the engine only ever passes ids it has
			// itself submitted, but the executor stays defensive here
			// rather than assuming that invariant holds.
			continue
		}
		if dep.terminal() {
			if !dep.success {
				preFailed = true
				break
			}
			continue // succeeded already, drop from pending set
		}
		rec.pendingDeps[depID] = struct{}{}
		dep.waiters = append(dep.waiters, job.ID)
	}

	if preFailed {
		e.mu.Unlock()
		e.finish(rec, false)
		return nil
	}

	if len(rec.pendingDeps) == 0 {
		e.mu.Unlock()
		e.dispatch(rec)
		return nil
	}

	e.mu.Unlock()
	return nil
}

// onDependencyComplete is invoked once per (waiting job, dependency) pair
// when the dependency reaches a terminal state.
func (e *Local) onDependencyComplete(jobID, depID string, depSuccess bool) {
	e.mu.Lock()
	rec, ok := e.jobs[jobID]
	if !ok || rec.terminal() {
		e.mu.Unlock()
		return
	}

	if !depSuccess {
		e.mu.Unlock()
		e.finish(rec, false)
		return
	}

	delete(rec.pendingDeps, depID)
	ready := len(rec.pendingDeps) == 0
	e.mu.Unlock()

	if ready {
		e.dispatch(rec)
	}
}

// finish resolves rec's latch exactly once, fires its callback, and wakes
// any jobs waiting on it.
func (e *Local) finish(rec *jobRecord, success bool) {
	e.mu.Lock()
	if rec.terminal() {
		e.mu.Unlock()
		return
	}
	rec.success = success
	close(rec.done)
	waiters := rec.waiters
	e.mu.Unlock()

	if rec.callback != nil {
		rec.callback(rec.job.ID, success)
	}
	close(rec.callbackDone)
	for _, waiterID := range waiters {
		e.onDependencyComplete(waiterID, rec.job.ID, success)
	}
}

// dispatch runs rec's job on a free worker slot. Called with e.mu NOT held.
func (e *Local) dispatch(rec *jobRecord) {
	e.eg.Go(func() error {
		slot := <-e.slots
		defer func() { e.slots <- slot }()

		e.setStatus(slot, "running "+rec.job.ID)
		ev := trace.Event(rec.job.ID, slot)
		success, err := e.runJob(rec.job)
		ev.Done()
		if err != nil {
			e.setStatus(slot, fmt.Sprintf("failed %s: %v", rec.job.ID, err))
		} else {
			e.setStatus(slot, "idle")
		}
		e.finish(rec, success)
		return nil
	})
}

// runJob executes job's command, redirecting combined stdout/stderr to its
// log file, and reports whether it exited 0.
func (e *Local) runJob(job Job) (success bool, err error) {
	if err := os.MkdirAll(filepath.Dir(job.LogPath), 0755); err != nil {
		return false, xerrors.Errorf("creating log dir: %w", err)
	}
	logFile, err := os.Create(job.LogPath)
	if err != nil {
		return false, xerrors.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "Executing: %s\n", strings.Join(job.Command, " "))
	fmt.Fprintf(logFile, "CWD: %s\n", job.Dir)

	if len(job.Command) == 0 {
		return false, xerrors.New("job has empty command")
	}

	cmd := exec.Command(job.Command[0], job.Command[1:]...)
	cmd.Dir = job.Dir
	cmd.Env = mergeEnv(os.Environ(), job.Environment)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return false, xerrors.Errorf("%v: %w", cmd.Args, err)
	}
	return true, nil
}

// mergeEnv overlays overlay on top of base ("K=V" pairs), keys in overlay
// taking precedence.
func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	seen := make(map[string]bool, len(overlay))
	merged := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		k := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k = kv[:i]
		}
		if v, ok := overlay[k]; ok {
			merged = append(merged, k+"="+v)
			seen[k] = true
		} else {
			merged = append(merged, kv)
		}
	}
	for k, v := range overlay {
		if !seen[k] {
			merged = append(merged, k+"="+v)
		}
	}
	return merged
}

// Wait implements Executor: block until every listed job's latch has
// resolved and its callback has returned.
func (e *Local) Wait(ids []string) error {
	e.mu.Lock()
	chans := make([]chan struct{}, 0, len(ids))
	for _, id := range ids {
		if rec, ok := e.jobs[id]; ok {
			chans = append(chans, rec.callbackDone)
		}
	}
	e.mu.Unlock()

	for _, ch := range chans {
		<-ch
	}
	return nil
}

// Shutdown drains any still-running jobs and releases pool resources. Job
// failures are reported through OnComplete, not here, so the errgroup's own
// error (always nil — see dispatch) is discarded.
func (e *Local) Shutdown() {
	_ = e.eg.Wait()
}

// setStatus updates the one-line status for worker slot i, redrawing the
// status block in place when attached to a terminal — the same ANSI
// cursor-restore technique distri's internal/batch.scheduler uses for its
// per-worker progress lines, gated here on go-isatty instead of a raw
// ioctl.
func (e *Local) setStatus(i int, line string) {
	if !e.isTTY {
		return
	}
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	if diff := len(e.status[i]) - len(line); diff > 0 {
		line += strings.Repeat(" ", diff)
	}
	e.status[i] = line
	for _, l := range e.status {
		fmt.Println(l)
	}
	fmt.Printf("\033[%dA", len(e.status))
}
