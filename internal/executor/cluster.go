package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

// Backend abstracts the cluster scheduler a Cluster executor submits to.
// A concrete backend executes a submission argv and reports an opaque
// backend id, and later reports that id's state.
type Backend interface {
	// Submit executes argv (a full submission command line, e.g. a bsub
	// invocation) and returns the backend-assigned job id parsed from its
	// output.
	Submit(argv []string) (backendID string, err error)

	// Status returns one of DONE, EXIT, RUN, PEND, or UNKNOWN for
	// backendID.
	Status(backendID string) (string, error)
}

// SiteFlagger returns additional site-specific submission flags (queue,
// memory/CPU reservation, etc.) for a job. Concrete sites implement this
// single capability; everything else about submission is standardized by
// Cluster — the same "one capability subclasses override" shape distri's
// build.Ctx uses for GlobHook.
type SiteFlagger interface {
	SiteFlags(job Job) []string
}

// Cluster adapts a cluster batch scheduler (e.g. an LSF-style bsub/bjobs
// pair) into the Executor contract. Unlike Local, it does not enforce
// dependency ordering itself: it translates declared dependencies into the
// backend's native wait expression and lets the backend itself refuse to
// start a job until its dependencies are done.
type Cluster struct {
	Backend      Backend
	SiteFlags    SiteFlagger
	PollInterval time.Duration // default 5s

	mu        sync.Mutex
	backendID map[string]string // target id -> backend-assigned id
	callbacks map[string]OnComplete
}

// NewCluster returns a Cluster submitting through backend, with site using
// siteFlags for site-specific submission flags.
func NewCluster(backend Backend, siteFlags SiteFlagger) *Cluster {
	return &Cluster{
		Backend:      backend,
		SiteFlags:    siteFlags,
		PollInterval: 5 * time.Second,
		backendID:    make(map[string]string),
		callbacks:    make(map[string]OnComplete),
	}
}

// Submit builds a backend-submission argv: output and error both routed to
// job.LogPath, a job-name tag equal to job.ID, and — when depIDs is
// non-empty — a dependency expression "done(L1) && done(L2) && …" built from
// the backend ids previously recorded for each dependency. Site flags are
// appended, then the joined job.Command. A submission whose backend job id
// cannot be parsed is fatal for this submission.
func (c *Cluster) Submit(job Job, depIDs []string, onComplete OnComplete) error {
	if err := os.MkdirAll(filepath.Dir(job.LogPath), 0755); err != nil {
		return xerrors.Errorf("creating log dir: %w", err)
	}

	argv := []string{"bsub", "-o", job.LogPath, "-e", job.LogPath, "-J", job.ID}

	if len(depIDs) > 0 {
		c.mu.Lock()
		var conds []string
		for _, dep := range depIDs {
			if bid, ok := c.backendID[dep]; ok {
				conds = append(conds, fmt.Sprintf("done(%s)", bid))
			}
		}
		c.mu.Unlock()
		if len(conds) > 0 {
			argv = append(argv, "-w", strings.Join(conds, " && "))
		}
	}

	if c.SiteFlags != nil {
		argv = append(argv, c.SiteFlags.SiteFlags(job)...)
	}
	argv = append(argv, strings.Join(job.Command, " "))

	backendID, err := c.Backend.Submit(argv)
	if err != nil {
		return xerrors.Errorf("submitting %s: %w", job.ID, err)
	}

	c.mu.Lock()
	c.backendID[job.ID] = backendID
	if onComplete != nil {
		c.callbacks[job.ID] = onComplete
	}
	c.mu.Unlock()
	return nil
}

// Wait polls the backend for each id in ids still pending: DONE fires the
// success callback, EXIT fires the failure callback (this is also how a job
// whose dependency expression never became satisfiable is reported — the
// backend aborts it and reports EXIT), and any other state leaves the id
// pending for the next poll. This is the reference per-target polling loop;
// batching into a single query for many ids is an optimization left to
// concrete backends, not something Wait's contract requires.
func (c *Cluster) Wait(ids []string) error {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	for len(pending) > 0 {
		for id := range pending {
			c.mu.Lock()
			backendID, known := c.backendID[id]
			c.mu.Unlock()
			if !known {
				delete(pending, id)
				continue
			}

			status, err := c.Backend.Status(backendID)
			if err != nil {
				status = "UNKNOWN"
			}
			switch status {
			case "DONE":
				c.complete(id, true)
				delete(pending, id)
			case "EXIT":
				c.complete(id, false)
				delete(pending, id)
			}
		}
		if len(pending) > 0 {
			time.Sleep(c.PollInterval)
		}
	}
	return nil
}

// complete fires id's callback exactly once and forgets it, so a later
// re-poll of an already-resolved id (possible since Wait may be called
// again with overlapping ids) cannot fire it twice.
func (c *Cluster) complete(id string, success bool) {
	c.mu.Lock()
	cb, ok := c.callbacks[id]
	if ok {
		delete(c.callbacks, id)
	}
	c.mu.Unlock()
	if cb != nil {
		cb(id, success)
	}
}
