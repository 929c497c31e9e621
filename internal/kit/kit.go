// Package kit defines the Kit capability set and the Target value type that
// kits expand into.
package kit

import (
	"github.com/siliconkit/repack"
	"github.com/siliconkit/repack/internal/request"
)

// Target is an atomic unit of schedulable work: a kit, optionally scoped to
// one PVT corner. Two Targets are equal exactly when their fields are equal,
// which Go struct comparability already gives us, so Target is safe to use
// as a map key.
type Target struct {
	Kit string
	PVT string // empty means "not PVT-partitioned", rendered as ALL in ID()
}

// ID returns the target's primary-key identity string, used in the
// dependency graph, persisted state, and executor submissions.
func (t Target) ID() string {
	return repack.TargetID(t.Kit, t.PVT)
}

// Kit is a polymorphic producer of targets, identified by a unique Name.
// Dependencies are declared at kit granularity; the engine derives
// target-level edges from them.
type Kit interface {
	// Name is the unique identifier for this kit.
	Name() string

	// OutputPath returns the absolute directory this kit writes to for the
	// given request. The engine uses it as the working directory of this
	// kit's jobs and as the directory holding their per-target log files.
	OutputPath(r *request.Request) string

	// Targets returns the schedulable targets this kit contributes for r.
	// The default pattern is one target per PVT; a kit whose work is not
	// PVT-partitioned may return a single target with an empty PVT.
	Targets(r *request.Request) []Target

	// Dependencies returns the names of kits this kit depends on.
	Dependencies() []string

	// Command returns the argv to execute for one of this kit's targets.
	Command(t Target, r *request.Request) []string
}
