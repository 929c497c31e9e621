// Package engine composes the Request/Target model, StateManager, and
// Executor into the scheduling pipeline: expand kits into targets, build the
// target dependency graph, filter out already-successful targets, and submit
// the residual graph to an executor in topological order.
package engine

import (
	"log"
	"path/filepath"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/siliconkit/repack"
	"github.com/siliconkit/repack/internal/executor"
	"github.com/siliconkit/repack/internal/kit"
	"github.com/siliconkit/repack/internal/request"
	"github.com/siliconkit/repack/internal/state"
)

// ErrCycle is returned, wrapped with the offending kit names, when the
// kit-dependency graph contains a cycle. This is a configuration error: no
// topological order exists to dispatch in.
var ErrCycle = xerrors.New("cycle detected in kit dependencies")

// ErrDuplicateTarget is returned when two kits emit the same target
// identity. Two kits racing to own one state-file row and one output
// directory is a configuration error, not something to silently merge.
var ErrDuplicateTarget = xerrors.New("duplicate target identity")

// node adapts a target id to gonum's graph.Node interface so the target
// graph can be built with gonum/graph/simple and sorted with
// gonum/graph/topo — the same two packages distri's own
// internal/batch.Ctx.Build uses for its package dependency graph, down to
// using topo.Sort's Unorderable error to name the cyclic components.
type node struct {
	id   int64
	name string
}

func (n *node) ID() int64 { return n.id }

// Engine wires together a set of kits, a StateManager, and an Executor, and
// runs one repack invocation end to end.
type Engine struct {
	kits     map[string]kit.Kit
	state    *state.Manager
	executor executor.Executor

	// CleanHook, if set, is forwarded to StateManager.Initialize's
	// clean_hook parameter on a full run. The Python original never wires
	// this through (repack/engine/manager.py calls
	// state_manager.initialize(all_targets) with no callback — see
	// DESIGN.md's Open Questions resolution); Engine carries the field so
	// a driver that wants this can opt in explicitly instead of having to
	// work around the gap out of band.
	CleanHook func()
}

// New returns an Engine scheduling kits through executor, with durable state
// tracked by sm.
func New(kits []kit.Kit, sm *state.Manager, exec executor.Executor) *Engine {
	byName := make(map[string]kit.Kit, len(kits))
	for _, k := range kits {
		byName[k.Name()] = k
	}
	return &Engine{kits: byName, state: sm, executor: exec}
}

// Run expands req into targets, builds their dependency graph, reconciles
// it against persisted state, and dispatches the residual work to the
// executor, returning once every submitted job's callback has fired.
func (e *Engine) Run(req *request.Request) error {
	allTargets, kitTargets, targetByID, err := e.expand(req)
	if err != nil {
		return err
	}

	if _, err := e.state.Initialize(allTargets, e.CleanHook); err != nil {
		return xerrors.Errorf("initializing state: %w", err)
	}

	g, depsOf := e.buildGraph(allTargets, kitTargets)

	order, err := topo.Sort(g)
	if err != nil {
		return wrapCycleError(err)
	}

	return e.dispatch(order, targetByID, depsOf, req)
}

// expand calls Targets(req) on every registered kit, accumulating the flat
// target list and a per-kit map, and rejects duplicate target identities.
func (e *Engine) expand(req *request.Request) (all []kit.Target, byKit map[string][]kit.Target, byID map[string]kit.Target, err error) {
	byKit = make(map[string][]kit.Target, len(e.kits))
	byID = make(map[string]kit.Target)

	for name, k := range e.kits {
		targets := k.Targets(req)
		byKit[name] = targets
		for _, t := range targets {
			if _, dup := byID[t.ID()]; dup {
				return nil, nil, nil, xerrors.Errorf("%s: %w", t.ID(), ErrDuplicateTarget)
			}
			byID[t.ID()] = t
			all = append(all, t)
		}
	}
	return all, byKit, byID, nil
}

// buildGraph derives target-level edges from kit-level dependencies per the
// PVT-match predicate, returning the graph (for topological sort) and, for
// each target id, the ids of its direct dependencies (used to compute
// residual dependencies at dispatch time).
func (e *Engine) buildGraph(allTargets []kit.Target, kitTargets map[string][]kit.Target) (graph.Directed, map[string][]string) {
	g := simple.NewDirectedGraph()
	nodes := make(map[string]*node, len(allTargets))
	for i, t := range allTargets {
		n := &node{id: int64(i), name: t.ID()}
		nodes[t.ID()] = n
		g.AddNode(n)
	}

	depsOf := make(map[string][]string, len(allTargets))
	for _, t := range allTargets {
		k, ok := e.kits[t.Kit]
		if !ok {
			continue
		}
		for _, depKitName := range k.Dependencies() {
			for _, d := range kitTargets[depKitName] {
				if !repack.MatchPVT(d.PVT, t.PVT) {
					continue
				}
				if slices.Contains(depsOf[t.ID()], d.ID()) {
					continue // duplicate edge, harmless but deduplicated
				}
				depsOf[t.ID()] = append(depsOf[t.ID()], d.ID())
				g.SetEdge(g.NewEdge(nodes[d.ID()], nodes[t.ID()]))
			}
		}
	}
	return g, depsOf
}

// wrapCycleError turns gonum's topo.Unorderable into ErrCycle, naming the
// kits involved in the cyclic components.
func wrapCycleError(err error) error {
	uo, ok := err.(topo.Unorderable)
	if !ok {
		return xerrors.Errorf("sorting target graph: %w", err)
	}
	seen := make(map[string]bool)
	var kits []string
	for _, component := range uo {
		for _, n := range component {
			name := n.(*node).name
			k, _ := repack.SplitTargetID(name)
			if !seen[k] {
				seen[k] = true
				kits = append(kits, k)
			}
		}
	}
	return xerrors.Errorf("%v: %w", kits, ErrCycle)
}

// dispatch walks order, a topological sort of the target graph, and for
// each target not already PASS, submits it with its residual dependencies
// (those still in the submitted set — PASS dependencies are filtered out
// because nothing is running for them in this invocation), then waits for
// every submitted job.
func (e *Engine) dispatch(order []graph.Node, targetByID map[string]kit.Target, depsOf map[string][]string, req *request.Request) error {
	submitted := make(map[string]bool)
	var submittedOrder []string

	for _, n := range order {
		id := n.(*node).name
		if e.state.Get(id) == kit.Pass {
			continue // a PASS target is never resubmitted
		}

		t := targetByID[id]
		k := e.kits[t.Kit]

		var residual []string
		for _, depID := range depsOf[id] {
			if submitted[depID] {
				residual = append(residual, depID)
			}
		}

		job := executor.Job{
			ID:      id,
			Command: k.Command(t, req),
			Dir:     k.OutputPath(req),
			LogPath: filepath.Join(k.OutputPath(req), id+".log"),
		}

		// Write RUNNING before submit so a crash between submit and executor
		// start leaves a recoverable state row rather than a stale PENDING.
		if err := e.state.Set(id, kit.Running); err != nil {
			return xerrors.Errorf("marking %s running: %w", id, err)
		}

		if err := e.executor.Submit(job, residual, e.onComplete(id)); err != nil {
			return xerrors.Errorf("submitting %s: %w", id, err)
		}
		submitted[id] = true
		submittedOrder = append(submittedOrder, id)
	}

	if err := e.executor.Wait(submittedOrder); err != nil {
		return xerrors.Errorf("waiting for submitted targets: %w", err)
	}
	return nil
}

// onComplete returns a closure bound to targetID that writes PASS or FAIL
// to the state manager when the executor invokes it.
func (e *Engine) onComplete(targetID string) executor.OnComplete {
	return func(id string, success bool) {
		status := kit.Fail
		if success {
			status = kit.Pass
		}
		if err := e.state.Set(targetID, status); err != nil {
			// The callback contract has no error return, so a failure to
			// persist the outcome here can only be surfaced by logging it;
			// the target's on-disk status falls out of sync with reality.
			log.Printf("repack: failed to persist %s=%s: %v", targetID, status, err)
		}
	}
}
