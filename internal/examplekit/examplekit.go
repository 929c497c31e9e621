// Package examplekit provides a minimal Kit implementation for cmd/repack's
// run verb, analogous to the DemoKit in
// original_source/demo/demo.py and to distri's own worked examples in
// cmd/autobuilder.
package examplekit

import (
	"fmt"
	"path/filepath"

	"github.com/siliconkit/repack/internal/kit"
	"github.com/siliconkit/repack/internal/request"
)

// Kit is a trivial Kit: one target per PVT (or a single ALL target when
// partition is false), whose command just echoes its own identity and
// sleeps briefly, so a demo run visibly exercises dependency ordering.
type Kit struct {
	name         string
	dependencies []string
	partition    bool // false => single ALL target regardless of request PVTs
}

// New returns a Kit named name, depending on deps, expanding one target per
// request PVT.
func New(name string, deps ...string) *Kit {
	return &Kit{name: name, dependencies: deps, partition: true}
}

// NewBarrier returns a Kit named name that always produces a single ALL
// target, acting as a cross-cutting barrier to/from any PVT-scoped kit that
// depends on it or that it depends on.
func NewBarrier(name string, deps ...string) *Kit {
	return &Kit{name: name, dependencies: deps, partition: false}
}

func (k *Kit) Name() string { return k.name }

func (k *Kit) OutputPath(r *request.Request) string {
	return filepath.Join(r.OutputRoot(), k.name)
}

func (k *Kit) Targets(r *request.Request) []kit.Target {
	if !k.partition {
		return []kit.Target{{Kit: k.name}}
	}
	targets := make([]kit.Target, 0, len(r.PVTs()))
	for _, pvt := range r.PVTs() {
		targets = append(targets, kit.Target{Kit: k.name, PVT: pvt})
	}
	return targets
}

func (k *Kit) Dependencies() []string { return k.dependencies }

func (k *Kit) Command(t kit.Target, r *request.Request) []string {
	return []string{"sh", "-c", fmt.Sprintf("echo 'running %s' && sleep 0.1", t.ID())}
}
