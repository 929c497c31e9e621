package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siliconkit/repack/internal/kit"
)

func testTargets() []kit.Target {
	return []kit.Target{
		{Kit: "libA", PVT: "ss_100c"},
		{Kit: "libA", PVT: "ff_0c"},
		{Kit: "libB"},
	}
}

// test_full_run_init: a missing status file triggers a full run, invoking
// cleanHook and seeding every target as PENDING.
func TestInitializeFullRun(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "repack_status.csv")
	m := New(statusFile)

	cleaned := false
	incremental, err := m.Initialize(testTargets(), func() { cleaned = true })
	if err != nil {
		t.Fatal(err)
	}
	if incremental {
		t.Error("Initialize reported incremental=true for a missing status file")
	}
	if !cleaned {
		t.Error("cleanHook was not invoked on a full run")
	}
	if got := m.Get("libA::ss_100c"); got != kit.Pending {
		t.Errorf("Get(libA::ss_100c) = %v, want %v", got, kit.Pending)
	}

	content, err := os.ReadFile(statusFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "libA::ss_100c,PENDING") {
		t.Errorf("status file does not contain expected row: %s", content)
	}
}

// test_incremental_run_load: an existing status file is loaded, unseen
// targets are added as PENDING, and cleanHook is not invoked.
func TestInitializeIncrementalLoad(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "repack_status.csv")
	if err := os.WriteFile(statusFile, []byte("id,status\nlibA::ss_100c,PASS\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m := New(statusFile)
	cleaned := false
	incremental, err := m.Initialize(testTargets(), func() { cleaned = true })
	if err != nil {
		t.Fatal(err)
	}
	if !incremental {
		t.Error("Initialize reported incremental=false for an existing status file")
	}
	if cleaned {
		t.Error("cleanHook was invoked on an incremental run")
	}
	if got := m.Get("libA::ss_100c"); got != kit.Pass {
		t.Errorf("Get(libA::ss_100c) = %v, want %v", got, kit.Pass)
	}
	if got := m.Get("libA::ff_0c"); got != kit.Pending {
		t.Errorf("new target libA::ff_0c = %v, want %v", got, kit.Pending)
	}
}

// test_manual_rerun_trigger: a user hand-editing PASS to PENDING in the CSV
// is honored verbatim on load.
func TestInitializeManualRerunTrigger(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "repack_status.csv")
	if err := os.WriteFile(statusFile, []byte("id,status\nlibA::ss_100c,PENDING\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m := New(statusFile)
	if _, err := m.Initialize(testTargets(), nil); err != nil {
		t.Fatal(err)
	}
	if got := m.Get("libA::ss_100c"); got != kit.Pending {
		t.Errorf("Get(libA::ss_100c) = %v, want %v", got, kit.Pending)
	}
}

// test_status_update_persists: Set writes through to disk immediately.
func TestSetPersists(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "repack_status.csv")
	m := New(statusFile)
	if _, err := m.Initialize(testTargets(), func() {}); err != nil {
		t.Fatal(err)
	}

	if err := m.Set("libA::ss_100c", kit.Running); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(statusFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "libA::ss_100c,RUNNING") {
		t.Errorf("status file does not reflect the update: %s", content)
	}
}

func TestInitializeCorruptFileTreatedAsMissing(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "repack_status.csv")
	if err := os.WriteFile(statusFile, []byte("not,a,valid\x00header"), 0644); err != nil {
		t.Fatal(err)
	}

	m := New(statusFile)
	cleaned := false
	incremental, err := m.Initialize(testTargets(), func() { cleaned = true })
	if err != nil {
		t.Fatal(err)
	}
	if incremental {
		t.Error("a corrupt status file should be treated the same as a missing one")
	}
	if !cleaned {
		t.Error("cleanHook was not invoked for a corrupt status file")
	}
}

func TestGetDefaultsToPending(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "repack_status.csv"))
	if got := m.Get("never-initialized::ALL"); got != kit.Pending {
		t.Errorf("Get on an uninitialized Manager = %v, want %v", got, kit.Pending)
	}
}
