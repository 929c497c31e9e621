package executor

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClusterSubmitBuildsDependencyExpression(t *testing.T) {
	backend := NewFakeBackend()
	c := NewCluster(backend, nil)

	dir := t.TempDir()
	jobA := Job{ID: "jobA", Command: []string{"run-a"}, LogPath: filepath.Join(dir, "a.log")}
	if err := c.Submit(jobA, nil, nil); err != nil {
		t.Fatal(err)
	}

	jobB := Job{ID: "jobB", Command: []string{"run-b"}, LogPath: filepath.Join(dir, "b.log")}
	if err := c.Submit(jobB, []string{"jobA"}, nil); err != nil {
		t.Fatal(err)
	}

	backendA := c.backendID["jobA"]
	backendB := c.backendID["jobB"]
	if backendA == "" || backendB == "" {
		t.Fatal("expected both jobs to receive backend ids")
	}

	argvB := backend.Argv(backendB)
	wantClause := "done(" + backendA + ")"
	if !strings.Contains(strings.Join(argvB, " "), wantClause) {
		t.Errorf("jobB's submission argv %v does not contain %q", argvB, wantClause)
	}

	argvA := backend.Argv(backendA)
	if strings.Contains(strings.Join(argvA, " "), "-w") {
		t.Errorf("jobA has no dependencies but its argv contains -w: %v", argvA)
	}
}

func TestClusterWaitResolvesOnDoneAndExit(t *testing.T) {
	backend := NewFakeBackend()
	c := NewCluster(backend, nil)
	c.PollInterval = 10 * time.Millisecond

	dir := t.TempDir()
	jobA := Job{ID: "jobA", Command: []string{"run-a"}, LogPath: filepath.Join(dir, "a.log")}
	jobB := Job{ID: "jobB", Command: []string{"run-b"}, LogPath: filepath.Join(dir, "b.log")}

	var aSuccess, bSuccess *bool
	if err := c.Submit(jobA, nil, func(id string, success bool) { aSuccess = &success }); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(jobB, nil, func(id string, success bool) { bSuccess = &success }); err != nil {
		t.Fatal(err)
	}

	backendA := c.backendID["jobA"]
	backendB := c.backendID["jobB"]

	go func() {
		time.Sleep(20 * time.Millisecond)
		backend.SetStatus(backendA, "DONE")
		backend.SetStatus(backendB, "EXIT")
	}()

	if err := c.Wait([]string{"jobA", "jobB"}); err != nil {
		t.Fatal(err)
	}

	if aSuccess == nil || !*aSuccess {
		t.Errorf("jobA success = %v, want true", aSuccess)
	}
	if bSuccess == nil || *bSuccess {
		t.Errorf("jobB success = %v, want false", bSuccess)
	}
}

func TestClusterCompleteFiresCallbackOnce(t *testing.T) {
	backend := NewFakeBackend()
	c := NewCluster(backend, nil)

	calls := 0
	c.callbacks["job1"] = func(id string, success bool) { calls++ }

	c.complete("job1", true)
	c.complete("job1", true) // already forgotten; must not re-fire

	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}
}

type stubSiteFlagger struct{ flags []string }

func (s stubSiteFlagger) SiteFlags(job Job) []string { return s.flags }

func TestClusterSubmitAppliesSiteFlags(t *testing.T) {
	backend := NewFakeBackend()
	c := NewCluster(backend, stubSiteFlagger{flags: []string{"-q", "normal"}})

	dir := t.TempDir()
	job := Job{ID: "jobA", Command: []string{"run-a"}, LogPath: filepath.Join(dir, "a.log")}
	if err := c.Submit(job, nil, nil); err != nil {
		t.Fatal(err)
	}

	backendID := c.backendID["jobA"]
	argv := backend.Argv(backendID)
	if !strings.Contains(strings.Join(argv, " "), "-q normal") {
		t.Errorf("submission argv %v does not contain site flags", argv)
	}
}

func TestLSFBackendJobIDPattern(t *testing.T) {
	out := []byte("Job <12345> is submitted to queue <normal>.\n")
	m := jobIDPattern.FindSubmatch(out)
	if m == nil || string(m[1]) != "12345" {
		t.Fatalf("jobIDPattern did not extract 12345 from %q", out)
	}
}

func TestLSFBackendJobIDPatternNoMatch(t *testing.T) {
	out := []byte("submission rejected\n")
	if m := jobIDPattern.FindSubmatch(out); m != nil {
		t.Fatalf("expected no match, got %v", m)
	}
}

func TestFakeBackendUnknownStatus(t *testing.T) {
	b := NewFakeBackend()
	status, err := b.Status("nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if status != "UNKNOWN" {
		t.Errorf("Status(nonexistent) = %q, want UNKNOWN", status)
	}
}

func TestFakeBackendEmptyArgvRejected(t *testing.T) {
	b := NewFakeBackend()
	if _, err := b.Submit(nil); err == nil {
		t.Error("expected an error submitting an empty argv")
	}
}
