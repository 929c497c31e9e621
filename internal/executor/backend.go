package executor

import (
	"os/exec"
	"regexp"
	"strings"

	"golang.org/x/xerrors"
)

// jobIDPattern matches the backend job id out of bsub's stdout, e.g.
// "Job <12345> is submitted to queue <normal>."
var jobIDPattern = regexp.MustCompile(`Job <(\d+)>`)

// LSFBackend is the production Backend: it shells out to bsub to submit and
// bjobs to poll status, matching original_source/repack/executor/lsf.py
// byte for byte in behavior.
type LSFBackend struct{}

// Submit implements Backend by executing argv (expected to start with
// "bsub") and parsing the backend job id from its stdout.
func (LSFBackend) Submit(argv []string) (string, error) {
	out, err := exec.Command(argv[0], argv[1:]...).Output()
	if err != nil {
		return "", xerrors.Errorf("%v: %w", argv, err)
	}
	m := jobIDPattern.FindSubmatch(out)
	if m == nil {
		return "", xerrors.Errorf("could not parse backend job id from: %s", out)
	}
	return string(m[1]), nil
}

// Status implements Backend via `bjobs -noheader -o stat <id>`. A bjobs
// failure (e.g. the job aged out of the scheduler's history) is reported as
// UNKNOWN rather than an error, since Cluster.Wait treats UNKNOWN as simply
// not-yet-resolved and retries on the next poll.
func (LSFBackend) Status(backendID string) (string, error) {
	out, err := exec.Command("bjobs", "-noheader", "-o", "stat", backendID).Output()
	if err != nil {
		return "UNKNOWN", nil
	}
	return strings.TrimSpace(string(out)), nil
}
