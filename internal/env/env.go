// Package env captures details about the repack environment: where the
// default status file lives when a driver doesn't specify one explicitly.
package env

import (
	"os"
	"path/filepath"
)

// StatusDir is the default directory for a run's status file:
// $REPACKROOT/state when the REPACKROOT environment variable is set, else
// $HOME/repack/state.
var StatusDir = findStatusDir()

func findStatusDir() string {
	if root := os.Getenv("REPACKROOT"); root != "" {
		return filepath.Join(root, "state")
	}
	return os.ExpandEnv(filepath.Join("$HOME", "repack", "state"))
}
