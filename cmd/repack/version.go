package main

import (
	"fmt"
	"runtime/debug"
)

// Version returns a human-readable build version string, adapted from
// distri's own `distri version`-style build-info reporting but rendered
// with runtime/debug.ReadBuildInfo instead of distri's package-revision
// parsing (ParseVersion in distri's version.go parses distri's own
// squashfs/textproto package filenames, which has no counterpart here —
// this module has no package archive format to parse a version out of).
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "repack (unknown version)"
	}
	rev := "unknown"
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			rev = s.Value
			break
		}
	}
	return fmt.Sprintf("repack %s (%s)", info.Main.Version, rev)
}
