package main

import (
	"strings"
	"testing"
)

func TestVersionFormat(t *testing.T) {
	got := Version()
	if !strings.HasPrefix(got, "repack ") {
		t.Fatalf("Version() = %q, want a string starting with %q", got, "repack ")
	}
	if !strings.Contains(got, "(") || !strings.HasSuffix(got, ")") {
		t.Fatalf("Version() = %q, want a trailing \"(revision)\" component", got)
	}
}
