// Package fakeengine installs shell scripts that imitate a typesetting engine.
//
// Scripts are invoked as "<script> <dir> <file>" (see Template) and append one
// line per invocation to CallsFile in <dir>, so tests can count passes.
package fakeengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"
)

// CallsFile records one line per engine invocation in the target directory.
const CallsFile = "engine.calls"

// Behavior describes what the fake engine does on every pass.
type Behavior struct {
	// Output writes "<file>.pdf".
	Output bool
	// ExitCode is returned by every pass.
	ExitCode int
	// Stdout is printed after a "pass N" line.
	Stdout string
	// SideFiles creates .aux, .log and .out next to the source.
	SideFiles bool
	// MissingFonts is written to missfont.log in the working directory.
	MissingFonts string
	// Texput creates texput.log in the working directory.
	Texput bool
	// SleepSeconds delays each pass.
	SleepSeconds int
	// RemoveOutput deletes "<file>.pdf" (for post-processors).
	RemoveOutput bool
}

// Script renders b as a POSIX shell script.
func Script(b Behavior) string {
	var s strings.Builder
	s.WriteString("#!/bin/sh\n")
	s.WriteString("dir=\"$1\"\nfile=\"$2\"\n")
	s.WriteString("echo \"$file\" >> \"$dir/" + CallsFile + "\"\n")
	s.WriteString("n=$(wc -l < \"$dir/" + CallsFile + "\" | tr -d ' ')\n")
	if b.SleepSeconds > 0 {
		fmt.Fprintf(&s, "sleep %d\n", b.SleepSeconds)
	}
	if b.SideFiles {
		s.WriteString(": > \"$file.aux\"\n: > \"$file.log\"\n: > \"$file.out\"\n")
	}
	if b.MissingFonts != "" {
		s.WriteString("printf '%s\\n' " + shellquote.Join(b.MissingFonts) + " > missfont.log\n")
	}
	if b.Texput {
		s.WriteString(": > texput.log\n")
	}
	s.WriteString("echo \"pass $n\"\n")
	if b.Stdout != "" {
		s.WriteString("printf '%s\\n' " + shellquote.Join(b.Stdout) + "\n")
	}
	if b.Output {
		s.WriteString("printf '%%PDF-1.4 pass %s\\n' \"$n\" > \"$file.pdf\"\n")
	}
	if b.RemoveOutput {
		s.WriteString("rm -f \"$file.pdf\"\n")
	}
	fmt.Fprintf(&s, "exit %d\n", b.ExitCode)
	return s.String()
}

// Install writes an executable script for b into a fresh temp directory and
// returns its path.
func Install(t testing.TB, b Behavior) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine")
	// #nosec G306 -- test script must be executable
	if err := os.WriteFile(path, []byte(Script(b)), 0o755); err != nil {
		t.Fatalf("install fake engine: %v", err)
	}
	return path
}

// Template returns a command template invoking script with the directory and file placeholders.
func Template(script string) string {
	return shellquote.Join(script) + " %dir% %file%"
}

// Calls returns how many times an engine was invoked against dir.
func Calls(t testing.TB, dir string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, CallsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("read engine calls: %v", err)
	}
	return strings.Count(string(data), "\n")
}
