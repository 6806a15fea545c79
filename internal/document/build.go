package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// Build renders the source file. The engine runs Passes() times in sequence;
// only the last pass's stdout and exit code are captured. The result is OK iff
// the output file exists afterwards, independent of recorded diagnostics.
func (b *Builder) Build(ctx context.Context) *Result {
	start := time.Now()
	res := newResult()
	defer func() {
		res.Duration = time.Since(start)
		b.last = res
	}()
	b.buildLog = ""

	output := b.OutputPath()
	if err := removeIfExists(output); err != nil {
		res.Errors[KeyPDF] = fmt.Sprintf("could not remove previous output %s: %v", output, err)
		b.logger.Warn("Stale output could not be removed", logfields.Output(output), logfields.Error(err))
		return res
	}

	dir := filepath.Dir(b.sourcePath)
	argv, err := b.command.Argv(b.mode, dir, b.sourcePath)
	if err != nil {
		res.Errors[KeyEngine] = fmt.Sprintf("invalid engine command: %v", err)
		return res
	}

	var last Outcome
	for pass := 1; pass <= b.passes; pass++ {
		last = b.runPass(ctx, pass, argv, dir)
		res.Passes = pass
		if last.Err != nil {
			break
		}
	}
	res.ExitCode = last.ExitCode

	if last.ExitCode == ExitCommandNotFound {
		res.Errors[KeyEngine] = fmt.Sprintf(
			"rendering engine %q not found: it is not installed or not on the executable search path",
			b.command.Program())
		b.logger.Error("Rendering engine not found", logfields.Command(b.command.Program()))
		return res
	}

	res.Log = joinLines(last.Stdout)
	b.buildLog = res.Log

	switch {
	case errors.Is(last.Err, ErrWorkingDirectory):
		res.Errors[KeyEngine] = fmt.Sprintf("rendering engine %q could not start: %v", b.command.Program(), last.Err)
		b.logger.Error("Source directory unavailable", logfields.Source(b.sourcePath), logfields.Error(last.Err))
	case last.Err != nil:
		res.Errors[KeyEngine] = fmt.Sprintf("rendering engine interrupted on pass %d: %v", res.Passes, last.Err)
		if res.Log != "" {
			res.Errors[KeyEngine] += "\n" + res.Log
		}
	case last.ExitCode != 0 || !fileExists(output):
		res.Errors[KeyEngine] = res.Log
		if res.Log == "" {
			res.Errors[KeyEngine] = fmt.Sprintf("rendering engine exited with status %d without producing %s",
				last.ExitCode, output)
		}
	}

	b.cleanupSideFiles()
	if fonts, ok := b.collectMissingFonts(); ok {
		res.Errors[KeyMissingFonts] = fonts
	}
	if err := removeIfExists(siblingPath(b.sourcePath, FallbackLogFile)); err != nil {
		b.logger.Debug("Could not remove fallback log", logfields.Error(err))
	}

	res.OK = fileExists(output)
	if res.OK {
		res.Output = output
	}
	b.logger.Debug("Build finished",
		logfields.Source(b.sourcePath),
		slog.Bool("ok", res.OK),
		logfields.ExitCode(res.ExitCode),
		logfields.Passes(res.Passes))
	return res
}

// PostProcess runs command against the rendered output with the same
// placeholder substitution as the engine command. It requires a prior
// successful build and fails if the command removes the output.
func (b *Builder) PostProcess(ctx context.Context, command string) *Result {
	start := time.Now()
	res := newResult()
	defer func() {
		res.Duration = time.Since(start)
		b.last = res
	}()

	output := b.OutputPath()
	if !fileExists(output) {
		res.Errors[KeyPostProcessor] = fmt.Sprintf(
			"no output file %s to post-process: the build has not run or did not succeed", output)
		return res
	}

	dir := filepath.Dir(b.sourcePath)
	argv, err := Template(command).Argv(b.mode, dir, b.sourcePath)
	if err != nil {
		res.Errors[KeyPostProcessor] = fmt.Sprintf("invalid post-process command: %v", err)
		return res
	}

	out := b.invoke(ctx, Invocation{Argv: argv, Dir: dir, Capture: true})
	res.Passes = 1
	res.ExitCode = out.ExitCode
	res.Log = joinLines(out.Stdout)

	switch {
	case out.Err != nil:
		res.Errors[KeyPostProcessor] = fmt.Sprintf("post processor interrupted: %v", out.Err)
	case out.ExitCode != 0:
		res.Errors[KeyPostProcessor] = res.Log
		if res.Log == "" {
			res.Errors[KeyPostProcessor] = fmt.Sprintf("post processor exited with status %d", out.ExitCode)
		}
	case !fileExists(output):
		res.Errors[KeyPostProcessor] = fmt.Sprintf("post processor removed the output file %s", output)
	default:
		res.OK = true
		res.Output = output
	}
	return res
}

func (b *Builder) runPass(ctx context.Context, pass int, argv []string, dir string) Outcome {
	capture := pass == b.passes
	start := time.Now()
	out := b.invoke(ctx, Invocation{Argv: argv, Dir: dir, Capture: capture})
	elapsed := time.Since(start)
	b.recorder.ObservePassDuration(pass, elapsed)

	b.logger.Debug("Engine pass completed",
		logfields.Pass(pass),
		logfields.ExitCode(out.ExitCode),
		logfields.Duration(elapsed))
	if capture && out.Stderr != "" {
		b.logger.Debug("Engine stderr", "stderr", out.Stderr)
	}
	return out
}

func (b *Builder) invoke(ctx context.Context, inv Invocation) Outcome {
	if b.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.passTimeout)
		defer cancel()
	}
	return b.executor.Execute(ctx, inv)
}

// cleanupSideFiles removes .out/.aux/.log artefacts; failures are ignored.
func (b *Builder) cleanupSideFiles() {
	for _, suffix := range sideFileSuffixes {
		if err := removeIfExists(b.sourcePath + suffix); err != nil {
			b.logger.Debug("Could not remove side-file", logfields.Path(b.sourcePath+suffix), logfields.Error(err))
		}
	}
}

// collectMissingFonts reads and deletes missfont.log when the engine wrote one.
func (b *Builder) collectMissingFonts() (string, bool) {
	path := siblingPath(b.sourcePath, MissingFontsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if err := os.Remove(path); err != nil {
		b.logger.Warn("Could not remove missing-fonts report", logfields.Path(path), logfields.Error(err))
	}
	return string(data), true
}

// joinLines normalizes captured output to newline-joined lines without
// trailing whitespace.
func joinLines(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.Join(lines, "\n")
}
