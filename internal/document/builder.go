package document

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
)

// DefaultPasses is the convergence pass budget. Engines resolve labels,
// citations and tables of contents iteratively; three passes is a heuristic.
const DefaultPasses = 3

// Builder manages one source file and its rendered output.
type Builder struct {
	sourcePath  string
	temporary   bool
	command     Template
	passes      int
	passTimeout time.Duration
	mode        ExecMode
	executor    Executor
	recorder    metrics.Recorder
	logger      *slog.Logger

	last     *Result
	buildLog string
	closed   bool
}

type options struct {
	sourcePath  string
	tempDir     string
	command     Template
	passes      int
	passTimeout time.Duration
	mode        ExecMode
	executor    Executor
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithSourcePath uses path as a persistent source file. It is never deleted by Close.
func WithSourcePath(path string) Option { return func(o *options) { o.sourcePath = path } }

// WithTempDir sets the directory for auto-generated source files.
func WithTempDir(dir string) Option { return func(o *options) { o.tempDir = dir } }

// WithCommand sets the engine command template.
func WithCommand(t Template) Option { return func(o *options) { o.command = t } }

// WithPasses sets the number of convergence passes per build.
func WithPasses(n int) Option { return func(o *options) { o.passes = n } }

// WithPassTimeout bounds each engine pass; zero disables the limit.
func WithPassTimeout(d time.Duration) Option { return func(o *options) { o.passTimeout = d } }

// WithExecMode selects argument splitting or shell execution.
func WithExecMode(m ExecMode) Option { return func(o *options) { o.mode = m } }

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option { return func(o *options) { o.executor = e } }

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(o *options) { o.recorder = r } }

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// New creates a Builder. Without WithSourcePath a uniquely named, empty source
// file is created in the temp directory and owned by the Builder.
func New(opts ...Option) (*Builder, error) {
	o := options{
		command:  DefaultCommand,
		passes:   DefaultPasses,
		mode:     ExecArgs,
		executor: ProcessExecutor{},
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if err := o.command.Validate(); err != nil {
		return nil, err
	}
	if o.passes < 1 {
		return nil, fmt.Errorf("passes must be at least 1, got %d", o.passes)
	}
	if o.mode != ExecArgs && o.mode != ExecShell {
		return nil, fmt.Errorf("unknown exec mode %q", o.mode)
	}

	b := &Builder{
		command:     o.command,
		passes:      o.passes,
		passTimeout: o.passTimeout,
		mode:        o.mode,
		executor:    o.executor,
		recorder:    o.recorder,
		logger:      o.logger,
	}

	if o.sourcePath != "" {
		abs, err := filepath.Abs(o.sourcePath)
		if err != nil {
			return nil, fmt.Errorf("resolve source path: %w", err)
		}
		b.sourcePath = abs
		return b, nil
	}

	dir := o.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, TempPrefix)
	if err != nil {
		return nil, fmt.Errorf("create temporary source: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create temporary source: %w", err)
	}
	abs, err := filepath.Abs(f.Name())
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	b.sourcePath = abs
	b.temporary = true
	b.logger.Debug("Created temporary source", logfields.Source(abs))
	return b, nil
}

// SourcePath returns the absolute source file path.
func (b *Builder) SourcePath() string { return b.sourcePath }

// IsTemporary reports whether the source file is owned and deleted by Close.
func (b *Builder) IsTemporary() bool { return b.temporary }

// Command returns the engine command template.
func (b *Builder) Command() Template { return b.command }

// SetCommand replaces the engine command template. Only placeholder presence
// is checked; the engine binary is not looked up.
func (b *Builder) SetCommand(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	b.command = t
	return nil
}

// Passes returns the configured convergence pass count.
func (b *Builder) Passes() int { return b.passes }

// OutputPath returns where the rendered output is expected, whether or not it exists.
func (b *Builder) OutputPath() string { return OutputPathFor(b.sourcePath) }

// OutputFile returns the rendered output path if it currently exists on disk.
func (b *Builder) OutputFile() (string, bool) {
	p := b.OutputPath()
	if fileExists(p) {
		return p, true
	}
	return "", false
}

// Errors returns the diagnostics of the most recent Build or PostProcess call.
func (b *Builder) Errors() Errors {
	if b.last == nil {
		return Errors{}
	}
	return b.last.Errors.Clone()
}

// Log returns the console output captured from the final pass of the most recent Build.
func (b *Builder) Log() string { return b.buildLog }

// SaveSource replaces the source file content atomically.
func (b *Builder) SaveSource(content string) error {
	if err := atomic.WriteFile(b.sourcePath, strings.NewReader(content)); err != nil {
		return fmt.Errorf("save source %s: %w", b.sourcePath, err)
	}
	return nil
}

// DeleteSource removes the source file; an absent file is not an error.
func (b *Builder) DeleteSource() error {
	if err := removeIfExists(b.sourcePath); err != nil {
		return fmt.Errorf("delete source %s: %w", b.sourcePath, err)
	}
	return nil
}

// Close releases the Builder. Temporary sources are deleted; persistent
// sources, rendered output and side-files are left in place. Close is idempotent.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if !b.temporary {
		return nil
	}
	err := b.DeleteSource()
	if err == nil {
		b.logger.Debug("Removed temporary source", logfields.Source(b.sourcePath))
	}
	return err
}
