package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/document"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/markup"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/notify"
)

// errorKeyOutput marks a history entry whose rendering could not be copied
// to the destination.
const errorKeyOutput = "output"

// Service runs builds against a fixed configuration.
type Service struct {
	cfg       *config.Config
	history   history.Store
	recorder  metrics.Recorder
	publisher notify.Publisher
	executor  document.Executor
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithHistory(s history.Store) Option      { return func(svc *Service) { svc.history = s } }
func WithRecorder(r metrics.Recorder) Option  { return func(svc *Service) { svc.recorder = r } }
func WithPublisher(p notify.Publisher) Option { return func(svc *Service) { svc.publisher = p } }
func WithExecutor(e document.Executor) Option { return func(svc *Service) { svc.executor = e } }
func WithLogger(l *slog.Logger) Option        { return func(svc *Service) { svc.logger = l } }

// NewService creates a Service. Unset collaborators default to no-ops.
func NewService(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	svc := &Service{
		cfg:       cfg,
		history:   history.NoopStore{},
		recorder:  metrics.NoopRecorder{},
		publisher: notify.NoopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Run performs one build. The returned error is reserved for problems outside
// the engine (unreadable input, invalid configuration, output not writable);
// engine failures are described by the Report.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	input, err := filepath.Abs(req.Input)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "resolve input path").Build()
	}

	report := &Report{
		BuildID: uuid.NewString(),
		Input:   input,
		Output:  s.destination(input, req.Output),
		Format:  req.Format.Resolve(input),
	}
	logger := s.logger.With(logfields.BuildID(report.BuildID), logfields.Source(input))

	raw, err := os.ReadFile(input)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewError(errors.CategoryNotFound, "input file not found").
				WithCause(err).WithContext("input", input).Build()
		}
		return nil, errors.FileSystemError("read input file").WithCause(err).WithContext("input", input).Build()
	}

	source, err := s.render(raw, report.Format)
	if err != nil {
		return nil, errors.ValidationError("convert markdown input").WithCause(err).WithContext("input", input).Build()
	}

	postCmd := s.cfg.Engine.PostProcess
	if req.PostProcess != "" {
		postCmd = req.PostProcess
	}
	if req.NoPostProcess {
		postCmd = ""
	}
	report.Fingerprint = Fingerprint(s.cfg.Engine, postCmd, source)

	if req.SkipUnchanged && s.unchanged(ctx, report) {
		report.Skipped = true
		report.Duration = time.Since(start)
		logger.Info("Source unchanged, skipping build", logfields.Output(report.Output))
		s.recorder.IncBuildOutcome(metrics.OutcomeSkipped)
		s.publish(ctx, logger, report, history.KindBuild)
		return report, nil
	}

	builder, err := document.New(s.builderOptions(req, logger)...)
	if err != nil {
		return nil, errors.ConfigError("create document builder").WithCause(err).Build()
	}
	defer func() {
		if builder.IsTemporary() {
			_ = os.Remove(builder.OutputPath())
		}
		if cerr := builder.Close(); cerr != nil {
			logger.Warn("Could not remove temporary source", logfields.Error(cerr))
		}
	}()

	if err := builder.SaveSource(string(source)); err != nil {
		return nil, errors.FileSystemError("write document source").WithCause(err).
			WithContext("path", builder.SourcePath()).Build()
	}

	logger.Info("Building document", logfields.Passes(builder.Passes()))
	report.Build = builder.Build(ctx)
	s.observe(report.Build, false)

	if report.Build.OK && postCmd != "" {
		logger.Info("Post-processing output", logfields.Command(postCmd))
		report.PostProcess = builder.PostProcess(ctx, postCmd)
		s.observe(report.PostProcess, true)
	}

	var copyErr error
	if report.OK() {
		copyErr = copyOutput(builder.OutputPath(), report.Output)
	}
	s.recordRun(ctx, logger, report, copyErr)
	report.Duration = time.Since(start)
	s.recorder.ObserveBuildDuration(report.Duration)
	s.recorder.IncBuildOutcome(report.Outcome())

	kind := history.KindBuild
	if report.PostProcess != nil {
		kind = history.KindPostProcess
	}
	s.publish(ctx, logger, report, kind)

	if copyErr != nil {
		return report, errors.FileSystemError("write output file").WithCause(copyErr).
			WithContext("output", report.Output).Build()
	}
	if report.OK() {
		logger.Info("Document built", logfields.Output(report.Output), logfields.Duration(report.Duration))
	} else {
		logger.Warn("Document build failed",
			logfields.ExitCode(report.Build.ExitCode),
			slog.Any("error_keys", report.Diagnostics().Keys()))
	}
	return report, nil
}

// PostProcess runs command (or the configured post-process command) against
// the rendering that an earlier build left next to source.
func (s *Service) PostProcess(ctx context.Context, source, command string) (*Report, error) {
	start := time.Now()
	if command == "" {
		command = s.cfg.Engine.PostProcess
	}
	if command == "" {
		return nil, errors.ValidationError("no post-process command given or configured").Build()
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "resolve source path").Build()
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, errors.NewError(errors.CategoryNotFound, "source file not found").
			WithCause(err).WithContext("source", abs).Build()
	}

	report := &Report{BuildID: uuid.NewString(), Input: abs, Format: markup.FormatLaTeX}
	logger := s.logger.With(logfields.BuildID(report.BuildID), logfields.Source(abs))

	builder, err := document.New(s.builderOptions(Request{SourcePath: abs}, logger)...)
	if err != nil {
		return nil, errors.ConfigError("create document builder").WithCause(err).Build()
	}
	defer func() { _ = builder.Close() }()
	report.Output = builder.OutputPath()

	logger.Info("Post-processing output", logfields.Command(command))
	report.PostProcess = builder.PostProcess(ctx, command)
	report.Duration = time.Since(start)
	s.observe(report.PostProcess, true)
	s.record(ctx, logger, report, history.KindPostProcess, report.PostProcess)
	s.publish(ctx, logger, report, history.KindPostProcess)
	return report, nil
}

func (s *Service) render(raw []byte, format markup.Format) ([]byte, error) {
	if format != markup.FormatMarkdown {
		return raw, nil
	}
	return markup.ToLaTeX(raw, markup.Options{
		DocumentClass: s.cfg.Markup.DocumentClass,
		Packages:      s.cfg.Markup.Packages,
	})
}

func (s *Service) builderOptions(req Request, logger *slog.Logger) []document.Option {
	opts := []document.Option{
		document.WithCommand(document.Template(s.cfg.Engine.Command)),
		document.WithPasses(s.cfg.Engine.Passes),
		document.WithPassTimeout(s.cfg.Engine.PassTimeoutDuration()),
		document.WithExecMode(document.ExecMode(s.cfg.Engine.ExecMode)),
		document.WithTempDir(s.cfg.Workspace.TempDir),
		document.WithRecorder(s.recorder),
		document.WithLogger(logger),
	}
	if req.SourcePath != "" {
		opts = append(opts, document.WithSourcePath(req.SourcePath))
	}
	if s.executor != nil {
		opts = append(opts, document.WithExecutor(s.executor))
	}
	return opts
}

func (s *Service) destination(input, requested string) string {
	if requested != "" {
		if abs, err := filepath.Abs(requested); err == nil {
			return abs
		}
		return requested
	}
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + document.OutputSuffix
	dir := filepath.Dir(input)
	if s.cfg.Output.Directory != "" {
		dir = s.cfg.Output.Directory
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return filepath.Join(dir, name)
}

func (s *Service) unchanged(ctx context.Context, report *Report) bool {
	if _, err := os.Stat(report.Output); err != nil {
		return false
	}
	// The newest entry decides: a later failed post-process or copy means
	// the destination no longer matches the recorded fingerprint.
	last, err := s.history.Latest(ctx, report.Input)
	if err != nil {
		if !stderrors.Is(err, history.ErrNotFound) {
			s.logger.Warn("Could not read build history", logfields.Error(err))
		}
		return false
	}
	return last.OK && last.Fingerprint == report.Fingerprint && last.Output == report.Output
}

func (s *Service) observe(res *document.Result, post bool) {
	if post {
		s.recorder.IncPostProcessOutcome(outcomeOf(res))
	}
	for _, key := range res.Errors.Keys() {
		s.recorder.IncErrorKey(string(key))
	}
}

func outcomeOf(res *document.Result) metrics.Outcome {
	switch {
	case !res.OK:
		return metrics.OutcomeFailed
	case !res.Errors.Empty():
		return metrics.OutcomeWarning
	default:
		return metrics.OutcomeSuccess
	}
}

// recordRun stores the build entry and, when it ran, the post-process entry.
// The last entry written carries the final outcome of the run, including a
// failed copy to the destination.
func (s *Service) recordRun(ctx context.Context, logger *slog.Logger, report *Report, copyErr error) {
	entries := []*history.Entry{newEntry(history.KindBuild, report, report.Build)}
	if report.PostProcess != nil {
		entries = append(entries, newEntry(history.KindPostProcess, report, report.PostProcess))
	}
	if copyErr != nil {
		final := entries[len(entries)-1]
		final.OK = false
		if final.Errors == nil {
			final.Errors = make(map[string]string)
		}
		final.Errors[errorKeyOutput] = copyErr.Error()
	}
	for _, entry := range entries {
		s.store(ctx, logger, entry)
	}
}

func (s *Service) record(ctx context.Context, logger *slog.Logger, report *Report, kind history.Kind, res *document.Result) {
	s.store(ctx, logger, newEntry(kind, report, res))
}

func (s *Service) store(ctx context.Context, logger *slog.Logger, entry *history.Entry) {
	if err := s.history.Record(ctx, entry); err != nil {
		logger.Warn("Could not record build history", logfields.Error(err))
	}
}

func newEntry(kind history.Kind, report *Report, res *document.Result) *history.Entry {
	entry := history.NewEntry(kind, report.Input, time.Now().Add(-res.Duration))
	entry.Output = report.Output
	entry.Fingerprint = report.Fingerprint
	entry.OK = res.OK
	entry.ExitCode = res.ExitCode
	entry.Errors = res.Errors.Strings()
	entry.Log = res.Log
	entry.Duration = res.Duration
	return entry
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, report *Report, kind history.Kind) {
	event := &notify.Event{
		BuildID:    report.BuildID,
		Kind:       string(kind),
		Source:     report.Input,
		Output:     report.Output,
		OK:         report.OK(),
		Skipped:    report.Skipped,
		Errors:     report.Diagnostics().Strings(),
		DurationMS: report.Duration.Milliseconds(),
	}
	if report.Build != nil {
		event.ExitCode = report.Build.ExitCode
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("Could not publish build event", logfields.Error(err))
	}
}

// copyOutput replaces dst with the contents of src atomically.
func copyOutput(src, dst string) error {
	if src == dst {
		return nil
	}
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open rendered output: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := atomic.WriteFile(dst, f); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
