package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/document"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/notify"
	"git.home.luguber.info/inful/texbuilder/internal/testutil/fakeengine"
)

const latexSource = "\\documentclass{article}\\begin{document}Hi\\end{document}\n"

type capturePublisher struct {
	mu     sync.Mutex
	events []*notify.Event
}

func (p *capturePublisher) Publish(_ context.Context, e *notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	outcomes []metrics.Outcome
	post     []metrics.Outcome
	keys     []string
}

func (r *countingRecorder) IncBuildOutcome(o metrics.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *countingRecorder) IncPostProcessOutcome(o metrics.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.post = append(r.post, o)
}

func (r *countingRecorder) IncErrorKey(k string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, k)
}

type fixture struct {
	cfg     *config.Config
	workDir string
	tempDir string
	input   string
}

func newFixture(t *testing.T, b fakeengine.Behavior, name, content string) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.Command = fakeengine.Template(fakeengine.Install(t, b))
	f := &fixture{cfg: cfg, workDir: t.TempDir(), tempDir: t.TempDir()}
	cfg.Workspace.TempDir = f.tempDir
	f.input = filepath.Join(f.workDir, name)
	require.NoError(t, os.WriteFile(f.input, []byte(content), 0o600))
	return f
}

func TestRun_LaTeXSuccess(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "paper.tex", latexSource)
	pub := &capturePublisher{}
	rec := &countingRecorder{}
	svc := NewService(f.cfg, WithPublisher(pub), WithRecorder(rec))

	report, err := svc.Run(t.Context(), Request{Input: f.input})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.True(t, report.OK())
	assert.Equal(t, filepath.Join(f.workDir, "paper.pdf"), report.Output)
	assert.NotEmpty(t, report.BuildID)
	assert.NotEmpty(t, report.Fingerprint)
	assert.Nil(t, report.PostProcess)

	data, err := os.ReadFile(report.Output)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 pass 3\n", string(data))
	assert.Equal(t, 3, fakeengine.Calls(t, f.tempDir))

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, fakeengine.CallsFile, e.Name(), "temporary files must be removed")
	}

	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].OK)
	assert.Equal(t, "build", pub.events[0].Kind)
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeSuccess}, rec.outcomes)
	assert.Empty(t, rec.keys)
}

func TestRun_MarkdownIsConverted(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "notes.md", "---\ntitle: Notes\n---\n# Hello\n\n50% done\n")
	f.cfg.Markup.DocumentClass = "report"
	svc := NewService(f.cfg)

	generated := filepath.Join(f.workDir, "build", "notes.tex")
	require.NoError(t, os.MkdirAll(filepath.Dir(generated), 0o750))

	report, err := svc.Run(t.Context(), Request{Input: f.input, SourcePath: generated})
	require.NoError(t, err)
	require.True(t, report.OK())
	assert.Equal(t, "markdown", string(report.Format))
	assert.FileExists(t, filepath.Join(f.workDir, "notes.pdf"))

	src, err := os.ReadFile(generated)
	require.NoError(t, err)
	assert.Contains(t, string(src), "\\documentclass{report}")
	assert.Contains(t, string(src), "\\title{Notes}")
	assert.Contains(t, string(src), "\\section{Hello}")
	assert.Contains(t, string(src), "50\\% done")
	assert.FileExists(t, generated+document.OutputSuffix, "persistent source keeps its rendering")
}

func TestRun_EngineFailure(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{ExitCode: 1, Stdout: "! Undefined control sequence."}, "bad.tex", latexSource)
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	rec := &countingRecorder{}
	svc := NewService(f.cfg, WithHistory(store), WithRecorder(rec))

	report, err := svc.Run(t.Context(), Request{Input: f.input})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.NoFileExists(t, report.Output)
	assert.True(t, report.Build.Errors.Has(document.KeyEngine))
	assert.Contains(t, report.Diagnostics()[document.KeyEngine], "Undefined control sequence")

	rerr := report.Err()
	require.Error(t, rerr)
	assert.Equal(t, errors.CategoryEngine, errors.GetCategory(rerr))

	entries, err := store.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].OK)
	assert.Equal(t, 1, entries[0].ExitCode)
	assert.Contains(t, entries[0].Errors, "engine")

	assert.Equal(t, []metrics.Outcome{metrics.OutcomeFailed}, rec.outcomes)
	assert.Contains(t, rec.keys, "engine")
}

func TestRun_MissingInput(t *testing.T) {
	svc := NewService(config.Default())

	_, err := svc.Run(t.Context(), Request{Input: filepath.Join(t.TempDir(), "absent.tex")})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
}

func TestRun_PostProcess(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	post := fakeengine.Install(t, fakeengine.Behavior{Stdout: "optimized"})
	f.cfg.Engine.PostProcess = fakeengine.Template(post)
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	pub := &capturePublisher{}
	svc := NewService(f.cfg, WithHistory(store), WithPublisher(pub))

	report, err := svc.Run(t.Context(), Request{Input: f.input})
	require.NoError(t, err)
	require.NotNil(t, report.PostProcess)
	assert.True(t, report.PostProcess.OK)
	assert.Contains(t, report.PostProcess.Log, "optimized")
	assert.True(t, report.OK())
	assert.FileExists(t, report.Output)

	entries, err := store.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.KindPostProcess, entries[0].Kind)
	assert.Equal(t, history.KindBuild, entries[1].Kind)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "postprocess", pub.events[0].Kind)
}

func TestRun_PostProcessFailureKeepsDestinationUntouched(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	post := fakeengine.Install(t, fakeengine.Behavior{ExitCode: 2, Stdout: "gs: crashed"})
	svc := NewService(f.cfg)

	report, err := svc.Run(t.Context(), Request{Input: f.input, PostProcess: fakeengine.Template(post)})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.NoFileExists(t, report.Output)

	rerr := report.Err()
	require.Error(t, rerr)
	assert.Equal(t, errors.CategoryPostProcess, errors.GetCategory(rerr))
}

func TestRun_NoPostProcessOverridesConfig(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	f.cfg.Engine.PostProcess = "false"
	svc := NewService(f.cfg)

	report, err := svc.Run(t.Context(), Request{Input: f.input, NoPostProcess: true})
	require.NoError(t, err)
	assert.Nil(t, report.PostProcess)
	assert.True(t, report.OK())
}

func TestRun_SkipUnchanged(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	rec := &countingRecorder{}
	svc := NewService(f.cfg, WithHistory(store), WithRecorder(rec))
	req := Request{Input: f.input, SkipUnchanged: true}

	first, err := svc.Run(t.Context(), req)
	require.NoError(t, err)
	require.True(t, first.OK())
	assert.False(t, first.Skipped)

	second, err := svc.Run(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.True(t, second.OK())
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 3, fakeengine.Calls(t, f.tempDir))

	require.NoError(t, os.WriteFile(f.input, []byte(strings.Replace(latexSource, "Hi", "Bye", 1)), 0o600))
	third, err := svc.Run(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, third.Skipped)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
	assert.Equal(t, 6, fakeengine.Calls(t, f.tempDir))

	require.NoError(t, os.Remove(third.Output))
	fourth, err := svc.Run(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, fourth.Skipped, "missing destination forces a rebuild")

	assert.Equal(t, []metrics.Outcome{
		metrics.OutcomeSuccess, metrics.OutcomeSkipped, metrics.OutcomeSuccess, metrics.OutcomeSuccess,
	}, rec.outcomes)
}

func TestRun_SkipUnchangedAfterFailedPostProcess(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	svc := NewService(f.cfg, WithHistory(store))

	passing := fakeengine.Template(fakeengine.Install(t, fakeengine.Behavior{}))
	first, err := svc.Run(t.Context(), Request{Input: f.input, PostProcess: passing, SkipUnchanged: true})
	require.NoError(t, err)
	require.True(t, first.OK())
	published, err := os.ReadFile(first.Output)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.input, []byte(strings.Replace(latexSource, "Hi", "Bye", 1)), 0o600))
	failing := fakeengine.Template(fakeengine.Install(t, fakeengine.Behavior{ExitCode: 2, Stdout: "gs: crashed"}))
	req := Request{Input: f.input, PostProcess: failing, SkipUnchanged: true}

	second, err := svc.Run(t.Context(), req)
	require.NoError(t, err)
	require.False(t, second.OK())
	require.True(t, second.Build.OK)

	third, err := svc.Run(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, third.Skipped, "a failed post-process never counts as an up-to-date destination")
	assert.False(t, third.OK())
	assert.Equal(t, second.Fingerprint, third.Fingerprint)

	kept, err := os.ReadFile(first.Output)
	require.NoError(t, err)
	assert.Equal(t, published, kept)
}

func TestRun_SkipUnchangedAfterFailedCopy(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	svc := NewService(f.cfg, WithHistory(store))

	// A directory at the destination makes the final rename fail.
	dest := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.Mkdir(dest, 0o750))
	req := Request{Input: f.input, Output: dest, SkipUnchanged: true}

	first, err := svc.Run(t.Context(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryFileSystem, errors.GetCategory(err))
	require.True(t, first.Build.OK)

	latest, err := store.Latest(t.Context(), f.input)
	require.NoError(t, err)
	assert.False(t, latest.OK)
	assert.Contains(t, latest.Errors, "output")

	second, err := svc.Run(t.Context(), req)
	require.Error(t, err)
	assert.False(t, second.Skipped)
	assert.Equal(t, 6, fakeengine.Calls(t, f.tempDir))
}

func TestRun_OutputDirectoryAndExplicitOutput(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	outDir := filepath.Join(t.TempDir(), "out")
	f.cfg.Output.Directory = outDir
	svc := NewService(f.cfg)

	report, err := svc.Run(t.Context(), Request{Input: f.input})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "doc.pdf"), report.Output)
	assert.FileExists(t, report.Output)

	explicit := filepath.Join(t.TempDir(), "nested", "final.pdf")
	report, err = svc.Run(t.Context(), Request{Input: f.input, Output: explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, report.Output)
	assert.FileExists(t, explicit)
}

func TestRun_WarningOutcomeWithMissingFonts(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true, MissingFonts: "mktextfm ecrm1000"}, "doc.tex", latexSource)
	rec := &countingRecorder{}
	svc := NewService(f.cfg, WithRecorder(rec))

	report, err := svc.Run(t.Context(), Request{Input: f.input})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, metrics.OutcomeWarning, report.Outcome())
	assert.Contains(t, report.Diagnostics()[document.KeyMissingFonts], "ecrm1000")
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeWarning}, rec.outcomes)
	assert.Contains(t, rec.keys, "missingFonts")
}

func TestFingerprint_DependsOnSettingsAndSource(t *testing.T) {
	engine := config.Default().Engine
	base := Fingerprint(engine, "", []byte("x"))

	assert.Equal(t, base, Fingerprint(engine, "", []byte("x")))
	assert.NotEqual(t, base, Fingerprint(engine, "", []byte("y")))
	assert.NotEqual(t, base, Fingerprint(engine, "qpdf %file%.pdf", []byte("x")))

	engine.Passes = 1
	assert.NotEqual(t, base, Fingerprint(engine, "", []byte("x")))
}

func TestReport_SkippedIsOK(t *testing.T) {
	r := &Report{Skipped: true, Duration: time.Millisecond}
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
	assert.Equal(t, metrics.OutcomeSkipped, r.Outcome())
}

func TestPostProcess_Standalone(t *testing.T) {
	f := newFixture(t, fakeengine.Behavior{Output: true}, "doc.tex", latexSource)
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	svc := NewService(f.cfg, WithHistory(store))

	_, err = svc.PostProcess(t.Context(), f.input, "")
	require.Error(t, err, "no command configured")
	assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))

	post := fakeengine.Template(fakeengine.Install(t, fakeengine.Behavior{}))
	report, err := svc.PostProcess(t.Context(), f.input, post)
	require.NoError(t, err)
	assert.False(t, report.OK(), "no rendering exists yet")
	assert.Contains(t, report.PostProcess.Errors[document.KeyPostProcessor], "no output file")
	assert.Equal(t, errors.CategoryPostProcess, errors.GetCategory(report.Err()))

	require.NoError(t, os.WriteFile(f.input+document.OutputSuffix, []byte("%PDF-1.4\n"), 0o600))
	report, err = svc.PostProcess(t.Context(), f.input, post)
	require.NoError(t, err)
	assert.True(t, report.OK())
	require.NoError(t, report.Err())
	assert.Equal(t, f.input+document.OutputSuffix, report.Output)
	assert.FileExists(t, f.input, "persistent source is kept")

	entries, err := store.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.KindPostProcess, entries[0].Kind)
	assert.True(t, entries[0].OK)
}

func TestPostProcess_MissingSource(t *testing.T) {
	svc := NewService(config.Default())
	_, err := svc.PostProcess(t.Context(), filepath.Join(t.TempDir(), "absent.tex"), "true %dir% %file%")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
}
