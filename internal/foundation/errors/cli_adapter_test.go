package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "engine", err: EngineError("pdflatex failed").Build(), expected: 11},
		{name: "postprocess", err: PostProcessError("qpdf failed").Build(), expected: 11},
		{name: "history", err: HistoryError("db locked").Build(), expected: 12},
		{name: "internal", err: InternalError("boom").Build(), expected: 10},
		{name: "wrapped classified", err: fmt.Errorf("run: %w", EngineError("x").Build()), expected: 11},
		{name: "unclassified", err: stderrors.New("plain"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := WrapError(cause, CategoryFileSystem, "write output").Build()

	quiet := NewCLIErrorAdapter(false, slog.Default())
	assert.Equal(t, "Error: write output: permission denied", quiet.FormatError(err))
	assert.Equal(t, "Error: plain", quiet.FormatError(stderrors.New("plain")))

	verbose := NewCLIErrorAdapter(true, slog.Default())
	assert.Equal(t, "[filesystem:error] write output: permission denied", verbose.FormatError(err))
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logBuf, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logBuf, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("missing engine command").WithContext("path", "texbuilder.yaml").Build())

	require.Equal(t, 7, code)
	assert.Contains(t, out.String(), "missing engine command")
	assert.Contains(t, logBuf.String(), "category=config")
	assert.Contains(t, logBuf.String(), "path=texbuilder.yaml")

	code = -1
	adapter.HandleError(nil)
	assert.Equal(t, -1, code)
}

func TestCLIErrorAdapter_EngineCauseHidden(t *testing.T) {
	err := EngineError("document build failed").WithCause(stderrors.New("! Undefined control sequence.")).Build()
	quiet := NewCLIErrorAdapter(false, slog.Default())
	assert.Equal(t, "Error: document build failed", quiet.FormatError(err))
}

func TestCLIErrorAdapter_LogsOnlyFatalWhenQuiet(t *testing.T) {
	var logBuf, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logBuf, nil)))
	adapter.out = &out
	adapter.exit = func(int) {}

	adapter.HandleError(EngineError("document build failed").Build())
	assert.Empty(t, logBuf.String())
	assert.Contains(t, out.String(), "document build failed")

	adapter.HandleError(InternalError("encode history entries").Build())
	assert.Contains(t, logBuf.String(), "category=internal")
}
