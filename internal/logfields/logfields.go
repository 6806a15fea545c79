package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyPath       = "path"
	KeyPass       = "pass"
	KeyPasses     = "passes"
	KeyExitCode   = "exit_code"
	KeyCommand    = "command"
	KeyDurationMS = "duration_ms"
	KeyErrorKey   = "error_key"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Pass(n int) slog.Attr            { return slog.Int(KeyPass, n) }
func Passes(n int) slog.Attr          { return slog.Int(KeyPasses, n) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func ErrorKey(k string) slog.Attr     { return slog.String(KeyErrorKey, k) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration reports d in milliseconds under the canonical duration key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
