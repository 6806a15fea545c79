// Package markup converts Markdown sources into standalone LaTeX documents
// so the typesetting engine can render them.
package markup

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the language of an input file.
type Format string

const (
	FormatAuto     Format = "auto"
	FormatLaTeX    Format = "latex"
	FormatMarkdown Format = "markdown"
)

// DetectFormat picks a format from the file extension. Anything that is not
// Markdown is handed to the engine unchanged.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatLaTeX
	}
}

// ParseFormat validates a user supplied format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatLaTeX, FormatMarkdown:
		return f, nil
	case "tex":
		return FormatLaTeX, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown input format %q (want auto, latex or markdown)", s)
	}
}

// Resolve returns f, or the format detected from path when f is auto.
func (f Format) Resolve(path string) Format {
	if f == "" || f == FormatAuto {
		return DetectFormat(path)
	}
	return f
}
