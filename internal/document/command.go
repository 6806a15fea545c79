package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Placeholders substituted into command templates.
const (
	DirPlaceholder  = "%dir%"
	FilePlaceholder = "%file%"
)

// DefaultCommand renders with pdflatex in non-interactive mode.
const DefaultCommand Template = "pdflatex -interaction=nonstopmode -output-directory=" + DirPlaceholder + " " + FilePlaceholder

// ExecMode selects how a Template becomes a process.
type ExecMode string

const (
	// ExecArgs splits the template into arguments first and substitutes
	// placeholders inside each argument. Paths are never re-tokenized.
	ExecArgs ExecMode = "args"
	// ExecShell substitutes placeholders into the raw template and hands the
	// string to /bin/sh -c. Paths containing shell metacharacters are not quoted.
	ExecShell ExecMode = "shell"
)

// ShellPath is the interpreter used by ExecShell.
var ShellPath = "/bin/sh"

// Template is a command line containing DirPlaceholder and FilePlaceholder.
type Template string

// Validate reports whether both placeholders are present.
func (t Template) Validate() error {
	s := string(t)
	if strings.TrimSpace(s) == "" {
		return errors.New("command template is empty")
	}
	if !strings.Contains(s, DirPlaceholder) {
		return fmt.Errorf("command template %q has no %s placeholder", s, DirPlaceholder)
	}
	if !strings.Contains(s, FilePlaceholder) {
		return fmt.Errorf("command template %q has no %s placeholder", s, FilePlaceholder)
	}
	return nil
}

// Materialize substitutes dir and file by plain text replacement.
func (t Template) Materialize(dir, file string) string {
	return placeholderReplacer(dir, file).Replace(string(t))
}

// Program returns the first word of the template, used in diagnostics.
func (t Template) Program() string {
	words, err := shellquote.Split(string(t))
	if err != nil || len(words) == 0 {
		fields := strings.Fields(string(t))
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	}
	return words[0]
}

// Argv builds the process argument vector for mode.
func (t Template) Argv(mode ExecMode, dir, file string) ([]string, error) {
	switch mode {
	case ExecShell:
		cmd := t.Materialize(dir, file)
		if strings.TrimSpace(cmd) == "" {
			return nil, errors.New("command is empty")
		}
		return []string{ShellPath, "-c", cmd}, nil
	case ExecArgs, "":
		words, err := shellquote.Split(string(t))
		if err != nil {
			return nil, fmt.Errorf("parse command %q: %w", string(t), err)
		}
		if len(words) == 0 {
			return nil, errors.New("command is empty")
		}
		r := placeholderReplacer(dir, file)
		argv := make([]string, len(words))
		for i, w := range words {
			argv[i] = r.Replace(w)
		}
		return argv, nil
	default:
		return nil, fmt.Errorf("unknown exec mode %q", mode)
	}
}

func placeholderReplacer(dir, file string) *strings.Replacer {
	return strings.NewReplacer(DirPlaceholder, dir, FilePlaceholder, file)
}
