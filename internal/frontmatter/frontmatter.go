// Package frontmatter separates YAML frontmatter from a Markdown body and
// decodes the document metadata keys the LaTeX wrapper understands.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Metadata holds the frontmatter keys that influence the generated preamble.
// Unknown keys are ignored.
type Metadata struct {
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author"`
	Date          string   `yaml:"date"`
	DocumentClass string   `yaml:"documentclass"`
	Packages      []string `yaml:"packages"`
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body.
//
// If the document does not start with a delimiter, had is false and body is
// the full input.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	return content[start:end], content[start+idx+len(closeSeq):], true, nil
}

// Parse splits content and decodes its frontmatter into Metadata.
func Parse(content []byte) (Metadata, []byte, error) {
	fm, body, had, err := Split(content)
	if err != nil {
		return Metadata{}, nil, err
	}
	var meta Metadata
	if !had || len(bytes.TrimSpace(fm)) == 0 {
		return meta, body, nil
	}
	if err := yaml.Unmarshal(fm, &meta); err != nil {
		return Metadata{}, nil, fmt.Errorf("decode frontmatter: %w", err)
	}
	return meta, body, nil
}

func detectNewline(content []byte) string {
	i := bytes.IndexByte(content, '\n')
	if i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
