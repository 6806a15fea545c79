package testing

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// FileAssertions provides utilities for asserting file system state in tests
type FileAssertions struct {
	t       testing.TB
	baseDir string
}

// NewFileAssertions creates a new file assertions helper
func NewFileAssertions(t testing.TB, baseDir string) *FileAssertions {
	return &FileAssertions{
		t:       t,
		baseDir: baseDir,
	}
}

// AssertFileExists validates that a file exists
func (fa *FileAssertions) AssertFileExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		fa.t.Errorf("Expected file to exist: %s", fullPath)
	}
	return fa
}

// AssertFileNotExists validates that a file does not exist
func (fa *FileAssertions) AssertFileNotExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); err == nil {
		fa.t.Errorf("Expected file to not exist: %s", fullPath)
	}
	return fa
}

// AssertFileContains validates that a file contains expected content
func (fa *FileAssertions) AssertFileContains(relativePath, expectedContent string) *FileAssertions {
	fa.t.Helper()
	content, ok := fa.read(relativePath)
	if ok && !strings.Contains(content, expectedContent) {
		fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s",
			relativePath, expectedContent, content)
	}
	return fa
}

// AssertPDF validates that a file starts with the PDF magic bytes.
func (fa *FileAssertions) AssertPDF(relativePath string) *FileAssertions {
	fa.t.Helper()
	content, ok := fa.read(relativePath)
	if ok && !strings.HasPrefix(content, "%PDF-") {
		fa.t.Errorf("Expected %s to be a PDF, starts with %q", relativePath, firstBytes(content, 8))
	}
	return fa
}

// AssertOnlyFiles validates that a directory holds exactly the named entries.
// Engine runs must not leave side-files or temporary sources behind.
func (fa *FileAssertions) AssertOnlyFiles(relativePath string, names ...string) *FileAssertions {
	fa.t.Helper()
	got := fa.ListFiles(relativePath)
	want := slices.Clone(names)
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		fa.t.Errorf("Expected %s to contain exactly %v, found %v", relativePath, want, got)
	}
	return fa
}

// ListFiles returns a list of file names in a directory
func (fa *FileAssertions) ListFiles(relativePath string) []string {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		fa.t.Logf("Failed to read directory %s: %v", fullPath, err)
		return nil
	}

	files := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files
}

// GetFileContent returns the content of a file as a string
func (fa *FileAssertions) GetFileContent(relativePath string) string {
	fa.t.Helper()
	content, _ := fa.read(relativePath)
	return content
}

// WriteFile creates a file (and its parent directories) below the base directory.
func (fa *FileAssertions) WriteFile(relativePath, content string) string {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), testDirPermissions); err != nil {
		fa.t.Fatalf("Failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), testFilePermissions); err != nil {
		fa.t.Fatalf("Failed to write %s: %v", fullPath, err)
	}
	return fullPath
}

func (fa *FileAssertions) read(relativePath string) (string, bool) {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	content, err := os.ReadFile(fullPath)
	if err != nil {
		fa.t.Errorf("Failed to read file %s: %v", fullPath, err)
		return "", false
	}
	return string(content), true
}

func firstBytes(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
