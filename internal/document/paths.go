package document

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// File naming conventions relative to the source path.
const (
	OutputSuffix = ".pdf"

	// MissingFontsFile is written by the engine next to the source when font
	// packages are missing; it does not affect the exit code.
	MissingFontsFile = "missfont.log"
	// FallbackLogFile is written when the engine cannot locate its input at all.
	FallbackLogFile = "texput.log"

	// TempPrefix tags auto-generated source files in the temp directory.
	TempPrefix = "texbuilder-"
)

// sideFileSuffixes are engine artefacts removed after every build.
var sideFileSuffixes = []string{".out", ".aux", ".log"}

// OutputPathFor returns the rendered output path for a source path.
func OutputPathFor(sourcePath string) string {
	return sourcePath + OutputSuffix
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// removeIfExists deletes path, treating an absent file as success.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func siblingPath(sourcePath, name string) string {
	return filepath.Join(filepath.Dir(sourcePath), name)
}
