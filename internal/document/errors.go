package document

import (
	"maps"
	"slices"
)

// ErrorKey names a diagnostic category in Errors.
type ErrorKey string

const (
	// KeyEngine holds "engine not found" or the captured console output of a failed render.
	KeyEngine ErrorKey = "engine"
	// KeyPostProcessor holds post-process precondition or execution failures.
	KeyPostProcessor ErrorKey = "postProcessor"
	// KeyMissingFonts holds the content of missfont.log.
	KeyMissingFonts ErrorKey = "missingFonts"
	// KeyPDF reports that stale output could not be removed before a build.
	KeyPDF ErrorKey = "pdf"
)

// Errors maps diagnostic categories to messages. An empty map signals a clean run.
type Errors map[ErrorKey]string

// Has reports whether key was recorded.
func (e Errors) Has(key ErrorKey) bool {
	_, ok := e[key]
	return ok
}

// Empty reports whether no diagnostics were recorded.
func (e Errors) Empty() bool { return len(e) == 0 }

// Keys returns the recorded keys in sorted order.
func (e Errors) Keys() []ErrorKey {
	return slices.Sorted(maps.Keys(e))
}

// Clone returns an independent copy; a nil receiver yields an empty map.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	maps.Copy(out, e)
	return out
}

// Strings converts the map to plain string keys for serialization.
func (e Errors) Strings() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[string(k)] = v
	}
	return out
}
