// Package errors provides the classified error primitives used by texbuilder.
//
// A ClassifiedError carries a category and a severity alongside the message
// and optional cause. The CLI adapter turns categories into process exit codes
// and severities into slog levels.
//
// Example usage:
//
//	err := errors.EngineError("pdflatex failed").
//		WithContext("source", path).
//		WithCause(runErr).
//		Build()
package errors
