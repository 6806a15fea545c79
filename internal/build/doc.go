// Package build turns an input file into a PDF at a destination path.
//
// Service is the single execution path for the CLI and watch mode. A run
// renders Markdown input to LaTeX when needed, drives a document.Builder
// against a temporary copy of the source, runs the optional post-processor,
// and atomically copies the finished PDF into place. Every outcome is
// recorded in the history store, observed by the metrics recorder and
// published as a notify.Event.
//
// Inputs whose fingerprint matches the last successful build can be skipped
// with Request.SkipUnchanged.
package build
