// Package metrics provides build observability for texbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metric calls never need nil checks:
//
//	builder, _ := document.New(document.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder registers its collectors on a caller-supplied registry.
// One-shot builds flush that registry with WriteTextfile (for the node
// exporter textfile collector); watch mode serves it through HTTPHandler.
package metrics
